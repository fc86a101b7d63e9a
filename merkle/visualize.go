package merkle

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/emicklei/dot"
)

// WriteDot renders t as a graphviz digraph. Nodes absent from previous are
// drawn in red so two renderings can be compared across rebuilds.
func WriteDot(w io.Writer, t, previous *Tree) error {
	graph := dotGraph(t, previous)
	graph.Write(w)
	return nil
}

func dotGraph(t, previous *Tree) *dot.Graph {
	graph := dot.NewGraph(dot.Directed)
	var last *dot.Graph
	if previous != nil {
		last = dotGraph(previous, nil)
	}

	var traverse func(n *node) dot.Node
	traverse = func(n *node) dot.Node {
		id := hex.EncodeToString(n.hash)
		label := id[:8]
		if n.isLeaf() {
			label = fmt.Sprintf("%s\n%s", n.key, id[:8])
		}
		g := graph.Node(id).Label(label)
		if n.isLeaf() {
			g.Attr("shape", "box")
		}
		if last != nil {
			if _, found := last.FindNodeById(id); !found {
				g.Attr("color", "red")
			}
		}
		if n.isLeaf() {
			return g
		}
		left := traverse(n.left)
		right := traverse(n.right)
		leftEdge := g.Edge(left, "l")
		rightEdge := g.Edge(right, "r")
		if last != nil {
			if edges := last.FindEdges(g, left); len(edges) == 0 {
				leftEdge.Attr("color", "red")
			}
			if edges := last.FindEdges(g, right); len(edges) == 0 {
				rightEdge.Attr("color", "red")
			}
		}
		return g
	}

	if t != nil && t.root != nil {
		traverse(t.root)
	}
	return graph
}
