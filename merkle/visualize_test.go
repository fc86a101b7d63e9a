package merkle

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteDot(t *testing.T) {
	before, err := NewTree(genEntries(3))
	require.NoError(t, err)
	after, err := NewTree(genEntries(4))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteDot(&buf, after, before))
	out := buf.String()
	require.True(t, strings.HasPrefix(out, "digraph"))
	require.Contains(t, out, "sequences/4")
	require.Contains(t, out, "red")

	buf.Reset()
	require.NoError(t, WriteDot(&buf, after, nil))
	require.NotContains(t, buf.String(), "red")
}
