package datum

import (
	"fmt"

	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
)

// Height is IBC's (revision_number, revision_height) pair.
type Height struct {
	RevisionNumber uint64
	RevisionHeight uint64
}

func (h Height) IsZero() bool {
	return h.RevisionNumber == 0 && h.RevisionHeight == 0
}

// Compare returns -1, 0 or 1 ordering by revision then height.
func (h Height) Compare(o Height) int {
	switch {
	case h.RevisionNumber < o.RevisionNumber:
		return -1
	case h.RevisionNumber > o.RevisionNumber:
		return 1
	case h.RevisionHeight < o.RevisionHeight:
		return -1
	case h.RevisionHeight > o.RevisionHeight:
		return 1
	}
	return 0
}

func (h Height) String() string {
	return fmt.Sprintf("%d-%d", h.RevisionNumber, h.RevisionHeight)
}

func (h Height) ToIBC() clienttypes.Height {
	return clienttypes.NewHeight(h.RevisionNumber, h.RevisionHeight)
}

func HeightFromIBC(h clienttypes.Height) Height {
	return Height{RevisionNumber: h.RevisionNumber, RevisionHeight: h.RevisionHeight}
}

func (h Height) plutus() Constr {
	return NewConstr(0, Int(h.RevisionNumber), Int(h.RevisionHeight))
}

func decodeHeight(d Data) (Height, error) {
	fs, err := fields(d, 0, 2, "height")
	if err != nil {
		return Height{}, err
	}
	number, err := asUint(fs[0], "revision number")
	if err != nil {
		return Height{}, err
	}
	height, err := asUint(fs[1], "revision height")
	if err != nil {
		return Height{}, err
	}
	return Height{RevisionNumber: number, RevisionHeight: height}, nil
}
