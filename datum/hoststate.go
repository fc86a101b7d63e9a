package datum

import (
	errorsmod "cosmossdk.io/errors"

	"github.com/cardano-ibc/gateway/types"
)

// HostStateDatum is the singleton carrying the committed IBC state root.
// LastUpdateTime is in unix milliseconds.
type HostStateDatum struct {
	Version        uint64
	IBCStateRoot   []byte
	LastUpdateTime uint64
	Token          AuthToken
}

func (d HostStateDatum) Encode() ([]byte, error) {
	return Encode(NewConstr(0,
		NewConstr(0, Int(d.Version), nonNil(d.IBCStateRoot), Int(d.LastUpdateTime)),
		EncodeAuthToken(d.Token),
	))
}

func DecodeHostStateDatum(bz []byte) (HostStateDatum, error) {
	var out HostStateDatum
	d, err := Decode(bz)
	if err != nil {
		return out, errorsmod.Wrap(types.ErrDecode, err.Error())
	}
	fs, err := fields(d, 0, 2, "host state datum")
	if err != nil {
		return out, err
	}
	st, err := fields(fs[0], 0, 3, "host state")
	if err != nil {
		return out, err
	}
	if out.Version, err = asUint(st[0], "host state version"); err != nil {
		return out, err
	}
	if out.IBCStateRoot, err = asBytes(st[1], "ibc state root"); err != nil {
		return out, err
	}
	if out.LastUpdateTime, err = asUint(st[2], "last update time"); err != nil {
		return out, err
	}
	out.Token, err = DecodeAuthToken(fs[1])
	return out, err
}
