package datum

import (
	errorsmod "cosmossdk.io/errors"

	"github.com/cardano-ibc/gateway/types"
)

// ModuleDatum is the state of an application module bound to a port. It
// tracks which channels the module has opened; closed channels stay in the
// map with a false flag.
type ModuleDatum struct {
	OpenedChannels map[string]bool
}

func (d ModuleDatum) IsOpen(channelID string) bool {
	return d.OpenedChannels[channelID]
}

// WithChannel returns a copy with channelID marked open or closed.
func (d ModuleDatum) WithChannel(channelID string, open bool) ModuleDatum {
	next := ModuleDatum{OpenedChannels: make(map[string]bool, len(d.OpenedChannels)+1)}
	for k, v := range d.OpenedChannels {
		next.OpenedChannels[k] = v
	}
	next.OpenedChannels[channelID] = open
	return next
}

func (d ModuleDatum) Encode() ([]byte, error) {
	m := make(Map, 0, len(d.OpenedChannels))
	for _, id := range sortedKeys(d.OpenedChannels) {
		m = append(m, Pair{Key: []byte(id), Value: Bool(d.OpenedChannels[id])})
	}
	return Encode(NewConstr(0, m))
}

func DecodeModuleDatum(bz []byte) (ModuleDatum, error) {
	out := ModuleDatum{OpenedChannels: map[string]bool{}}
	d, err := Decode(bz)
	if err != nil {
		return out, errorsmod.Wrap(types.ErrDecode, err.Error())
	}
	fs, err := fields(d, 0, 1, "module datum")
	if err != nil {
		return out, err
	}
	entries, err := asMap(fs[0], "opened channels")
	if err != nil {
		return out, err
	}
	for _, p := range entries {
		id, err := asString(p.Key, "channel id")
		if err != nil {
			return out, err
		}
		open, err := asBool(p.Value, "channel open flag")
		if err != nil {
			return out, err
		}
		out.OpenedChannels[id] = open
	}
	return out, nil
}
