package datum

import (
	errorsmod "cosmossdk.io/errors"

	"github.com/cardano-ibc/gateway/types"
)

// HandlerState holds the global allocation counters. They only ever grow.
type HandlerState struct {
	NextClientSequence     uint64
	NextConnectionSequence uint64
	NextChannelSequence    uint64
	BoundPort              []uint64
}

type HandlerDatum struct {
	State HandlerState
	Token AuthToken
}

// BumpClient returns the allocated client sequence and the successor state.
func (s HandlerState) BumpClient() (uint64, HandlerState) {
	next := s.clone()
	next.NextClientSequence++
	return s.NextClientSequence, next
}

func (s HandlerState) BumpConnection() (uint64, HandlerState) {
	next := s.clone()
	next.NextConnectionSequence++
	return s.NextConnectionSequence, next
}

func (s HandlerState) BumpChannel() (uint64, HandlerState) {
	next := s.clone()
	next.NextChannelSequence++
	return s.NextChannelSequence, next
}

// IsPortBound reports whether port is in the bound set.
func (s HandlerState) IsPortBound(port uint64) bool {
	for _, p := range s.BoundPort {
		if p == port {
			return true
		}
	}
	return false
}

// BindPort adds port to the bound set.
func (s HandlerState) BindPort(port uint64) (HandlerState, error) {
	if s.IsPortBound(port) {
		return s, errorsmod.Wrapf(types.ErrInvalidArgument, "port %d already bound", port)
	}
	next := s.clone()
	next.BoundPort = append(next.BoundPort, port)
	return next, nil
}

func (s HandlerState) clone() HandlerState {
	c := s
	c.BoundPort = append([]uint64(nil), s.BoundPort...)
	return c
}

func (d HandlerDatum) Encode() ([]byte, error) {
	ports := make(List, 0, len(d.State.BoundPort))
	for _, p := range d.State.BoundPort {
		ports = append(ports, Int(p))
	}
	return Encode(NewConstr(0,
		NewConstr(0,
			Int(d.State.NextClientSequence),
			Int(d.State.NextConnectionSequence),
			Int(d.State.NextChannelSequence),
			ports,
		),
		EncodeAuthToken(d.Token),
	))
}

func DecodeHandlerDatum(bz []byte) (HandlerDatum, error) {
	var out HandlerDatum
	d, err := Decode(bz)
	if err != nil {
		return out, errorsmod.Wrap(types.ErrDecode, err.Error())
	}
	fs, err := fields(d, 0, 2, "handler datum")
	if err != nil {
		return out, err
	}
	st, err := fields(fs[0], 0, 4, "handler state")
	if err != nil {
		return out, err
	}
	if out.State.NextClientSequence, err = asUint(st[0], "next client sequence"); err != nil {
		return out, err
	}
	if out.State.NextConnectionSequence, err = asUint(st[1], "next connection sequence"); err != nil {
		return out, err
	}
	if out.State.NextChannelSequence, err = asUint(st[2], "next channel sequence"); err != nil {
		return out, err
	}
	ports, err := asList(st[3], "bound ports")
	if err != nil {
		return out, err
	}
	for _, p := range ports {
		port, err := asUint(p, "bound port")
		if err != nil {
			return out, err
		}
		out.State.BoundPort = append(out.State.BoundPort, port)
	}
	out.Token, err = DecodeAuthToken(fs[1])
	return out, err
}
