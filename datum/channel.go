package datum

import (
	errorsmod "cosmossdk.io/errors"

	channeltypes "github.com/cosmos/ibc-go/v8/modules/core/04-channel/types"

	"github.com/cardano-ibc/gateway/types"
)

type ChannelState uint64

const (
	ChanStateUninitialized ChannelState = iota
	ChanStateInit
	ChanStateTryOpen
	ChanStateOpen
	ChanStateClose
)

func (s ChannelState) String() string {
	switch s {
	case ChanStateUninitialized:
		return "STATE_UNINITIALIZED_UNSPECIFIED"
	case ChanStateInit:
		return "STATE_INIT"
	case ChanStateTryOpen:
		return "STATE_TRYOPEN"
	case ChanStateOpen:
		return "STATE_OPEN"
	case ChanStateClose:
		return "STATE_CLOSED"
	}
	return "STATE_UNKNOWN"
}

type ChannelOrder uint64

const (
	OrderNone ChannelOrder = iota
	OrderUnordered
	OrderOrdered
)

type ChannelCounterparty struct {
	PortID    string
	ChannelID string
}

type Channel struct {
	State          ChannelState
	Ordering       ChannelOrder
	Counterparty   ChannelCounterparty
	ConnectionHops []string
	Version        string
}

// ChannelDatumState is the channel end plus its sequence counters and
// packet maps.
type ChannelDatumState struct {
	Channel               Channel
	NextSequenceSend      uint64
	NextSequenceRecv      uint64
	NextSequenceAck       uint64
	PacketCommitment      *SeqMap
	PacketReceipt         *SeqMap
	PacketAcknowledgement *SeqMap
}

type ChannelDatum struct {
	State ChannelDatumState
	Port  string
	Token AuthToken
}

// NewChannelDatumState returns the state of a freshly opened channel end:
// all sequences start at 1 and the packet maps are empty.
func NewChannelDatumState(ch Channel) ChannelDatumState {
	return ChannelDatumState{
		Channel:               ch,
		NextSequenceSend:      1,
		NextSequenceRecv:      1,
		NextSequenceAck:       1,
		PacketCommitment:      NewSeqMap(),
		PacketReceipt:         NewSeqMap(),
		PacketAcknowledgement: NewSeqMap(),
	}
}

// Clone deep-copies the packet maps so the copy can be mutated freely.
func (s ChannelDatumState) Clone() ChannelDatumState {
	c := s
	c.Channel.ConnectionHops = append([]string(nil), s.Channel.ConnectionHops...)
	c.PacketCommitment = s.PacketCommitment.Clone()
	c.PacketReceipt = s.PacketReceipt.Clone()
	c.PacketAcknowledgement = s.PacketAcknowledgement.Clone()
	return c
}

func (c Channel) plutus() Constr {
	return NewConstr(0,
		NewConstr(uint64(c.State)),
		NewConstr(uint64(c.Ordering)),
		NewConstr(0, []byte(c.Counterparty.PortID), []byte(c.Counterparty.ChannelID)),
		stringList(c.ConnectionHops),
		[]byte(c.Version),
	)
}

func decodeChannel(d Data) (Channel, error) {
	var c Channel
	fs, err := fields(d, 0, 5, "channel")
	if err != nil {
		return c, err
	}
	state, _, err := constrIndex(fs[0], "channel state")
	if err != nil {
		return c, err
	}
	if state > uint64(ChanStateClose) {
		return c, errorsmod.Wrapf(types.ErrDecode, "unknown channel state %d", state)
	}
	c.State = ChannelState(state)
	order, _, err := constrIndex(fs[1], "channel ordering")
	if err != nil {
		return c, err
	}
	if order > uint64(OrderOrdered) {
		return c, errorsmod.Wrapf(types.ErrDecode, "unknown channel ordering %d", order)
	}
	c.Ordering = ChannelOrder(order)
	cp, err := fields(fs[2], 0, 2, "channel counterparty")
	if err != nil {
		return c, err
	}
	if c.Counterparty.PortID, err = asString(cp[0], "counterparty port"); err != nil {
		return c, err
	}
	if c.Counterparty.ChannelID, err = asString(cp[1], "counterparty channel"); err != nil {
		return c, err
	}
	if c.ConnectionHops, err = asStrings(fs[3], "connection hops"); err != nil {
		return c, err
	}
	c.Version, err = asString(fs[4], "channel version")
	return c, err
}

func (s ChannelDatumState) plutus() Constr {
	return NewConstr(0,
		s.Channel.plutus(),
		Int(s.NextSequenceSend),
		Int(s.NextSequenceRecv),
		Int(s.NextSequenceAck),
		s.PacketCommitment.plutus(),
		s.PacketReceipt.plutus(),
		s.PacketAcknowledgement.plutus(),
	)
}

func decodeChannelDatumState(d Data) (ChannelDatumState, error) {
	var s ChannelDatumState
	fs, err := fields(d, 0, 7, "channel datum state")
	if err != nil {
		return s, err
	}
	if s.Channel, err = decodeChannel(fs[0]); err != nil {
		return s, err
	}
	if s.NextSequenceSend, err = asUint(fs[1], "next sequence send"); err != nil {
		return s, err
	}
	if s.NextSequenceRecv, err = asUint(fs[2], "next sequence recv"); err != nil {
		return s, err
	}
	if s.NextSequenceAck, err = asUint(fs[3], "next sequence ack"); err != nil {
		return s, err
	}
	if s.PacketCommitment, err = decodeSeqMap(fs[4], "packet commitment"); err != nil {
		return s, err
	}
	if s.PacketReceipt, err = decodeSeqMap(fs[5], "packet receipt"); err != nil {
		return s, err
	}
	s.PacketAcknowledgement, err = decodeSeqMap(fs[6], "packet acknowledgement")
	return s, err
}

func (d ChannelDatum) Encode() ([]byte, error) {
	return Encode(NewConstr(0, d.State.plutus(), []byte(d.Port), EncodeAuthToken(d.Token)))
}

func DecodeChannelDatum(bz []byte) (ChannelDatum, error) {
	var out ChannelDatum
	d, err := Decode(bz)
	if err != nil {
		return out, errorsmod.Wrap(types.ErrDecode, err.Error())
	}
	fs, err := fields(d, 0, 3, "channel datum")
	if err != nil {
		return out, err
	}
	if out.State, err = decodeChannelDatumState(fs[0]); err != nil {
		return out, err
	}
	if out.Port, err = asString(fs[1], "channel port"); err != nil {
		return out, err
	}
	out.Token, err = DecodeAuthToken(fs[2])
	return out, err
}

func (c Channel) ToIBC() channeltypes.Channel {
	state := channeltypes.State(c.State)
	if c.State == ChanStateClose {
		state = channeltypes.CLOSED
	}
	return channeltypes.Channel{
		State:    state,
		Ordering: channeltypes.Order(c.Ordering),
		Counterparty: channeltypes.Counterparty{
			PortId:    c.Counterparty.PortID,
			ChannelId: c.Counterparty.ChannelID,
		},
		ConnectionHops: c.ConnectionHops,
		Version:        c.Version,
	}
}

func OrderFromIBC(o channeltypes.Order) ChannelOrder {
	switch o {
	case channeltypes.ORDERED:
		return OrderOrdered
	case channeltypes.UNORDERED:
		return OrderUnordered
	}
	return OrderNone
}
