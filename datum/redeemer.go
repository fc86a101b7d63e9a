package datum

import (
	errorsmod "cosmossdk.io/errors"

	"github.com/cardano-ibc/gateway/types"
)

// HandlerOperator is the redeemer spending the handler UTXO.
type HandlerOperator uint64

const (
	HandlerCreateClient HandlerOperator = iota
	HandlerConnOpenInit
	HandlerConnOpenTry
	HandlerChanOpenInit
	HandlerChanOpenTry
	HandlerBindPort
)

func (op HandlerOperator) Plutus() Data { return NewConstr(uint64(op)) }

// MintClientRedeemer authorises minting a client token.
type MintClientRedeemer struct {
	HandlerToken AuthToken
}

func (r MintClientRedeemer) Plutus() Data {
	return NewConstr(0, EncodeAuthToken(r.HandlerToken))
}

// SpendClientRedeemer carries an UpdateClient header.
type SpendClientRedeemer struct {
	Header []byte
}

func (r SpendClientRedeemer) Plutus() Data {
	return NewConstr(0, nonNil(r.Header))
}

type MintConnectionKind uint64

const (
	MintConnOpenInit MintConnectionKind = iota
	MintConnOpenTry
)

type MintConnectionRedeemer struct {
	Kind                    MintConnectionKind
	HandlerToken            AuthToken
	CounterpartyClientState ClientState
	ProofInit               []byte
	ProofClient             []byte
	ProofHeight             Height
}

func (r MintConnectionRedeemer) Plutus() Data {
	if r.Kind == MintConnOpenInit {
		return NewConstr(0, EncodeAuthToken(r.HandlerToken))
	}
	return NewConstr(1,
		EncodeAuthToken(r.HandlerToken),
		r.CounterpartyClientState.plutus(),
		nonNil(r.ProofInit),
		nonNil(r.ProofClient),
		r.ProofHeight.plutus(),
	)
}

type SpendConnectionKind uint64

const (
	SpendConnOpenAck SpendConnectionKind = iota
	SpendConnOpenConfirm
)

type SpendConnectionRedeemer struct {
	Kind                    SpendConnectionKind
	CounterpartyClientState ClientState
	ProofTry                []byte
	ProofClient             []byte
	ProofAck                []byte
	ProofHeight             Height
}

func (r SpendConnectionRedeemer) Plutus() Data {
	if r.Kind == SpendConnOpenAck {
		return NewConstr(0,
			r.CounterpartyClientState.plutus(),
			nonNil(r.ProofTry),
			nonNil(r.ProofClient),
			r.ProofHeight.plutus(),
		)
	}
	return NewConstr(1, nonNil(r.ProofAck), r.ProofHeight.plutus())
}

// DecodeSpendConnectionKind reads only the alternative of a spend
// connection redeemer.
func DecodeSpendConnectionKind(bz []byte) (SpendConnectionKind, error) {
	d, err := Decode(bz)
	if err != nil {
		return 0, errorsmod.Wrap(types.ErrDecode, err.Error())
	}
	idx, _, err := constrIndex(d, "spend connection redeemer")
	if err != nil {
		return 0, err
	}
	if idx > uint64(SpendConnOpenConfirm) {
		return 0, errorsmod.Wrapf(types.ErrDecode, "unknown spend connection redeemer %d", idx)
	}
	return SpendConnectionKind(idx), nil
}

type MintChannelKind uint64

const (
	MintChanOpenInit MintChannelKind = iota
	MintChanOpenTry
)

type MintChannelRedeemer struct {
	Kind                MintChannelKind
	HandlerToken        AuthToken
	CounterpartyVersion string
	ProofInit           []byte
	ProofHeight         Height
}

func (r MintChannelRedeemer) Plutus() Data {
	if r.Kind == MintChanOpenInit {
		return NewConstr(0, EncodeAuthToken(r.HandlerToken))
	}
	return NewConstr(1,
		EncodeAuthToken(r.HandlerToken),
		[]byte(r.CounterpartyVersion),
		nonNil(r.ProofInit),
		r.ProofHeight.plutus(),
	)
}

type SpendChannelKind uint64

const (
	SpendChanOpenAck SpendChannelKind = iota
	SpendChanOpenConfirm
	SpendRecvPacket
	SpendTimeoutPacket
	SpendAcknowledgePacket
	SpendSendPacket
	SpendChanCloseInit
	SpendChanCloseConfirm
	SpendRefreshUtxo
)

func (k SpendChannelKind) String() string {
	switch k {
	case SpendChanOpenAck:
		return "ChanOpenAck"
	case SpendChanOpenConfirm:
		return "ChanOpenConfirm"
	case SpendRecvPacket:
		return "RecvPacket"
	case SpendTimeoutPacket:
		return "TimeoutPacket"
	case SpendAcknowledgePacket:
		return "AcknowledgePacket"
	case SpendSendPacket:
		return "SendPacket"
	case SpendChanCloseInit:
		return "ChanCloseInit"
	case SpendChanCloseConfirm:
		return "ChanCloseConfirm"
	case SpendRefreshUtxo:
		return "RefreshUtxo"
	}
	return "Unknown"
}

// SpendChannelRedeemer is the redeemer for spending a channel UTXO. Only the
// fields relevant to Kind are encoded.
type SpendChannelRedeemer struct {
	Kind                SpendChannelKind
	CounterpartyVersion string
	Proof               []byte
	ProofHeight         Height
	Packet              Packet
	Acknowledgement     []byte
	NextSequenceRecv    uint64
}

func (r SpendChannelRedeemer) Plutus() Data {
	k := uint64(r.Kind)
	switch r.Kind {
	case SpendChanOpenAck:
		return NewConstr(k, []byte(r.CounterpartyVersion), nonNil(r.Proof), r.ProofHeight.plutus())
	case SpendChanOpenConfirm, SpendChanCloseConfirm:
		return NewConstr(k, nonNil(r.Proof), r.ProofHeight.plutus())
	case SpendRecvPacket:
		return NewConstr(k, r.Packet.plutus(), nonNil(r.Proof), r.ProofHeight.plutus())
	case SpendTimeoutPacket:
		return NewConstr(k, r.Packet.plutus(), nonNil(r.Proof), r.ProofHeight.plutus(), Int(r.NextSequenceRecv))
	case SpendAcknowledgePacket:
		return NewConstr(k, r.Packet.plutus(), nonNil(r.Acknowledgement), nonNil(r.Proof), r.ProofHeight.plutus())
	case SpendSendPacket:
		return NewConstr(k, r.Packet.plutus())
	default:
		return NewConstr(k)
	}
}

// DecodeSpendChannelRedeemer recovers the kind and, for packet
// alternatives, the packet and acknowledgement.
func DecodeSpendChannelRedeemer(bz []byte) (SpendChannelRedeemer, error) {
	var r SpendChannelRedeemer
	d, err := Decode(bz)
	if err != nil {
		return r, errorsmod.Wrap(types.ErrDecode, err.Error())
	}
	idx, fs, err := constrIndex(d, "spend channel redeemer")
	if err != nil {
		return r, err
	}
	if idx > uint64(SpendRefreshUtxo) {
		return r, errorsmod.Wrapf(types.ErrDecode, "unknown spend channel redeemer %d", idx)
	}
	r.Kind = SpendChannelKind(idx)
	switch r.Kind {
	case SpendRecvPacket, SpendTimeoutPacket, SpendAcknowledgePacket, SpendSendPacket:
		if len(fs) == 0 {
			return r, errorsmod.Wrapf(types.ErrDecode, "%s redeemer without packet", r.Kind)
		}
		if r.Packet, err = decodePacket(fs[0]); err != nil {
			return r, err
		}
	}
	if r.Kind == SpendAcknowledgePacket && len(fs) > 1 {
		if r.Acknowledgement, err = asBytes(fs[1], "acknowledgement"); err != nil {
			return r, err
		}
	}
	return r, nil
}

type CallbackKind uint64

const (
	OnChanOpenInit CallbackKind = iota
	OnChanOpenTry
	OnChanOpenAck
	OnChanOpenConfirm
	OnChanCloseInit
	OnChanCloseConfirm
	OnRecvPacket
	OnTimeoutPacket
	OnAcknowledgementPacket
)

// ModuleCallback is the redeemer handed to the application module bound to
// the channel's port.
type ModuleCallback struct {
	Kind            CallbackKind
	ChannelID       string
	Acknowledgement []byte
	Data            []byte
}

func (c ModuleCallback) Plutus() Data {
	var cb Constr
	switch c.Kind {
	case OnRecvPacket:
		cb = NewConstr(uint64(c.Kind), []byte(c.ChannelID), nonNil(c.Acknowledgement), nonNil(c.Data))
	case OnTimeoutPacket:
		cb = NewConstr(uint64(c.Kind), []byte(c.ChannelID), nonNil(c.Data))
	case OnAcknowledgementPacket:
		cb = NewConstr(uint64(c.Kind), []byte(c.ChannelID), nonNil(c.Acknowledgement), nonNil(c.Data))
	default:
		cb = NewConstr(uint64(c.Kind), []byte(c.ChannelID))
	}
	return NewConstr(0, cb)
}

// DecodeModuleCallback is the inverse of ModuleCallback.Plutus.
func DecodeModuleCallback(bz []byte) (ModuleCallback, error) {
	var c ModuleCallback
	d, err := Decode(bz)
	if err != nil {
		return c, errorsmod.Wrap(types.ErrDecode, err.Error())
	}
	outer, err := fields(d, 0, 1, "module redeemer")
	if err != nil {
		return c, err
	}
	idx, fs, err := constrIndex(outer[0], "module callback")
	if err != nil {
		return c, err
	}
	if idx > uint64(OnAcknowledgementPacket) || len(fs) == 0 {
		return c, errorsmod.Wrapf(types.ErrDecode, "malformed module callback %d", idx)
	}
	c.Kind = CallbackKind(idx)
	if c.ChannelID, err = asString(fs[0], "channel id"); err != nil {
		return c, err
	}
	switch c.Kind {
	case OnRecvPacket, OnAcknowledgementPacket:
		if len(fs) != 3 {
			return c, errorsmod.Wrapf(types.ErrDecode, "module callback %d: expected 3 fields, got %d", idx, len(fs))
		}
		if c.Acknowledgement, err = asBytes(fs[1], "acknowledgement"); err != nil {
			return c, err
		}
		c.Data, err = asBytes(fs[2], "packet data")
	case OnTimeoutPacket:
		if len(fs) != 2 {
			return c, errorsmod.Wrapf(types.ErrDecode, "module callback %d: expected 2 fields, got %d", idx, len(fs))
		}
		c.Data, err = asBytes(fs[1], "packet data")
	}
	return c, err
}

// ModuleTransfer is the operator redeemer asking the transfer module to
// send a packet.
type ModuleTransfer struct {
	ChannelID string
	Data      []byte
}

func (t ModuleTransfer) Plutus() Data {
	return NewConstr(1, NewConstr(0, []byte(t.ChannelID), nonNil(t.Data)))
}

// Membership is one proof the on-chain verifier checks against the
// counterparty consensus root at ProofHeight.
type Membership struct {
	Root        []byte
	ProofHeight Height
	Proof       []byte
	Path        []string
	Value       []byte
}

// BatchVerifyMembership bundles proofs for the verify-proof minting policy.
type BatchVerifyMembership []Membership

func (b BatchVerifyMembership) Plutus() Data {
	items := make(List, 0, len(b))
	for _, m := range b {
		items = append(items, NewConstr(0,
			NewConstr(0, nonNil(m.Root)),
			m.ProofHeight.plutus(),
			nonNil(m.Proof),
			stringList(m.Path),
			nonNil(m.Value),
		))
	}
	return NewConstr(2, items)
}

// Redeemer is any value with a Plutus rendering.
type Redeemer interface {
	Plutus() Data
}

// EncodeRedeemer serialises r.
func EncodeRedeemer(r Redeemer) ([]byte, error) {
	return Encode(r.Plutus())
}

// UpdateHostState is the redeemer spending the host-state output whenever
// the committed root changes.
type UpdateHostState struct{}

func (UpdateHostState) Plutus() Data { return NewConstr(0) }
