package datum

import (
	"sort"
	"time"

	errorsmod "cosmossdk.io/errors"

	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	commitmenttypes "github.com/cosmos/ibc-go/v8/modules/core/23-commitment/types"
	ibctm "github.com/cosmos/ibc-go/v8/modules/light-clients/07-tendermint"

	"github.com/cardano-ibc/gateway/types"
)

type Fraction struct {
	Numerator   uint64
	Denominator uint64
}

// ClientState is the counterparty light client as stored on the ledger.
// Durations are in nanoseconds.
type ClientState struct {
	ChainID         string
	TrustLevel      Fraction
	TrustingPeriod  uint64
	UnbondingPeriod uint64
	MaxClockDrift   uint64
	FrozenHeight    Height
	LatestHeight    Height
	UpgradePath     []string
}

// ConsensusState carries the timestamp in unix nanoseconds.
type ConsensusState struct {
	Timestamp          uint64
	NextValidatorsHash []byte
	Root               []byte
}

type ClientDatumState struct {
	ClientState     ClientState
	ConsensusStates map[Height]ConsensusState
}

type ClientDatum struct {
	State ClientDatumState
	Token AuthToken
}

// Heights returns the consensus-state heights in ascending order.
func (s ClientDatumState) Heights() []Height {
	hs := make([]Height, 0, len(s.ConsensusStates))
	for h := range s.ConsensusStates {
		hs = append(hs, h)
	}
	sort.Slice(hs, func(i, j int) bool { return hs[i].Compare(hs[j]) < 0 })
	return hs
}

// Clone copies the consensus-state map so the copy can be extended.
func (s ClientDatumState) Clone() ClientDatumState {
	c := s
	c.ClientState.UpgradePath = append([]string(nil), s.ClientState.UpgradePath...)
	c.ConsensusStates = make(map[Height]ConsensusState, len(s.ConsensusStates))
	for h, cs := range s.ConsensusStates {
		c.ConsensusStates[h] = cs
	}
	return c
}

// HasConsensusState reports whether h is a height the client can verify
// proofs against.
func (s ClientDatumState) HasConsensusState(h Height) bool {
	_, ok := s.ConsensusStates[h]
	return ok
}

// AddConsensusState records cs at h. Re-adding the same state is a no-op;
// a different state at an existing height is a conflicting write.
func (s *ClientDatumState) AddConsensusState(h Height, cs ConsensusState) error {
	if s.ConsensusStates == nil {
		s.ConsensusStates = make(map[Height]ConsensusState)
	}
	if prev, ok := s.ConsensusStates[h]; ok {
		if prev.Timestamp == cs.Timestamp && string(prev.Root) == string(cs.Root) &&
			string(prev.NextValidatorsHash) == string(cs.NextValidatorsHash) {
			return nil
		}
		return errorsmod.Wrapf(types.ErrConflictingWrite, "consensus state at height %s differs from the stored one", h)
	}
	s.ConsensusStates[h] = cs
	if h.Compare(s.ClientState.LatestHeight) > 0 {
		s.ClientState.LatestHeight = h
	}
	return nil
}

func (c ClientState) plutus() Constr {
	return NewConstr(0,
		[]byte(c.ChainID),
		NewConstr(0, Int(c.TrustLevel.Numerator), Int(c.TrustLevel.Denominator)),
		Int(c.TrustingPeriod),
		Int(c.UnbondingPeriod),
		Int(c.MaxClockDrift),
		c.FrozenHeight.plutus(),
		c.LatestHeight.plutus(),
		stringList(c.UpgradePath),
	)
}

func decodeClientState(d Data) (ClientState, error) {
	var c ClientState
	fs, err := fields(d, 0, 8, "client state")
	if err != nil {
		return c, err
	}
	if c.ChainID, err = asString(fs[0], "chain id"); err != nil {
		return c, err
	}
	tl, err := fields(fs[1], 0, 2, "trust level")
	if err != nil {
		return c, err
	}
	if c.TrustLevel.Numerator, err = asUint(tl[0], "trust numerator"); err != nil {
		return c, err
	}
	if c.TrustLevel.Denominator, err = asUint(tl[1], "trust denominator"); err != nil {
		return c, err
	}
	if c.TrustingPeriod, err = asUint(fs[2], "trusting period"); err != nil {
		return c, err
	}
	if c.UnbondingPeriod, err = asUint(fs[3], "unbonding period"); err != nil {
		return c, err
	}
	if c.MaxClockDrift, err = asUint(fs[4], "max clock drift"); err != nil {
		return c, err
	}
	if c.FrozenHeight, err = decodeHeight(fs[5]); err != nil {
		return c, err
	}
	if c.LatestHeight, err = decodeHeight(fs[6]); err != nil {
		return c, err
	}
	c.UpgradePath, err = asStrings(fs[7], "upgrade path")
	return c, err
}

func (cs ConsensusState) plutus() Constr {
	return NewConstr(0,
		Int(cs.Timestamp),
		nonNil(cs.NextValidatorsHash),
		NewConstr(0, nonNil(cs.Root)),
	)
}

func decodeConsensusState(d Data) (ConsensusState, error) {
	var cs ConsensusState
	fs, err := fields(d, 0, 3, "consensus state")
	if err != nil {
		return cs, err
	}
	if cs.Timestamp, err = asUint(fs[0], "timestamp"); err != nil {
		return cs, err
	}
	if cs.NextValidatorsHash, err = asBytes(fs[1], "next validators hash"); err != nil {
		return cs, err
	}
	root, err := fields(fs[2], 0, 1, "commitment root")
	if err != nil {
		return cs, err
	}
	cs.Root, err = asBytes(root[0], "root hash")
	return cs, err
}

func (d ClientDatum) Encode() ([]byte, error) {
	states := make(Map, 0, len(d.State.ConsensusStates))
	for _, h := range d.State.Heights() {
		states = append(states, Pair{Key: h.plutus(), Value: d.State.ConsensusStates[h].plutus()})
	}
	return Encode(NewConstr(0,
		NewConstr(0, d.State.ClientState.plutus(), states),
		EncodeAuthToken(d.Token),
	))
}

func DecodeClientDatum(bz []byte) (ClientDatum, error) {
	var out ClientDatum
	d, err := Decode(bz)
	if err != nil {
		return out, errorsmod.Wrap(types.ErrDecode, err.Error())
	}
	fs, err := fields(d, 0, 2, "client datum")
	if err != nil {
		return out, err
	}
	st, err := fields(fs[0], 0, 2, "client datum state")
	if err != nil {
		return out, err
	}
	if out.State.ClientState, err = decodeClientState(st[0]); err != nil {
		return out, err
	}
	entries, err := asMap(st[1], "consensus states")
	if err != nil {
		return out, err
	}
	out.State.ConsensusStates = make(map[Height]ConsensusState, len(entries))
	for _, p := range entries {
		h, err := decodeHeight(p.Key)
		if err != nil {
			return out, err
		}
		cs, err := decodeConsensusState(p.Value)
		if err != nil {
			return out, err
		}
		out.State.ConsensusStates[h] = cs
	}
	out.Token, err = DecodeAuthToken(fs[1])
	return out, err
}

// ToIBC renders the client state as a 07-tendermint client state.
func (c ClientState) ToIBC() *ibctm.ClientState {
	return &ibctm.ClientState{
		ChainId:         c.ChainID,
		TrustLevel:      ibctm.Fraction{Numerator: c.TrustLevel.Numerator, Denominator: c.TrustLevel.Denominator},
		TrustingPeriod:  time.Duration(c.TrustingPeriod),
		UnbondingPeriod: time.Duration(c.UnbondingPeriod),
		MaxClockDrift:   time.Duration(c.MaxClockDrift),
		FrozenHeight:    c.FrozenHeight.ToIBC(),
		LatestHeight:    c.LatestHeight.ToIBC(),
		ProofSpecs:      commitmenttypes.GetSDKSpecs(),
		UpgradePath:     c.UpgradePath,
	}
}

func ClientStateFromIBC(cs *ibctm.ClientState) ClientState {
	return ClientState{
		ChainID:         cs.ChainId,
		TrustLevel:      Fraction{Numerator: cs.TrustLevel.Numerator, Denominator: cs.TrustLevel.Denominator},
		TrustingPeriod:  uint64(cs.TrustingPeriod),
		UnbondingPeriod: uint64(cs.UnbondingPeriod),
		MaxClockDrift:   uint64(cs.MaxClockDrift),
		FrozenHeight:    HeightFromIBC(cs.FrozenHeight),
		LatestHeight:    HeightFromIBC(cs.LatestHeight),
		UpgradePath:     cs.UpgradePath,
	}
}

func (cs ConsensusState) ToIBC() *ibctm.ConsensusState {
	return &ibctm.ConsensusState{
		Timestamp:          time.Unix(0, int64(cs.Timestamp)).UTC(),
		Root:               commitmenttypes.NewMerkleRoot(cs.Root),
		NextValidatorsHash: cs.NextValidatorsHash,
	}
}

func ConsensusStateFromIBC(cs *ibctm.ConsensusState) ConsensusState {
	return ConsensusState{
		Timestamp:          uint64(cs.Timestamp.UnixNano()),
		NextValidatorsHash: cs.NextValidatorsHash,
		Root:               cs.Root.GetHash(),
	}
}

// LatestIBCHeight is a convenience for query responses.
func (c ClientState) LatestIBCHeight() clienttypes.Height {
	return c.LatestHeight.ToIBC()
}
