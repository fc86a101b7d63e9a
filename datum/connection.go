package datum

import (
	errorsmod "cosmossdk.io/errors"

	connectiontypes "github.com/cosmos/ibc-go/v8/modules/core/03-connection/types"
	commitmenttypes "github.com/cosmos/ibc-go/v8/modules/core/23-commitment/types"

	"github.com/cardano-ibc/gateway/identifier"
	"github.com/cardano-ibc/gateway/types"
)

// AuthToken is the token identifying one IBC object on the ledger.
type AuthToken = identifier.AuthToken

type ConnectionState uint64

const (
	ConnStateUninitialized ConnectionState = iota
	ConnStateInit
	ConnStateTryOpen
	ConnStateOpen
)

func (s ConnectionState) String() string {
	switch s {
	case ConnStateUninitialized:
		return "STATE_UNINITIALIZED_UNSPECIFIED"
	case ConnStateInit:
		return "STATE_INIT"
	case ConnStateTryOpen:
		return "STATE_TRYOPEN"
	case ConnStateOpen:
		return "STATE_OPEN"
	}
	return "STATE_UNKNOWN"
}

type Version struct {
	Identifier string
	Features   []string
}

type ConnectionCounterparty struct {
	ClientID     string
	ConnectionID string
	Prefix       []byte
}

type ConnectionEnd struct {
	ClientID     string
	Versions     []Version
	State        ConnectionState
	Counterparty ConnectionCounterparty
	DelayPeriod  uint64
}

// ConnectionDatum is the datum held next to a connection token.
type ConnectionDatum struct {
	State ConnectionEnd
	Token AuthToken
}

func (c ConnectionEnd) plutus() Constr {
	versions := make(List, 0, len(c.Versions))
	for _, v := range c.Versions {
		versions = append(versions, NewConstr(0, []byte(v.Identifier), stringList(v.Features)))
	}
	return NewConstr(0,
		[]byte(c.ClientID),
		versions,
		NewConstr(uint64(c.State)),
		NewConstr(0,
			[]byte(c.Counterparty.ClientID),
			[]byte(c.Counterparty.ConnectionID),
			NewConstr(0, nonNil(c.Counterparty.Prefix)),
		),
		Int(c.DelayPeriod),
	)
}

func decodeConnectionEnd(d Data) (ConnectionEnd, error) {
	var c ConnectionEnd
	fs, err := fields(d, 0, 5, "connection end")
	if err != nil {
		return c, err
	}
	if c.ClientID, err = asString(fs[0], "client id"); err != nil {
		return c, err
	}
	versions, err := asList(fs[1], "versions")
	if err != nil {
		return c, err
	}
	for _, vd := range versions {
		vf, err := fields(vd, 0, 2, "version")
		if err != nil {
			return c, err
		}
		id, err := asString(vf[0], "version identifier")
		if err != nil {
			return c, err
		}
		features, err := asStrings(vf[1], "version features")
		if err != nil {
			return c, err
		}
		c.Versions = append(c.Versions, Version{Identifier: id, Features: features})
	}
	state, _, err := constrIndex(fs[2], "connection state")
	if err != nil {
		return c, err
	}
	if state > uint64(ConnStateOpen) {
		return c, errorsmod.Wrapf(types.ErrDecode, "unknown connection state %d", state)
	}
	c.State = ConnectionState(state)
	cp, err := fields(fs[3], 0, 3, "connection counterparty")
	if err != nil {
		return c, err
	}
	if c.Counterparty.ClientID, err = asString(cp[0], "counterparty client id"); err != nil {
		return c, err
	}
	if c.Counterparty.ConnectionID, err = asString(cp[1], "counterparty connection id"); err != nil {
		return c, err
	}
	prefix, err := fields(cp[2], 0, 1, "merkle prefix")
	if err != nil {
		return c, err
	}
	if c.Counterparty.Prefix, err = asBytes(prefix[0], "key prefix"); err != nil {
		return c, err
	}
	c.DelayPeriod, err = asUint(fs[4], "delay period")
	return c, err
}

func (d ConnectionDatum) Encode() ([]byte, error) {
	return Encode(NewConstr(0, d.State.plutus(), EncodeAuthToken(d.Token)))
}

func DecodeConnectionDatum(bz []byte) (ConnectionDatum, error) {
	var out ConnectionDatum
	d, err := Decode(bz)
	if err != nil {
		return out, errorsmod.Wrap(types.ErrDecode, err.Error())
	}
	fs, err := fields(d, 0, 2, "connection datum")
	if err != nil {
		return out, err
	}
	if out.State, err = decodeConnectionEnd(fs[0]); err != nil {
		return out, err
	}
	out.Token, err = DecodeAuthToken(fs[1])
	return out, err
}

// ToIBC converts the ledger connection end into its ibc-go form.
func (c ConnectionEnd) ToIBC() connectiontypes.ConnectionEnd {
	versions := make([]*connectiontypes.Version, 0, len(c.Versions))
	for _, v := range c.Versions {
		versions = append(versions, &connectiontypes.Version{Identifier: v.Identifier, Features: v.Features})
	}
	return connectiontypes.ConnectionEnd{
		ClientId: c.ClientID,
		Versions: versions,
		State:    connectiontypes.State(c.State),
		Counterparty: connectiontypes.Counterparty{
			ClientId:     c.Counterparty.ClientID,
			ConnectionId: c.Counterparty.ConnectionID,
			Prefix:       commitmenttypes.NewMerklePrefix(c.Counterparty.Prefix),
		},
		DelayPeriod: c.DelayPeriod,
	}
}

func VersionsFromIBC(versions []*connectiontypes.Version) []Version {
	out := make([]Version, 0, len(versions))
	for _, v := range versions {
		if v == nil {
			continue
		}
		out = append(out, Version{Identifier: v.Identifier, Features: v.Features})
	}
	return out
}

// DefaultVersions is the single ICS-03 version the gateway negotiates.
func DefaultVersions() []Version {
	return []Version{{Identifier: "1", Features: []string{"ORDER_ORDERED", "ORDER_UNORDERED"}}}
}
