package state

import (
	errorsmod "cosmossdk.io/errors"

	"github.com/cardano-ibc/gateway/identifier"
	"github.com/cardano-ibc/gateway/types"
)

// Validator is a spending script and the address it locks.
type Validator struct {
	ScriptHash []byte
	Address    string
}

// Module is an application module bound to a port.
type Module struct {
	Port  uint64
	Token identifier.AuthToken
	Validator
}

// Deployment names the on-chain contracts the gateway drives.
type Deployment struct {
	HandlerToken   identifier.AuthToken
	HostStateToken identifier.AuthToken

	Handler    Validator
	HostState  Validator
	Client     Validator
	Connection Validator
	Channel    Validator

	ClientPolicy      []byte
	ConnectionPolicy  []byte
	ChannelPolicy     []byte
	VerifyProofPolicy []byte

	// Modules is keyed by port identifier.
	Modules map[string]Module
}

func (d Deployment) token(policy []byte, prefix string, seq uint64) (identifier.AuthToken, error) {
	name, err := identifier.DeriveTokenName(d.HandlerToken, prefix, seq)
	if err != nil {
		return identifier.AuthToken{}, errorsmod.Wrap(types.ErrInvalidArgument, err.Error())
	}
	return identifier.AuthToken{PolicyID: policy, Name: name}, nil
}

func (d Deployment) ClientToken(seq uint64) (identifier.AuthToken, error) {
	return d.token(d.ClientPolicy, identifier.ClientTokenPrefix, seq)
}

func (d Deployment) ConnectionToken(seq uint64) (identifier.AuthToken, error) {
	return d.token(d.ConnectionPolicy, identifier.ConnectionTokenPrefix, seq)
}

func (d Deployment) ChannelToken(seq uint64) (identifier.AuthToken, error) {
	return d.token(d.ChannelPolicy, identifier.ChannelTokenPrefix, seq)
}

// Module returns the module bound to portID.
func (d Deployment) Module(portID string) (Module, error) {
	if _, err := identifier.ParsePortID(portID); err != nil {
		return Module{}, err
	}
	m, ok := d.Modules[portID]
	if !ok {
		return Module{}, errorsmod.Wrapf(types.ErrNotFound, "no module bound to port %s", portID)
	}
	return m, nil
}
