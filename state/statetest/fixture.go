// Package statetest seeds an in-memory ledger with a complete deployment.
package statetest

import (
	"bytes"
	"context"
	"testing"

	"cosmossdk.io/log"
	"github.com/stretchr/testify/require"

	"github.com/cardano-ibc/gateway/datum"
	"github.com/cardano-ibc/gateway/identifier"
	"github.com/cardano-ibc/gateway/merkle"
	"github.com/cardano-ibc/gateway/state"
	"github.com/cardano-ibc/gateway/testutil"
)

// TransferPort is the port the fixture binds its transfer module to.
const TransferPort = "port-100"

func policy(b byte) []byte { return bytes.Repeat([]byte{b}, 28) }

// Deployment is a fixed deployment with distinct policies and scripts.
func Deployment() state.Deployment {
	validator := func(b byte, addr string) state.Validator {
		return state.Validator{ScriptHash: policy(b), Address: addr}
	}
	return state.Deployment{
		HandlerToken:      identifier.AuthToken{PolicyID: policy(0x01), Name: []byte("handler")},
		HostStateToken:    identifier.AuthToken{PolicyID: policy(0x02), Name: []byte("host_state")},
		Handler:           validator(0x11, "addr_test1handler"),
		HostState:         validator(0x12, "addr_test1host"),
		Client:            validator(0x13, "addr_test1client"),
		Connection:        validator(0x14, "addr_test1connection"),
		Channel:           validator(0x15, "addr_test1channel"),
		ClientPolicy:      policy(0x21),
		ConnectionPolicy:  policy(0x22),
		ChannelPolicy:     policy(0x23),
		VerifyProofPolicy: policy(0x24),
		Modules: map[string]state.Module{
			TransferPort: {
				Port:      100,
				Token:     identifier.AuthToken{PolicyID: policy(0x03), Name: []byte("transfer")},
				Validator: validator(0x16, "addr_test1transfer"),
			},
		},
	}
}

// Fixture is a ledger holding the handler, host-state and transfer module
// outputs of Deployment.
type Fixture struct {
	Ledger *testutil.Ledger
	Deploy state.Deployment
	Reader *state.Reader
}

func NewFixture(t testing.TB) *Fixture {
	t.Helper()
	f := &Fixture{Ledger: testutil.NewLedger(), Deploy: Deployment()}
	f.Reader = state.NewReader(f.Ledger, nil, f.Deploy, log.NewNopLogger())

	handler := datum.HandlerDatum{
		State: datum.HandlerState{BoundPort: []uint64{100}},
		Token: f.Deploy.HandlerToken,
	}
	f.Ledger.PutToken(f.Deploy.Handler.Address, f.Deploy.HandlerToken, encode(t, handler))

	host := datum.HostStateDatum{IBCStateRoot: (*merkle.Tree)(nil).Root(), Token: f.Deploy.HostStateToken}
	f.Ledger.PutToken(f.Deploy.HostState.Address, f.Deploy.HostStateToken, encode(t, host))

	transfer := f.Deploy.Modules[TransferPort]
	f.Ledger.PutToken(transfer.Address, transfer.Token, encode(t, datum.ModuleDatum{OpenedChannels: map[string]bool{}}))
	return f
}

type encoder interface {
	Encode() ([]byte, error)
}

func encode(t testing.TB, d encoder) []byte {
	t.Helper()
	bz, err := d.Encode()
	require.NoError(t, err)
	return bz
}

// SetHandler replaces the handler datum state.
func (f *Fixture) SetHandler(t testing.TB, st datum.HandlerState) {
	t.Helper()
	_, err := f.Ledger.Move(f.Deploy.HandlerToken, encode(t, datum.HandlerDatum{State: st, Token: f.Deploy.HandlerToken}))
	require.NoError(t, err)
}

// PutClient stores a client at seq without touching the handler counters.
func (f *Fixture) PutClient(t testing.TB, seq uint64, st datum.ClientDatumState) string {
	t.Helper()
	token, err := f.Deploy.ClientToken(seq)
	require.NoError(t, err)
	f.put(t, f.Deploy.Client.Address, token, datum.ClientDatum{State: st, Token: token})
	return identifier.ClientID(seq)
}

func (f *Fixture) PutConnection(t testing.TB, seq uint64, end datum.ConnectionEnd) string {
	t.Helper()
	token, err := f.Deploy.ConnectionToken(seq)
	require.NoError(t, err)
	f.put(t, f.Deploy.Connection.Address, token, datum.ConnectionDatum{State: end, Token: token})
	return identifier.ConnectionID(seq)
}

func (f *Fixture) PutChannel(t testing.TB, portID string, seq uint64, st datum.ChannelDatumState) string {
	t.Helper()
	token, err := f.Deploy.ChannelToken(seq)
	require.NoError(t, err)
	f.put(t, f.Deploy.Channel.Address, token, datum.ChannelDatum{State: st, Port: portID, Token: token})
	return identifier.ChannelID(seq)
}

// put replaces the holder of token when there is one.
func (f *Fixture) put(t testing.TB, address string, token identifier.AuthToken, d encoder) {
	bz := encode(t, d)
	if _, err := f.Ledger.UTXOByToken(context.Background(), token); err == nil {
		_, err := f.Ledger.Move(token, bz)
		require.NoError(t, err)
		return
	}
	f.Ledger.PutToken(address, token, bz)
}

// Commit recomputes the state root from the ledger and writes it to the
// host-state datum.
func (f *Fixture) Commit(t testing.TB) []byte {
	t.Helper()
	ctx := context.Background()
	entries, err := f.Reader.Entries(ctx)
	require.NoError(t, err)
	tree, err := merkle.NewTree(entries)
	require.NoError(t, err)

	host, err := f.Reader.HostState(ctx)
	require.NoError(t, err)
	next := host.Datum
	next.Version++
	next.IBCStateRoot = tree.Root()
	_, err = f.Ledger.Move(f.Deploy.HostStateToken, encode(t, next))
	require.NoError(t, err)
	return tree.Root()
}
