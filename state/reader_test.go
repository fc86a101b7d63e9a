package state_test

import (
	"context"
	"testing"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	host "github.com/cosmos/ibc-go/v8/modules/core/24-host"
	"github.com/stretchr/testify/require"

	"github.com/cardano-ibc/gateway/datum"
	"github.com/cardano-ibc/gateway/ledger"
	"github.com/cardano-ibc/gateway/merkle"
	"github.com/cardano-ibc/gateway/metrics"
	"github.com/cardano-ibc/gateway/state"
	"github.com/cardano-ibc/gateway/state/statetest"
	"github.com/cardano-ibc/gateway/types"
)

func openChannel() datum.ChannelDatumState {
	st := datum.NewChannelDatumState(datum.Channel{
		State:          datum.ChanStateOpen,
		Ordering:       datum.OrderUnordered,
		Counterparty:   datum.ChannelCounterparty{PortID: "transfer", ChannelID: "channel-9"},
		ConnectionHops: []string{"connection-0"},
		Version:        "ics20-1",
	})
	st.PacketCommitment.Set(1, []byte{0x9a, 0x88})
	st.PacketReceipt.Set(4, []byte{1})
	return st
}

func TestReaderLookups(t *testing.T) {
	f := statetest.NewFixture(t)
	ctx := context.Background()

	connID := f.PutConnection(t, 0, datum.ConnectionEnd{
		ClientID: "07-tendermint-0",
		Versions: datum.DefaultVersions(),
		State:    datum.ConnStateOpen,
	})
	chanID := f.PutChannel(t, statetest.TransferPort, 3, openChannel())

	conn, err := f.Reader.Connection(ctx, connID)
	require.NoError(t, err)
	require.Equal(t, "connection-0", conn.ID)
	require.Equal(t, datum.ConnStateOpen, conn.Datum.State.State)

	ch, err := f.Reader.Channel(ctx, statetest.TransferPort, chanID)
	require.NoError(t, err)
	require.Equal(t, "channel-3", ch.ID)
	require.Equal(t, f.Ledger.Height(), ch.UTXO.BlockNo)

	_, err = f.Reader.Channel(ctx, "port-7", chanID)
	require.True(t, errorsmod.IsOf(err, types.ErrNotFound))

	_, err = f.Reader.Channel(ctx, statetest.TransferPort, "3")
	require.True(t, errorsmod.IsOf(err, types.ErrInvalidArgument))

	_, err = f.Reader.Connection(ctx, "connection-1")
	require.True(t, errorsmod.IsOf(err, types.ErrNotFound))
	require.Contains(t, err.Error(), "connection-1")

	_, mod, err := f.Reader.Module(ctx, statetest.TransferPort)
	require.NoError(t, err)
	require.Empty(t, mod.Datum.OpenedChannels)

	h, err := f.Reader.Handler(ctx)
	require.NoError(t, err)
	require.Equal(t, []uint64{100}, h.Datum.State.BoundPort)
}

func TestReaderListsOnlyDerivedTokens(t *testing.T) {
	f := statetest.NewFixture(t)
	ctx := context.Background()

	f.PutConnection(t, 0, datum.ConnectionEnd{ClientID: "07-tendermint-0", State: datum.ConnStateInit})
	f.PutConnection(t, 1, datum.ConnectionEnd{ClientID: "07-tendermint-0", State: datum.ConnStateTryOpen})
	// same policy, name not derived from the handler token
	f.Ledger.Put(ledger.UTXO{Assets: []ledger.Asset{{PolicyID: f.Deploy.ConnectionPolicy, Name: []byte("stray"), Quantity: 1}}})

	conns, err := f.Reader.Connections(ctx)
	require.NoError(t, err)
	require.Len(t, conns, 2)
	require.Equal(t, "connection-0", conns[0].ID)
	require.Equal(t, "connection-1", conns[1].ID)
}

func TestEntriesProjection(t *testing.T) {
	f := statetest.NewFixture(t)
	ctx := context.Background()

	f.PutConnection(t, 0, datum.ConnectionEnd{ClientID: "07-tendermint-0", Versions: datum.DefaultVersions(), State: datum.ConnStateOpen})
	f.PutChannel(t, statetest.TransferPort, 0, openChannel())

	entries, err := f.Reader.Entries(ctx)
	require.NoError(t, err)
	paths := state.Paths(entries)
	require.ElementsMatch(t, []string{
		host.ConnectionPath("connection-0"),
		host.ChannelPath(statetest.TransferPort, "channel-0"),
		host.NextSequenceRecvPath(statetest.TransferPort, "channel-0"),
		host.NextSequenceAckPath(statetest.TransferPort, "channel-0"),
		host.PacketCommitmentPath(statetest.TransferPort, "channel-0", 1),
		host.PacketReceiptPath(statetest.TransferPort, "channel-0", 4),
	}, paths)

	root := f.Commit(t)
	committed, err := f.Reader.CommittedRoot(ctx)
	require.NoError(t, err)
	require.Equal(t, root, committed)

	store := merkle.NewStore(f.Reader, log.NewNopLogger())
	tree, err := store.EnsureAligned(ctx)
	require.NoError(t, err)
	v, ok := tree.Get(host.PacketCommitmentPath(statetest.TransferPort, "channel-0", 1))
	require.True(t, ok)
	require.Equal(t, []byte{0x9a, 0x88}, v)
}

func TestCommittedRootAt(t *testing.T) {
	f := statetest.NewFixture(t)
	ctx := context.Background()

	first := f.Commit(t)
	f.Ledger.NextBlock()
	f.Ledger.NextBlock()
	f.PutConnection(t, 0, datum.ConnectionEnd{ClientID: "07-tendermint-0", State: datum.ConnStateInit})
	second := f.Commit(t)

	root, err := f.Reader.CommittedRootAt(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, first, root)
	root, err = f.Reader.CommittedRootAt(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, first, root)
	root, err = f.Reader.CommittedRootAt(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, second, root)

	_, err = f.Reader.CommittedRootAt(ctx, 0)
	require.True(t, errorsmod.IsOf(err, types.ErrNotFound), err)
}

func TestReaderUsesDatumCache(t *testing.T) {
	f := statetest.NewFixture(t)
	ctx := context.Background()
	m := metrics.NewStructMetrics()
	cache, err := ledger.NewDatumCache(16, m)
	require.NoError(t, err)
	r := state.NewReader(f.Ledger, cache, f.Deploy, log.NewNopLogger())

	for i := 0; i < 3; i++ {
		_, err := r.Handler(ctx)
		require.NoError(t, err)
	}
	require.EqualValues(t, 1, m.Counter(metrics.KeyCache, "miss"))
	require.EqualValues(t, 2, m.Counter(metrics.KeyCache, "hit"))
}

func TestReaderBlockAndHistory(t *testing.T) {
	f := statetest.NewFixture(t)
	ctx := context.Background()

	f.PutChannel(t, statetest.TransferPort, 0, openChannel())
	block := f.Ledger.NextBlock()
	closed := openChannel()
	closed.Channel.State = datum.ChanStateClose
	f.PutChannel(t, statetest.TransferPort, 0, closed)
	f.PutConnection(t, 2, datum.ConnectionEnd{ClientID: "07-tendermint-0", State: datum.ConnStateInit})

	chans, err := f.Reader.ChannelsAtBlock(ctx, block)
	require.NoError(t, err)
	require.Len(t, chans, 1)
	require.Equal(t, datum.ChanStateClose, chans[0].Datum.State.Channel.State)

	conns, err := f.Reader.ConnectionsAtBlock(ctx, block)
	require.NoError(t, err)
	require.Len(t, conns, 1)
	require.Equal(t, "connection-2", conns[0].ID)

	clients, err := f.Reader.ClientsAtBlock(ctx, block)
	require.NoError(t, err)
	require.Empty(t, clients)

	history, err := f.Reader.ChannelHistory(ctx, "channel-0")
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, datum.ChanStateOpen, history[0].Datum.State.Channel.State)
	require.Equal(t, block, history[1].UTXO.BlockNo)
}
