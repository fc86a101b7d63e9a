package height

import (
	"context"
	"testing"

	"cosmossdk.io/log"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/cardano-ibc/gateway/datum"
	"github.com/cardano-ibc/gateway/ledger"
	"github.com/cardano-ibc/gateway/ledger/mock"
)

func TestFromBlock(t *testing.T) {
	h := FromBlock(1234)
	require.EqualValues(t, 0, h.RevisionNumber)
	require.EqualValues(t, 1234, h.RevisionHeight)
}

func TestLatestPrefersCertifier(t *testing.T) {
	ctrl := gomock.NewController(t)
	index := mock.NewMockIndex(ctrl)
	certifier := mock.NewMockCertifier(ctrl)
	certifier.EXPECT().LatestSnapshot(gomock.Any()).Return(ledger.Snapshot{Epoch: 9, BlockNumber: 500}, nil)
	index.EXPECT().LatestBlock(gomock.Any()).Return(ledger.Block{Height: 510}, nil)

	a := NewAdapter(index, certifier, log.NewNopLogger())
	latest, err := a.Latest(context.Background())
	require.NoError(t, err)
	require.Equal(t, clienttypes.NewHeight(0, 500), latest)

	tip, err := a.IndexTip(context.Background())
	require.NoError(t, err)
	require.Equal(t, clienttypes.NewHeight(0, 510), tip)
}

func TestLatestFallsBackToIndex(t *testing.T) {
	ctrl := gomock.NewController(t)
	index := mock.NewMockIndex(ctrl)
	index.EXPECT().LatestBlock(gomock.Any()).Return(ledger.Block{Height: 77, Epoch: 3}, nil)

	a := NewAdapter(index, nil, log.NewNopLogger())
	latest, err := a.Latest(context.Background())
	require.NoError(t, err)
	require.Equal(t, clienttypes.NewHeight(0, 77), latest)
}

func TestResolveClientHeight(t *testing.T) {
	cs := datum.ClientState{LatestHeight: datum.Height{RevisionNumber: 1, RevisionHeight: 42}}
	require.Equal(t, clienttypes.NewHeight(1, 42), ResolveClientHeight(cs, clienttypes.ZeroHeight()))
	require.Equal(t, clienttypes.NewHeight(1, 7), ResolveClientHeight(cs, clienttypes.NewHeight(1, 7)))
}
