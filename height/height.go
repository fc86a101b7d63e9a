// Package height maps ledger block numbers, certified snapshots and client
// consensus heights onto IBC heights.
package height

import (
	"context"

	"cosmossdk.io/log"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"

	"github.com/cardano-ibc/gateway/datum"
	"github.com/cardano-ibc/gateway/ledger"
)

// RevisionNumber is fixed: the ledger has a single, non-forking revision.
const RevisionNumber = 0

// FromBlock is the IBC height of a ledger block.
func FromBlock(block uint64) clienttypes.Height {
	return clienttypes.NewHeight(RevisionNumber, block)
}

// Adapter resolves the gateway's notion of "latest".
type Adapter struct {
	index     ledger.Index
	certifier ledger.Certifier
	logger    log.Logger
}

// NewAdapter returns an adapter. certifier may be nil, in which case the
// index tip stands in for the latest certified snapshot.
func NewAdapter(index ledger.Index, certifier ledger.Certifier, logger log.Logger) *Adapter {
	return &Adapter{index: index, certifier: certifier, logger: logger.With("module", "height")}
}

// Latest is the height of the latest certified snapshot.
func (a *Adapter) Latest(ctx context.Context) (clienttypes.Height, error) {
	snapshot, err := a.LatestSnapshot(ctx)
	if err != nil {
		return clienttypes.Height{}, err
	}
	return FromBlock(snapshot.BlockNumber), nil
}

// LatestSnapshot returns the certified snapshot, or a synthetic one built
// from the index tip when no certifier is configured.
func (a *Adapter) LatestSnapshot(ctx context.Context) (ledger.Snapshot, error) {
	if a.certifier != nil {
		return a.certifier.LatestSnapshot(ctx)
	}
	block, err := a.index.LatestBlock(ctx)
	if err != nil {
		return ledger.Snapshot{}, err
	}
	a.logger.Debug("no certifier configured, using index tip", "block", block.Height)
	return ledger.Snapshot{
		Epoch:       block.Epoch,
		BlockNumber: block.Height,
		BlockHash:   block.Hash,
		CreatedAt:   block.Time,
	}, nil
}

// IndexTip is the latest block the index has seen, certified or not.
func (a *Adapter) IndexTip(ctx context.Context) (clienttypes.Height, error) {
	block, err := a.index.LatestBlock(ctx)
	if err != nil {
		return clienttypes.Height{}, err
	}
	return FromBlock(block.Height), nil
}

// ResolveClientHeight returns h, or the client's latest height when h is
// zero.
func ResolveClientHeight(client datum.ClientState, h clienttypes.Height) clienttypes.Height {
	if h.IsZero() {
		return client.LatestHeight.ToIBC()
	}
	return h
}
