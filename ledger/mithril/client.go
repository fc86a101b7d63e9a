// Package mithril reads certified ledger snapshots from a Mithril
// aggregator.
package mithril

import (
	"context"
	"net/http"
	"time"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	"github.com/pkg/errors"

	"github.com/cardano-ibc/gateway/internal/rpc"
	"github.com/cardano-ibc/gateway/ledger"
	"github.com/cardano-ibc/gateway/types"
)

const transactionSnapshotsPath = "/artifact/cardano-transactions"

var _ ledger.Certifier = (*Client)(nil)

type Config struct {
	Endpoint   string
	Timeout    time.Duration
	Attempts   uint
	RetryDelay time.Duration
}

type Client struct {
	rpc    *rpc.Client
	logger log.Logger
}

func NewClient(cfg Config, logger log.Logger) *Client {
	logger = logger.With("module", "mithril")
	return &Client{
		rpc:    rpc.NewClient(cfg.Endpoint, cfg.Timeout, cfg.Attempts, cfg.RetryDelay, logger),
		logger: logger,
	}
}

// transactionSnapshot is one certified transactions artifact.
type transactionSnapshot struct {
	Hash            string    `json:"hash"`
	CertificateHash string    `json:"certificate_hash"`
	MerkleRoot      string    `json:"merkle_root"`
	Epoch           uint64    `json:"epoch"`
	BlockNumber     uint64    `json:"block_number"`
	CreatedAt       time.Time `json:"created_at"`
}

func (s transactionSnapshot) snapshot() ledger.Snapshot {
	return ledger.Snapshot{
		Epoch:           s.Epoch,
		BlockNumber:     s.BlockNumber,
		BlockHash:       s.Hash,
		CertificateHash: s.CertificateHash,
		CreatedAt:       s.CreatedAt,
	}
}

func (c *Client) snapshots(ctx context.Context) ([]transactionSnapshot, error) {
	var out []transactionSnapshot
	if err := c.rpc.Do(ctx, http.MethodGet, transactionSnapshotsPath, nil, &out); err != nil {
		return nil, errors.Wrap(err, "listing certified transaction snapshots")
	}
	return out, nil
}

// LatestSnapshot returns the snapshot with the highest block number.
func (c *Client) LatestSnapshot(ctx context.Context) (ledger.Snapshot, error) {
	snapshots, err := c.snapshots(ctx)
	if err != nil {
		return ledger.Snapshot{}, err
	}
	if len(snapshots) == 0 {
		return ledger.Snapshot{}, errorsmod.Wrap(types.ErrNotFound, "aggregator has no certified snapshot")
	}
	latest := snapshots[0]
	for _, s := range snapshots[1:] {
		if s.BlockNumber > latest.BlockNumber {
			latest = s
		}
	}
	return latest.snapshot(), nil
}

// SnapshotByEpoch returns the latest snapshot certified in epoch.
func (c *Client) SnapshotByEpoch(ctx context.Context, epoch uint64) (ledger.Snapshot, error) {
	snapshots, err := c.snapshots(ctx)
	if err != nil {
		return ledger.Snapshot{}, err
	}
	var (
		found bool
		best  transactionSnapshot
	)
	for _, s := range snapshots {
		if s.Epoch == epoch && (!found || s.BlockNumber > best.BlockNumber) {
			best, found = s, true
		}
	}
	if !found {
		return ledger.Snapshot{}, errorsmod.Wrapf(types.ErrNotFound, "no certified snapshot for epoch %d", epoch)
	}
	return best.snapshot(), nil
}
