// Package query answers the IBC query surface from ledger state. Every
// state-returning answer carries a Merkle proof against the committed root
// and the height of the output the state was read from.
package query

import (
	"context"
	"sort"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"

	"github.com/cardano-ibc/gateway/height"
	"github.com/cardano-ibc/gateway/identifier"
	"github.com/cardano-ibc/gateway/ledger"
	"github.com/cardano-ibc/gateway/merkle"
	"github.com/cardano-ibc/gateway/state"
	"github.com/cardano-ibc/gateway/types"
)

// DefaultChainID names the ledger to counterparties creating a client of it.
const DefaultChainID = "cardano-devnet"

// Querier is stateless apart from the shared Merkle store; it is safe for
// concurrent use.
type Querier struct {
	reader  *state.Reader
	store   *merkle.Store
	heights *height.Adapter
	logger  log.Logger
	chainID string
}

type Option func(*Querier)

func WithChainID(chainID string) Option {
	return func(q *Querier) { q.chainID = chainID }
}

func New(reader *state.Reader, store *merkle.Store, heights *height.Adapter, logger log.Logger, opts ...Option) *Querier {
	q := &Querier{
		reader:  reader,
		store:   store,
		heights: heights,
		logger:  logger.With("module", "query"),
		chainID: DefaultChainID,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// prove returns the serialized proof of path. With allowAbsent an absent
// path yields a non-existence proof instead of an error.
func (q *Querier) prove(ctx context.Context, path string, allowAbsent bool) ([]byte, error) {
	proof, err := q.store.ProveBytes(ctx, path, allowAbsent)
	if err != nil {
		q.logger.Error("proof generation failed", "path", path, "err", err)
		return nil, err
	}
	return proof, nil
}

// proofHeight is the height at which u was written.
func proofHeight(u ledger.UTXO) clienttypes.Height {
	return height.FromBlock(u.BlockNo)
}

// listHeight is the highest block among the outputs a list was read from,
// zero for an empty list.
func listHeight[T any](objs []state.Object[T]) clienttypes.Height {
	var block uint64
	for _, o := range objs {
		block = max(block, o.UTXO.BlockNo)
	}
	return height.FromBlock(block)
}

// sortObjects orders objects by the sequence in their identifiers.
func sortObjects[T any](objs []state.Object[T], prefix string) {
	sort.SliceStable(objs, func(i, j int) bool {
		a, _ := identifier.ParseID(objs[i].ID, prefix)
		b, _ := identifier.ParseID(objs[j].ID, prefix)
		return a < b
	})
}

func internal(err error, format string, args ...any) error {
	return errorsmod.Wrapf(types.ErrInternal, format+": %s", append(args, err)...)
}
