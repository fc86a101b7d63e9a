package merkle

import (
	"bytes"
	"context"
	"sync"
	"time"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	ics23 "github.com/cosmos/ics23/go"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/singleflight"

	"github.com/cardano-ibc/gateway/metrics"
	"github.com/cardano-ibc/gateway/types"
)

// Source is the ledger view the store mirrors.
type Source interface {
	// CommittedRoot returns the IBC state root held by the host-state datum.
	CommittedRoot(ctx context.Context) ([]byte, error)
	// Entries returns every IBC path currently committed on the ledger.
	Entries(ctx context.Context) ([]Entry, error)
}

// Store serves proofs from a tree that matches the committed root. Readers
// share the current tree; a rebuild swaps it in only once it is aligned.
type Store struct {
	source  Source
	logger  log.Logger
	metrics metrics.Proxy

	mtx  sync.RWMutex
	tree *Tree

	rebuilds singleflight.Group
}

type StoreOption func(*Store)

func WithMetrics(m metrics.Proxy) StoreOption {
	return func(s *Store) { s.metrics = m }
}

func NewStore(source Source, logger log.Logger, opts ...StoreOption) *Store {
	s := &Store{
		source:  source,
		logger:  logger.With("module", "merkle"),
		metrics: &metrics.NilMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tree returns the tree currently served, which may be stale.
func (s *Store) Tree() *Tree {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.tree
}

// EnsureAligned returns a tree whose root equals the committed root,
// rebuilding from the source when the current one is stale. Concurrent
// callers share a single rebuild.
func (s *Store) EnsureAligned(ctx context.Context) (*Tree, error) {
	committed, err := s.source.CommittedRoot(ctx)
	if err != nil {
		return nil, err
	}
	if t := s.Tree(); t != nil && bytes.Equal(t.Root(), committed) {
		return t, nil
	}

	v, err, shared := s.rebuilds.Do(string(committed), func() (any, error) {
		return s.rebuild(ctx, committed)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug("joined in-flight merkle rebuild")
	}
	return v.(*Tree), nil
}

func (s *Store) rebuild(ctx context.Context, committed []byte) (t *Tree, err error) {
	start := time.Now()
	defer func() {
		s.metrics.IncrCounter(1, metrics.KeyMerkle, "rebuild", metrics.Outcome(err))
		s.metrics.MeasureSince(start, metrics.KeyMerkle, "rebuild")
	}()

	entries, err := s.source.Entries(ctx)
	if err != nil {
		return nil, err
	}
	t, err = NewTree(entries)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(t.Root(), committed) {
		s.logger.Error("rebuilt merkle root does not match committed root",
			"root", t.Root(), "committed", committed, "leaves", t.Size())
		return nil, errorsmod.Wrapf(types.ErrTreeAlignment,
			"rebuilt root %X over %d paths does not match committed root %X", t.Root(), t.Size(), committed)
	}

	s.mtx.Lock()
	s.tree = t
	s.mtx.Unlock()

	s.metrics.SetGauge(float32(t.Size()), metrics.KeyMerkle, "size")
	s.logger.Info("merkle tree rebuilt",
		"leaves", humanize.Comma(int64(t.Size())), "root", t.Root(), "took", time.Since(start))
	return t, nil
}

// Prove aligns the tree and returns an existence proof for path.
func (s *Store) Prove(ctx context.Context, path string) (*ics23.ExistenceProof, error) {
	t, err := s.EnsureAligned(ctx)
	if err != nil {
		return nil, err
	}
	return t.ExistenceProof(path)
}

// ProveAbsence aligns the tree and returns a non-existence proof for path.
func (s *Store) ProveAbsence(ctx context.Context, path string) (*ics23.NonExistenceProof, error) {
	t, err := s.EnsureAligned(ctx)
	if err != nil {
		return nil, err
	}
	return t.NonExistenceProof(path)
}

// ProveBytes returns the serialized MerkleProof for path: an existence proof
// when present, a non-existence proof otherwise when allowAbsent is set.
func (s *Store) ProveBytes(ctx context.Context, path string, allowAbsent bool) ([]byte, error) {
	t, err := s.EnsureAligned(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := t.Get(path); !ok && allowAbsent {
		p, err := t.NonExistenceProof(path)
		if err != nil {
			return nil, err
		}
		return SerializeNonExistenceProof(p)
	}
	p, err := t.ExistenceProof(path)
	if err != nil {
		return nil, err
	}
	return SerializeExistenceProof(p)
}
