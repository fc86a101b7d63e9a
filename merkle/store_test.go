package merkle

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	ics23 "github.com/cosmos/ics23/go"
	"github.com/stretchr/testify/suite"

	"github.com/cardano-ibc/gateway/metrics"
	"github.com/cardano-ibc/gateway/types"
)

type fakeSource struct {
	mtx     sync.Mutex
	entries []Entry
	root    []byte
	rootErr error
	gate    chan struct{}
	calls   atomic.Int32
}

func (f *fakeSource) set(entries []Entry) {
	tree, err := NewTree(entries)
	if err != nil {
		panic(err)
	}
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.entries = entries
	f.root = tree.Root()
}

func (f *fakeSource) CommittedRoot(context.Context) ([]byte, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return f.root, f.rootErr
}

func (f *fakeSource) Entries(context.Context) ([]Entry, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return append([]Entry(nil), f.entries...), nil
}

type StoreTestSuite struct {
	suite.Suite

	source  *fakeSource
	metrics *metrics.StructMetrics
	store   *Store
}

func (suite *StoreTestSuite) SetupTest() {
	suite.source = &fakeSource{}
	suite.source.set(genEntries(10))
	suite.metrics = metrics.NewStructMetrics()
	suite.store = NewStore(suite.source, log.NewNopLogger(), WithMetrics(suite.metrics))
}

func (suite *StoreTestSuite) TestAlignedTreeIsReused() {
	ctx := context.Background()
	t1, err := suite.store.EnsureAligned(ctx)
	suite.Require().NoError(err)
	t2, err := suite.store.EnsureAligned(ctx)
	suite.Require().NoError(err)

	suite.Same(t1, t2)
	suite.EqualValues(1, suite.source.calls.Load())
	suite.Equal(float64(10), suite.metrics.Gauge(metrics.KeyMerkle, "size"))
}

func (suite *StoreTestSuite) TestForcedMismatchRebuildsBeforeProof() {
	ctx := context.Background()
	_, err := suite.store.EnsureAligned(ctx)
	suite.Require().NoError(err)

	next := append(genEntries(10), Entry{Path: "connections/connection-0", Value: []byte("open")})
	suite.source.set(next)

	p, err := suite.store.Prove(ctx, "connections/connection-0")
	suite.Require().NoError(err)
	suite.EqualValues(2, suite.source.calls.Load())

	cp := &ics23.CommitmentProof{Proof: &ics23.CommitmentProof_Exist{Exist: p}}
	root, _ := suite.source.CommittedRoot(ctx)
	suite.True(ics23.VerifyMembership(Spec, root, cp, []byte("connections/connection-0"), []byte("open")))
	suite.Equal(float64(2), suite.metrics.Counter(metrics.KeyMerkle, "rebuild", "ok"))
}

func (suite *StoreTestSuite) TestUnreachableRootFails() {
	ctx := context.Background()
	first, err := suite.store.EnsureAligned(ctx)
	suite.Require().NoError(err)

	suite.source.mtx.Lock()
	suite.source.root = make([]byte, 32)
	suite.source.mtx.Unlock()

	_, err = suite.store.Prove(ctx, genEntries(1)[0].Path)
	suite.Require().Error(err)
	suite.True(errorsmod.IsOf(err, types.ErrTreeAlignment))
	suite.Same(first, suite.store.Tree())
	suite.Equal(float64(1), suite.metrics.Counter(metrics.KeyMerkle, "rebuild", "error"))
}

func (suite *StoreTestSuite) TestRootErrorPropagates() {
	suite.source.rootErr = errors.New("index unavailable")
	_, err := suite.store.EnsureAligned(context.Background())
	suite.Require().ErrorContains(err, "index unavailable")
	suite.EqualValues(0, suite.source.calls.Load())
}

func (suite *StoreTestSuite) TestConcurrentRebuildsCollapse() {
	suite.source.gate = make(chan struct{})

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := suite.store.EnsureAligned(context.Background())
			errs <- err
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(suite.source.gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		suite.NoError(err)
	}
	suite.EqualValues(1, suite.source.calls.Load())
}

func (suite *StoreTestSuite) TestProveBytesAbsent() {
	ctx := context.Background()
	bz, err := suite.store.ProveBytes(ctx, "receipts/ports/transfer/channels/channel-0/sequences/1", true)
	suite.Require().NoError(err)
	mp, err := DecodeProof(bz)
	suite.Require().NoError(err)
	suite.NotNil(mp.Proofs[0].GetNonexist())

	_, err = suite.store.ProveBytes(ctx, "receipts/ports/transfer/channels/channel-0/sequences/1", false)
	suite.True(errorsmod.IsOf(err, types.ErrProofGeneration))
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}
