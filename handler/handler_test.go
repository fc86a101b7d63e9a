package handler_test

import (
	"context"
	"sync"
	"testing"
	"time"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	cmtproto "github.com/cometbft/cometbft/proto/tendermint/types"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	"github.com/cosmos/gogoproto/proto"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	connectiontypes "github.com/cosmos/ibc-go/v8/modules/core/03-connection/types"
	commitmenttypes "github.com/cosmos/ibc-go/v8/modules/core/23-commitment/types"
	ibctm "github.com/cosmos/ibc-go/v8/modules/light-clients/07-tendermint"
	"github.com/stretchr/testify/suite"

	"github.com/cardano-ibc/gateway/datum"
	"github.com/cardano-ibc/gateway/handler"
	"github.com/cardano-ibc/gateway/ledger"
	"github.com/cardano-ibc/gateway/merkle"
	"github.com/cardano-ibc/gateway/state/statetest"
	"github.com/cardano-ibc/gateway/testutil"
	"github.com/cardano-ibc/gateway/types"
)

var proofHeight = datum.Height{RevisionHeight: 10}

type HandlerTestSuite struct {
	suite.Suite

	ctx     context.Context
	fixture *statetest.Fixture
	builder *testutil.Builder
	store   *merkle.Store
	handler *handler.Handler
}

func TestHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}

func (suite *HandlerTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.fixture = statetest.NewFixture(suite.T())
	suite.builder = &testutil.Builder{Ledger: suite.fixture.Ledger}
	suite.store = merkle.NewStore(suite.fixture.Reader, log.NewNopLogger())
	suite.handler = handler.New(suite.fixture.Reader, suite.store, suite.builder, log.NewNopLogger(),
		handler.WithClock(func() time.Time { return testutil.GenesisTime }))
}

// requireAligned checks the committed root still matches the projected
// ledger state.
func (suite *HandlerTestSuite) requireAligned() {
	_, err := suite.store.EnsureAligned(suite.ctx)
	suite.Require().NoError(err)
}

func (suite *HandlerTestSuite) handlerState() datum.HandlerState {
	h, err := suite.fixture.Reader.Handler(suite.ctx)
	suite.Require().NoError(err)
	return h.Datum.State
}

func (suite *HandlerTestSuite) lastTx(hash string) ledger.Tx {
	tx, err := suite.fixture.Ledger.TxByHash(suite.ctx, hash)
	suite.Require().NoError(err)
	return tx
}

func mustAny(msg proto.Message) *codectypes.Any {
	a, err := codectypes.NewAnyWithValue(msg)
	if err != nil {
		panic(err)
	}
	return a
}

func tmClientState(latest uint64) *ibctm.ClientState {
	return &ibctm.ClientState{
		ChainId:         "testchain",
		TrustLevel:      ibctm.DefaultTrustLevel,
		TrustingPeriod:  2 * time.Hour,
		UnbondingPeriod: 3 * time.Hour,
		MaxClockDrift:   10 * time.Second,
		LatestHeight:    clienttypes.NewHeight(0, latest),
		ProofSpecs:      commitmenttypes.GetSDKSpecs(),
	}
}

func tmConsensusState(root string) *ibctm.ConsensusState {
	return &ibctm.ConsensusState{
		Timestamp:          testutil.GenesisTime,
		Root:               commitmenttypes.NewMerkleRoot([]byte(root)),
		NextValidatorsHash: []byte{0xaa, 0xbb},
	}
}

// seedClient stores client 0 with a consensus state at proofHeight and
// commits the resulting root.
func (suite *HandlerTestSuite) seedClient() string {
	id := suite.fixture.PutClient(suite.T(), 0, datum.ClientDatumState{
		ClientState: datum.ClientStateFromIBC(tmClientState(proofHeight.RevisionHeight)),
		ConsensusStates: map[datum.Height]datum.ConsensusState{
			proofHeight: datum.ConsensusStateFromIBC(tmConsensusState("counterparty-root")),
		},
	})
	suite.fixture.SetHandler(suite.T(), datum.HandlerState{NextClientSequence: 1, BoundPort: []uint64{100}})
	suite.fixture.Commit(suite.T())
	return id
}

func (suite *HandlerTestSuite) connOpenInit(clientID string) (handler.UnsignedTx, error) {
	return suite.handler.ConnOpenInit(suite.ctx, &connectiontypes.MsgConnectionOpenInit{
		ClientId: clientID,
		Counterparty: connectiontypes.NewCounterparty(
			"099-cardano-0", "", commitmenttypes.NewMerklePrefix([]byte("ibc")),
		),
		Signer: "relayer",
	})
}

func (suite *HandlerTestSuite) TestCreateClient() {
	for i, want := range []string{"07-tendermint-0", "07-tendermint-1"} {
		res, err := suite.handler.CreateClient(suite.ctx, &clienttypes.MsgCreateClient{
			ClientState:    mustAny(tmClientState(uint64(10 + i))),
			ConsensusState: mustAny(tmConsensusState("root")),
			Signer:         "relayer",
		})
		suite.Require().NoError(err)
		suite.Equal(want, res.ID)
		suite.NotEmpty(res.Hash)
		suite.requireAligned()
	}
	suite.EqualValues(2, suite.handlerState().NextClientSequence)

	client, err := suite.fixture.Reader.Client(suite.ctx, "07-tendermint-1")
	suite.Require().NoError(err)
	latest := datum.Height{RevisionHeight: 11}
	suite.Equal(latest, client.Datum.State.ClientState.LatestHeight)
	suite.True(client.Datum.State.HasConsensusState(latest))
}

func (suite *HandlerTestSuite) TestCreateClientRejectsWrongType() {
	_, err := suite.handler.CreateClient(suite.ctx, &clienttypes.MsgCreateClient{
		ClientState:    mustAny(tmConsensusState("root")),
		ConsensusState: mustAny(tmConsensusState("root")),
	})
	suite.True(errorsmod.IsOf(err, types.ErrInvalidArgument), err)
	suite.Empty(suite.builder.Built)
}

func (suite *HandlerTestSuite) TestUpdateClient() {
	clientID := suite.seedClient()
	header := func(appHash string) *codectypes.Any {
		return mustAny(&ibctm.Header{
			SignedHeader: &cmtproto.SignedHeader{
				Header: &cmtproto.Header{
					ChainID:            "testchain",
					Height:             20,
					Time:               testutil.GenesisTime.Add(time.Minute),
					AppHash:            []byte(appHash),
					NextValidatorsHash: []byte{0xcc},
				},
				Commit: &cmtproto.Commit{Height: 20},
			},
			TrustedHeight: proofHeight.ToIBC(),
		})
	}

	_, err := suite.handler.UpdateClient(suite.ctx, &clienttypes.MsgUpdateClient{
		ClientId: clientID, ClientMessage: header("app-hash"), Signer: "relayer",
	})
	suite.Require().NoError(err)
	suite.requireAligned()

	client, err := suite.fixture.Reader.Client(suite.ctx, clientID)
	suite.Require().NoError(err)
	updated := datum.Height{RevisionHeight: 20}
	suite.Equal([]datum.Height{proofHeight, updated}, client.Datum.State.Heights())
	suite.Equal(updated, client.Datum.State.ClientState.LatestHeight)
	suite.Equal([]byte("app-hash"), client.Datum.State.ConsensusStates[updated].Root)

	_, err = suite.handler.UpdateClient(suite.ctx, &clienttypes.MsgUpdateClient{
		ClientId: clientID, ClientMessage: header("other-hash"), Signer: "relayer",
	})
	suite.True(errorsmod.IsOf(err, types.ErrConflictingWrite), err)
}

func (suite *HandlerTestSuite) TestConnOpenInitAllocatesMonotonically() {
	clientID := suite.seedClient()
	for _, want := range []string{"connection-0", "connection-1", "connection-2"} {
		res, err := suite.connOpenInit(clientID)
		suite.Require().NoError(err)
		suite.Equal(want, res.ID)

		conn, err := suite.fixture.Reader.Connection(suite.ctx, want)
		suite.Require().NoError(err)
		suite.Equal(datum.ConnStateInit, conn.Datum.State.State)
		suite.Equal(clientID, conn.Datum.State.ClientID)
	}
	suite.EqualValues(3, suite.handlerState().NextConnectionSequence)
	suite.requireAligned()

	// the client is referenced, never spent
	desc := suite.builder.Built[0]
	suite.Len(desc.References, 1)
	suite.Equal(testutil.GenesisTime.Add(handler.DefaultValidity), desc.ValidTo)
}

func (suite *HandlerTestSuite) TestConnOpenInitUpdatesHostState() {
	clientID := suite.seedClient()
	before, err := suite.fixture.Reader.HostState(suite.ctx)
	suite.Require().NoError(err)

	_, err = suite.connOpenInit(clientID)
	suite.Require().NoError(err)

	after, err := suite.fixture.Reader.HostState(suite.ctx)
	suite.Require().NoError(err)
	suite.Equal(before.Datum.Version+1, after.Datum.Version)
	suite.NotEqual(before.Datum.IBCStateRoot, after.Datum.IBCStateRoot)
	suite.EqualValues(testutil.GenesisTime.UnixMilli(), after.Datum.LastUpdateTime)

	tree, err := suite.store.EnsureAligned(suite.ctx)
	suite.Require().NoError(err)
	suite.Equal(after.Datum.IBCStateRoot, tree.Root())
	_, ok := tree.Get("connections/connection-0")
	suite.True(ok)
}

func (suite *HandlerTestSuite) TestConnOpenInitConcurrent() {
	clientID := suite.seedClient()

	const n = 8
	var (
		wg  sync.WaitGroup
		mtx sync.Mutex
		ids []string
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := suite.connOpenInit(clientID)
			if err != nil {
				return
			}
			mtx.Lock()
			ids = append(ids, res.ID)
			mtx.Unlock()
		}()
	}
	wg.Wait()

	suite.NotEmpty(ids)
	seen := make(map[string]bool)
	for _, id := range ids {
		suite.False(seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	suite.EqualValues(len(ids), suite.handlerState().NextConnectionSequence)
	suite.requireAligned()
}

func (suite *HandlerTestSuite) TestConnOpenInitMissingClient() {
	_, err := suite.connOpenInit("07-tendermint-5")
	suite.True(errorsmod.IsOf(err, types.ErrInvalidArgument), err)
	suite.Empty(suite.builder.Built)
}

func (suite *HandlerTestSuite) connOpenAck(connectionID string, height clienttypes.Height) (handler.UnsignedTx, error) {
	return suite.handler.ConnOpenAck(suite.ctx, &connectiontypes.MsgConnectionOpenAck{
		ConnectionId:             connectionID,
		CounterpartyConnectionId: "connection-7",
		Version:                  connectiontypes.DefaultIBCVersion,
		ClientState:              mustAny(tmClientState(30)),
		ProofHeight:              height,
		ProofTry:                 []byte("proof-try"),
		ProofClient:              []byte("proof-client"),
		Signer:                   "relayer",
	})
}

func (suite *HandlerTestSuite) TestConnOpenAck() {
	clientID := suite.seedClient()
	res, err := suite.connOpenInit(clientID)
	suite.Require().NoError(err)

	_, err = suite.connOpenAck(res.ID, proofHeight.ToIBC())
	suite.Require().NoError(err)
	suite.requireAligned()

	conn, err := suite.fixture.Reader.Connection(suite.ctx, res.ID)
	suite.Require().NoError(err)
	suite.Equal(datum.ConnStateOpen, conn.Datum.State.State)
	suite.Equal("connection-7", conn.Datum.State.Counterparty.ConnectionID)

	desc := suite.builder.Built[len(suite.builder.Built)-1]
	suite.Require().Len(desc.Mints, 1)
	suite.Equal(suite.fixture.Deploy.VerifyProofPolicy, desc.Mints[0].Token.PolicyID)
}

func (suite *HandlerTestSuite) TestConnOpenAckUnknownProofHeight() {
	clientID := suite.seedClient()
	res, err := suite.connOpenInit(clientID)
	suite.Require().NoError(err)
	built := len(suite.builder.Built)

	_, err = suite.connOpenAck(res.ID, clienttypes.NewHeight(0, 99))
	suite.True(errorsmod.IsOf(err, types.ErrNotFound), err)
	suite.Len(suite.builder.Built, built)
}

func (suite *HandlerTestSuite) TestConnOpenConfirm() {
	clientID := suite.seedClient()
	res, err := suite.connOpenInit(clientID)
	suite.Require().NoError(err)

	_, err = suite.handler.ConnOpenConfirm(suite.ctx, &connectiontypes.MsgConnectionOpenConfirm{
		ConnectionId: res.ID,
		ProofAck:     []byte("proof-ack"),
		ProofHeight:  proofHeight.ToIBC(),
		Signer:       "relayer",
	})
	suite.Require().NoError(err)
	suite.requireAligned()

	conn, err := suite.fixture.Reader.Connection(suite.ctx, res.ID)
	suite.Require().NoError(err)
	suite.Equal(datum.ConnStateOpen, conn.Datum.State.State)
}
