package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cosmossdk.io/log"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	sdkquery "github.com/cosmos/cosmos-sdk/types/query"
	connectiontypes "github.com/cosmos/ibc-go/v8/modules/core/03-connection/types"
	commitmenttypes "github.com/cosmos/ibc-go/v8/modules/core/23-commitment/types"
	"github.com/stretchr/testify/suite"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/cardano-ibc/gateway/datum"
	"github.com/cardano-ibc/gateway/handler"
	"github.com/cardano-ibc/gateway/height"
	"github.com/cardano-ibc/gateway/merkle"
	"github.com/cardano-ibc/gateway/metrics"
	"github.com/cardano-ibc/gateway/query"
	"github.com/cardano-ibc/gateway/server"
	"github.com/cardano-ibc/gateway/state/statetest"
	"github.com/cardano-ibc/gateway/testutil"
)

type ServerTestSuite struct {
	suite.Suite

	ctx     context.Context
	fixture *statetest.Fixture
	builder *testutil.Builder
	metrics *metrics.StructMetrics
	server  *server.Server
	conn    *grpc.ClientConn
	http    *httptest.Server
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func (suite *ServerTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.fixture = statetest.NewFixture(suite.T())
	suite.builder = &testutil.Builder{Ledger: suite.fixture.Ledger}
	suite.metrics = metrics.NewStructMetrics()

	logger := log.NewNopLogger()
	store := merkle.NewStore(suite.fixture.Reader, logger)
	querier := query.New(suite.fixture.Reader, store, height.NewAdapter(suite.fixture.Ledger, nil, logger), logger)
	h := handler.New(suite.fixture.Reader, store, suite.builder, logger,
		handler.WithClock(func() time.Time { return testutil.GenesisTime }))
	suite.server = server.New(querier, h, logger, server.WithMetrics(suite.metrics))

	listener := bufconn.Listen(1 << 20)
	go func() {
		_ = suite.server.GRPC().Serve(listener)
	}()
	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(suite.server.Codec())),
	)
	suite.Require().NoError(err)
	suite.conn = conn

	gateway, err := suite.server.Gateway(suite.ctx)
	suite.Require().NoError(err)
	suite.http = httptest.NewServer(gateway)
}

func (suite *ServerTestSuite) TearDownTest() {
	suite.http.Close()
	suite.NoError(suite.conn.Close())
	suite.server.GRPC().Stop()
}

func (suite *ServerTestSuite) seedClient() string {
	id := suite.fixture.PutClient(suite.T(), 0, datum.ClientDatumState{
		ClientState: datum.ClientState{
			ChainID:        "testchain",
			TrustLevel:     datum.Fraction{Numerator: 1, Denominator: 3},
			TrustingPeriod: uint64(2 * time.Hour),
			LatestHeight:   datum.Height{RevisionHeight: 10},
		},
		ConsensusStates: map[datum.Height]datum.ConsensusState{
			{RevisionHeight: 10}: {Timestamp: 1, Root: []byte("root"), NextValidatorsHash: []byte{1}},
		},
	})
	suite.fixture.SetHandler(suite.T(), datum.HandlerState{NextClientSequence: 1, BoundPort: []uint64{100}})
	suite.fixture.Commit(suite.T())
	return id
}

func (suite *ServerTestSuite) TestQueryOverGRPC() {
	client := connectiontypes.NewQueryClient(suite.conn)

	res, err := client.Connections(suite.ctx, &connectiontypes.QueryConnectionsRequest{
		Pagination: &sdkquery.PageRequest{Limit: 10},
	})
	suite.Require().NoError(err)
	suite.Empty(res.Connections)
	suite.EqualValues(0, res.Pagination.Total)
	suite.EqualValues(1, suite.metrics.Counter(metrics.KeyRequest, "Connections", "ok"))

	_, err = client.Connections(suite.ctx, &connectiontypes.QueryConnectionsRequest{})
	suite.Equal(codes.InvalidArgument, status.Code(err), err)
	suite.EqualValues(1, suite.metrics.Counter(metrics.KeyRequest, "Connections", "error"))

	_, err = client.Connection(suite.ctx, &connectiontypes.QueryConnectionRequest{ConnectionId: "connection-4"})
	suite.Equal(codes.NotFound, status.Code(err), err)

	_, err = client.ClientConnections(suite.ctx, &connectiontypes.QueryClientConnectionsRequest{ClientId: "07-tendermint-0"})
	suite.Equal(codes.Unimplemented, status.Code(err), err)
}

func (suite *ServerTestSuite) connOpenInit(clientID string, header *metadata.MD) (*codectypes.Any, error) {
	msg := &connectiontypes.MsgConnectionOpenInit{
		ClientId: clientID,
		Counterparty: connectiontypes.NewCounterparty(
			"099-cardano-0", "", commitmenttypes.NewMerklePrefix([]byte("ibc")),
		),
		Signer: "relayer",
	}
	var out codectypes.Any
	err := suite.conn.Invoke(suite.ctx, "/"+server.MsgServiceName+"/ConnectionOpenInit", msg, &out, grpc.Header(header))
	return &out, err
}

func (suite *ServerTestSuite) TestMsgService() {
	clientID := suite.seedClient()

	var header metadata.MD
	tx, err := suite.connOpenInit(clientID, &header)
	suite.Require().NoError(err)
	suite.Equal(server.UnsignedTxTypeURL, tx.TypeUrl)
	suite.NotEmpty(tx.Value)
	suite.Equal([]string{"connection-0"}, header.Get(server.HeaderIdentifier))
	suite.Len(header.Get(server.HeaderTxHash), 1)
	suite.Len(suite.builder.Built, 1)
	suite.EqualValues(1, suite.metrics.Counter(metrics.KeyRequest, "ConnectionOpenInit", "ok"))

	_, err = suite.connOpenInit("07-tendermint-9", &header)
	suite.Equal(codes.InvalidArgument, status.Code(err), err)
	suite.Len(suite.builder.Built, 1)
}

func (suite *ServerTestSuite) get(path string) (int, []byte) {
	resp, err := http.Get(suite.http.URL + path)
	suite.Require().NoError(err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	suite.Require().NoError(err)
	return resp.StatusCode, body
}

func (suite *ServerTestSuite) post(path, body string) (int, []byte) {
	resp, err := http.Post(suite.http.URL+path, "application/json", strings.NewReader(body))
	suite.Require().NoError(err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	suite.Require().NoError(err)
	return resp.StatusCode, out
}

func (suite *ServerTestSuite) TestGatewayQueries() {
	code, body := suite.get("/ibc/core/connection/v1/connections?pagination.limit=10")
	suite.Require().Equal(http.StatusOK, code, string(body))
	var res struct {
		Connections []json.RawMessage `json:"connections"`
	}
	suite.Require().NoError(json.Unmarshal(body, &res))
	suite.NotNil(res.Connections)
	suite.Empty(res.Connections)

	code, body = suite.get("/ibc/core/connection/v1/connections")
	suite.Equal(http.StatusBadRequest, code, string(body))
}

func (suite *ServerTestSuite) TestJSONRoutes() {
	code, body := suite.get(server.RoutePrefix + "latest_height")
	suite.Require().Equal(http.StatusOK, code, string(body))
	suite.JSONEq(`{"height":"1"}`, string(body))

	code, body = suite.post(server.RoutePrefix+"block_data", `{"height":"1"}`)
	suite.Require().Equal(http.StatusOK, code, string(body))
	var data query.BlockDataResponse
	suite.Require().NoError(json.Unmarshal(body, &data))
	suite.EqualValues(1, data.Block.Height)
	suite.EqualValues(1, suite.metrics.Counter(metrics.KeyRequest, "BlockData", "ok"))

	code, body = suite.post(server.RoutePrefix+"block_data", `{"height":"0"}`)
	suite.Equal(http.StatusBadRequest, code, string(body))
	var failure struct {
		Code    int32  `json:"code"`
		Message string `json:"message"`
	}
	suite.Require().NoError(json.Unmarshal(body, &failure))
	suite.EqualValues(codes.InvalidArgument, failure.Code)
	suite.Contains(failure.Message, "height")

	code, _ = suite.post(server.RoutePrefix+"block_data", `{`)
	suite.Equal(http.StatusBadRequest, code)

	code, _ = suite.post(server.RoutePrefix+"block_data", `{"height":"99"}`)
	suite.Equal(http.StatusNotFound, code)

	req, err := http.NewRequest(http.MethodDelete, suite.http.URL+server.RoutePrefix+"block_data", nil)
	suite.Require().NoError(err)
	resp, err := http.DefaultClient.Do(req)
	suite.Require().NoError(err)
	resp.Body.Close()
	suite.Equal(http.StatusMethodNotAllowed, resp.StatusCode)
}
