package query_test

import (
	errorsmod "cosmossdk.io/errors"
	abci "github.com/cometbft/cometbft/abci/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	transfertypes "github.com/cosmos/ibc-go/v8/modules/apps/transfer/types"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	connectiontypes "github.com/cosmos/ibc-go/v8/modules/core/03-connection/types"
	channeltypes "github.com/cosmos/ibc-go/v8/modules/core/04-channel/types"
	commitmenttypes "github.com/cosmos/ibc-go/v8/modules/core/23-commitment/types"

	"github.com/cardano-ibc/gateway/datum"
	"github.com/cardano-ibc/gateway/handler"
	"github.com/cardano-ibc/gateway/ledger"
	"github.com/cardano-ibc/gateway/query"
	"github.com/cardano-ibc/gateway/state/statetest"
	"github.com/cardano-ibc/gateway/types"
)

var packetTimeout = clienttypes.NewHeight(0, 1000)

// findEvent returns the attributes of the first event of type typ.
func findEvent(events []abci.Event, typ string) (map[string]string, bool) {
	for _, ev := range events {
		if ev.Type != typ {
			continue
		}
		attrs := make(map[string]string, len(ev.Attributes))
		for _, a := range ev.Attributes {
			attrs[a.Key] = a.Value
		}
		return attrs, true
	}
	return nil, false
}

// seedOpenChannel stores client 0, an open connection-0 and an open
// channel-0 on the transfer port, then commits.
func (suite *QueryTestSuite) seedOpenChannel() {
	clientID := suite.fixture.PutClient(suite.T(), 0, clientState())
	suite.fixture.PutConnection(suite.T(), 0, datum.ConnectionEnd{
		ClientID: clientID,
		Versions: datum.DefaultVersions(),
		State:    datum.ConnStateOpen,
		Counterparty: datum.ConnectionCounterparty{
			ClientID: "099-cardano-0", ConnectionID: "connection-7", Prefix: []byte("ibc"),
		},
	})
	suite.fixture.PutChannel(suite.T(), statetest.TransferPort, 0, channelState(datum.OrderUnordered))
	suite.fixture.SetHandler(suite.T(), datum.HandlerState{
		NextClientSequence:     1,
		NextConnectionSequence: 1,
		NextChannelSequence:    1,
		BoundPort:              []uint64{100},
	})
	suite.fixture.Commit(suite.T())
}

func (suite *QueryTestSuite) transfer() handler.UnsignedTx {
	res, err := suite.handler.Transfer(suite.ctx, &transfertypes.MsgTransfer{
		SourcePort:    statetest.TransferPort,
		SourceChannel: "channel-0",
		Token:         sdk.NewInt64Coin("stake", 10),
		Sender:        "addr_test1sender",
		Receiver:      "cosmos1receiver",
		TimeoutHeight: packetTimeout,
	})
	suite.Require().NoError(err)
	return res
}

func (suite *QueryTestSuite) blockOf(hash string) uint64 {
	tx, err := suite.fixture.Ledger.TxByHash(suite.ctx, hash)
	suite.Require().NoError(err)
	return tx.BlockNo
}

func (suite *QueryTestSuite) TestConnOpenInitEvents() {
	clientID := suite.fixture.PutClient(suite.T(), 0, clientState())
	suite.fixture.SetHandler(suite.T(), datum.HandlerState{NextClientSequence: 1, BoundPort: []uint64{100}})
	suite.fixture.Commit(suite.T())

	res, err := suite.handler.ConnOpenInit(suite.ctx, &connectiontypes.MsgConnectionOpenInit{
		ClientId: clientID,
		Counterparty: connectiontypes.NewCounterparty(
			"099-cardano-0", "", commitmenttypes.NewMerklePrefix([]byte("ibc")),
		),
		Signer: "relayer",
	})
	suite.Require().NoError(err)

	tx, err := suite.querier.TransactionByHash(suite.ctx, &query.TransactionByHashRequest{Hash: res.Hash})
	suite.Require().NoError(err)
	suite.Equal(res.Hash, tx.Tx.Hash)
	attrs, ok := findEvent(tx.Tx.Result.Events, connectiontypes.EventTypeConnectionOpenInit)
	suite.Require().True(ok, "no connection_open_init event")
	suite.Equal(res.ID, attrs[connectiontypes.AttributeKeyConnectionID])
	suite.Equal(clientID, attrs[connectiontypes.AttributeKeyClientID])
	suite.Equal("099-cardano-0", attrs[connectiontypes.AttributeKeyCounterpartyClientID])

	block := suite.blockOf(res.Hash)
	results, err := suite.querier.BlockResults(suite.ctx, &query.BlockResultsRequest{Height: block})
	suite.Require().NoError(err)
	suite.EqualValues(block, results.Height.RevisionHeight)
	suite.Require().Len(results.TxResults, 1)
	suite.Equal(tx.Tx, results.TxResults[0])
	suite.Empty(results.PoolEvents)
}

func (suite *QueryTestSuite) TestTransferEventsAndSearch() {
	suite.seedOpenChannel()
	res := suite.transfer()
	block := suite.blockOf(res.Hash)

	tx, err := suite.querier.TransactionByHash(suite.ctx, &query.TransactionByHashRequest{Hash: res.Hash})
	suite.Require().NoError(err)
	attrs, ok := findEvent(tx.Tx.Result.Events, channeltypes.EventTypeSendPacket)
	suite.Require().True(ok, "no send_packet event")
	suite.Equal("1", attrs[channeltypes.AttributeKeySequence])
	suite.Equal(statetest.TransferPort, attrs[channeltypes.AttributeKeySrcPort])
	suite.Equal("channel-0", attrs[channeltypes.AttributeKeySrcChannel])
	suite.Equal("channel-9", attrs[channeltypes.AttributeKeyDstChannel])
	suite.Equal(packetTimeout.String(), attrs[channeltypes.AttributeKeyTimeoutHeight])
	suite.Equal("connection-0", attrs[channeltypes.AttributeKeyConnection])

	found, err := suite.querier.BlockSearch(suite.ctx, &query.BlockSearchRequest{
		PacketSrcChannel: "channel-0", PacketSequence: 1, Limit: 10,
	})
	suite.Require().NoError(err)
	suite.EqualValues(1, found.TotalCount)
	suite.Require().Len(found.Blocks, 1)
	suite.Equal(block, found.Blocks[0].Height)

	// one-based pages past the end are empty
	found, err = suite.querier.BlockSearch(suite.ctx, &query.BlockSearchRequest{
		PacketSrcChannel: "channel-0", PacketSequence: 1, Limit: 1, Page: 2,
	})
	suite.Require().NoError(err)
	suite.EqualValues(1, found.TotalCount)
	suite.Empty(found.Blocks)

	found, err = suite.querier.BlockSearch(suite.ctx, &query.BlockSearchRequest{
		PacketSrcChannel: "channel-0", PacketSequence: 2, Limit: 10,
	})
	suite.Require().NoError(err)
	suite.Empty(found.Blocks)

	_, err = suite.querier.BlockSearch(suite.ctx, &query.BlockSearchRequest{PacketSequence: 1, Limit: 10})
	suite.True(errorsmod.IsOf(err, types.ErrInvalidArgument), err)
}

func (suite *QueryTestSuite) TestRecvPacketWritesAck() {
	suite.seedOpenChannel()
	res, err := suite.handler.RecvPacket(suite.ctx, &channeltypes.MsgRecvPacket{
		Packet: channeltypes.NewPacket([]byte("payload"), 3,
			"transfer", "channel-9", statetest.TransferPort, "channel-0", packetTimeout, 0),
		ProofCommitment: []byte("proof-commitment"),
		ProofHeight:     clienttypes.NewHeight(0, 12),
		Signer:          "relayer",
	})
	suite.Require().NoError(err)

	tx, err := suite.querier.TransactionByHash(suite.ctx, &query.TransactionByHashRequest{Hash: res.Hash})
	suite.Require().NoError(err)
	_, ok := findEvent(tx.Tx.Result.Events, channeltypes.EventTypeRecvPacket)
	suite.True(ok, "no recv_packet event")
	attrs, ok := findEvent(tx.Tx.Result.Events, channeltypes.EventTypeWriteAck)
	suite.Require().True(ok, "no write_acknowledgement event")
	suite.Equal(string(handler.SuccessAcknowledgement), attrs[channeltypes.AttributeKeyAck])
	suite.Equal("3", attrs[channeltypes.AttributeKeySequence])

	found, err := suite.querier.BlockSearch(suite.ctx, &query.BlockSearchRequest{
		PacketDstChannel: "channel-0", PacketSequence: 3, Limit: 10,
	})
	suite.Require().NoError(err)
	suite.Require().Len(found.Blocks, 1)
	suite.Equal(suite.blockOf(res.Hash), found.Blocks[0].Height)
}

func (suite *QueryTestSuite) TestBlockQueries() {
	suite.seedOpenChannel()
	res := suite.transfer()
	block := suite.blockOf(res.Hash)
	suite.fixture.Ledger.AddPoolUpdate(block, ledger.PoolUpdate{PoolID: "pool1abc", VRFKey: []byte{0xab, 0xcd}, Pledge: 500})
	suite.fixture.Ledger.AddPoolUpdate(block, ledger.PoolUpdate{PoolID: "pool1def", Retiring: true})

	data, err := suite.querier.BlockData(suite.ctx, &query.BlockDataRequest{Height: block})
	suite.Require().NoError(err)
	suite.Equal(block, data.Block.Height)
	suite.NotZero(data.Block.TxCount)

	results, err := suite.querier.BlockResults(suite.ctx, &query.BlockResultsRequest{Height: block})
	suite.Require().NoError(err)
	suite.Require().Len(results.TxResults, 1)
	_, ok := findEvent(results.TxResults[0].Result.Events, channeltypes.EventTypeSendPacket)
	suite.True(ok)

	suite.Require().Len(results.PoolEvents, 2)
	reg, ok := findEvent(results.PoolEvents, "pool_registration")
	suite.Require().True(ok)
	suite.Equal("pool1abc", reg["pool_id"])
	suite.Equal("abcd", reg["vrf_key_hash"])
	suite.Equal("500", reg["pledge"])
	ret, ok := findEvent(results.PoolEvents, "pool_retirement")
	suite.Require().True(ok)
	suite.Equal("pool1def", ret["pool_id"])

	_, err = suite.querier.BlockData(suite.ctx, &query.BlockDataRequest{})
	suite.True(errorsmod.IsOf(err, types.ErrInvalidArgument), err)
	_, err = suite.querier.BlockResults(suite.ctx, &query.BlockResultsRequest{})
	suite.True(errorsmod.IsOf(err, types.ErrInvalidArgument), err)
	_, err = suite.querier.BlockData(suite.ctx, &query.BlockDataRequest{Height: block + 100})
	suite.True(errorsmod.IsOf(err, types.ErrNotFound), err)
	_, err = suite.querier.TransactionByHash(suite.ctx, &query.TransactionByHashRequest{})
	suite.True(errorsmod.IsOf(err, types.ErrInvalidArgument), err)
}
