package handler_test

import (
	errorsmod "cosmossdk.io/errors"
	sdk "github.com/cosmos/cosmos-sdk/types"
	transfertypes "github.com/cosmos/ibc-go/v8/modules/apps/transfer/types"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	channeltypes "github.com/cosmos/ibc-go/v8/modules/core/04-channel/types"

	"github.com/cardano-ibc/gateway/datum"
	"github.com/cardano-ibc/gateway/handler"
	"github.com/cardano-ibc/gateway/state/statetest"
	"github.com/cardano-ibc/gateway/types"
)

var packetTimeout = clienttypes.NewHeight(0, 1000)

func transferData() []byte {
	return transfertypes.NewFungibleTokenPacketData("stake", "10", "addr_test1sender", "cosmos1receiver", "").GetBytes()
}

// sentPacket is the packet Transfer commits on channel-0 at seq.
func sentPacket(seq uint64) channeltypes.Packet {
	return channeltypes.NewPacket(transferData(), seq,
		statetest.TransferPort, "channel-0", "transfer", "channel-9", packetTimeout, 0)
}

// incomingPacket is a counterparty packet addressed to channel-0.
func incomingPacket(seq uint64, timeout clienttypes.Height) channeltypes.Packet {
	return channeltypes.NewPacket([]byte("payload"), seq,
		"transfer", "channel-9", statetest.TransferPort, "channel-0", timeout, 0)
}

func (suite *HandlerTestSuite) transfer() (handler.UnsignedTx, error) {
	return suite.handler.Transfer(suite.ctx, &transfertypes.MsgTransfer{
		SourcePort:    statetest.TransferPort,
		SourceChannel: "channel-0",
		Token:         sdk.NewInt64Coin("stake", 10),
		Sender:        "addr_test1sender",
		Receiver:      "cosmos1receiver",
		TimeoutHeight: packetTimeout,
	})
}

func (suite *HandlerTestSuite) TestTransferThenAcknowledge() {
	channelID := suite.seedChannel(transferChannel(datum.ChanStateOpen, datum.OrderUnordered))

	res, err := suite.transfer()
	suite.Require().NoError(err)
	suite.requireAligned()
	suite.requireCallback(res.Hash, datum.ModuleTransfer{ChannelID: channelID, Data: transferData()})

	st := suite.channel(channelID)
	suite.EqualValues(2, st.NextSequenceSend)
	commitment, ok := st.PacketCommitment.Get(1)
	suite.Require().True(ok)
	suite.Equal(datum.PacketFromIBC(sentPacket(1)).Commitment(), commitment)

	msg := &channeltypes.MsgAcknowledgement{
		Packet:          sentPacket(1),
		Acknowledgement: handler.SuccessAcknowledgement,
		ProofAcked:      []byte("proof-acked"),
		ProofHeight:     proofHeight.ToIBC(),
		Signer:          "relayer",
	}
	ack, err := suite.handler.Acknowledgement(suite.ctx, msg)
	suite.Require().NoError(err)
	suite.requireAligned()
	suite.requireCallback(ack.Hash, datum.ModuleCallback{
		Kind:            datum.OnAcknowledgementPacket,
		ChannelID:       channelID,
		Acknowledgement: handler.SuccessAcknowledgement,
		Data:            transferData(),
	})
	suite.False(suite.channel(channelID).PacketCommitment.Has(1))

	// the commitment is gone, so a second acknowledgement has nothing to clear
	_, err = suite.handler.Acknowledgement(suite.ctx, msg)
	suite.True(errorsmod.IsOf(err, types.ErrInternal), err)
}

func (suite *HandlerTestSuite) TestTransferValidation() {
	suite.seedChannel(transferChannel(datum.ChanStateOpen, datum.OrderUnordered))

	_, err := suite.handler.Transfer(suite.ctx, &transfertypes.MsgTransfer{
		SourcePort:    statetest.TransferPort,
		SourceChannel: "channel-0",
		Token:         sdk.NewInt64Coin("stake", 10),
	})
	suite.True(errorsmod.IsOf(err, types.ErrInvalidArgument), err)

	_, err = suite.handler.Transfer(suite.ctx, &transfertypes.MsgTransfer{
		SourcePort:    statetest.TransferPort,
		SourceChannel: "channel-0",
		Token:         sdk.NewInt64Coin("stake", 0),
		TimeoutHeight: packetTimeout,
	})
	suite.True(errorsmod.IsOf(err, types.ErrInvalidArgument), err)
}

func (suite *HandlerTestSuite) TestTransferOnClosedChannel() {
	suite.seedChannel(transferChannel(datum.ChanStateClose, datum.OrderUnordered))
	_, err := suite.transfer()
	suite.True(errorsmod.IsOf(err, types.ErrInternal), err)
	suite.Empty(suite.builder.Built)
}

func (suite *HandlerTestSuite) TestRecvPacketUnordered() {
	channelID := suite.seedChannel(transferChannel(datum.ChanStateOpen, datum.OrderUnordered))
	packet := incomingPacket(3, packetTimeout)

	res, err := suite.handler.RecvPacket(suite.ctx, &channeltypes.MsgRecvPacket{
		Packet:          packet,
		ProofCommitment: []byte("proof-commitment"),
		ProofHeight:     proofHeight.ToIBC(),
		Signer:          "relayer",
	})
	suite.Require().NoError(err)
	suite.requireAligned()
	suite.requireCallback(res.Hash, datum.ModuleCallback{
		Kind:            datum.OnRecvPacket,
		ChannelID:       channelID,
		Acknowledgement: handler.SuccessAcknowledgement,
		Data:            []byte("payload"),
	})

	st := suite.channel(channelID)
	receipt, ok := st.PacketReceipt.Get(3)
	suite.True(ok)
	suite.Equal(datum.ReceiptValue, receipt)
	ack, ok := st.PacketAcknowledgement.Get(3)
	suite.True(ok)
	suite.Equal(datum.AckCommitment(handler.SuccessAcknowledgement), ack)
	suite.EqualValues(1, st.NextSequenceRecv)
}

func (suite *HandlerTestSuite) TestRecvPacketRedelivery() {
	channelID := suite.seedChannel(transferChannel(datum.ChanStateOpen, datum.OrderUnordered))
	msg := &channeltypes.MsgRecvPacket{
		Packet:          incomingPacket(3, packetTimeout),
		ProofCommitment: []byte("proof-commitment"),
		ProofHeight:     proofHeight.ToIBC(),
		Signer:          "relayer",
	}

	_, err := suite.handler.RecvPacket(suite.ctx, msg)
	suite.Require().NoError(err)
	built := len(suite.builder.Built)
	before := suite.channel(channelID)

	_, err = suite.handler.RecvPacket(suite.ctx, msg)
	suite.True(errorsmod.IsOf(err, types.ErrInternal), err)
	suite.ErrorContains(err, "already received")
	suite.Len(suite.builder.Built, built)
	suite.Equal(before.PacketReceipt.Keys(), suite.channel(channelID).PacketReceipt.Keys())
	suite.requireAligned()
}

func (suite *HandlerTestSuite) TestRecvPacketAlreadyAcknowledged() {
	st := transferChannel(datum.ChanStateOpen, datum.OrderOrdered)
	st.PacketAcknowledgement.Set(1, datum.AckCommitment(handler.SuccessAcknowledgement))
	suite.seedChannel(st)

	_, err := suite.handler.RecvPacket(suite.ctx, &channeltypes.MsgRecvPacket{
		Packet: incomingPacket(1, packetTimeout),
		Signer: "relayer",
	})
	suite.True(errorsmod.IsOf(err, types.ErrInternal), err)
	suite.ErrorContains(err, "already acknowledged")
	suite.Empty(suite.builder.Built)
}

func (suite *HandlerTestSuite) TestRecvPacketConflictingAck() {
	st := transferChannel(datum.ChanStateOpen, datum.OrderUnordered)
	st.PacketAcknowledgement.Set(5, []byte{0xff})
	suite.seedChannel(st)

	_, err := suite.handler.RecvPacket(suite.ctx, &channeltypes.MsgRecvPacket{
		Packet: incomingPacket(5, packetTimeout),
		Signer: "relayer",
	})
	suite.True(errorsmod.IsOf(err, types.ErrConflictingWrite), err)
	suite.Empty(suite.builder.Built)
}

func (suite *HandlerTestSuite) TestRecvPacketRejects() {
	suite.seedChannel(transferChannel(datum.ChanStateOpen, datum.OrderOrdered))

	testCases := []struct {
		name   string
		packet channeltypes.Packet
		err    *errorsmod.Error
	}{
		{"timed out", incomingPacket(1, clienttypes.NewHeight(0, 1)), types.ErrInvalidArgument},
		{"out of order", incomingPacket(2, packetTimeout), types.ErrInternal},
		{
			"wrong source",
			channeltypes.NewPacket([]byte("payload"), 1, "transfer", "channel-3", statetest.TransferPort, "channel-0", packetTimeout, 0),
			types.ErrInvalidArgument,
		},
	}
	for _, tc := range testCases {
		_, err := suite.handler.RecvPacket(suite.ctx, &channeltypes.MsgRecvPacket{Packet: tc.packet, Signer: "relayer"})
		suite.True(errorsmod.IsOf(err, tc.err), "%s: %v", tc.name, err)
	}

	_, err := suite.handler.RecvPacket(suite.ctx, &channeltypes.MsgRecvPacket{Packet: incomingPacket(1, packetTimeout), Signer: "relayer"})
	suite.Require().NoError(err)
	suite.EqualValues(2, suite.channel("channel-0").NextSequenceRecv)
	suite.requireAligned()
}

func (suite *HandlerTestSuite) TestTimeoutOrderedClosesChannel() {
	st := transferChannel(datum.ChanStateOpen, datum.OrderOrdered)
	st.PacketCommitment.Set(1, datum.PacketFromIBC(sentPacket(1)).Commitment())
	st.NextSequenceSend = 2
	channelID := suite.seedChannel(st)

	msg := &channeltypes.MsgTimeout{
		Packet:           sentPacket(1),
		ProofUnreceived:  []byte("proof-unreceived"),
		ProofHeight:      proofHeight.ToIBC(),
		NextSequenceRecv: 2,
		Signer:           "relayer",
	}
	_, err := suite.handler.Timeout(suite.ctx, msg)
	suite.True(errorsmod.IsOf(err, types.ErrInternal), err)

	msg.NextSequenceRecv = 1
	res, err := suite.handler.Timeout(suite.ctx, msg)
	suite.Require().NoError(err)
	suite.requireAligned()
	suite.requireCallback(res.Hash, datum.ModuleCallback{Kind: datum.OnTimeoutPacket, ChannelID: channelID, Data: transferData()})

	after := suite.channel(channelID)
	suite.False(after.PacketCommitment.Has(1))
	suite.Equal(datum.ChanStateClose, after.Channel.State)
	suite.False(suite.moduleDatum().IsOpen(channelID))
}

func (suite *HandlerTestSuite) TestTimeoutRefresh() {
	channelID := suite.seedChannel(transferChannel(datum.ChanStateOpen, datum.OrderUnordered))
	before, err := suite.fixture.Reader.Channel(suite.ctx, statetest.TransferPort, channelID)
	suite.Require().NoError(err)

	_, err = suite.handler.TimeoutRefresh(suite.ctx, &handler.MsgTimeoutRefresh{
		PortId: statetest.TransferPort, ChannelId: channelID, Signer: "relayer",
	})
	suite.Require().NoError(err)
	suite.requireAligned()

	after, err := suite.fixture.Reader.Channel(suite.ctx, statetest.TransferPort, channelID)
	suite.Require().NoError(err)
	suite.NotEqual(before.UTXO.Ref(), after.UTXO.Ref())
	suite.Equal(before.Datum.State.Channel, after.Datum.State.Channel)

	// the root is unchanged, so only the channel output is spent
	desc := suite.builder.Built[len(suite.builder.Built)-1]
	suite.Len(desc.Spends, 1)
	suite.Empty(desc.Mints)
}
