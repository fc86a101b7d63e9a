package server

import (
	"context"

	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	connectiontypes "github.com/cosmos/ibc-go/v8/modules/core/03-connection/types"
	channeltypes "github.com/cosmos/ibc-go/v8/modules/core/04-channel/types"

	"github.com/cardano-ibc/gateway/query"
)

// The adapters below expose a Querier as the ibc-go query services. Methods
// the gateway does not serve fall through to the Unimplemented servers.

var _ clienttypes.QueryServer = (*clientQueryServer)(nil)

type clientQueryServer struct {
	clienttypes.UnimplementedQueryServer
	q *query.Querier
}

func (s *clientQueryServer) ClientState(ctx context.Context, req *clienttypes.QueryClientStateRequest) (*clienttypes.QueryClientStateResponse, error) {
	return s.q.ClientState(ctx, req)
}

func (s *clientQueryServer) ClientStates(ctx context.Context, req *clienttypes.QueryClientStatesRequest) (*clienttypes.QueryClientStatesResponse, error) {
	return s.q.ClientStates(ctx, req)
}

func (s *clientQueryServer) ConsensusState(ctx context.Context, req *clienttypes.QueryConsensusStateRequest) (*clienttypes.QueryConsensusStateResponse, error) {
	return s.q.ConsensusState(ctx, req)
}

var _ connectiontypes.QueryServer = (*connectionQueryServer)(nil)

type connectionQueryServer struct {
	connectiontypes.UnimplementedQueryServer
	q *query.Querier
}

func (s *connectionQueryServer) Connection(ctx context.Context, req *connectiontypes.QueryConnectionRequest) (*connectiontypes.QueryConnectionResponse, error) {
	return s.q.Connection(ctx, req)
}

func (s *connectionQueryServer) Connections(ctx context.Context, req *connectiontypes.QueryConnectionsRequest) (*connectiontypes.QueryConnectionsResponse, error) {
	return s.q.Connections(ctx, req)
}

var _ channeltypes.QueryServer = (*channelQueryServer)(nil)

type channelQueryServer struct {
	channeltypes.UnimplementedQueryServer
	q *query.Querier
}

func (s *channelQueryServer) Channel(ctx context.Context, req *channeltypes.QueryChannelRequest) (*channeltypes.QueryChannelResponse, error) {
	return s.q.Channel(ctx, req)
}

func (s *channelQueryServer) Channels(ctx context.Context, req *channeltypes.QueryChannelsRequest) (*channeltypes.QueryChannelsResponse, error) {
	return s.q.Channels(ctx, req)
}

func (s *channelQueryServer) ConnectionChannels(ctx context.Context, req *channeltypes.QueryConnectionChannelsRequest) (*channeltypes.QueryConnectionChannelsResponse, error) {
	return s.q.ConnectionChannels(ctx, req)
}

func (s *channelQueryServer) PacketCommitment(ctx context.Context, req *channeltypes.QueryPacketCommitmentRequest) (*channeltypes.QueryPacketCommitmentResponse, error) {
	return s.q.PacketCommitment(ctx, req)
}

func (s *channelQueryServer) PacketCommitments(ctx context.Context, req *channeltypes.QueryPacketCommitmentsRequest) (*channeltypes.QueryPacketCommitmentsResponse, error) {
	return s.q.PacketCommitments(ctx, req)
}

func (s *channelQueryServer) PacketReceipt(ctx context.Context, req *channeltypes.QueryPacketReceiptRequest) (*channeltypes.QueryPacketReceiptResponse, error) {
	return s.q.PacketReceipt(ctx, req)
}

func (s *channelQueryServer) PacketAcknowledgement(ctx context.Context, req *channeltypes.QueryPacketAcknowledgementRequest) (*channeltypes.QueryPacketAcknowledgementResponse, error) {
	return s.q.PacketAcknowledgement(ctx, req)
}

func (s *channelQueryServer) PacketAcknowledgements(ctx context.Context, req *channeltypes.QueryPacketAcknowledgementsRequest) (*channeltypes.QueryPacketAcknowledgementsResponse, error) {
	return s.q.PacketAcknowledgements(ctx, req)
}

func (s *channelQueryServer) UnreceivedPackets(ctx context.Context, req *channeltypes.QueryUnreceivedPacketsRequest) (*channeltypes.QueryUnreceivedPacketsResponse, error) {
	return s.q.UnreceivedPackets(ctx, req)
}

func (s *channelQueryServer) UnreceivedAcks(ctx context.Context, req *channeltypes.QueryUnreceivedAcksRequest) (*channeltypes.QueryUnreceivedAcksResponse, error) {
	return s.q.UnreceivedAcks(ctx, req)
}

func (s *channelQueryServer) NextSequenceReceive(ctx context.Context, req *channeltypes.QueryNextSequenceReceiveRequest) (*channeltypes.QueryNextSequenceReceiveResponse, error) {
	return s.q.NextSequenceReceive(ctx, req)
}
