package server

import (
	"context"

	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	"github.com/cosmos/gogoproto/proto"
	transfertypes "github.com/cosmos/ibc-go/v8/modules/apps/transfer/types"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	connectiontypes "github.com/cosmos/ibc-go/v8/modules/core/03-connection/types"
	channeltypes "github.com/cosmos/ibc-go/v8/modules/core/04-channel/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/cardano-ibc/gateway/handler"
)

const (
	MsgServiceName = "ibc.gateway.v1.Msg"

	// UnsignedTxTypeURL tags the Any every Msg method returns; its value is
	// the CBOR of the unsigned ledger transaction.
	UnsignedTxTypeURL = "/cardano.UnsignedTx"

	// Response headers of the Msg methods.
	HeaderTxHash     = "x-cardano-tx-hash"
	HeaderIdentifier = "x-ibc-identifier"
)

type msgServer struct {
	handler *handler.Handler
}

// msgMethod adapts one Handler method to a unary gRPC method taking M.
func msgMethod[M any, PM interface {
	*M
	proto.Message
}](name string, call func(*handler.Handler, context.Context, PM) (handler.UnsignedTx, error)) grpc.MethodDesc {
	fullMethod := "/" + MsgServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			msg := PM(new(M))
			if err := dec(msg); err != nil {
				return nil, err
			}
			h := srv.(*msgServer).handler
			run := func(ctx context.Context, req any) (any, error) {
				tx, err := call(h, ctx, req.(PM))
				if err != nil {
					return nil, err
				}
				md := metadata.Pairs(HeaderTxHash, tx.Hash)
				if tx.ID != "" {
					md.Append(HeaderIdentifier, tx.ID)
				}
				// fails only outside a transport stream
				_ = grpc.SetHeader(ctx, md)
				return &codectypes.Any{TypeUrl: UnsignedTxTypeURL, Value: tx.CBOR}, nil
			}
			if interceptor == nil {
				return run(ctx, msg)
			}
			return interceptor(ctx, msg, &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}, run)
		},
	}
}

var msgServiceDesc = grpc.ServiceDesc{
	ServiceName: MsgServiceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		msgMethod[clienttypes.MsgCreateClient]("CreateClient", (*handler.Handler).CreateClient),
		msgMethod[clienttypes.MsgUpdateClient]("UpdateClient", (*handler.Handler).UpdateClient),
		msgMethod[connectiontypes.MsgConnectionOpenInit]("ConnectionOpenInit", (*handler.Handler).ConnOpenInit),
		msgMethod[connectiontypes.MsgConnectionOpenTry]("ConnectionOpenTry", (*handler.Handler).ConnOpenTry),
		msgMethod[connectiontypes.MsgConnectionOpenAck]("ConnectionOpenAck", (*handler.Handler).ConnOpenAck),
		msgMethod[connectiontypes.MsgConnectionOpenConfirm]("ConnectionOpenConfirm", (*handler.Handler).ConnOpenConfirm),
		msgMethod[channeltypes.MsgChannelOpenInit]("ChannelOpenInit", (*handler.Handler).ChanOpenInit),
		msgMethod[channeltypes.MsgChannelOpenTry]("ChannelOpenTry", (*handler.Handler).ChanOpenTry),
		msgMethod[channeltypes.MsgChannelOpenAck]("ChannelOpenAck", (*handler.Handler).ChanOpenAck),
		msgMethod[channeltypes.MsgChannelOpenConfirm]("ChannelOpenConfirm", (*handler.Handler).ChanOpenConfirm),
		msgMethod[channeltypes.MsgChannelCloseInit]("ChannelCloseInit", (*handler.Handler).ChanCloseInit),
		msgMethod[channeltypes.MsgRecvPacket]("RecvPacket", (*handler.Handler).RecvPacket),
		msgMethod[channeltypes.MsgAcknowledgement]("Acknowledgement", (*handler.Handler).Acknowledgement),
		msgMethod[channeltypes.MsgTimeout]("Timeout", (*handler.Handler).Timeout),
		msgMethod[transfertypes.MsgTransfer]("Transfer", (*handler.Handler).Transfer),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ibc/gateway/v1/tx.proto",
}
