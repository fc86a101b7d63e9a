// Package server exposes the query and transaction handlers over gRPC and a
// JSON HTTP gateway.
package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"cosmossdk.io/log"
	"github.com/cosmos/cosmos-sdk/codec"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	gogogateway "github.com/cosmos/gogogateway"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	connectiontypes "github.com/cosmos/ibc-go/v8/modules/core/03-connection/types"
	channeltypes "github.com/cosmos/ibc-go/v8/modules/core/04-channel/types"
	ibctm "github.com/cosmos/ibc-go/v8/modules/light-clients/07-tendermint"
	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	"github.com/grpc-ecosystem/grpc-gateway/runtime"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"

	"github.com/cardano-ibc/gateway/handler"
	"github.com/cardano-ibc/gateway/metrics"
	"github.com/cardano-ibc/gateway/query"
)

// Server owns the gRPC server and the HTTP gateway in front of it. Both
// serve the same Querier and Handler.
type Server struct {
	querier *query.Querier
	handler *handler.Handler
	logger  log.Logger
	metrics metrics.Proxy
	codec   encoding.Codec
	grpc    *grpc.Server
	jsonPb  *gogogateway.JSONPb
}

type Option func(*Server)

// WithMetrics records request counts and latencies into m.
func WithMetrics(m metrics.Proxy) Option {
	return func(s *Server) { s.metrics = m }
}

// New builds the gRPC server and registers the ICS-02, ICS-03 and ICS-04
// query services together with the Msg service.
func New(querier *query.Querier, h *handler.Handler, logger log.Logger, opts ...Option) *Server {
	registry := codectypes.NewInterfaceRegistry()
	clienttypes.RegisterInterfaces(registry)
	ibctm.RegisterInterfaces(registry)
	connectiontypes.RegisterInterfaces(registry)
	channeltypes.RegisterInterfaces(registry)

	s := &Server{
		querier: querier,
		handler: h,
		logger:  logger.With("module", "server"),
		metrics: &metrics.NilMetrics{},
		codec:   codec.NewProtoCodec(registry).GRPCCodec(),
		jsonPb: &gogogateway.JSONPb{
			EmitDefaults: true,
			OrigName:     true,
			AnyResolver:  registry,
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.grpc = grpc.NewServer(
		grpc.ForceServerCodec(s.codec),
		grpc_middleware.WithUnaryServerChain(s.interceptors()...),
	)
	clienttypes.RegisterQueryServer(s.grpc, &clientQueryServer{q: s.querier})
	connectiontypes.RegisterQueryServer(s.grpc, &connectionQueryServer{q: s.querier})
	channeltypes.RegisterQueryServer(s.grpc, &channelQueryServer{q: s.querier})
	s.grpc.RegisterService(&msgServiceDesc, &msgServer{handler: s.handler})
	return s
}

// GRPC returns the underlying gRPC server.
func (s *Server) GRPC() *grpc.Server {
	return s.grpc
}

// Codec is the codec clients must use to talk to the gRPC server.
func (s *Server) Codec() encoding.Codec {
	return s.codec
}

// Gateway returns the HTTP handler: the query services proxied as JSON plus
// the routes of the queries that have no gRPC service.
func (s *Server) Gateway(ctx context.Context) (http.Handler, error) {
	gatewayMux := runtime.NewServeMux(
		runtime.WithMarshalerOption(runtime.MIMEWildcard, s.jsonPb),
		// This is necessary to get error details properly marshalled in unary requests.
		runtime.WithProtoErrorHandler(runtime.DefaultHTTPProtoErrorHandler),
	)
	if err := clienttypes.RegisterQueryHandlerServer(ctx, gatewayMux, &clientQueryServer{q: s.querier}); err != nil {
		return nil, errors.Wrap(err, "failed to register client query handler for gRPC-gateway")
	}
	if err := connectiontypes.RegisterQueryHandlerServer(ctx, gatewayMux, &connectionQueryServer{q: s.querier}); err != nil {
		return nil, errors.Wrap(err, "failed to register connection query handler for gRPC-gateway")
	}
	if err := channeltypes.RegisterQueryHandlerServer(ctx, gatewayMux, &channelQueryServer{q: s.querier}); err != nil {
		return nil, errors.Wrap(err, "failed to register channel query handler for gRPC-gateway")
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)
	mux.Handle("/", gatewayMux)
	return mux, nil
}

// Serve runs the gRPC server on grpcAddr and the gateway on gatewayAddr
// until ctx is cancelled or either of them fails.
func (s *Server) Serve(ctx context.Context, grpcAddr, gatewayAddr string) error {
	listener, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", grpcAddr)
	}
	gateway, err := s.Gateway(ctx)
	if err != nil {
		_ = listener.Close()
		return err
	}
	httpServer := &http.Server{Addr: gatewayAddr, Handler: gateway, ReadHeaderTimeout: 5 * time.Second}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("gRPC server starting", "addr", grpcAddr)
		if err := s.grpc.Serve(listener); err != nil {
			return errors.Wrap(err, "gRPC server terminated")
		}
		return nil
	})
	g.Go(func() error {
		s.logger.Info("gRPC-gateway server starting", "addr", gatewayAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "gRPC-gateway server terminated")
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.grpc.GracefulStop()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
