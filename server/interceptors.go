package server

import (
	"context"
	"path"
	"time"

	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	grpc_ctxtags "github.com/grpc-ecosystem/go-grpc-middleware/tags"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/cardano-ibc/gateway/metrics"
)

// interceptors is the unary chain, outermost first. Recovery sits inside
// observe, which therefore sees panics as Internal errors.
func (s *Server) interceptors() []grpc.UnaryServerInterceptor {
	return []grpc.UnaryServerInterceptor{
		grpc_ctxtags.UnaryServerInterceptor(),
		s.observe,
		grpc_recovery.UnaryServerInterceptor(grpc_recovery.WithRecoveryHandlerContext(s.recovered)),
	}
}

func (s *Server) recovered(ctx context.Context, p any) error {
	s.logger.Error("panic in handler", "panic", p, "tags", grpc_ctxtags.Extract(ctx).Values())
	return status.Errorf(codes.Internal, "panic: %v", p)
}

// observe records the outcome and latency of every call and converts
// errors into gRPC statuses.
func (s *Server) observe(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
	start := time.Now()
	method := path.Base(info.FullMethod)
	tags := grpc_ctxtags.Extract(ctx).Set("grpc.method", method)

	resp, err := next(ctx, req)
	s.metrics.IncrCounter(1, metrics.KeyRequest, method, metrics.Outcome(err))
	s.metrics.MeasureSince(start, metrics.KeyRequest, method)
	if err == nil {
		return resp, nil
	}

	st := toStatus(err)
	if st.Code() == codes.Internal || st.Code() == codes.Unknown {
		s.logger.Error("request failed", "err", err, "tags", tags.Values())
	} else {
		s.logger.Debug("request rejected", "code", st.Code(), "err", err, "tags", tags.Values())
	}
	return nil, st.Err()
}

// toStatus keeps the code of registered error kinds and maps everything
// else to Internal.
func toStatus(err error) *status.Status {
	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		return st
	}
	return status.New(codes.Internal, err.Error())
}
