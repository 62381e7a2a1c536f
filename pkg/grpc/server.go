package grpc

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/vogiaan1904/quickseat-booking/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// NewServer builds a gRPC server with request logging, panic recovery and
// the standard health service. The returned health server reports SERVING
// for the empty service name; callers mark their own services.
func NewServer(l logger.Logger, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	opts = append(opts, grpc.ChainUnaryInterceptor(
		loggingInterceptor(l),
		recoveryInterceptor(l),
	))

	srv := grpc.NewServer(opts...)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	return srv, hs
}

func loggingInterceptor(l logger.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()

		reqID := uuid.NewString()
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if vals := md.Get("x-request-id"); len(vals) > 0 && vals[0] != "" {
				reqID = vals[0]
			}
		}
		ctx = l.With(ctx, "request_id", reqID)

		resp, err := handler(ctx, req)

		l.Infof(ctx, "%s -> %s (%dms)", info.FullMethod, status.Code(err), time.Since(start).Milliseconds())
		return resp, err
	}
}

func recoveryInterceptor(l logger.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				l.Errorf(ctx, "pkg.grpc.recoveryInterceptor: %s panicked: %v\n%s", info.FullMethod, r, debug.Stack())
				err = status.Error(codes.Internal, "Internal server error")
			}
		}()
		return handler(ctx, req)
	}
}
