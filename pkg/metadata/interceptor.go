package metadata

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"submission_service/pkg/ctxdata"
)

// NewMetadataUnaryInterceptor copies correlation headers sent by the gateway
// into the request context.
func NewMetadataUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		return handler(FromIncoming(ctx), req)
	}
}

func FromIncoming(ctx context.Context) context.Context {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ctx
	}
	if values := md.Get("x-trace-id"); len(values) > 0 {
		ctx = ctxdata.WithTraceID(ctx, values[0])
	}
	if values := md.Get("x-user-id"); len(values) > 0 {
		ctx = ctxdata.WithUserID(ctx, values[0])
	}
	return ctx
}
