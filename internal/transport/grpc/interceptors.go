package grpcx

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// DefaultCallTimeout bounds unary calls that arrive without a deadline.
const DefaultCallTimeout = 10 * time.Second

// UnaryServerInterceptor logs each diagnostics call with the room it asked
// about, turns panics into codes.Internal and puts a deadline on calls that
// arrive without one. A nil log uses slog.Default; timeout <= 0 uses
// DefaultCallTimeout.
func UnaryServerInterceptor(log *slog.Logger, timeout time.Duration) grpc.UnaryServerInterceptor {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp any, err error) {
		start := time.Now()
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		attrs := callAttrs(ctx, info.FullMethod, req)

		defer func() {
			if r := recover(); r != nil {
				log.ErrorContext(ctx, "grpc unary panic",
					append(attrs, "panic", r, "stack", string(debug.Stack()))...)
				err = status.Error(codes.Internal, "internal server error")
			}
			code := status.Code(err)
			log.Log(ctx, levelFor(code), "grpc unary",
				append(attrs, "dur_ms", time.Since(start).Milliseconds(), "code", code.String())...)
		}()

		return handler(ctx, req)
	}
}

// StreamServerInterceptor is the streaming counterpart; in practice it only
// sees health watches.
func StreamServerInterceptor(log *slog.Logger) grpc.StreamServerInterceptor {
	if log == nil {
		log = slog.Default()
	}
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) (err error) {
		start := time.Now()
		ctx := ss.Context()
		attrs := callAttrs(ctx, info.FullMethod, nil)

		defer func() {
			if r := recover(); r != nil {
				log.ErrorContext(ctx, "grpc stream panic",
					append(attrs, "panic", r, "stack", string(debug.Stack()))...)
				err = status.Error(codes.Internal, "internal server error")
			}
			code := status.Code(err)
			log.Log(ctx, levelFor(code), "grpc stream",
				append(attrs, "dur_ms", time.Since(start).Milliseconds(), "code", code.String())...)
		}()

		return handler(srv, ss)
	}
}

func callAttrs(ctx context.Context, method string, req any) []any {
	attrs := []any{"method", method}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		attrs = append(attrs, "peer", p.Addr.String())
	}
	if method == MethodGetRoom {
		if in, ok := req.(*wrapperspb.StringValue); ok {
			attrs = append(attrs, "room", in.GetValue())
		}
	}
	return attrs
}

// levelFor keeps lookups of rooms that are already gone out of the warning
// stream: they are routine once a call races the last leave.
func levelFor(code codes.Code) slog.Level {
	switch code {
	case codes.OK, codes.NotFound, codes.Canceled:
		return slog.LevelInfo
	case codes.Internal, codes.Unknown, codes.DataLoss:
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
