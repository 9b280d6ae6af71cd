package grpcx

import (
	"context"
	"errors"
	"sort"

	"github.com/cwrk-planet/signal-relay/internal/domain"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	ServiceName = "relay.v1.Diagnostics"

	MethodSnapshot = "/" + ServiceName + "/Snapshot"
	MethodGetRoom  = "/" + ServiceName + "/GetRoom"
)

type RoomReader interface {
	MemberCount(id string) (int, error)
	Snapshot() map[string][]string
}

// DiagnosticsServer exposes read-only registry views. Messages are protobuf
// well-known types, so no generated code is involved.
type DiagnosticsServer interface {
	Snapshot(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
	GetRoom(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error)
}

type Server struct {
	rooms RoomReader
}

func NewServer(rooms RoomReader) *Server {
	return &Server{rooms: rooms}
}

// Register adds the diagnostics and health services to grpcServer.
func Register(grpcServer *grpc.Server, s *Server) *health.Server {
	grpcServer.RegisterService(&diagnosticsServiceDesc, s)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, hs)
	return hs
}

// Snapshot returns {"rooms": {"<id>": ["<participant>", ...]}}.
func (s *Server) Snapshot(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	snap := s.rooms.Snapshot()
	ids := make([]string, 0, len(snap))
	for id := range snap {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rooms := make(map[string]any, len(snap))
	for _, id := range ids {
		members := make([]any, 0, len(snap[id]))
		for _, m := range snap[id] {
			members = append(members, m)
		}
		rooms[id] = members
	}

	out, err := structpb.NewStruct(map[string]any{"rooms": rooms})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// GetRoom returns {"id": ..., "participants": n}.
func (s *Server) GetRoom(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	id := in.GetValue()
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "room id is required")
	}
	n, err := s.rooms.MemberCount(id)
	if err != nil {
		return nil, mapErr(err)
	}

	out, err := structpb.NewStruct(map[string]any{
		"id":               id,
		"participants":     n,
		"max_participants": domain.MaxParticipants,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		return status.Error(codes.NotFound, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// -------- service descriptor --------

func snapshotHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DiagnosticsServer).Snapshot(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodSnapshot}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DiagnosticsServer).Snapshot(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func getRoomHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DiagnosticsServer).GetRoom(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodGetRoom}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DiagnosticsServer).GetRoom(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

var diagnosticsServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DiagnosticsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Snapshot", Handler: snapshotHandler},
		{MethodName: "GetRoom", Handler: getRoomHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "relay/v1/diagnostics.proto",
}
