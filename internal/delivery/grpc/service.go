package grpc

import (
	"context"
	"strings"

	"github.com/vogiaan1904/quickseat-booking/internal/auth"
	"github.com/vogiaan1904/quickseat-booking/internal/service"
	"github.com/vogiaan1904/quickseat-booking/pkg/logger"
	"github.com/vogiaan1904/quickseat-booking/pkg/response"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "quickseat.booking.v1.BookingService"

// BookingServiceServer is the read side exposed to internal callers. Requests
// carry the show or booking id as a StringValue; replies are Structs shaped
// like the HTTP bodies.
type BookingServiceServer interface {
	GetOccupiedSeats(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
	CheckPaymentStatus(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
}

type grpcService struct {
	bookingSvc service.BookingService
	paymentSvc service.PaymentService
	verifier   *auth.TokenVerifier
	l          logger.Logger
}

func NewGrpcService(
	bookingSvc service.BookingService,
	paymentSvc service.PaymentService,
	verifier *auth.TokenVerifier,
	l logger.Logger,
) BookingServiceServer {
	return &grpcService{
		bookingSvc: bookingSvc,
		paymentSvc: paymentSvc,
		verifier:   verifier,
		l:          l,
	}
}

func (s *grpcService) GetOccupiedSeats(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	seats, err := s.bookingSvc.OccupiedSeats(ctx, req.GetValue())
	if err != nil {
		s.l.Errorf(ctx, "delivery.grpc.grpcService.GetOccupiedSeats: %v", err)
		return nil, s.mapGRPCError(err)
	}

	list := make([]interface{}, 0, len(seats))
	for _, seat := range seats {
		list = append(list, seat)
	}

	return structpb.NewStruct(map[string]interface{}{
		"success":       true,
		"occupiedSeats": list,
	})
}

func (s *grpcService) CheckPaymentStatus(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	id, err := s.identity(ctx)
	if err != nil {
		return nil, response.ParseGRPCError(errUnauthenticated)
	}

	out, err := s.paymentSvc.CheckPaymentStatus(ctx, req.GetValue(), id.UserID)
	if err != nil {
		s.l.Errorf(ctx, "delivery.grpc.grpcService.CheckPaymentStatus: %v", err)
		return nil, s.mapGRPCError(err)
	}

	return structpb.NewStruct(map[string]interface{}{
		"success": true,
		"isPaid":  out.IsPaid,
		"updated": out.Updated,
	})
}

func (s *grpcService) identity(ctx context.Context) (auth.Identity, error) {
	var token string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get("authorization"); len(vals) > 0 {
			token = auth.BearerToken(strings.TrimSpace(vals[0]))
		}
	}
	return s.verifier.Verify(token)
}

func RegisterBookingServiceServer(s grpc.ServiceRegistrar, srv BookingServiceServer) {
	s.RegisterService(&BookingServiceDesc, srv)
}

var BookingServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BookingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetOccupiedSeats", Handler: getOccupiedSeatsHandler},
		{MethodName: "CheckPaymentStatus", Handler: checkPaymentStatusHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "quickseat/booking/v1/booking.proto",
}

func getOccupiedSeatsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BookingServiceServer).GetOccupiedSeats(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/GetOccupiedSeats"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BookingServiceServer).GetOccupiedSeats(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func checkPaymentStatusHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BookingServiceServer).CheckPaymentStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/CheckPaymentStatus"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BookingServiceServer).CheckPaymentStatus(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}
