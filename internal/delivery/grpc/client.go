package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type BookingServiceClient interface {
	GetOccupiedSeats(ctx context.Context, showID string, opts ...grpc.CallOption) ([]string, error)
	CheckPaymentStatus(ctx context.Context, bookingID string, opts ...grpc.CallOption) (isPaid bool, err error)
}

type bookingServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewBookingServiceClient(cc grpc.ClientConnInterface) BookingServiceClient {
	return &bookingServiceClient{cc: cc}
}

func (c *bookingServiceClient) GetOccupiedSeats(ctx context.Context, showID string, opts ...grpc.CallOption) ([]string, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/GetOccupiedSeats", wrapperspb.String(showID), out, opts...); err != nil {
		return nil, err
	}

	var seats []string
	for _, v := range out.GetFields()["occupiedSeats"].GetListValue().GetValues() {
		seats = append(seats, v.GetStringValue())
	}
	return seats, nil
}

func (c *bookingServiceClient) CheckPaymentStatus(ctx context.Context, bookingID string, opts ...grpc.CallOption) (bool, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/CheckPaymentStatus", wrapperspb.String(bookingID), out, opts...); err != nil {
		return false, err
	}
	return out.GetFields()["isPaid"].GetBoolValue(), nil
}
