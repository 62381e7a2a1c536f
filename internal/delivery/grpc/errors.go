package grpc

import (
	"github.com/vogiaan1904/quickseat-booking/internal/delivery"
	pkgErrors "github.com/vogiaan1904/quickseat-booking/pkg/errors"
	"github.com/vogiaan1904/quickseat-booking/pkg/response"
	"google.golang.org/grpc/codes"
)

var codeByKind = map[pkgErrors.Kind]codes.Code{
	pkgErrors.KindNotFound:         codes.NotFound,
	pkgErrors.KindSeatsUnavailable: codes.AlreadyExists,
	pkgErrors.KindInvalidRequest:   codes.InvalidArgument,
	pkgErrors.KindGateway:          codes.Unavailable,
	pkgErrors.KindAuthentication:   codes.Unauthenticated,
	pkgErrors.KindUnauthorized:     codes.PermissionDenied,
	pkgErrors.KindTransientStorage: codes.Internal,
}

var errUnauthenticated = pkgErrors.NewGRPCError(codes.Unauthenticated, delivery.ErrUnauthenticated.Code, delivery.ErrUnauthenticated.Message)

func (s *grpcService) mapGRPCError(err error) error {
	c := delivery.Classify(err)
	code, ok := codeByKind[c.Kind]
	if !ok {
		return response.ParseGRPCError(err)
	}
	return response.ParseGRPCError(pkgErrors.NewGRPCError(code, c.Code, c.Message))
}
