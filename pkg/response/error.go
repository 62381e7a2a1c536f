package response

import (
	"errors"
	"net/http"

	pkgErrors "github.com/vogiaan1904/quickseat-booking/pkg/errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type ErrorResp struct {
	Success bool   `json:"success"`
	Kind    string `json:"kind"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func parseHttpError(err error) (int, ErrorResp) {
	var httpErr *pkgErrors.HTTPError
	if errors.As(err, &httpErr) {
		statusCode := httpErr.StatusCode
		if statusCode == 0 {
			statusCode = http.StatusBadRequest
		}

		return statusCode, ErrorResp{
			Kind:    string(httpErr.Kind),
			Code:    httpErr.Code,
			Message: httpErr.Message,
		}
	}

	return http.StatusInternalServerError, ErrorResp{
		Kind:    string(pkgErrors.KindInternal),
		Code:    pkgErrors.ErrInternal.Code,
		Message: pkgErrors.ErrInternal.Message,
	}
}

// Error writes err as the JSON error envelope. Errors that are not
// *errors.HTTPError become a generic 500.
func Error(w http.ResponseWriter, err error) {
	statusCode, body := parseHttpError(err)
	JSON(w, statusCode, body)
}

func ParseGRPCError(err error) error {
	var grpcErr *pkgErrors.GRPCError
	if errors.As(err, &grpcErr) {
		grpcCode := grpcErr.GrpcCode
		if grpcCode == codes.OK {
			grpcCode = codes.InvalidArgument
		}
		return status.Error(grpcCode, grpcErr.Error())
	}

	return status.Error(codes.Internal, "Internal server error")
}
