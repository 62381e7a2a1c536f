package http

import (
	"net/http"

	"github.com/vogiaan1904/quickseat-booking/internal/delivery"
	pkgErrors "github.com/vogiaan1904/quickseat-booking/pkg/errors"
)

var statusByKind = map[pkgErrors.Kind]int{
	pkgErrors.KindNotFound:         http.StatusNotFound,
	pkgErrors.KindSeatsUnavailable: http.StatusConflict,
	pkgErrors.KindInvalidRequest:   http.StatusBadRequest,
	pkgErrors.KindGateway:          http.StatusBadGateway,
	pkgErrors.KindAuthentication:   http.StatusBadRequest,
	pkgErrors.KindUnauthorized:     http.StatusForbidden,
	pkgErrors.KindTransientStorage: http.StatusInternalServerError,
}

func httpError(c delivery.Classified, statusCode int) *pkgErrors.HTTPError {
	return pkgErrors.NewHTTPError(statusCode, c.Kind, c.Code, c.Message)
}

func mapHTTPError(err error) *pkgErrors.HTTPError {
	c := delivery.Classify(err)
	statusCode, ok := statusByKind[c.Kind]
	if !ok {
		statusCode = http.StatusInternalServerError
	}
	return httpError(c, statusCode)
}

var (
	errUnauthenticated = httpError(delivery.ErrUnauthenticated, http.StatusUnauthorized)
	errForbidden       = httpError(delivery.ErrForbidden, http.StatusForbidden)
	errBadRequest      = httpError(delivery.ErrBadRequest, http.StatusBadRequest)
)
