package delivery

import (
	"errors"

	"github.com/vogiaan1904/quickseat-booking/internal/service"
	pkgErrors "github.com/vogiaan1904/quickseat-booking/pkg/errors"
)

// Classified is the transport-neutral view of a service error.
type Classified struct {
	Kind    pkgErrors.Kind
	Code    string
	Message string
}

var classes = []struct {
	target error
	Classified
}{
	{service.ErrShowNotFound, Classified{pkgErrors.KindNotFound, "QSB001", "Show not found"}},
	{service.ErrBookingNotFound, Classified{pkgErrors.KindNotFound, "QSB002", "Booking not found"}},
	{service.ErrSeatsUnavailable, Classified{pkgErrors.KindSeatsUnavailable, "QSB003", "Some of the selected seats are no longer available"}},
	{service.ErrInvalidSeats, Classified{pkgErrors.KindInvalidRequest, "QSB004", "Invalid seat selection"}},
	{service.ErrTooManySeats, Classified{pkgErrors.KindInvalidRequest, "QSB005", "Too many seats selected"}},
	{service.ErrInvalidShowInput, Classified{pkgErrors.KindInvalidRequest, "QSB006", "Invalid show details"}},
	{service.ErrMissingBookingID, Classified{pkgErrors.KindInvalidRequest, "QSB007", "Payment event has no booking id"}},
	{service.ErrInvalidSignature, Classified{pkgErrors.KindAuthentication, "QSB008", "Invalid webhook signature"}},
	{service.ErrUnauthorized, Classified{pkgErrors.KindUnauthorized, "QSB009", "Not authorized"}},
	{service.ErrGateway, Classified{pkgErrors.KindGateway, "QSB010", "Payment provider unavailable"}},
	{service.ErrTransientStorage, Classified{pkgErrors.KindTransientStorage, "QSB011", "Temporarily unavailable, please retry"}},
}

var (
	ErrUnauthenticated = Classified{pkgErrors.KindUnauthorized, "QSB012", "Authentication required"}
	ErrForbidden       = Classified{pkgErrors.KindUnauthorized, "QSB013", "Admin access required"}
	ErrBadRequest      = Classified{pkgErrors.KindInvalidRequest, "QSB014", "Invalid request"}
	errInternal        = Classified{pkgErrors.KindInternal, "QSB000", "Internal server error"}
)

// Classify maps a service error to its client-facing class. Seat and show
// validation errors keep their detail since it names the offending input.
func Classify(err error) Classified {
	for _, c := range classes {
		if !errors.Is(err, c.target) {
			continue
		}
		out := c.Classified
		if c.Kind == pkgErrors.KindInvalidRequest || c.Kind == pkgErrors.KindSeatsUnavailable {
			out.Message = err.Error()
		}
		return out
	}
	return errInternal
}
