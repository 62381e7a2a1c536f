package errors

import "net/http"

type HTTPError struct {
	Code       string
	Kind       Kind
	Message    string
	StatusCode int
}

func NewHTTPError(statusCode int, kind Kind, code, message string) *HTTPError {
	return &HTTPError{
		Code:       code,
		Kind:       kind,
		Message:    message,
		StatusCode: statusCode,
	}
}

func (e HTTPError) Error() string {
	return e.Message
}

// WithMessage returns a copy of e carrying a more specific message.
func (e *HTTPError) WithMessage(msg string) *HTTPError {
	cp := *e
	cp.Message = msg
	return &cp
}

var ErrInternal = NewHTTPError(http.StatusInternalServerError, KindInternal, "QSB000", "Internal server error")
