package errors

// Kind classifies an error for clients, independent of transport.
type Kind string

const (
	KindNotFound         Kind = "NotFound"
	KindSeatsUnavailable Kind = "SeatsUnavailable"
	KindInvalidRequest   Kind = "InvalidRequest"
	KindGateway          Kind = "GatewayError"
	KindAuthentication   Kind = "AuthenticationError"
	KindUnauthorized     Kind = "Unauthorized"
	KindTransientStorage Kind = "TransientStorageError"
	KindInternal         Kind = "Internal"
)
