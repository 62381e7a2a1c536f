package http

import (
	"net/http"

	"github.com/go-chi/cors"
	"github.com/vogiaan1904/quickseat-booking/internal/auth"
	"github.com/vogiaan1904/quickseat-booking/pkg/logger"
	"github.com/vogiaan1904/quickseat-booking/pkg/response"
)

type Middleware struct {
	verifier *auth.TokenVerifier
	cors     func(http.Handler) http.Handler
	l        logger.Logger
}

func NewMiddleware(verifier *auth.TokenVerifier, origin string, l logger.Logger) *Middleware {
	return &Middleware{
		verifier: verifier,
		cors: cors.Handler(cors.Options{
			AllowedOrigins:       []string{origin},
			AllowedMethods:       []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:       []string{"Authorization", "Content-Type"},
			AllowCredentials:     true,
			MaxAge:               300,
			OptionsSuccessStatus: http.StatusNoContent,
		}),
		l: l,
	}
}

// Authenticate requires a valid bearer token and puts the caller's identity
// in the request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := m.verifier.Verify(auth.BearerToken(r.Header.Get("Authorization")))
		if err != nil {
			m.l.Debugf(r.Context(), "delivery.http.Middleware.Authenticate: %v", err)
			response.Error(w, errUnauthenticated)
			return
		}

		ctx := m.l.With(auth.WithIdentity(r.Context(), id), "user_id", id.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin must run after Authenticate.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.IdentityFrom(r.Context())
		if !ok || !id.IsAdmin() {
			response.Error(w, errForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CORS admits the client origin only, with credentials.
func (m *Middleware) CORS(next http.Handler) http.Handler {
	return m.cors(next)
}
