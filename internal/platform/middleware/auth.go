package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"credrec/pkg/domain"
)

// CallerValidator turns a bearer token into a caller identity.
type CallerValidator interface {
	ValidateCaller(tokenString string) (domain.Caller, error)
}

type contextKeyCaller struct{}

// GetCaller retrieves the caller identity from the context. Requests that
// presented no token are anonymous.
func GetCaller(ctx context.Context) domain.Caller {
	caller, ok := ctx.Value(contextKeyCaller{}).(domain.Caller)
	if !ok {
		return domain.Anonymous
	}
	return caller
}

// WithCaller stores the caller identity in the context.
func WithCaller(ctx context.Context, caller domain.Caller) context.Context {
	return context.WithValue(ctx, contextKeyCaller{}, caller)
}

// IdentifyCaller resolves the invoking party from an optional bearer token.
// A missing Authorization header leaves the request anonymous; a present but
// invalid token is rejected with 401. A nil validator treats every request
// as anonymous.
func IdentifyCaller(validator CallerValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || validator == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			requestID := GetRequestID(ctx)
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized invocation - malformed authorization header",
					"request_id", requestID,
				)
				writeUnauthorized(w, "Authorization header must use the Bearer scheme")
				return
			}

			caller, err := validator.ValidateCaller(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized invocation - invalid token",
					"error", err,
					"request_id", requestID,
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCaller(ctx, caller)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
