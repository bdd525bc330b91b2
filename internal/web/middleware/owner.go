package middleware

import (
	"context"
	"net/http"
	"strconv"
)

// OwnerHeader is the header carrying the authenticated user's id.
// Authentication itself happens upstream (gateway); this service only
// scopes data access by the id it is handed.
const OwnerHeader = "X-Owner-ID"

type contextKey string

const ownerContextKey contextKey = "owner_id"

// RequireOwner extracts the owner id from the request header and stores it
// in the context. Requests without a valid positive id are rejected.
func RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ownerID, err := strconv.ParseInt(r.Header.Get(OwnerHeader), 10, 64)
		if err != nil || ownerID <= 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"missing or invalid ` + OwnerHeader + ` header"}`))
			return
		}

		ctx := SetOwnerInContext(r.Context(), ownerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SetOwnerInContext stores the owner id in the context.
func SetOwnerInContext(ctx context.Context, ownerID int64) context.Context {
	return context.WithValue(ctx, ownerContextKey, ownerID)
}

// OwnerFromContext retrieves the owner id set by RequireOwner.
// Returns 0 when the middleware did not run.
func OwnerFromContext(ctx context.Context) int64 {
	if id, ok := ctx.Value(ownerContextKey).(int64); ok {
		return id
	}
	return 0
}
