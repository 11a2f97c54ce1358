package http

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/ahrav/go-tender/internal/domain"
)

const userHeader = "X-User-ID"

type ctxKey string

const (
	ctxKeyUser ctxKey = "user"
	ctxKeyRole ctxKey = "role"
)

func withIdentity(ctx context.Context, userID string, role domain.Role) context.Context {
	ctx = context.WithValue(ctx, ctxKeyUser, userID)
	return context.WithValue(ctx, ctxKeyRole, role)
}

// UserFromContext returns the caller's user id, empty for anonymous callers.
func UserFromContext(ctx context.Context) string {
	s, _ := ctx.Value(ctxKeyUser).(string)
	return s
}

// RoleFromContext returns the caller's role. Anonymous callers are public.
func RoleFromContext(ctx context.Context) domain.Role {
	if r, ok := ctx.Value(ctxKeyRole).(domain.Role); ok {
		return r
	}
	return domain.RolePublic
}

// identify resolves the caller's role. A request without the header is
// anonymous; an unknown user is refused.
func (h *handlers) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(userHeader))
		if userID == "" {
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), "", domain.RolePublic)))
			return
		}
		role, err := h.roles.Role(r.Context(), userID)
		if errors.Is(err, domain.ErrNotFound) {
			writeMessage(w, http.StatusForbidden, "unknown user")
			return
		}
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), userID, role)))
	})
}

func requireRole(allowed ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if UserFromContext(r.Context()) == "" {
				writeMessage(w, http.StatusUnauthorized, "missing "+userHeader+" header")
				return
			}
			if !slices.Contains(allowed, RoleFromContext(r.Context())) {
				writeMessage(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// signOut drops the caller's cached role so the next request reloads it.
func (h *handlers) signOut(w http.ResponseWriter, r *http.Request) {
	if userID := UserFromContext(r.Context()); userID != "" {
		h.roles.Invalidate(userID)
	}
	w.WriteHeader(http.StatusNoContent)
}
