package http

import (
	"context"
	"net/http"
	"strings"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/middleware/trace"
)

type principalKey struct{}

// principal returns the authenticated caller. Handlers behind requireAuth
// can rely on it being set.
func principal(ctx context.Context) core.User {
	u, _ := ctx.Value(principalKey{}).(core.User)
	return u
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// requireAuth resolves the bearer token to a user and rejects the request
// with 401 otherwise.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, r, core.ErrInvalidToken)
			return
		}
		u, err := s.svc.Users.Authenticate(r.Context(), token)
		if err != nil {
			writeError(w, r, err)
			return
		}
		trace.SetUserID(r.Context(), string(u.ID))
		ctx := context.WithValue(r.Context(), principalKey{}, u)
		ctx = applog.NewContext(ctx, applog.FromContext(ctx).With(applog.FieldUserID, u.ID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
