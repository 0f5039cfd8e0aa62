package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"oncohub.org/internal/access"
	"oncohub.org/internal/auth"
	"oncohub.org/internal/obs"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// authenticate verifies the bearer token and stores the principal. Every
// /v1 route except /v1/info sits behind it.
func (a *API) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}
		claims, err := a.deps.Tokens.Verify(token)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				writeError(w, r, http.StatusUnauthorized, "invalid token")
				return
			}
			writeError(w, r, http.StatusInternalServerError, "authentication error")
			return
		}
		ctx := auth.ContextWithPrincipal(r.Context(), auth.Principal{
			UserID:    claims.Subject,
			Email:     claims.Email,
			SessionID: claims.SessionID(),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// scopeFunc derives the scope a route check runs against.
type scopeFunc func(r *http.Request) (access.Scope, error)

// requireAccess gates next on the caller's effective level for space.
func (a *API) requireAccess(space access.Space, min access.AccessLevel, scopeFn scopeFunc, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := a.check(r, space, min, scopeFn); err != nil {
			handleError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// check resolves the caller's access and records the outcome.
func (a *API) check(r *http.Request, space access.Space, min access.AccessLevel, scopeFn scopeFunc) (access.Decision, error) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return access.Decision{}, access.ErrNotAuthenticated
	}
	scope := access.Global
	if scopeFn != nil {
		var err error
		if scope, err = scopeFn(r); err != nil {
			return access.Decision{}, err
		}
	}
	d, err := a.deps.Resolver.Resolve(r.Context(), userID, space, scope)
	if err != nil {
		return access.Decision{}, err
	}
	allowed := d.Allows(min)
	obs.ObserveAccessDecision(string(space), min.String(), allowed)
	if !allowed {
		return d, access.ErrForbidden
	}
	return d, nil
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}
