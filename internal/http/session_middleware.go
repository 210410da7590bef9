package httpx

import (
	"context"
	"net/http"

	"github.com/shopfront/catalog-api/internal/domain"
)

// sessionCookieName is the cookie the session gate reads and the login
// handler sets.
const sessionCookieName = "token"

type sessionContextKey string

const contextKeyIdentity sessionContextKey = "catalog-identity"

type contextSetter interface {
	SetContext(context.Context)
}

// requireSession ensures the request carries a valid session cookie before
// invoking the handler. The response messages are part of the API
// contract: missing cookie and failed verification are distinguished.
func (r *Router) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		cookie, err := req.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			writeMessage(w, http.StatusUnauthorized, "No token provided")
			return
		}
		identity, err := r.auth.Authorize(req.Context(), cookie.Value)
		if err != nil {
			r.logger.Warn("session token rejected", "error", err, "path", req.URL.Path)
			writeMessage(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		ctx := context.WithValue(req.Context(), contextKeyIdentity, identity)
		if setter, ok := w.(contextSetter); ok {
			setter.SetContext(ctx)
		}
		next(w, req.WithContext(ctx))
	}
}

// identityFromContext extracts the authenticated principal from context.
func identityFromContext(ctx context.Context) (domain.Identity, bool) {
	value := ctx.Value(contextKeyIdentity)
	if value == nil {
		return domain.Identity{}, false
	}
	identity, ok := value.(domain.Identity)
	return identity, ok
}
