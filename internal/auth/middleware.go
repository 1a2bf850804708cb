package auth

import (
	"net/http"
	"strings"
)

// publicPaths lists endpoints served without a bearer token. The social
// surfaces (feed, leaderboard) are intentionally public.
var publicPaths = map[string]struct{}{
	"/healthz":        {},
	"/metrics":        {},
	"/v1/feed":        {},
	"/v1/leaderboard": {},
}

// Middleware enforces bearer-token authentication on incoming requests.
type Middleware struct {
	cfg Config
}

// NewMiddleware constructs Middleware with validation config.
func NewMiddleware(cfg Config) Middleware {
	return Middleware{cfg: cfg}
}

// Wrap attaches authentication handling to an http.Handler.
func (m Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := publicPaths[r.URL.Path]; ok {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := m.parseRequest(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		ctx := WithClaims(r.Context(), claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m Middleware) parseRequest(r *http.Request) (*Claims, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, ErrMissingToken
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return nil, ErrInvalidToken
	}
	token := strings.TrimSpace(header[len("Bearer "):])
	return ParseClaims(token, m.cfg)
}
