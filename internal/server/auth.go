package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"careerdesk/internal/auth"
	"careerdesk/internal/repo"
)

// Principal is the authenticated admin identity attached to a request.
type Principal struct {
	UserID string
	Email  string
	Name   string
	Role   string
	Source string
}

type principalKey struct{}

func withPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func principalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

func requirePrincipal(ctx context.Context) (Principal, huma.StatusError) {
	if p, ok := principalFromContext(ctx); ok && p.UserID != "" {
		return p, nil
	}
	return Principal{}, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil)
}

func bearerToken(authz string) (string, bool) {
	parts := strings.Fields(authz)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

// newAuthMiddleware authenticates admin routes. The public careers surface,
// sign-in/up/reset, health, docs, and served files pass through untouched;
// everything under <base>/admin and <base>/auth/me requires a bearer session
// token or an X-Api-Key.
func newAuthMiddleware(basePath string, sessions auth.Service, r repo.Repo, logger *log.Logger) func(http.Handler) http.Handler {
	adminPrefix := path.Join(basePath, "admin")
	mePath := path.Join(basePath, "auth/me")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			protected := strings.HasPrefix(req.URL.Path, adminPrefix) || req.URL.Path == mePath
			if !protected {
				next.ServeHTTP(w, req)
				return
			}

			authz := strings.TrimSpace(req.Header.Get("Authorization"))
			apiKeyHeader := strings.TrimSpace(req.Header.Get("X-Api-Key"))

			if authz != "" {
				token, ok := bearerToken(authz)
				if !ok {
					respondStatusError(w, newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil))
					return
				}
				user, err := sessions.CurrentUser(req.Context(), token)
				if err != nil {
					respondStatusError(w, newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil))
					return
				}
				ctx := withPrincipal(req.Context(), Principal{
					UserID: user.ID,
					Email:  user.Email,
					Name:   user.Name,
					Role:   user.Role,
					Source: "jwt",
				})
				next.ServeHTTP(w, req.WithContext(ctx))
				return
			}

			if apiKeyHeader != "" {
				key, err := r.GetAPIKeyByHash(req.Context(), repo.HashAPIKey(apiKeyHeader))
				if err != nil {
					respondStatusError(w, newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil))
					return
				}
				user, err := r.GetAdminUser(req.Context(), key.UserID)
				if err != nil {
					logger.Printf("WARNING: api key %s references missing admin user %s", key.ID, key.UserID)
					respondStatusError(w, newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil))
					return
				}
				ctx := withPrincipal(req.Context(), Principal{
					UserID: user.ID,
					Email:  user.Email,
					Name:   user.Name,
					Role:   user.Role,
					Source: "api_key",
				})
				next.ServeHTTP(w, req.WithContext(ctx))
				return
			}

			respondStatusError(w, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil))
		})
	}
}

func respondStatusError(w http.ResponseWriter, err huma.StatusError) {
	status := http.StatusInternalServerError
	if e, ok := err.(interface{ GetStatus() int }); ok {
		status = e.GetStatus()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(err)
}
