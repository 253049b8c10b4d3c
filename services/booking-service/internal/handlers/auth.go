package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/matheuslc/horacerta/libs/auth"
)

type actorKey struct{}

// ActorID returns the authenticated user id stored by RequireAuth, or "".
func ActorID(ctx context.Context) string {
	id, _ := ctx.Value(actorKey{}).(string)
	return id
}

// RequireAuth verifies the Bearer token and stores the subject in the request
// context. Tokens signed HS256 verify against jwtSecret; when a JWKS client is
// configured, RS256 tokens from the external issuer are accepted as well.
func RequireAuth(next http.Handler, jwtSecret string, jwksClient *auth.JWKSClient) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") || len(strings.TrimSpace(authHeader)) <= len("Bearer ") {
			writeError(w, http.StatusUnauthorized, "missing or invalid Authorization header")
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

		var claims *auth.Claims
		var err error
		if jwksClient != nil {
			header, headerErr := auth.ParseHeader(token)
			if headerErr != nil {
				writeError(w, http.StatusUnauthorized, "invalid token header")
				return
			}
			if header.Alg == "RS256" && header.Kid != "" {
				pub, keyErr := jwksClient.Get(header.Kid)
				if keyErr != nil {
					writeError(w, http.StatusUnauthorized, "invalid token key")
					return
				}
				claims, err = auth.VerifyRS256(token, pub)
			} else {
				claims, err = auth.ParseAndVerifyHS256(token, jwtSecret)
			}
		} else {
			claims, err = auth.ParseAndVerifyHS256(token, jwtSecret)
		}
		if err != nil || claims.Sub == "" {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), actorKey{}, claims.Sub)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
