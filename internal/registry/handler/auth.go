package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	dErrors "memgate/pkg/domain-errors"
	"memgate/pkg/platform/httputil"
	"memgate/pkg/requestcontext"
)

const (
	adminRole = "admin"
	tokenTTL  = 12 * time.Hour
)

type actorKeyType struct{}

var actorKey actorKeyType

// actorFrom returns the authenticated admin subject for audit attribution.
func actorFrom(ctx context.Context) string {
	if actor, ok := ctx.Value(actorKey).(string); ok {
		return actor
	}
	return "unknown"
}

type adminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IssueToken exchanges the bootstrap admin key for a short-lived bearer
// token. The key is only ever compared against its bcrypt hash.
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("X-Admin-Key")
	if key == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin key required"))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(h.adminKeyHash), []byte(key)); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid admin key"))
		return
	}

	now := requestcontext.Now(r.Context())
	expiresAt := now.Add(tokenTTL)
	claims := adminClaims{
		Role: adminRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   adminRole,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.signingKey)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "signing token"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, tokenResponse{Token: token, ExpiresAt: expiresAt})
}

// RequireAdmin guards the admin routes with a bearer JWT carrying the
// admin role.
func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "bearer token required"))
			return
		}

		var claims adminClaims
		token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, dErrors.New(dErrors.CodeUnauthorized, "unexpected signing method")
			}
			return h.signingKey, nil
		})
		if err != nil || !token.Valid {
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
			return
		}
		if claims.Role != adminRole {
			httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "admin role required"))
			return
		}

		ctx := context.WithValue(r.Context(), actorKey, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return "", false
	}
	return strings.TrimPrefix(auth, prefix), true
}
