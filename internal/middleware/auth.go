package middleware

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/sowfeehealth/wellness/internal/models"
)

type authCtxKey int

const authKey authCtxKey = 7

// SessionCookie carries the token for browser navigation; API clients
// may send it as a bearer header instead.
const SessionCookie = "wellness_session"

type Claims struct {
	UID           string `json:"uid"`
	InstitutionID string `json:"iid"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	IsAdmin       bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

func secret() []byte {
	s := os.Getenv("WELLNESS_JWT_SECRET")
	if s == "" {
		s = "wellness-dev-secret"
	}
	return []byte(s)
}

func SignToken(uid, institutionID, email, name string, isAdmin bool, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UID:           uid,
		InstitutionID: institutionID,
		Email:         email,
		Name:          name,
		IsAdmin:       isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret())
}

func parseToken(tok string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tok, &Claims{}, func(token *jwt.Token) (interface{}, error) { return secret(), nil })
	if err != nil {
		return nil, err
	}
	if c, ok := t.Claims.(*Claims); ok && t.Valid {
		return c, nil
	}
	return nil, errors.New("invalid token")
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// WithAuth attaches claims to the context when a valid token is
// present; anonymous requests pass through untouched.
func WithAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tok := tokenFromRequest(r); tok != "" {
			if c, err := parseToken(tok); err == nil {
				ctx := context.WithValue(r.Context(), authKey, c)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Context().Value(authKey).(*Claims); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(authKey).(*Claims)
	return c, ok
}

// IdentityFromContext maps claims to the identity shape the survey
// session consumes.
func IdentityFromContext(ctx context.Context) (*models.Identity, bool) {
	c, ok := ClaimsFromContext(ctx)
	if !ok || c.Email == "" {
		return nil, false
	}
	return &models.Identity{Name: c.Name, Email: c.Email, IsAdmin: c.IsAdmin}, true
}

func InstitutionIDFromContext(ctx context.Context) (string, bool) {
	if c, ok := ClaimsFromContext(ctx); ok && c.InstitutionID != "" {
		return c.InstitutionID, true
	}
	return "", false
}
