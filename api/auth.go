/*
auth.go - JWT session handling and role gating

PURPOSE:
  One authorization guard applied at the router, instead of a per-handler
  role check repeated at the top of every report. Handlers downstream of
  the middleware can assume an authenticated session is in the context.

MODEL:
  A session is {user_id, role, student_id}. Admins see every report;
  students see only their own statement. Tokens are HMAC-signed JWTs with
  those fields as claims, issued by the dev login endpoint in this demo and
  by the real identity service in production.
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

// Session is the authenticated caller.
type Session struct {
	UserID    string `json:"user_id"`
	Role      Role   `json:"role"`
	StudentID string `json:"student_id,omitempty"` // set for student sessions
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Role      Role   `json:"role"`
	StudentID string `json:"student_id,omitempty"`
}

// Auth signs and verifies session tokens.
type Auth struct {
	secret []byte
}

func NewAuth(secret string) *Auth {
	return &Auth{secret: []byte(secret)}
}

// IssueToken mints a signed session token.
func (a *Auth) IssueToken(s Session, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role:      s.Role,
		StudentID: s.StudentID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (a *Auth) parseToken(raw string) (Session, error) {
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return Session{}, err
	}
	if !token.Valid {
		return Session{}, fmt.Errorf("invalid token")
	}
	return Session{UserID: claims.Subject, Role: claims.Role, StudentID: claims.StudentID}, nil
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

type contextKey struct{}

var sessionKey contextKey

// Middleware authenticates the Bearer token and stores the session in the
// request context. Requests without a valid token get 401.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "Missing bearer token", nil)
			return
		}
		session, err := a.parseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid session token", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, session)))
	})
}

// RequireRole gates a route group to the given roles. Must run after
// Middleware.
func RequireRole(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := SessionFrom(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "No session", nil)
				return
			}
			for _, role := range roles {
				if session.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "Insufficient role", nil)
		})
	}
}

// SessionFrom extracts the authenticated session from the context.
func SessionFrom(ctx context.Context) (Session, bool) {
	session, ok := ctx.Value(sessionKey).(Session)
	return session, ok
}
