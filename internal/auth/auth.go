// Package auth resolves the current user from an inbound request.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var ErrNoUser = errors.New("no authenticated user")

type User struct {
	ID    string
	Email string
}

// Resolver returns the user behind r, or ErrNoUser.
type Resolver interface {
	Resolve(r *http.Request) (*User, error)
}

type claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// JWTResolver accepts an HS256 session token from the Authorization bearer
// header or the session cookie. The subject claim is the user id.
type JWTResolver struct {
	Secret []byte
	Cookie string
}

func (j *JWTResolver) Resolve(r *http.Request) (*User, error) {
	raw := bearer(r)
	if raw == "" && j.Cookie != "" {
		if c, err := r.Cookie(j.Cookie); err == nil {
			raw = c.Value
		}
	}
	if raw == "" {
		return nil, ErrNoUser
	}

	var cl claims
	_, err := jwt.ParseWithClaims(raw, &cl, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return j.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoUser, err)
	}
	if cl.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", ErrNoUser)
	}

	return &User{ID: cl.Subject, Email: cl.Email}, nil
}

// Issue signs a session token for userID. Used by tooling and tests.
func (j *JWTResolver) Issue(userID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return t.SignedString(j.Secret)
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

type ctxKey struct{}

func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

func FromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(ctxKey{}).(*User)
	return u, ok && u != nil
}
