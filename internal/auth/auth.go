// Package auth turns a signed credential into the caller's identity and role.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"booking-service/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoToken      = errors.New("no token")
	ErrInvalidToken = errors.New("invalid token")
)

// Claims carried by access tokens issued by the identity service
type Claims struct {
	UserID string `json:"id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator validates HS256 bearer tokens
type Authenticator struct {
	secret     []byte
	cookieName string
}

// NewAuthenticator creates an authenticator. An empty secret is refused so a
// misconfigured process cannot accept unsigned identities.
func NewAuthenticator(secret, cookieName string) (*Authenticator, error) {
	if secret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cookieName == "" {
		cookieName = "token"
	}
	return &Authenticator{secret: []byte(secret), cookieName: cookieName}, nil
}

// CookieName is the cookie consulted when no Authorization header is sent
func (a *Authenticator) CookieName() string {
	return a.cookieName
}

// Parse validates a raw token and returns its principal
func (a *Authenticator) Parse(tokenString string) (*models.Principal, error) {
	if tokenString == "" {
		return nil, ErrNoToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	id := claims.UserID
	if id == "" {
		id = claims.Subject
	}
	if id == "" || claims.Role == "" {
		return nil, ErrInvalidToken
	}

	return &models.Principal{ID: id, Role: claims.Role}, nil
}

// Issue signs a token for p valid for ttl
func (a *Authenticator) Issue(p models.Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: p.ID,
		Role:   p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// BearerToken extracts the token from an Authorization header value
func BearerToken(header string) string {
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
