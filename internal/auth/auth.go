// Package auth turns bearer tokens from the identity provider into owner
// scopes. Token issuance, OAuth and password handling all live with the
// provider; this package only verifies what it is handed and exposes the
// resulting user identifier.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Session is the authenticated state derived from a verified token.
type Session struct {
	UserID    string
	ExpiresAt time.Time
}

// Verifier validates HS256 bearer tokens and extracts the user identifier
// from the subject claim.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates the token, returning the session it carries.
func (v *Verifier) Verify(token string) (*Session, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return nil, ErrInvalidToken
	}

	sess := &Session{UserID: sub}
	if exp, err := parsed.Claims.GetExpirationTime(); err == nil && exp != nil {
		sess.ExpiresAt = exp.Time
	}
	return sess, nil
}
