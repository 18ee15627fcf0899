package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signedToken(t *testing.T, sub string, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": sub}
	if !exp.IsZero() {
		claims["exp"] = exp.Unix()
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func TestVerifyValidToken(t *testing.T) {
	v := NewVerifier(testSecret)
	exp := time.Now().Add(time.Hour)

	sess, err := v.Verify(signedToken(t, "user-42", exp))

	require.NoError(t, err)
	assert.Equal(t, "user-42", sess.UserID)
	assert.WithinDuration(t, exp, sess.ExpiresAt, time.Second)
}

func TestVerifyExpiredToken(t *testing.T) {
	v := NewVerifier(testSecret)
	_, err := v.Verify(signedToken(t, "user-42", time.Now().Add(-time.Hour)))
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifyWrongSecret(t *testing.T) {
	v := NewVerifier("a different secret")
	_, err := v.Verify(signedToken(t, "user-42", time.Now().Add(time.Hour)))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyGarbage(t *testing.T) {
	v := NewVerifier(testSecret)
	_, err := v.Verify("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyMissingSubject(t *testing.T) {
	v := NewVerifier(testSecret)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = v.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsUnsignedAlgorithm(t *testing.T) {
	v := NewVerifier(testSecret)
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "user-42",
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = v.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestProviderCurrentAndScope(t *testing.T) {
	p := NewProvider()
	assert.Nil(t, p.Current())
	assert.Equal(t, "", p.Scope())

	p.Set(&Session{UserID: "user-42"})
	assert.Equal(t, "user-42", p.Scope())

	p.Clear()
	assert.Nil(t, p.Current())
}

func TestProviderSubscribe(t *testing.T) {
	p := NewProvider()

	var seen []*Session
	cancel := p.Subscribe(func(s *Session) { seen = append(seen, s) })

	p.Set(&Session{UserID: "user-42"})
	p.Clear()
	require.Len(t, seen, 2)
	assert.Equal(t, "user-42", seen[0].UserID)
	assert.Nil(t, seen[1])

	cancel()
	p.Set(&Session{UserID: "user-43"})
	assert.Len(t, seen, 2, "cancelled subscriber must not be notified")
}

func scopeEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(ScopeFrom(r.Context())))
	})
}

func TestMiddlewareNilVerifierRunsLocal(t *testing.T) {
	h := Middleware(nil)(scopeEcho())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, LocalScope, rec.Body.String())
}

func TestMiddlewareMissingToken(t *testing.T) {
	h := Middleware(NewVerifier(testSecret))(scopeEcho())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareValidTokenSetsScope(t *testing.T) {
	h := Middleware(NewVerifier(testSecret))(scopeEcho())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "user-42", time.Now().Add(time.Hour)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-42", rec.Body.String())
}

func TestMiddlewareBadToken(t *testing.T) {
	h := Middleware(NewVerifier(testSecret))(scopeEcho())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
