package principal

import (
	"net/http"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

func TestExtractTokenPrefersAuthorizationOverLegacyHeader(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer abc123")
	req.Header.Set(HeaderLegacyAuth, "legacy-token")

	token, ok := ExtractToken(req)
	assert.True(t, ok)
	assert.Equal(t, "abc123", token)
}

func TestExtractTokenFallsBackToLegacyHeader(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderLegacyAuth, "legacy-token")

	token, ok := ExtractToken(req)
	assert.True(t, ok)
	assert.Equal(t, "legacy-token", token)
}

func TestExtractTokenMissingBothHeaders(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	_, ok := ExtractToken(req)
	assert.False(t, ok)
}

func TestErrInvalidAuthTokenNamesTenant(t *testing.T) {
	err := &ErrInvalidAuthToken{TenantID: "acme"}
	assert.Contains(t, err.Error(), "acme")
}

func signedJWT(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	assert.NoError(t, err)
	return signed
}

func TestParseJWTAcceptsValidHS256TokenWithClaims(t *testing.T) {
	secret := []byte("test-secret")
	a := &Authenticator{jwtSecret: secret}
	token := signedJWT(t, secret, jwt.MapClaims{"principal_id": "p1", "tenant_id": "acme"})

	principalID, tenantID, ok := a.parseJWT(token)
	assert.True(t, ok)
	assert.Equal(t, "p1", principalID)
	assert.Equal(t, "acme", tenantID)
}

func TestParseJWTRejectsWrongSigningSecret(t *testing.T) {
	a := &Authenticator{jwtSecret: []byte("real-secret")}
	token := signedJWT(t, []byte("wrong-secret"), jwt.MapClaims{"principal_id": "p1", "tenant_id": "acme"})

	_, _, ok := a.parseJWT(token)
	assert.False(t, ok)
}

func TestParseJWTRejectsMissingClaims(t *testing.T) {
	secret := []byte("test-secret")
	a := &Authenticator{jwtSecret: secret}
	token := signedJWT(t, secret, jwt.MapClaims{"principal_id": "p1"})

	_, _, ok := a.parseJWT(token)
	assert.False(t, ok)
}

func TestParseJWTRejectsOpaqueToken(t *testing.T) {
	a := &Authenticator{jwtSecret: []byte("test-secret")}
	_, _, ok := a.parseJWT("not-a-jwt-at-all")
	assert.False(t, ok)
}
