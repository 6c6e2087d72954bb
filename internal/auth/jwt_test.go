package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "test-secret-key-for-testing-only"

var issuedAt = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

// clock is a settable time source shared by a service under test.
type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestService(cfg JWTConfig) (*JWTService, *clock) {
	if cfg.SigningKey == "" {
		cfg.SigningKey = testKey
	}
	c := &clock{t: issuedAt}
	return newJWTService(cfg, c.now), c
}

func sign(t *testing.T, claims jwt.Claims, method jwt.SigningMethod, key any) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestJWTService_RoundTrip(t *testing.T) {
	svc, _ := newTestService(JWTConfig{})

	token, expiresAt, err := svc.GenerateAccessToken("own_1")
	require.NoError(t, err)
	assert.Equal(t, issuedAt.Add(time.Hour), expiresAt)

	ownerID, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "own_1", ownerID)

	claims, err := svc.ParseAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, defaultIssuer, claims.Issuer)
	assert.Equal(t, jwt.ClaimStrings{defaultAudience}, claims.Audience)
	assert.Len(t, claims.ID, 36)
}

func TestJWTService_TokenIDsAreUnique(t *testing.T) {
	svc, _ := newTestService(JWTConfig{})
	a, _, err := svc.GenerateAccessToken("own_1")
	require.NoError(t, err)
	b, _, err := svc.GenerateAccessToken("own_1")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestJWTService_GenerateRequiresOwner(t *testing.T) {
	svc, _ := newTestService(JWTConfig{})
	_, _, err := svc.GenerateAccessToken("")
	assert.ErrorIs(t, err, ErrMissingSubject)
}

func TestJWTService_Expiry(t *testing.T) {
	svc, c := newTestService(JWTConfig{TTL: 10 * time.Minute, Leeway: 30 * time.Second})
	token, _, err := svc.GenerateAccessToken("own_1")
	require.NoError(t, err)

	c.t = issuedAt.Add(10*time.Minute + 20*time.Second)
	_, err = svc.ValidateAccessToken(token)
	assert.NoError(t, err, "within leeway")

	c.t = issuedAt.Add(11 * time.Minute)
	_, err = svc.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrAccessTokenExpired)
}

func TestJWTService_FutureIssuedTokenRejected(t *testing.T) {
	svc, c := newTestService(JWTConfig{})
	token, _, err := svc.GenerateAccessToken("own_1")
	require.NoError(t, err)

	c.t = issuedAt.Add(-5 * time.Minute)
	_, err = svc.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidAccessToken)
}

func TestJWTService_Rejections(t *testing.T) {
	svc, _ := newTestService(JWTConfig{})
	valid := jwt.RegisteredClaims{
		Issuer:    defaultIssuer,
		Subject:   "own_1",
		Audience:  jwt.ClaimStrings{defaultAudience},
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
	}
	with := func(mutate func(*jwt.RegisteredClaims)) jwt.RegisteredClaims {
		c := valid
		mutate(&c)
		return c
	}

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.jwt"},
		{"wrong key", sign(t, valid, jwt.SigningMethodHS256, []byte("other-key"))},
		{"wrong algorithm", sign(t, valid, jwt.SigningMethodHS512, []byte(testKey))},
		{"unsigned", sign(t, valid, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType)},
		{"wrong issuer", sign(t, with(func(c *jwt.RegisteredClaims) { c.Issuer = "https://evil.example" }), jwt.SigningMethodHS256, []byte(testKey))},
		{"wrong audience", sign(t, with(func(c *jwt.RegisteredClaims) { c.Audience = jwt.ClaimStrings{"billing"} }), jwt.SigningMethodHS256, []byte(testKey))},
		{"no expiry", sign(t, with(func(c *jwt.RegisteredClaims) { c.ExpiresAt = nil }), jwt.SigningMethodHS256, []byte(testKey))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateAccessToken(tt.token)
			assert.ErrorIs(t, err, ErrInvalidAccessToken)
		})
	}
}

func TestJWTService_MissingSubject(t *testing.T) {
	svc, _ := newTestService(JWTConfig{})
	token := sign(t, jwt.RegisteredClaims{
		Issuer:    defaultIssuer,
		Audience:  jwt.ClaimStrings{defaultAudience},
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
	}, jwt.SigningMethodHS256, []byte(testKey))

	_, err := svc.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidAccessToken)
	assert.ErrorIs(t, err, ErrMissingSubject)
}

func TestJWTConfigFromEnv(t *testing.T) {
	t.Setenv("JWT_SIGNING_KEY", "secret")
	t.Setenv("JWT_ISSUER", "")
	t.Setenv("JWT_AUDIENCE", "custom-aud")
	t.Setenv("JWT_ACCESS_TOKEN_TTL", "15m")
	t.Setenv("JWT_LEEWAY", "bogus")

	cfg := JWTConfigFromEnv()

	assert.Equal(t, "secret", cfg.SigningKey)
	assert.Equal(t, defaultIssuer, cfg.Issuer)
	assert.Equal(t, "custom-aud", cfg.Audience)
	assert.Equal(t, 15*time.Minute, cfg.TTL)
	assert.Equal(t, defaultLeeway, cfg.Leeway)
}
