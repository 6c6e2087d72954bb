// Package auth validates the bearer tokens that identify fleet owners.
//
// Access tokens are short-lived HS256 JWTs issued by the account service.
// Their subject is the owner ID that scopes every vehicle, device, service
// record and notification.
package auth

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultIssuer   = "https://api.fleetminder.app"
	defaultAudience = "fleetminder-api"
	defaultTTL      = time.Hour
	defaultLeeway   = 30 * time.Second
)

var (
	ErrInvalidAccessToken = errors.New("invalid access token")
	ErrAccessTokenExpired = errors.New("access token has expired")
	ErrMissingSubject     = errors.New("access token has no subject")
)

// JWTConfig configures token signing and verification.
type JWTConfig struct {
	SigningKey string
	Issuer     string
	Audience   string

	// TTL is the lifetime of issued tokens. Default: 1 hour.
	TTL time.Duration
	// Leeway tolerates clock skew between the issuer and this service
	// when checking exp, nbf and iat. Default: 30 seconds; negative disables it.
	Leeway time.Duration
}

// JWTConfigFromEnv reads JWT_SIGNING_KEY, JWT_ISSUER, JWT_AUDIENCE,
// JWT_ACCESS_TOKEN_TTL and JWT_LEEWAY. Durations use time.ParseDuration syntax.
func JWTConfigFromEnv() JWTConfig {
	cfg := JWTConfig{
		SigningKey: os.Getenv("JWT_SIGNING_KEY"),
		Issuer:     os.Getenv("JWT_ISSUER"),
		Audience:   os.Getenv("JWT_AUDIENCE"),
	}
	if d, err := time.ParseDuration(os.Getenv("JWT_ACCESS_TOKEN_TTL")); err == nil {
		cfg.TTL = d
	}
	if d, err := time.ParseDuration(os.Getenv("JWT_LEEWAY")); err == nil {
		cfg.Leeway = d
	}
	return cfg.withDefaults()
}

func (c JWTConfig) withDefaults() JWTConfig {
	if c.Issuer == "" {
		c.Issuer = defaultIssuer
	}
	if c.Audience == "" {
		c.Audience = defaultAudience
	}
	if c.TTL <= 0 {
		c.TTL = defaultTTL
	}
	if c.Leeway < 0 {
		c.Leeway = 0
	} else if c.Leeway == 0 {
		c.Leeway = defaultLeeway
	}
	return c
}

// JWTService issues and verifies access tokens.
type JWTService struct {
	key    []byte
	cfg    JWTConfig
	parser *jwt.Parser
	now    func() time.Time
}

// NewJWTService creates a JWTService. Empty config fields take their defaults.
func NewJWTService(cfg JWTConfig) *JWTService {
	return newJWTService(cfg, time.Now)
}

func newJWTService(cfg JWTConfig, now func() time.Time) *JWTService {
	cfg = cfg.withDefaults()
	return &JWTService{
		key: []byte(cfg.SigningKey),
		cfg: cfg,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithAudience(cfg.Audience),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithLeeway(cfg.Leeway),
			jwt.WithTimeFunc(now),
		),
		now: now,
	}
}

// GenerateAccessToken signs a token for ownerID and returns it with its expiry.
func (s *JWTService) GenerateAccessToken(ownerID string) (string, time.Time, error) {
	if ownerID == "" {
		return "", time.Time{}, ErrMissingSubject
	}

	issuedAt := s.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(s.cfg.TTL)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    s.cfg.Issuer,
		Subject:   ownerID,
		Audience:  jwt.ClaimStrings{s.cfg.Audience},
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		NotBefore: jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}).SignedString(s.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateAccessToken verifies the token and returns its owner ID.
func (s *JWTService) ValidateAccessToken(token string) (string, error) {
	claims, err := s.ParseAccessToken(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ParseAccessToken verifies the token and returns its registered claims.
// Expired tokens yield ErrAccessTokenExpired; every other failure wraps
// ErrInvalidAccessToken.
func (s *JWTService) ParseAccessToken(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := s.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrAccessTokenExpired
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrInvalidAccessToken, err)
	case claims.Subject == "":
		return nil, fmt.Errorf("%w: %w", ErrInvalidAccessToken, ErrMissingSubject)
	}
	return claims, nil
}
