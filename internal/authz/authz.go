// Package authz guards the admin HTTP surface (C15, SPEC_FULL.md §4.15):
// bearer-token auth for the /v1 endpoints, plus a TOTP step-up for the
// manual-trigger endpoint. Grounded on the teacher's internal/auth/auth.go
// (JWT issuing/validation shape) and pkg/security/totp.go (TOTPManager).
package authz

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
)

// Claims is the JWT payload for an authenticated cycle operator.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Service issues and validates operator credentials.
type Service struct {
	jwtSecret  []byte
	expiry     time.Duration
	bcryptCost int
	totpIssuer string
}

// NewService builds a C15 auth service.
func NewService(jwtSecret string, expiry time.Duration, bcryptCost int, totpIssuer string) *Service {
	return &Service{
		jwtSecret:  []byte(jwtSecret),
		expiry:     expiry,
		bcryptCost: bcryptCost,
		totpIssuer: totpIssuer,
	}
}

// HashPassword hashes an operator password for storage.
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// ComparePassword checks a password against its stored hash.
func (s *Service) ComparePassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// IssueToken signs a bearer token for username, valid for the configured
// expiry.
func (s *Service) IssueToken(username string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.expiry)

	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    "fleet-replanner",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateToken parses and verifies a bearer token, returning its claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// GenerateTOTPSecret issues a new TOTP secret for username (enrollment).
func (s *Service) GenerateTOTPSecret(username string) (*totp.Key, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.totpIssuer,
		AccountName: username,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp secret: %w", err)
	}
	return key, nil
}

// ValidateTOTP checks a step-up code for the manual-trigger endpoint
// (SPEC_FULL.md §4.15: triggering a cycle outside its schedule requires a
// second factor).
func (s *Service) ValidateTOTP(secret, code string) bool {
	return totp.Validate(code, secret)
}
