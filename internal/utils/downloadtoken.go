package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DownloadTokenIssuer mints and verifies the signed, expiring links through
// which parties fetch the final contract PDF.
type DownloadTokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

var ErrInvalidDownloadToken = errors.New("invalid download token")

// NewDownloadTokenIssuer creates an issuer. The secret must be non-empty.
func NewDownloadTokenIssuer(secret string, ttl time.Duration) (*DownloadTokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("download token secret is not configured")
	}
	return &DownloadTokenIssuer{secret: []byte(secret), ttl: ttl}, nil
}

// Issue returns a token granting download access to one contract's final PDF.
func (i *DownloadTokenIssuer) Issue(contractID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   contractID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign download token: %w", err)
	}
	return signed, nil
}

// Verify validates a download token and returns the contract ID it grants
// access to.
func (i *DownloadTokenIssuer) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}))

	parsed, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return i.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidDownloadToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidDownloadToken
	}
	return claims.Subject, nil
}
