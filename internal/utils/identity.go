package utils

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prperemyshlev/haven-service/internal/domain"
)

// ErrInvalidIdentityToken is returned for any identity token that fails verification
var ErrInvalidIdentityToken = errors.New("invalid identity token")

// IdentityVerifier verifies ES256 access tokens issued by the identity provider
type IdentityVerifier struct {
	key    *ecdsa.PublicKey
	issuer string
	appID  string
}

// NewIdentityVerifier parses the provider's PEM encoded verification key.
// Escaped newlines are accepted so the key can live in a single env var.
func NewIdentityVerifier(pemKey, issuer, appID string) (*IdentityVerifier, error) {
	pemKey = strings.ReplaceAll(pemKey, `\n`, "\n")
	key, err := jwt.ParseECPublicKeyFromPEM([]byte(pemKey))
	if err != nil {
		return nil, fmt.Errorf("failed to parse identity verification key: %w", err)
	}

	return &IdentityVerifier{
		key:    key,
		issuer: issuer,
		appID:  appID,
	}, nil
}

// identityTokenClaims mirrors the provider's access token payload
type identityTokenClaims struct {
	Email         string `json:"email,omitempty"`
	EmailAddress  string `json:"email_address,omitempty"`
	WalletAddress string `json:"wallet_address,omitempty"`
	jwt.RegisteredClaims
}

// Verify checks signature, issuer, audience and expiry and returns the identity claims
func (v *IdentityVerifier) Verify(tokenString string) (*domain.IdentityClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.appID != "" {
		opts = append(opts, jwt.WithAudience(v.appID))
	}

	var claims identityTokenClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return v.key, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIdentityToken, err)
	}

	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidIdentityToken
	}

	email := claims.Email
	if email == "" {
		email = claims.EmailAddress
	}

	return &domain.IdentityClaims{
		Subject:       claims.Subject,
		Email:         domain.NormalizeEmail(email),
		WalletAddress: strings.TrimSpace(claims.WalletAddress),
	}, nil
}
