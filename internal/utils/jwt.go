package utils

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prperemyshlev/haven-service/internal/domain"
)

// JWTManager manages session token operations
type JWTManager struct {
	secret        []byte
	sessionExpiry time.Duration
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(secret string, sessionExpiry time.Duration) *JWTManager {
	return &JWTManager{
		secret:        []byte(secret),
		sessionExpiry: sessionExpiry,
	}
}

// GenerateSessionToken generates a new session token for the user
func (j *JWTManager) GenerateSessionToken(user *domain.User) (string, error) {
	now := time.Now()
	claims := &domain.SessionClaims{
		UserID:     user.ID,
		IdentityID: user.IdentityID,
		Email:      user.Email,
		Exp:        now.Add(j.sessionExpiry).Unix(),
		Iat:        now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": claims.UserID,
		"sub":     claims.IdentityID,
		"email":   claims.Email,
		"exp":     claims.Exp,
		"iat":     claims.Iat,
		"jti":     uuid.New().String(),
	})

	tokenString, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken validates a session token and returns claims
func (j *JWTManager) ValidateToken(tokenString string) (*domain.SessionClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return nil, fmt.Errorf("invalid user_id in token")
	}

	subject, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)

	exp, ok := claims["exp"].(float64)
	if !ok {
		return nil, fmt.Errorf("invalid exp in token")
	}

	iat, ok := claims["iat"].(float64)
	if !ok {
		return nil, fmt.Errorf("invalid iat in token")
	}

	sessionClaims := &domain.SessionClaims{
		UserID:     userID,
		IdentityID: subject,
		Email:      email,
		Exp:        int64(exp),
		Iat:        int64(iat),
	}

	if sessionClaims.IsExpired() {
		return nil, fmt.Errorf("token is expired")
	}

	return sessionClaims, nil
}

// SessionExpiry returns the session lifetime
func (j *JWTManager) SessionExpiry() time.Duration {
	return j.sessionExpiry
}
