package domain

import "time"

// SessionClaims represents the claims of a session token issued by this service
type SessionClaims struct {
	UserID     string `json:"user_id"`
	IdentityID string `json:"sub"`
	Email      string `json:"email"`
	Exp        int64  `json:"exp"`
	Iat        int64  `json:"iat"`
}

// IsExpired checks if the token is expired
func (sc SessionClaims) IsExpired() bool {
	return time.Now().Unix() > sc.Exp
}

// IdentityClaims are the verified claims of an identity provider access token
type IdentityClaims struct {
	Subject       string
	Email         string
	WalletAddress string
}
