package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
)

const (
	referralCodePrefix   = "HVN_"
	referralCodeLength   = 6
	referralCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	inviteTokenBytes     = 24
)

// GenerateReferralCode returns a code of the form HVN_XXXXXX
func GenerateReferralCode() (string, error) {
	buf := make([]byte, referralCodeLength)
	max := big.NewInt(int64(len(referralCodeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate referral code: %w", err)
		}
		buf[i] = referralCodeAlphabet[n.Int64()]
	}
	return referralCodePrefix + string(buf), nil
}

// GenerateInviteToken returns 24 random bytes, base64url encoded without padding
func GenerateInviteToken() (string, error) {
	buf := make([]byte, inviteTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate invite token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
