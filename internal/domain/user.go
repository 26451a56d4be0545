package domain

import (
	"strings"
	"time"
)

// PendingWallet is stored until the identity provider reports a wallet
const PendingWallet = "pending"

// User represents one authenticated person
type User struct {
	ID                      string     `json:"id" db:"id"`
	IdentityID              string     `json:"identity_id" db:"identity_id"`
	Email                   string     `json:"email" db:"email"`
	WalletAddress           string     `json:"wallet_address" db:"wallet_address"`
	FirstName               string     `json:"first_name" db:"first_name"`
	LastName                string     `json:"last_name" db:"last_name"`
	Country                 string     `json:"country" db:"country"`
	DisplayCurrency         string     `json:"display_currency" db:"display_currency"`
	ProfileImageURL         string     `json:"profile_image_url" db:"profile_image_url"`
	FinancialKnowledgeLevel string     `json:"financial_knowledge_level" db:"financial_knowledge_level"`
	RiskLevel               string     `json:"risk_level" db:"risk_level"`
	ReferralCode            string     `json:"referral_code" db:"referral_code"`
	ReferredBy              string     `json:"referred_by" db:"referred_by"`
	IsOnboarded             bool       `json:"is_onboarded" db:"is_onboarded"`
	IsPro                   bool       `json:"is_pro" db:"is_pro"`
	LastLoginAt             *time.Time `json:"last_login_at" db:"last_login_at"`
	CreatedAt               time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at" db:"updated_at"`

	// Version guards optimistic saves of the whole aggregate
	Version int64 `json:"-" db:"version"`

	Referrals []string  `json:"referrals"`
	Contacts  []Contact `json:"contacts"`
	Invites   []Invite  `json:"invites"`
}

// FullName joins first and last name, skipping empty parts
func (u *User) FullName() string {
	parts := make([]string, 0, 2)
	if u.FirstName != "" {
		parts = append(parts, u.FirstName)
	}
	if u.LastName != "" {
		parts = append(parts, u.LastName)
	}
	return strings.Join(parts, " ")
}

// HasWallet reports whether the user holds a real wallet address
func (u *User) HasWallet() bool {
	return u.WalletAddress != "" && u.WalletAddress != PendingWallet
}

// HasReferral checks set membership in referrals
func (u *User) HasReferral(userID string) bool {
	for _, id := range u.Referrals {
		if id == userID {
			return true
		}
	}
	return false
}

// AddReferral adds userID to the referral set. Returns false when nothing changed.
func (u *User) AddReferral(userID string) bool {
	if userID == "" || userID == u.ID || u.HasReferral(userID) {
		return false
	}
	u.Referrals = append(u.Referrals, userID)
	return true
}

// FindInvite returns the invite carrying token, or nil
func (u *User) FindInvite(token string) *Invite {
	for i := range u.Invites {
		if u.Invites[i].InviteToken == token {
			return &u.Invites[i]
		}
	}
	return nil
}

// FindOpenPersonalInvite returns an unredeemed personal invite addressed to email
func (u *User) FindOpenPersonalInvite(email string) *Invite {
	email = NormalizeEmail(email)
	for i := range u.Invites {
		inv := &u.Invites[i]
		if inv.IsPersonal && inv.Email == email && inv.Status != InviteStatusSignedUp {
			return inv
		}
	}
	return nil
}

// PersonalInvites returns personal invites, newest first
func (u *User) PersonalInvites() []Invite {
	out := make([]Invite, 0, len(u.Invites))
	for _, inv := range u.Invites {
		if inv.IsPersonal {
			out = append(out, inv)
		}
	}
	sortInvitesNewestFirst(out)
	return out
}

// NormalizeEmail lowercases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
