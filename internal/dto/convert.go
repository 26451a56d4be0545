package dto

import (
	"fmt"
	"time"

	"github.com/prperemyshlev/haven-service/internal/domain"
)

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := formatTime(*t)
	return &s
}

// NewUserResponse serializes a user
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:                      u.ID,
		IdentityID:              u.IdentityID,
		Email:                   u.Email,
		WalletAddress:           u.WalletAddress,
		FirstName:               optional(u.FirstName),
		LastName:                optional(u.LastName),
		Country:                 optional(u.Country),
		DisplayCurrency:         u.DisplayCurrency,
		ProfileImageURL:         optional(u.ProfileImageURL),
		FinancialKnowledgeLevel: u.FinancialKnowledgeLevel,
		RiskLevel:               u.RiskLevel,
		ReferralCode:            u.ReferralCode,
		ReferredBy:              optional(u.ReferredBy),
		IsOnboarded:             u.IsOnboarded,
		IsPro:                   u.IsPro,
		LastLoginAt:             formatTimePtr(u.LastLoginAt),
		CreatedAt:               formatTime(u.CreatedAt),
		UpdatedAt:               formatTime(u.UpdatedAt),
	}
}

// NewReferralUser serializes the public view of a referred user
func NewReferralUser(u *domain.User) ReferralUser {
	return ReferralUser{
		ID:              u.ID,
		FirstName:       optional(u.FirstName),
		LastName:        optional(u.LastName),
		Email:           u.Email,
		WalletAddress:   u.WalletAddress,
		ProfileImageURL: optional(u.ProfileImageURL),
		CreatedAt:       formatTime(u.CreatedAt),
	}
}

// NewReferralInviter serializes the inviter of a referral code claim
func NewReferralInviter(u *domain.User) *ReferralInviter {
	return &ReferralInviter{
		ID:           u.ID,
		Email:        u.Email,
		FirstName:    optional(u.FirstName),
		LastName:     optional(u.LastName),
		ReferralCode: u.ReferralCode,
	}
}

// NewInviteInviter serializes the inviter of an invite claim
func NewInviteInviter(u *domain.User) InviteInviter {
	return InviteInviter{
		ID:       u.ID,
		Email:    u.Email,
		FullName: optional(u.FullName()),
	}
}

// NewInviteResponse serializes an invite. The token is only included when withToken is set.
func NewInviteResponse(inv domain.Invite, withToken bool) InviteResponse {
	resp := InviteResponse{
		Email:         inv.Email,
		Status:        string(inv.Status),
		RecipientName: optional(inv.RecipientName),
		SentAt:        formatTimePtr(&inv.SentAt),
		ClickedAt:     formatTimePtr(inv.ClickedAt),
		RedeemedAt:    formatTimePtr(inv.RedeemedAt),
	}
	if withToken {
		resp.InviteToken = inv.InviteToken
	}
	return resp
}

// NewInviteList serializes invites in the given order
func NewInviteList(invites []domain.Invite) []InviteResponse {
	out := make([]InviteResponse, 0, len(invites))
	for _, inv := range invites {
		out = append(out, NewInviteResponse(inv, false))
	}
	return out
}

// NewContactList serializes contacts with a stable positional id
func NewContactList(contacts []domain.Contact) []ContactResponse {
	out := make([]ContactResponse, 0, len(contacts))
	for idx, c := range contacts {
		key := "contact"
		switch {
		case c.Email != "":
			key = c.Email
		case c.WalletAddress != "":
			key = c.WalletAddress
		}

		status := c.Status
		if status == "" {
			status = domain.ContactStatusExternal
		}

		out = append(out, ContactResponse{
			ID:            fmt.Sprintf("%d-%s", idx, key),
			Name:          optional(c.Name),
			Email:         optional(c.Email),
			WalletAddress: optional(c.WalletAddress),
			Status:        string(status),
		})
	}
	return out
}
