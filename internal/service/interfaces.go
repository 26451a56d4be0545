package service

import (
	"context"
	"time"

	"github.com/prperemyshlev/haven-service/internal/domain"
	"github.com/prperemyshlev/haven-service/internal/dto"
)

// SessionService exchanges identity provider tokens for session tokens
type SessionService interface {
	CreateSession(ctx context.Context, req *dto.SessionRequest) (*SessionResult, error)
	Logout(ctx context.Context, token string) error
	ValidateToken(ctx context.Context, token string) (*domain.SessionClaims, error)
}

// UserService reads and completes user profiles
type UserService interface {
	GetMe(ctx context.Context, userID string) (*Profile, error)
	Onboard(ctx context.Context, userID string, req *dto.OnboardRequest) (*domain.User, error)
}

// ReferralService links callers to their referrer
type ReferralService interface {
	ClaimReferral(ctx context.Context, userID, referralCode string) (*ReferralClaim, error)
	ClaimInvite(ctx context.Context, userID, inviteToken string) (*InviteClaim, error)
}

// InviteService issues and tracks personal invites
type InviteService interface {
	IssuePersonalInvite(ctx context.Context, userID string, req *dto.PersonalInviteRequest) (*IssuedInvite, error)
	TrackInviteClick(ctx context.Context, inviteToken string) TrackedClick
	ListInvites(ctx context.Context, userID string) ([]domain.Invite, error)
}

// ContactService manages the caller's contact directory
type ContactService interface {
	List(ctx context.Context, userID string) ([]domain.Contact, error)
	Upsert(ctx context.Context, userID string, req *dto.ContactRequest) ([]domain.Contact, error)
	Remove(ctx context.Context, userID string, req *dto.RemoveContactRequest) ([]domain.Contact, error)
	Resolve(ctx context.Context, userID, email string) (*ResolvedContact, error)
}

// IdentityVerifier verifies identity provider access tokens
type IdentityVerifier interface {
	Verify(token string) (*domain.IdentityClaims, error)
}

// TokenBlacklist revokes session tokens before they expire
type TokenBlacklist interface {
	AddToken(ctx context.Context, token string, expiry time.Duration) error
	IsTokenBlacklisted(ctx context.Context, token string) (bool, error)
}
