package service

import "github.com/prperemyshlev/haven-service/internal/domain"

// SessionResult contains the session token and the signed-in user
type SessionResult struct {
	User      *domain.User
	Token     string
	ExpiresIn int
	IsNewUser bool
}

// Profile is a user with its referrals loaded
type Profile struct {
	User      *domain.User
	Referrals []*domain.User
}

// ReferralClaim is the outcome of a referral code claim.
// AlreadyReferred is set when the caller had a referrer before the call.
type ReferralClaim struct {
	Inviter         *domain.User
	AlreadyReferred bool
}

// InviteClaim is the outcome of an invite claim
type InviteClaim struct {
	Inviter       *domain.User
	Invite        domain.Invite
	AlreadyLinked bool
}

// IssuedInvite is the outcome of issuing a personal invite.
// AlreadyOnHaven means no invite was created because the email has an account.
type IssuedInvite struct {
	Invite         domain.Invite
	Link           string
	Path           string
	Reused         bool
	AlreadyOnHaven bool
}

// TrackedClick is the outcome of recording an invite link visit
type TrackedClick struct {
	OK     bool
	Status domain.InviteStatus
}

// ResolvedContact is a recipient to send value to
type ResolvedContact struct {
	Email           string
	Name            string
	WalletAddress   string
	Status          domain.ContactStatus
	ProfileImageURL string
}
