package repository

import (
	"context"

	"github.com/prperemyshlev/haven-service/internal/domain"
)

// UserRepository stores user aggregates: the user row plus its referrals,
// contacts and invites.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*domain.User, error)
	GetByIdentityID(ctx context.Context, identityID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByWallet(ctx context.Context, walletAddress string) (*domain.User, error)
	GetByReferralCode(ctx context.Context, code string) (*domain.User, error)
	// GetByInviteToken returns the owner of the invite token. personalOnly
	// restricts the match to personal invites.
	GetByInviteToken(ctx context.Context, token string, personalOnly bool) (*domain.User, error)
	ReferralCodeExists(ctx context.Context, code string) (bool, error)
	InviteTokenExists(ctx context.Context, token string) (bool, error)
	// Save persists every given aggregate in one transaction. Each user must
	// still carry the version it was loaded with, otherwise ErrVersionConflict
	// is returned and nothing is written.
	Save(ctx context.Context, users ...*domain.User) error
}
