package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prperemyshlev/haven-service/internal/domain"
	"github.com/prperemyshlev/haven-service/internal/events"
	"github.com/prperemyshlev/haven-service/internal/repository"
	"go.uber.org/zap"
)

const (
	linkSourceCode   = "referral_code"
	linkSourceInvite = "invite"
)

// referralService implements ReferralService interface
type referralService struct {
	userRepo     repository.UserRepository
	publisher    events.Publisher
	metrics      *Metrics
	logger       *zap.Logger
	saveAttempts int
	now          func() time.Time
}

// NewReferralService creates a new referral service
func NewReferralService(
	userRepo repository.UserRepository,
	publisher events.Publisher,
	metrics *Metrics,
	logger *zap.Logger,
	saveAttempts int,
) ReferralService {
	return &referralService{
		userRepo:     userRepo,
		publisher:    publisher,
		metrics:      metrics,
		logger:       logger,
		saveAttempts: saveAttempts,
		now:          time.Now,
	}
}

// link makes inviter the referrer of caller on both aggregates. invite is the
// redeemed personal invite, nil for referral code claims. Returns whether the
// invite was bound to caller by this call.
func link(caller, inviter *domain.User, invite *domain.Invite, now time.Time) bool {
	redeemed := false

	if invite != nil {
		invite.BackfillClicked(now)
		if !invite.IsRedeemedBy(caller.ID) {
			invite.Redeem(caller, now)
			redeemed = true
		}

		patch := domain.ContactPatch{
			Email:     caller.Email,
			HavenUser: caller.ID,
			Status:    domain.ContactStatusActive,
			InvitedAt: &invite.SentAt,
			JoinedAt:  &now,
		}
		if caller.HasWallet() {
			patch.WalletAddress = caller.WalletAddress
		}
		inviter.UpsertContact(patch)
	}

	inviter.AddReferral(caller.ID)
	caller.ReferredBy = inviter.ID

	return redeemed
}

// ClaimReferral links the caller to the owner of referralCode
func (s *referralService) ClaimReferral(ctx context.Context, userID, referralCode string) (*ReferralClaim, error) {
	result, err := s.claimReferral(ctx, userID, strings.TrimSpace(referralCode))

	switch {
	case err != nil:
		s.metrics.referralClaim(ctx, outcomeOf(err, ""))
		return nil, err
	case result.AlreadyReferred:
		s.metrics.referralClaim(ctx, "already_referred")
	default:
		s.metrics.referralClaim(ctx, "linked")
		publish(ctx, s.publisher, s.logger, events.TypeReferralLinked, userID, events.ReferralLinked{
			InviterID:  result.Inviter.ID,
			ReferredID: userID,
			Source:     linkSourceCode,
		})
	}

	return result, nil
}

func (s *referralService) claimReferral(ctx context.Context, userID, referralCode string) (*ReferralClaim, error) {
	var result *ReferralClaim

	err := retryOnConflict(s.saveAttempts, func() error {
		caller, err := loadCaller(ctx, s.userRepo, userID)
		if err != nil {
			return err
		}

		if referralCode == "" {
			return fmt.Errorf("referral code is required: %w", ErrInvalidInput)
		}

		if caller.ReferredBy != "" {
			result = &ReferralClaim{AlreadyReferred: true}
			return nil
		}

		inviter, err := s.userRepo.GetByReferralCode(ctx, referralCode)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrInvalidCode
			}
			return fmt.Errorf("failed to get inviter: %w", err)
		}

		if inviter.ID == caller.ID {
			return ErrSelfReferral
		}

		link(caller, inviter, nil, s.now())

		if err := save(ctx, s.userRepo, inviter, caller); err != nil {
			return err
		}

		result = &ReferralClaim{Inviter: inviter}
		return nil
	})

	return result, err
}

// ClaimInvite redeems a personal invite token and links the caller to its issuer
func (s *referralService) ClaimInvite(ctx context.Context, userID, inviteToken string) (*InviteClaim, error) {
	result, redeemed, err := s.claimInvite(ctx, userID, strings.TrimSpace(inviteToken))

	switch {
	case err != nil:
		s.metrics.inviteClaim(ctx, outcomeOf(err, ""))
		return nil, err
	case result.AlreadyLinked:
		s.metrics.inviteClaim(ctx, "already_linked")
	default:
		s.metrics.inviteClaim(ctx, "linked")
		publish(ctx, s.publisher, s.logger, events.TypeReferralLinked, userID, events.ReferralLinked{
			InviterID:   result.Inviter.ID,
			ReferredID:  userID,
			Source:      linkSourceInvite,
			InviteToken: result.Invite.InviteToken,
		})
	}

	if redeemed {
		publish(ctx, s.publisher, s.logger, events.TypeInviteRedeemed, result.Inviter.ID, events.InviteRedeemed{
			InviterID:   result.Inviter.ID,
			InvitedUser: userID,
			Email:       result.Invite.Email,
			InviteToken: result.Invite.InviteToken,
		})
	}

	return result, nil
}

func (s *referralService) claimInvite(ctx context.Context, userID, inviteToken string) (*InviteClaim, bool, error) {
	var (
		result   *InviteClaim
		redeemed bool
	)

	err := retryOnConflict(s.saveAttempts, func() error {
		redeemed = false

		caller, err := loadCaller(ctx, s.userRepo, userID)
		if err != nil {
			return err
		}

		if inviteToken == "" {
			return fmt.Errorf("invite token is required: %w", ErrInvalidInput)
		}

		if caller.ReferredBy != "" {
			if claim := s.replayedClaim(ctx, caller, inviteToken); claim != nil {
				result = claim
				return nil
			}
			return ErrAlreadyReferred
		}

		inviter, err := s.userRepo.GetByInviteToken(ctx, inviteToken, true)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("invite not found or no longer valid: %w", ErrNotFound)
			}
			return fmt.Errorf("failed to get inviter: %w", err)
		}

		if inviter.ID == caller.ID {
			return ErrSelfReferral
		}

		invite := inviter.FindInvite(inviteToken)
		if invite == nil {
			return fmt.Errorf("invite not found: %w", ErrNotFound)
		}

		if invite.Email == "" || invite.Email != domain.NormalizeEmail(caller.Email) {
			return ErrWrongRecipient
		}

		if invite.IsRedeemedByOther(caller.ID) {
			return ErrAlreadyUsed
		}

		alreadyLinked := invite.IsRedeemedBy(caller.ID)
		redeemed = link(caller, inviter, invite, s.now())

		if err := save(ctx, s.userRepo, inviter, caller); err != nil {
			return err
		}

		result = &InviteClaim{
			Inviter:       inviter,
			Invite:        *inviter.FindInvite(inviteToken),
			AlreadyLinked: alreadyLinked,
		}
		return nil
	})

	return result, redeemed, err
}

// replayedClaim returns the stored result when caller already redeemed
// inviteToken and is linked to its issuer, nil otherwise
func (s *referralService) replayedClaim(ctx context.Context, caller *domain.User, inviteToken string) *InviteClaim {
	inviter, err := s.userRepo.GetByInviteToken(ctx, inviteToken, true)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("Failed to look up invite for replayed claim",
				zap.String("user_id", caller.ID),
				zap.Error(err),
			)
		}
		return nil
	}

	if inviter.ID != caller.ReferredBy {
		return nil
	}

	invite := inviter.FindInvite(inviteToken)
	if invite == nil || !invite.IsRedeemedBy(caller.ID) {
		return nil
	}

	return &InviteClaim{
		Inviter:       inviter,
		Invite:        *invite,
		AlreadyLinked: true,
	}
}
