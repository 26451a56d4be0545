package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/prperemyshlev/haven-service/internal/domain"
	"github.com/prperemyshlev/haven-service/internal/dto"
	"github.com/prperemyshlev/haven-service/internal/events"
	"github.com/prperemyshlev/haven-service/internal/repository"
	"github.com/prperemyshlev/haven-service/internal/utils"
	"go.uber.org/zap"
)

const maxTokenAttempts = 10

// inviteService implements InviteService interface
type inviteService struct {
	userRepo     repository.UserRepository
	publisher    events.Publisher
	metrics      *Metrics
	logger       *zap.Logger
	appURL       string
	saveAttempts int
	now          func() time.Time
	newToken     func() (string, error)
}

// NewInviteService creates a new invite service. Links are built on appURL.
func NewInviteService(
	userRepo repository.UserRepository,
	publisher events.Publisher,
	metrics *Metrics,
	logger *zap.Logger,
	appURL string,
	saveAttempts int,
) InviteService {
	return &inviteService{
		userRepo:     userRepo,
		publisher:    publisher,
		metrics:      metrics,
		logger:       logger,
		appURL:       strings.TrimRight(appURL, "/"),
		saveAttempts: saveAttempts,
		now:          time.Now,
		newToken:     utils.GenerateInviteToken,
	}
}

// InvitePath is the sign-in path carrying an invite token. It never carries a
// referral code, so a personal link cannot be reused as a generic one.
func InvitePath(token string) string {
	return "/sign-in?invite=" + url.QueryEscape(token)
}

func (s *inviteService) link(token string) string {
	return s.appURL + InvitePath(token)
}

// IssuePersonalInvite creates a single-use invite for one email, or returns
// the open one already issued to it
func (s *inviteService) IssuePersonalInvite(ctx context.Context, userID string, req *dto.PersonalInviteRequest) (*IssuedInvite, error) {
	var (
		result  *IssuedInvite
		inviter *domain.User
	)

	email := domain.NormalizeEmail(req.Email)
	recipientName := strings.TrimSpace(req.RecipientName)
	message := strings.TrimSpace(req.Message)

	err := retryOnConflict(s.saveAttempts, func() error {
		caller, err := loadCaller(ctx, s.userRepo, userID)
		if err != nil {
			return err
		}
		inviter = caller

		if email == "" || !utils.ValidateEmail(email) {
			return fmt.Errorf("valid email is required: %w", ErrInvalidInput)
		}
		if email == domain.NormalizeEmail(caller.Email) {
			return fmt.Errorf("cannot invite your own email: %w", ErrInvalidInput)
		}

		now := s.now()

		existing, err := s.userRepo.GetByEmail(ctx, email)
		switch {
		case err == nil:
			patch := domain.ContactPatch{
				Email:     email,
				HavenUser: existing.ID,
				Status:    domain.ContactStatusActive,
				JoinedAt:  &now,
			}
			if existing.HasWallet() {
				patch.WalletAddress = existing.WalletAddress
			}
			caller.UpsertContact(patch)

			if err := save(ctx, s.userRepo, caller); err != nil {
				return err
			}
			result = &IssuedInvite{AlreadyOnHaven: true}
			return nil
		case !errors.Is(err, repository.ErrNotFound):
			return fmt.Errorf("failed to look up invitee: %w", err)
		}

		if open := caller.FindOpenPersonalInvite(email); open != nil {
			result = &IssuedInvite{
				Invite: *open,
				Link:   s.link(open.InviteToken),
				Path:   InvitePath(open.InviteToken),
				Reused: true,
			}
			return nil
		}

		token, err := s.uniqueToken(ctx)
		if err != nil {
			return err
		}

		invite := domain.Invite{
			Email:         email,
			InviteToken:   token,
			IsPersonal:    true,
			Status:        domain.InviteStatusSent,
			RecipientName: recipientName,
			Message:       message,
			SentAt:        now,
		}
		caller.Invites = append(caller.Invites, invite)
		caller.UpsertContact(domain.ContactPatch{
			Name:      recipientName,
			Email:     email,
			Status:    domain.ContactStatusInvited,
			InvitedAt: &now,
		})

		if err := save(ctx, s.userRepo, caller); err != nil {
			if errors.Is(err, repository.ErrDuplicateInviteToken) {
				// lost a race for the token; treat like a conflict and start over
				return repository.ErrVersionConflict
			}
			return err
		}

		result = &IssuedInvite{
			Invite: invite,
			Link:   s.link(token),
			Path:   InvitePath(token),
		}
		return nil
	})

	switch {
	case err != nil:
		s.metrics.inviteIssued(ctx, outcomeOf(err, ""))
		return nil, err
	case result.AlreadyOnHaven:
		s.metrics.inviteIssued(ctx, "already_on_haven")
	case result.Reused:
		s.metrics.inviteIssued(ctx, "reused")
	default:
		s.metrics.inviteIssued(ctx, "created")
		publish(ctx, s.publisher, s.logger, events.TypeInviteIssued, userID, events.InviteIssued{
			InviterID:     inviter.ID,
			InviterName:   inviter.FullName(),
			InviterEmail:  inviter.Email,
			Email:         result.Invite.Email,
			RecipientName: result.Invite.RecipientName,
			Message:       result.Invite.Message,
			InviteToken:   result.Invite.InviteToken,
			Link:          result.Link,
		})
	}

	return result, nil
}

// uniqueToken generates invite tokens until one is unused across all users
func (s *inviteService) uniqueToken(ctx context.Context) (string, error) {
	for i := 0; i < maxTokenAttempts; i++ {
		token, err := s.newToken()
		if err != nil {
			return "", err
		}

		exists, err := s.userRepo.InviteTokenExists(ctx, token)
		if err != nil {
			return "", fmt.Errorf("failed to check invite token: %w", err)
		}
		if !exists {
			return token, nil
		}
	}
	return "", fmt.Errorf("failed to generate a unique invite token after %d attempts", maxTokenAttempts)
}

// TrackInviteClick advances a sent invite to clicked. It never fails: unknown
// tokens and store errors are reported as not ok.
func (s *inviteService) TrackInviteClick(ctx context.Context, inviteToken string) TrackedClick {
	inviteToken = strings.TrimSpace(inviteToken)
	if inviteToken == "" {
		s.metrics.inviteClick(ctx, "invalid_input")
		return TrackedClick{}
	}

	var status domain.InviteStatus
	advanced := false

	err := retryOnConflict(s.saveAttempts, func() error {
		owner, err := s.userRepo.GetByInviteToken(ctx, inviteToken, false)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to get invite owner: %w", err)
		}

		invite := owner.FindInvite(inviteToken)
		if invite == nil {
			return ErrNotFound
		}

		advanced = invite.MarkClicked(s.now())
		status = invite.Status
		if !advanced {
			return nil
		}
		return save(ctx, s.userRepo, owner)
	})

	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("Failed to track invite click", zap.Error(err))
		}
		s.metrics.inviteClick(ctx, outcomeOf(err, ""))
		return TrackedClick{}
	}

	if advanced {
		s.metrics.inviteClick(ctx, "clicked")
	} else {
		s.metrics.inviteClick(ctx, "unchanged")
	}
	return TrackedClick{OK: true, Status: status}
}

// ListInvites returns the caller's personal invites, newest first
func (s *inviteService) ListInvites(ctx context.Context, userID string) ([]domain.Invite, error) {
	caller, err := loadCaller(ctx, s.userRepo, userID)
	if err != nil {
		return nil, err
	}
	return caller.PersonalInvites(), nil
}
