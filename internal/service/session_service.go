package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prperemyshlev/haven-service/internal/domain"
	"github.com/prperemyshlev/haven-service/internal/dto"
	"github.com/prperemyshlev/haven-service/internal/repository"
	"github.com/prperemyshlev/haven-service/internal/utils"
	"go.uber.org/zap"
)

const (
	placeholderEmailDomain  = "user.haven.local"
	maxReferralCodeAttempts = 10
)

// sessionService implements SessionService interface
type sessionService struct {
	userRepo         repository.UserRepository
	verifier         IdentityVerifier
	jwtManager       *utils.JWTManager
	blacklistService TokenBlacklist
	logger           *zap.Logger
	saveAttempts     int
	now              func() time.Time
	newReferralCode  func() (string, error)
}

// NewSessionService creates a new session service
func NewSessionService(
	userRepo repository.UserRepository,
	verifier IdentityVerifier,
	jwtManager *utils.JWTManager,
	blacklistService TokenBlacklist,
	logger *zap.Logger,
	saveAttempts int,
) SessionService {
	return &sessionService{
		userRepo:         userRepo,
		verifier:         verifier,
		jwtManager:       jwtManager,
		blacklistService: blacklistService,
		logger:           logger,
		saveAttempts:     saveAttempts,
		now:              time.Now,
		newReferralCode:  utils.GenerateReferralCode,
	}
}

// CreateSession verifies the identity token, creates or refreshes the user
// and issues a session token
func (s *sessionService) CreateSession(ctx context.Context, req *dto.SessionRequest) (*SessionResult, error) {
	accessToken := strings.TrimSpace(req.AccessToken)
	if accessToken == "" {
		return nil, fmt.Errorf("missing accessToken: %w", ErrInvalidInput)
	}

	identity, err := s.verifier.Verify(accessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	existing, err := s.userRepo.GetByIdentityID(ctx, identity.Subject)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	var (
		user      *domain.User
		isNewUser bool
	)

	if existing == nil {
		user, err = s.createUser(ctx, identity, req)
		switch {
		case err == nil:
			isNewUser = true
		case errors.Is(err, repository.ErrDuplicateIdentity):
			// a concurrent first login created the user
			user, err = s.refreshUser(ctx, identity, req)
		}
	} else {
		user, err = s.refreshUser(ctx, identity, req)
	}
	if err != nil {
		return nil, err
	}

	token, err := s.jwtManager.GenerateSessionToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	s.logger.Info("Session created",
		zap.String("user_id", user.ID),
		zap.Bool("new_user", isNewUser),
		zap.Bool("has_wallet", user.HasWallet()),
	)

	return &SessionResult{
		User:      user,
		Token:     token,
		ExpiresIn: int(s.jwtManager.SessionExpiry().Seconds()),
		IsNewUser: isNewUser,
	}, nil
}

// resolveEmail picks the email to persist. A verified claim always wins; the
// request email only fills an account that has nothing but the placeholder.
func resolveEmail(identity *domain.IdentityClaims, req *dto.SessionRequest, existing *domain.User) string {
	if email := domain.NormalizeEmail(identity.Email); email != "" {
		return email
	}
	if existing != nil && existing.Email != "" && !isPlaceholderEmail(existing.Email) {
		return existing.Email
	}
	if email := domain.NormalizeEmail(req.Email); email != "" {
		return email
	}
	if existing != nil && existing.Email != "" {
		return existing.Email
	}
	local := strings.ReplaceAll(identity.Subject, ":", "_")
	return domain.NormalizeEmail(local + "@" + placeholderEmailDomain)
}

func isPlaceholderEmail(email string) bool {
	return strings.HasSuffix(email, "@"+placeholderEmailDomain)
}

// resolveWallet picks the wallet to persist: request, identity claims, stored, pending
func resolveWallet(identity *domain.IdentityClaims, req *dto.SessionRequest, existing *domain.User) string {
	for _, candidate := range []string{req.WalletAddress, identity.WalletAddress} {
		if wallet := strings.TrimSpace(candidate); wallet != "" {
			return wallet
		}
	}
	if existing != nil && existing.HasWallet() {
		return existing.WalletAddress
	}
	return domain.PendingWallet
}

func (s *sessionService) createUser(ctx context.Context, identity *domain.IdentityClaims, req *dto.SessionRequest) (*domain.User, error) {
	now := s.now()

	for i := 0; i < maxReferralCodeAttempts; i++ {
		code, err := s.newReferralCode()
		if err != nil {
			return nil, err
		}

		exists, err := s.userRepo.ReferralCodeExists(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("failed to check referral code: %w", err)
		}
		if exists {
			continue
		}

		user := &domain.User{
			IdentityID:              identity.Subject,
			Email:                   resolveEmail(identity, req, nil),
			WalletAddress:           resolveWallet(identity, req, nil),
			DisplayCurrency:         domain.DefaultDisplayCurrency,
			FinancialKnowledgeLevel: domain.FinancialKnowledgeLevels[0],
			RiskLevel:               domain.RiskLevels[0],
			ReferralCode:            code,
			LastLoginAt:             &now,
		}

		err = s.userRepo.Create(ctx, user)
		switch {
		case err == nil:
			return user, nil
		case errors.Is(err, repository.ErrDuplicateReferralCode):
			continue
		case errors.Is(err, repository.ErrDuplicateIdentity):
			return nil, err
		case errors.Is(err, repository.ErrDuplicateEmail), errors.Is(err, repository.ErrDuplicateWallet):
			return nil, fmt.Errorf("%w: %v", ErrAccountConflict, err)
		default:
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
	}

	return nil, fmt.Errorf("failed to generate a unique referral code after %d attempts", maxReferralCodeAttempts)
}

func (s *sessionService) refreshUser(ctx context.Context, identity *domain.IdentityClaims, req *dto.SessionRequest) (*domain.User, error) {
	var user *domain.User

	err := retryOnConflict(s.saveAttempts, func() error {
		existing, err := s.userRepo.GetByIdentityID(ctx, identity.Subject)
		if err != nil {
			return fmt.Errorf("failed to get user: %w", err)
		}

		now := s.now()
		existing.Email = resolveEmail(identity, req, existing)
		existing.WalletAddress = resolveWallet(identity, req, existing)
		existing.LastLoginAt = &now

		if err := save(ctx, s.userRepo, existing); err != nil {
			if errors.Is(err, repository.ErrDuplicateEmail) || errors.Is(err, repository.ErrDuplicateWallet) {
				return fmt.Errorf("%w: %v", ErrAccountConflict, err)
			}
			return err
		}

		user = existing
		return nil
	})

	return user, err
}

// Logout revokes the session token for the rest of its lifetime
func (s *sessionService) Logout(ctx context.Context, token string) error {
	claims, err := s.jwtManager.ValidateToken(token)
	if err != nil {
		return nil
	}

	ttl := time.Until(time.Unix(claims.Exp, 0))
	if ttl <= 0 {
		return nil
	}

	if err := s.blacklistService.AddToken(ctx, token, ttl); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// ValidateToken validates a session token
func (s *sessionService) ValidateToken(ctx context.Context, token string) (*domain.SessionClaims, error) {
	// Check if token is blacklisted
	isBlacklisted, err := s.blacklistService.IsTokenBlacklisted(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	if isBlacklisted {
		return nil, fmt.Errorf("token is revoked: %w", ErrUnauthorized)
	}

	claims, err := s.jwtManager.ValidateToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	return claims, nil
}
