package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/prperemyshlev/haven-service/internal/domain"
	"github.com/prperemyshlev/haven-service/internal/dto"
	"github.com/prperemyshlev/haven-service/internal/repository"
)

// userService implements UserService interface
type userService struct {
	userRepo     repository.UserRepository
	saveAttempts int
}

// NewUserService creates a new user service
func NewUserService(userRepo repository.UserRepository, saveAttempts int) UserService {
	return &userService{
		userRepo:     userRepo,
		saveAttempts: saveAttempts,
	}
}

// GetMe returns the caller with the users they referred
func (s *userService) GetMe(ctx context.Context, userID string) (*Profile, error) {
	user, err := loadCaller(ctx, s.userRepo, userID)
	if err != nil {
		return nil, err
	}

	referrals, err := s.userRepo.GetByIDs(ctx, user.Referrals)
	if err != nil {
		return nil, fmt.Errorf("failed to get referrals: %w", err)
	}

	return &Profile{User: user, Referrals: referrals}, nil
}

func validateOnboarding(req *dto.OnboardRequest) error {
	if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
		return fmt.Errorf("first name and last name are required: %w", ErrInvalidInput)
	}
	if req.DisplayCurrency != "" && !domain.IsOneOf(req.DisplayCurrency, domain.DisplayCurrencies) {
		return fmt.Errorf("invalid display currency: %w", ErrInvalidInput)
	}
	if req.FinancialKnowledgeLevel != "" && !domain.IsOneOf(req.FinancialKnowledgeLevel, domain.FinancialKnowledgeLevels) {
		return fmt.Errorf("invalid financial knowledge level: %w", ErrInvalidInput)
	}
	if req.RiskLevel != "" && !domain.IsOneOf(req.RiskLevel, domain.RiskLevels) {
		return fmt.Errorf("invalid risk level: %w", ErrInvalidInput)
	}
	return nil
}

// Onboard stores the profile answers and marks the user onboarded
func (s *userService) Onboard(ctx context.Context, userID string, req *dto.OnboardRequest) (*domain.User, error) {
	if err := validateOnboarding(req); err != nil {
		return nil, err
	}

	var user *domain.User

	err := retryOnConflict(s.saveAttempts, func() error {
		caller, err := loadCaller(ctx, s.userRepo, userID)
		if err != nil {
			return err
		}

		caller.FirstName = strings.TrimSpace(req.FirstName)
		caller.LastName = strings.TrimSpace(req.LastName)
		if country := strings.TrimSpace(req.Country); country != "" {
			caller.Country = strings.ToUpper(country)
		}
		if req.DisplayCurrency != "" {
			caller.DisplayCurrency = req.DisplayCurrency
		}
		if req.FinancialKnowledgeLevel != "" {
			caller.FinancialKnowledgeLevel = req.FinancialKnowledgeLevel
		}
		if req.RiskLevel != "" {
			caller.RiskLevel = req.RiskLevel
		}
		caller.IsOnboarded = true

		if err := save(ctx, s.userRepo, caller); err != nil {
			return err
		}
		user = caller
		return nil
	})

	return user, err
}
