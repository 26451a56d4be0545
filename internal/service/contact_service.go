package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prperemyshlev/haven-service/internal/domain"
	"github.com/prperemyshlev/haven-service/internal/dto"
	"github.com/prperemyshlev/haven-service/internal/repository"
	"github.com/prperemyshlev/haven-service/internal/utils"
	"go.uber.org/zap"
)

// contactService implements ContactService interface
type contactService struct {
	userRepo     repository.UserRepository
	logger       *zap.Logger
	saveAttempts int
}

// NewContactService creates a new contact service
func NewContactService(userRepo repository.UserRepository, logger *zap.Logger, saveAttempts int) ContactService {
	return &contactService{
		userRepo:     userRepo,
		logger:       logger,
		saveAttempts: saveAttempts,
	}
}

// List returns the caller's contacts in insertion order
func (s *contactService) List(ctx context.Context, userID string) ([]domain.Contact, error) {
	caller, err := loadCaller(ctx, s.userRepo, userID)
	if err != nil {
		return nil, err
	}
	return caller.Contacts, nil
}

// Upsert adds a contact or merges it onto the entry with the same email or wallet.
// A contact whose email belongs to a user is linked to that user and marked active.
func (s *contactService) Upsert(ctx context.Context, userID string, req *dto.ContactRequest) ([]domain.Contact, error) {
	name := strings.TrimSpace(req.Name)
	email := domain.NormalizeEmail(req.Email)
	wallet := strings.TrimSpace(req.WalletAddress)

	var contacts []domain.Contact

	err := retryOnConflict(s.saveAttempts, func() error {
		caller, err := loadCaller(ctx, s.userRepo, userID)
		if err != nil {
			return err
		}

		if email == "" && wallet == "" {
			return fmt.Errorf("must provide at least an email or walletAddress: %w", ErrInvalidInput)
		}
		if email != "" && !utils.ValidateEmail(email) {
			return fmt.Errorf("invalid email: %w", ErrInvalidInput)
		}

		patch := domain.ContactPatch{
			Name:            name,
			Email:           email,
			WalletAddress:   wallet,
			Status:          domain.ContactStatusExternal,
			OverwriteWallet: wallet != "",
		}

		if email != "" {
			target, err := s.userRepo.GetByEmail(ctx, email)
			switch {
			case err == nil:
				patch.HavenUser = target.ID
				patch.Status = domain.ContactStatusActive
				if wallet == "" && target.HasWallet() {
					patch.WalletAddress = target.WalletAddress
				}
			case !errors.Is(err, repository.ErrNotFound):
				return fmt.Errorf("failed to look up contact user: %w", err)
			}
		}

		caller.UpsertContact(patch)

		if err := save(ctx, s.userRepo, caller); err != nil {
			return err
		}
		contacts = caller.Contacts
		return nil
	})

	return contacts, err
}

// Remove drops every contact matching the email or the wallet
func (s *contactService) Remove(ctx context.Context, userID string, req *dto.RemoveContactRequest) ([]domain.Contact, error) {
	email := domain.NormalizeEmail(req.Email)
	wallet := strings.TrimSpace(req.WalletAddress)

	var contacts []domain.Contact

	err := retryOnConflict(s.saveAttempts, func() error {
		caller, err := loadCaller(ctx, s.userRepo, userID)
		if err != nil {
			return err
		}

		if email == "" && wallet == "" {
			return fmt.Errorf("must provide email or walletAddress to remove: %w", ErrInvalidInput)
		}

		if caller.RemoveContacts(email, wallet) > 0 {
			if err := save(ctx, s.userRepo, caller); err != nil {
				return err
			}
		}
		contacts = caller.Contacts
		return nil
	})

	return contacts, err
}

// Resolve finds where to send value for email. A user with a real wallet wins;
// otherwise the caller's own contact with a wallet is used.
func (s *contactService) Resolve(ctx context.Context, userID, email string) (*ResolvedContact, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("missing email: %w", ErrInvalidInput)
	}

	caller, err := loadCaller(ctx, s.userRepo, userID)
	if err != nil {
		return nil, err
	}

	target, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if target != nil && target.HasWallet() {
		s.syncResolvedContact(ctx, caller, target)

		return &ResolvedContact{
			Email:           target.Email,
			Name:            target.FullName(),
			WalletAddress:   target.WalletAddress,
			Status:          domain.ContactStatusActive,
			ProfileImageURL: target.ProfileImageURL,
		}, nil
	}

	contact := caller.FindContactByEmail(email)
	if contact == nil || contact.WalletAddress == "" {
		return nil, fmt.Errorf("no user and no external wallet for %s: %w", email, ErrNotFound)
	}

	resolved := &ResolvedContact{
		Email:         email,
		Name:          contact.Name,
		WalletAddress: contact.WalletAddress,
		Status:        contact.Status,
	}

	var linked *domain.User
	if contact.HavenUser != "" {
		linked, err = s.userRepo.GetByID(ctx, contact.HavenUser)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("failed to get linked user: %w", err)
			}
			linked = nil
		}
	}

	if linked != nil {
		if resolved.Name == "" {
			resolved.Name = linked.FullName()
		}
		resolved.ProfileImageURL = linked.ProfileImageURL
	}

	if resolved.Status == "" {
		resolved.Status = domain.ContactStatusExternal
		if linked != nil {
			resolved.Status = domain.ContactStatusActive
		}
	}

	return resolved, nil
}

// syncResolvedContact points the caller's existing contact for target at its
// canonical wallet. Best effort: failures are logged.
func (s *contactService) syncResolvedContact(ctx context.Context, caller, target *domain.User) {
	contact := caller.FindContactByEmail(target.Email)
	if contact == nil {
		return
	}
	if contact.WalletAddress == target.WalletAddress &&
		contact.HavenUser == target.ID &&
		contact.Status == domain.ContactStatusActive {
		return
	}

	caller.UpsertContact(domain.ContactPatch{
		Email:           target.Email,
		WalletAddress:   target.WalletAddress,
		OverwriteWallet: true,
		HavenUser:       target.ID,
		Status:          domain.ContactStatusActive,
	})

	if err := s.userRepo.Save(ctx, caller); err != nil {
		s.logger.Warn("Failed to sync contact with resolved user",
			zap.String("user_id", caller.ID),
			zap.String("contact_user_id", target.ID),
			zap.Error(err),
		)
	}
}
