package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/prperemyshlev/haven-service/internal/domain"
	"github.com/prperemyshlev/haven-service/internal/events"
	"github.com/prperemyshlev/haven-service/internal/repository"
	"go.uber.org/zap"
)

// DefaultSaveAttempts bounds re-reads after a version conflict
const DefaultSaveAttempts = 3

// retryOnConflict reruns fn, which must reload what it saves, while the store
// reports a version conflict
func retryOnConflict(attempts int, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if !errors.Is(err, repository.ErrVersionConflict) {
			return err
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", attempts, err)
}

// loadCaller loads the authenticated user
func loadCaller(ctx context.Context, repo repository.UserRepository, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}

	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// save wraps store errors other than version conflicts
func save(ctx context.Context, repo repository.UserRepository, users ...*domain.User) error {
	if err := repo.Save(ctx, users...); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return err
		}
		return fmt.Errorf("failed to save users: %w", err)
	}
	return nil
}

// publish emits an event after the change is persisted. Failures are only logged.
func publish(ctx context.Context, publisher events.Publisher, logger *zap.Logger, eventType, userID string, payload any) {
	if publisher == nil {
		return
	}

	event, err := events.NewEvent(eventType, userID, payload)
	if err == nil {
		err = publisher.Publish(ctx, event)
	}
	if err != nil {
		logger.Warn("Failed to publish event",
			zap.String("type", eventType),
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}
