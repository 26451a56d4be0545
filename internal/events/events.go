package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/haven-service/internal/config"
	"go.uber.org/zap"
)

// Event types published after a linking operation is persisted
const (
	TypeReferralLinked = "referral.linked"
	TypeInviteIssued   = "invite.issued"
	TypeInviteRedeemed = "invite.redeemed"
)

// Event is the envelope written to the broker
type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	UserID     string          `json:"user_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// ReferralLinked is emitted when a user gets a referrer, by code or by invite
type ReferralLinked struct {
	InviterID   string `json:"inviter_id"`
	ReferredID  string `json:"referred_id"`
	Source      string `json:"source"`
	InviteToken string `json:"invite_token,omitempty"`
}

// InviteIssued carries what a mailer needs to send a personal invite
type InviteIssued struct {
	InviterID     string `json:"inviter_id"`
	InviterName   string `json:"inviter_name"`
	InviterEmail  string `json:"inviter_email"`
	Email         string `json:"email"`
	RecipientName string `json:"recipient_name,omitempty"`
	Message       string `json:"message,omitempty"`
	InviteToken   string `json:"invite_token"`
	Link          string `json:"link"`
}

// InviteRedeemed is emitted the first time an invite is bound to a user
type InviteRedeemed struct {
	InviterID   string `json:"inviter_id"`
	InvitedUser string `json:"invited_user"`
	Email       string `json:"email"`
	InviteToken string `json:"invite_token"`
}

// NewEvent wraps payload into an envelope
func NewEvent(eventType, userID string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to encode %s payload: %w", eventType, err)
	}

	return Event{
		ID:         uuid.New().String(),
		Type:       eventType,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
		Payload:    data,
	}, nil
}

// Publisher delivers events to a broker
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NewPublisher builds the publisher selected by cfg.Driver
func NewPublisher(cfg config.EventsConfig, logger *zap.Logger) (Publisher, error) {
	switch cfg.Driver {
	case "kafka":
		logger.Info("Publishing events to Kafka",
			zap.Strings("brokers", cfg.Brokers),
			zap.String("topic", cfg.Topic),
		)
		return NewKafkaPublisher(cfg.Brokers, cfg.Topic, cfg.Username, cfg.Password), nil
	case "nats":
		logger.Info("Publishing events to NATS",
			zap.String("url", cfg.NATSURL),
			zap.String("subject", cfg.Subject),
		)
		return NewNATSPublisher(cfg.NATSURL, cfg.Subject)
	case "", "none":
		return NoopPublisher{}, nil
	default:
		return nil, fmt.Errorf("unknown events driver %q", cfg.Driver)
	}
}

// NoopPublisher drops every event
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }

func (NoopPublisher) Close() error { return nil }
