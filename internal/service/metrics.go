package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/prperemyshlev/haven-service/internal/service"

// Metrics counts linker outcomes
type Metrics struct {
	referralClaims metric.Int64Counter
	inviteClaims   metric.Int64Counter
	invitesIssued  metric.Int64Counter
	inviteClicks   metric.Int64Counter
}

// NewMetrics registers the linker counters on the provider's meter
func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(meterName)

	var (
		m   Metrics
		err error
	)

	if m.referralClaims, err = meter.Int64Counter("haven.referral.claims",
		metric.WithDescription("Referral code claims by outcome")); err != nil {
		return nil, fmt.Errorf("failed to create referral claims counter: %w", err)
	}
	if m.inviteClaims, err = meter.Int64Counter("haven.invite.claims",
		metric.WithDescription("Personal invite claims by outcome")); err != nil {
		return nil, fmt.Errorf("failed to create invite claims counter: %w", err)
	}
	if m.invitesIssued, err = meter.Int64Counter("haven.invites.issued",
		metric.WithDescription("Personal invite requests by outcome")); err != nil {
		return nil, fmt.Errorf("failed to create invites issued counter: %w", err)
	}
	if m.inviteClicks, err = meter.Int64Counter("haven.invite.clicks",
		metric.WithDescription("Invite link visits by outcome")); err != nil {
		return nil, fmt.Errorf("failed to create invite clicks counter: %w", err)
	}

	return &m, nil
}

// NoopMetrics returns counters that record nothing
func NoopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider())
	return m
}

func outcomeOf(err error, success string) string {
	if err != nil {
		return Reason(err)
	}
	return success
}

func (m *Metrics) add(ctx context.Context, counter metric.Int64Counter, outcome string) {
	if m == nil || counter == nil {
		return
	}
	counter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) referralClaim(ctx context.Context, outcome string) {
	if m != nil {
		m.add(ctx, m.referralClaims, outcome)
	}
}

func (m *Metrics) inviteClaim(ctx context.Context, outcome string) {
	if m != nil {
		m.add(ctx, m.inviteClaims, outcome)
	}
}

func (m *Metrics) inviteIssued(ctx context.Context, outcome string) {
	if m != nil {
		m.add(ctx, m.invitesIssued, outcome)
	}
}

func (m *Metrics) inviteClick(ctx context.Context, outcome string) {
	if m != nil {
		m.add(ctx, m.inviteClicks, outcome)
	}
}
