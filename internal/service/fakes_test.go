package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/haven-service/internal/domain"
	"github.com/prperemyshlev/haven-service/internal/events"
	"github.com/prperemyshlev/haven-service/internal/repository"
	"go.uber.org/zap"
)

// fakeUserRepo is an in-memory UserRepository with the same optimistic
// versioning contract as the Postgres one
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User

	// forcedConflicts makes the next N saves fail with ErrVersionConflict
	forcedConflicts int
	saveErr         error
	saves           int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	c.Referrals = append([]string(nil), u.Referrals...)
	c.Contacts = append([]domain.Contact(nil), u.Contacts...)
	c.Invites = append([]domain.Invite(nil), u.Invites...)
	return &c
}

func (r *fakeUserRepo) conflictsWith(u *domain.User) error {
	for _, other := range r.users {
		if other.ID == u.ID {
			continue
		}
		switch {
		case other.IdentityID == u.IdentityID:
			return repository.ErrDuplicateIdentity
		case other.Email == u.Email:
			return repository.ErrDuplicateEmail
		case other.ReferralCode == u.ReferralCode:
			return repository.ErrDuplicateReferralCode
		case u.HasWallet() && other.WalletAddress == u.WalletAddress:
			return repository.ErrDuplicateWallet
		}
		for _, inv := range u.Invites {
			if other.FindInvite(inv.InviteToken) != nil {
				return repository.ErrDuplicateInviteToken
			}
		}
	}
	return nil
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if err := r.conflictsWith(user); err != nil {
		return err
	}

	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	if user.DisplayCurrency == "" {
		user.DisplayCurrency = domain.DefaultDisplayCurrency
	}
	user.Version = 1
	r.users[user.ID] = cloneUser(user)
	return nil
}

func (r *fakeUserRepo) find(match func(u *domain.User) bool) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.ID == id })
}

func (r *fakeUserRepo) GetByIDs(_ context.Context, ids []string) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*domain.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (r *fakeUserRepo) GetByIdentityID(_ context.Context, identityID string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.IdentityID == identityID })
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Email == email })
}

func (r *fakeUserRepo) GetByWallet(_ context.Context, walletAddress string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.HasWallet() && u.WalletAddress == walletAddress })
}

func (r *fakeUserRepo) GetByReferralCode(_ context.Context, code string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.ReferralCode == code })
}

func (r *fakeUserRepo) GetByInviteToken(_ context.Context, token string, personalOnly bool) (*domain.User, error) {
	return r.find(func(u *domain.User) bool {
		inv := u.FindInvite(token)
		return inv != nil && (!personalOnly || inv.IsPersonal)
	})
}

func (r *fakeUserRepo) ReferralCodeExists(ctx context.Context, code string) (bool, error) {
	_, err := r.GetByReferralCode(ctx, code)
	return err == nil, nil
}

func (r *fakeUserRepo) InviteTokenExists(ctx context.Context, token string) (bool, error) {
	_, err := r.GetByInviteToken(ctx, token, false)
	return err == nil, nil
}

func (r *fakeUserRepo) Save(_ context.Context, users ...*domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.saveErr != nil {
		return r.saveErr
	}
	if r.forcedConflicts > 0 {
		r.forcedConflicts--
		return repository.ErrVersionConflict
	}

	for _, u := range users {
		stored, ok := r.users[u.ID]
		if !ok {
			return fmt.Errorf("user %s: %w", u.ID, repository.ErrNotFound)
		}
		if stored.Version != u.Version {
			return repository.ErrVersionConflict
		}
		if err := r.conflictsWith(u); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	for _, u := range users {
		u.Version++
		u.UpdatedAt = now
		r.users[u.ID] = cloneUser(u)
	}
	r.saves++
	return nil
}

// mustGet returns the stored copy of a user
func (r *fakeUserRepo) mustGet(id string) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneUser(r.users[id])
}

// bump simulates a concurrent writer touching a stored user
func (r *fakeUserRepo) bump(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[id].Version++
}

func (r *fakeUserRepo) seed(u *domain.User) *domain.User {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.IdentityID == "" {
		u.IdentityID = "did:privy:" + u.ID
	}
	if u.ReferralCode == "" {
		u.ReferralCode = "HVN_" + u.ID[:6]
	}
	if u.WalletAddress == "" {
		u.WalletAddress = domain.PendingWallet
	}
	if err := r.Create(context.Background(), u); err != nil {
		panic(err)
	}
	return u
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeVerifier struct {
	claims map[string]*domain.IdentityClaims
}

func (v *fakeVerifier) Verify(token string) (*domain.IdentityClaims, error) {
	claims, ok := v.claims[token]
	if !ok {
		return nil, fmt.Errorf("unknown token")
	}
	c := *claims
	return &c, nil
}

type memoryBlacklist struct {
	mu     sync.Mutex
	tokens map[string]time.Duration
}

func newMemoryBlacklist() *memoryBlacklist {
	return &memoryBlacklist{tokens: make(map[string]time.Duration)}
}

func (b *memoryBlacklist) AddToken(_ context.Context, token string, expiry time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens[token] = expiry
	return nil
}

func (b *memoryBlacklist) IsTokenBlacklisted(_ context.Context, token string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.tokens[token]
	return ok, nil
}

type linkerFixture struct {
	repo      *fakeUserRepo
	publisher *recordingPublisher
	referrals ReferralService
	invites   InviteService
	contacts  ContactService
}

func newLinkerFixture() *linkerFixture {
	repo := newFakeUserRepo()
	publisher := &recordingPublisher{}
	logger := zap.NewNop()
	metrics := NoopMetrics()

	return &linkerFixture{
		repo:      repo,
		publisher: publisher,
		referrals: NewReferralService(repo, publisher, metrics, logger, DefaultSaveAttempts),
		invites:   NewInviteService(repo, publisher, metrics, logger, "https://app.haven.test/", DefaultSaveAttempts),
		contacts:  NewContactService(repo, logger, DefaultSaveAttempts),
	}
}
