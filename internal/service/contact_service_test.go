package service

import (
	"context"
	"errors"
	"testing"

	"github.com/prperemyshlev/haven-service/internal/domain"
	"github.com/prperemyshlev/haven-service/internal/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContactUpsert_MergesByEmailThenWallet(t *testing.T) {
	f := newLinkerFixture()
	ctx := context.Background()

	alice := f.repo.seed(&domain.User{Email: "alice@example.com"})

	contacts, err := f.contacts.Upsert(ctx, alice.ID, &dto.ContactRequest{Name: "Erin", Email: "Erin@Example.com"})
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "erin@example.com", contacts[0].Email)
	assert.Equal(t, domain.ContactStatusExternal, contacts[0].Status)

	contacts, err = f.contacts.Upsert(ctx, alice.ID, &dto.ContactRequest{Email: "erin@example.com", WalletAddress: "ErinWallet"})
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "Erin", contacts[0].Name)
	assert.Equal(t, "ErinWallet", contacts[0].WalletAddress)

	contacts, err = f.contacts.Upsert(ctx, alice.ID, &dto.ContactRequest{Name: "Erin W", WalletAddress: "ErinWallet"})
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "Erin W", contacts[0].Name)

	contacts, err = f.contacts.Upsert(ctx, alice.ID, &dto.ContactRequest{WalletAddress: "OtherWallet"})
	require.NoError(t, err)
	assert.Len(t, contacts, 2)
}

func TestContactUpsert_LinksExistingUser(t *testing.T) {
	f := newLinkerFixture()
	ctx := context.Background()

	alice := f.repo.seed(&domain.User{Email: "alice@example.com"})
	bob := f.repo.seed(&domain.User{Email: "bob@example.com", WalletAddress: "BobWallet111"})

	contacts, err := f.contacts.Upsert(ctx, alice.ID, &dto.ContactRequest{Email: "bob@example.com"})
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, bob.ID, contacts[0].HavenUser)
	assert.Equal(t, domain.ContactStatusActive, contacts[0].Status)
	assert.Equal(t, "BobWallet111", contacts[0].WalletAddress)
}

func TestContactUpsert_RejectsBadInput(t *testing.T) {
	f := newLinkerFixture()
	ctx := context.Background()

	alice := f.repo.seed(&domain.User{Email: "alice@example.com"})

	_, err := f.contacts.Upsert(ctx, alice.ID, &dto.ContactRequest{Name: "Nobody"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.contacts.Upsert(ctx, alice.ID, &dto.ContactRequest{Email: "nope"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.contacts.Upsert(ctx, "", &dto.ContactRequest{Email: "bob@example.com"})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestContactRemove(t *testing.T) {
	f := newLinkerFixture()
	ctx := context.Background()

	alice := f.repo.seed(&domain.User{Email: "alice@example.com"})
	_, err := f.contacts.Upsert(ctx, alice.ID, &dto.ContactRequest{Email: "erin@example.com"})
	require.NoError(t, err)
	_, err = f.contacts.Upsert(ctx, alice.ID, &dto.ContactRequest{WalletAddress: "W1"})
	require.NoError(t, err)

	version := f.repo.mustGet(alice.ID).Version

	contacts, err := f.contacts.Remove(ctx, alice.ID, &dto.RemoveContactRequest{Email: "missing@example.com"})
	require.NoError(t, err)
	assert.Len(t, contacts, 2)
	assert.Equal(t, version, f.repo.mustGet(alice.ID).Version)

	contacts, err = f.contacts.Remove(ctx, alice.ID, &dto.RemoveContactRequest{Email: "ERIN@example.com"})
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "W1", contacts[0].WalletAddress)

	_, err = f.contacts.Remove(ctx, alice.ID, &dto.RemoveContactRequest{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	listed, err := f.contacts.List(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestContactResolve_PrefersUserWallet(t *testing.T) {
	f := newLinkerFixture()
	ctx := context.Background()

	alice := f.repo.seed(&domain.User{Email: "alice@example.com"})
	bob := f.repo.seed(&domain.User{
		Email:           "bob@example.com",
		FirstName:       "Bob",
		LastName:        "Ray",
		WalletAddress:   "BobWallet111",
		ProfileImageURL: "https://img.example.com/bob.png",
	})

	_, err := f.contacts.Upsert(ctx, alice.ID, &dto.ContactRequest{WalletAddress: "StaleWallet", Email: "someone@example.com"})
	require.NoError(t, err)
	stored := f.repo.mustGet(alice.ID)
	stored.Contacts = append(stored.Contacts, domain.Contact{
		Email:         "bob@example.com",
		WalletAddress: "StaleWallet2",
		Status:        domain.ContactStatusExternal,
	})
	require.NoError(t, f.repo.Save(ctx, stored))

	resolved, err := f.contacts.Resolve(ctx, alice.ID, "BOB@example.com")
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", resolved.Email)
	assert.Equal(t, "Bob Ray", resolved.Name)
	assert.Equal(t, "BobWallet111", resolved.WalletAddress)
	assert.Equal(t, domain.ContactStatusActive, resolved.Status)
	assert.Equal(t, "https://img.example.com/bob.png", resolved.ProfileImageURL)

	synced := f.repo.mustGet(alice.ID).FindContactByEmail("bob@example.com")
	require.NotNil(t, synced)
	assert.Equal(t, "BobWallet111", synced.WalletAddress)
	assert.Equal(t, bob.ID, synced.HavenUser)
	assert.Equal(t, domain.ContactStatusActive, synced.Status)
}

func TestContactResolve_FallsBackToContactWallet(t *testing.T) {
	f := newLinkerFixture()
	ctx := context.Background()

	alice := f.repo.seed(&domain.User{Email: "alice@example.com"})
	f.repo.seed(&domain.User{Email: "bob@example.com"})

	_, err := f.contacts.Upsert(ctx, alice.ID, &dto.ContactRequest{Name: "Erin", Email: "erin@example.com", WalletAddress: "ErinWallet"})
	require.NoError(t, err)

	resolved, err := f.contacts.Resolve(ctx, alice.ID, "erin@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Erin", resolved.Name)
	assert.Equal(t, "ErinWallet", resolved.WalletAddress)
	assert.Equal(t, domain.ContactStatusExternal, resolved.Status)

	// a user still waiting for a wallet has nothing to resolve to
	_, err = f.contacts.Resolve(ctx, alice.ID, "bob@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.contacts.Resolve(ctx, alice.ID, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestContactResolve_SyncFailureStillResolves(t *testing.T) {
	f := newLinkerFixture()
	ctx := context.Background()

	alice := f.repo.seed(&domain.User{Email: "alice@example.com"})
	f.repo.seed(&domain.User{Email: "bob@example.com", WalletAddress: "BobWallet111"})

	stored := f.repo.mustGet(alice.ID)
	stored.Contacts = append(stored.Contacts, domain.Contact{Email: "bob@example.com", Status: domain.ContactStatusExternal})
	require.NoError(t, f.repo.Save(ctx, stored))

	f.repo.saveErr = errors.New("connection reset")

	resolved, err := f.contacts.Resolve(ctx, alice.ID, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, "BobWallet111", resolved.WalletAddress)
}
