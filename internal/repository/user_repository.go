package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/prperemyshlev/haven-service/internal/domain"
	"github.com/prperemyshlev/haven-service/pkg/database"
)

const userColumns = `id, identity_id, email, wallet_address, first_name, last_name, country,
	display_currency, profile_image_url, financial_knowledge_level, risk_level,
	referral_code, referred_by, is_onboarded, is_pro, last_login_at, created_at, updated_at, version`

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// userRepository implements UserRepository interface
type userRepository struct {
	db *database.Postgres
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.Postgres) UserRepository {
	return &userRepository{db: db}
}

// Create inserts a new user aggregate
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}
	if user.DisplayCurrency == "" {
		user.DisplayCurrency = domain.DefaultDisplayCurrency
	}
	user.Version = 1

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	return r.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			user.ID,
			user.IdentityID,
			user.Email,
			user.WalletAddress,
			user.FirstName,
			user.LastName,
			user.Country,
			user.DisplayCurrency,
			user.ProfileImageURL,
			user.FinancialKnowledgeLevel,
			user.RiskLevel,
			user.ReferralCode,
			nullString(user.ReferredBy),
			user.IsOnboarded,
			user.IsPro,
			user.LastLoginAt,
			user.CreatedAt,
			user.UpdatedAt,
			user.Version,
		)
		if err != nil {
			return mapUniqueViolation(err, "failed to create user")
		}

		return r.syncCollections(ctx, tx, user)
	})
}

// GetByID retrieves a user by ID
func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("user with id %s not found: %w", id, ErrNotFound)
	}
	return r.getOne(ctx, "id = $1", id)
}

// GetByIDs retrieves every user whose id is listed; unknown ids are skipped
func (r *userRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1::uuid[]) ORDER BY created_at`

	rows, err := r.db.DB.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get users by ids: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	for _, user := range users {
		if err := r.loadCollections(ctx, r.db.DB, user); err != nil {
			return nil, err
		}
	}

	return users, nil
}

// GetByIdentityID retrieves a user by the identity provider subject
func (r *userRepository) GetByIdentityID(ctx context.Context, identityID string) (*domain.User, error) {
	return r.getOne(ctx, "identity_id = $1", identityID)
}

// GetByEmail retrieves a user by email
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, "email = $1", domain.NormalizeEmail(email))
}

// GetByWallet retrieves a user by wallet address
func (r *userRepository) GetByWallet(ctx context.Context, walletAddress string) (*domain.User, error) {
	if walletAddress == "" || walletAddress == domain.PendingWallet {
		return nil, fmt.Errorf("user with wallet %s not found: %w", walletAddress, ErrNotFound)
	}
	return r.getOne(ctx, "wallet_address = $1", walletAddress)
}

// GetByReferralCode retrieves a user by exact referral code
func (r *userRepository) GetByReferralCode(ctx context.Context, code string) (*domain.User, error) {
	return r.getOne(ctx, "referral_code = $1", code)
}

// GetByInviteToken retrieves the user who issued the invite token
func (r *userRepository) GetByInviteToken(ctx context.Context, token string, personalOnly bool) (*domain.User, error) {
	query := `
		SELECT owner_id
		FROM user_invites
		WHERE invite_token = $1 AND ($2 = FALSE OR is_personal)
	`

	var ownerID string
	err := r.db.DB.QueryRowContext(ctx, query, token, personalOnly).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("invite token not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get invite owner: %w", err)
	}

	return r.getOne(ctx, "id = $1", ownerID)
}

// ReferralCodeExists checks whether any user owns code
func (r *userRepository) ReferralCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE referral_code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check referral code: %w", err)
	}
	return exists, nil
}

// InviteTokenExists checks whether any user issued token
func (r *userRepository) InviteTokenExists(ctx context.Context, token string) (bool, error) {
	var exists bool
	err := r.db.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM user_invites WHERE invite_token = $1)`, token).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check invite token: %w", err)
	}
	return exists, nil
}

// Save writes the given aggregates in a single transaction with optimistic versioning
func (r *userRepository) Save(ctx context.Context, users ...*domain.User) error {
	query := `
		UPDATE users
		SET email = $3, wallet_address = $4, first_name = $5, last_name = $6, country = $7,
			display_currency = $8, profile_image_url = $9, financial_knowledge_level = $10,
			risk_level = $11, referred_by = $12, is_onboarded = $13, is_pro = $14,
			last_login_at = $15, updated_at = $16, version = version + 1
		WHERE id = $1 AND version = $2
	`

	now := time.Now().UTC()

	err := r.inTx(ctx, func(tx *sql.Tx) error {
		for _, user := range lockOrder(users) {
			result, err := tx.ExecContext(ctx, query,
				user.ID,
				user.Version,
				user.Email,
				user.WalletAddress,
				user.FirstName,
				user.LastName,
				user.Country,
				user.DisplayCurrency,
				user.ProfileImageURL,
				user.FinancialKnowledgeLevel,
				user.RiskLevel,
				nullString(user.ReferredBy),
				user.IsOnboarded,
				user.IsPro,
				user.LastLoginAt,
				now,
			)
			if err != nil {
				return mapUniqueViolation(err, "failed to update user")
			}

			rowsAffected, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to get rows affected: %w", err)
			}
			if rowsAffected == 0 {
				return fmt.Errorf("user %s at version %d: %w", user.ID, user.Version, ErrVersionConflict)
			}

			if err := r.syncCollections(ctx, tx, user); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, user := range users {
		user.Version++
		user.UpdatedAt = now
	}
	return nil
}

func (r *userRepository) getOne(ctx context.Context, where string, arg any) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where

	user, err := scanUser(r.db.DB.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with %s not found: %w", where, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := r.loadCollections(ctx, r.db.DB, user); err != nil {
		return nil, err
	}

	return user, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	user := &domain.User{}
	var referredBy sql.NullString
	var lastLoginAt sql.NullTime

	err := row.Scan(
		&user.ID,
		&user.IdentityID,
		&user.Email,
		&user.WalletAddress,
		&user.FirstName,
		&user.LastName,
		&user.Country,
		&user.DisplayCurrency,
		&user.ProfileImageURL,
		&user.FinancialKnowledgeLevel,
		&user.RiskLevel,
		&user.ReferralCode,
		&referredBy,
		&user.IsOnboarded,
		&user.IsPro,
		&lastLoginAt,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.Version,
	)
	if err != nil {
		return nil, err
	}

	if referredBy.Valid {
		user.ReferredBy = referredBy.String
	}
	if lastLoginAt.Valid {
		user.LastLoginAt = &lastLoginAt.Time
	}

	return user, nil
}

func (r *userRepository) loadCollections(ctx context.Context, q querier, user *domain.User) error {
	referrals, err := r.loadReferrals(ctx, q, user.ID)
	if err != nil {
		return err
	}
	contacts, err := r.loadContacts(ctx, q, user.ID)
	if err != nil {
		return err
	}
	invites, err := r.loadInvites(ctx, q, user.ID)
	if err != nil {
		return err
	}

	user.Referrals = referrals
	user.Contacts = contacts
	user.Invites = invites
	return nil
}

func (r *userRepository) loadReferrals(ctx context.Context, q querier, ownerID string) ([]string, error) {
	query := `
		SELECT referred_id
		FROM user_referrals
		WHERE referrer_id = $1
		ORDER BY created_at
	`

	rows, err := q.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get referrals: %w", err)
	}
	defer rows.Close()

	var referrals []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan referral: %w", err)
		}
		referrals = append(referrals, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate referrals: %w", err)
	}

	return referrals, nil
}

func (r *userRepository) loadContacts(ctx context.Context, q querier, ownerID string) ([]domain.Contact, error) {
	query := `
		SELECT name, email, wallet_address, haven_user_id, status, invited_at, joined_at
		FROM user_contacts
		WHERE owner_id = $1
		ORDER BY position
	`

	rows, err := q.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get contacts: %w", err)
	}
	defer rows.Close()

	var contacts []domain.Contact
	for rows.Next() {
		var c domain.Contact
		var havenUser sql.NullString
		var invitedAt, joinedAt sql.NullTime

		err := rows.Scan(&c.Name, &c.Email, &c.WalletAddress, &havenUser, &c.Status, &invitedAt, &joinedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}

		if havenUser.Valid {
			c.HavenUser = havenUser.String
		}
		if invitedAt.Valid {
			c.InvitedAt = &invitedAt.Time
		}
		if joinedAt.Valid {
			c.JoinedAt = &joinedAt.Time
		}

		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contacts: %w", err)
	}

	return contacts, nil
}

func (r *userRepository) loadInvites(ctx context.Context, q querier, ownerID string) ([]domain.Invite, error) {
	query := `
		SELECT email, invite_token, is_personal, status, recipient_name, message, sent_at,
			clicked_at, redeemed_at, invited_user_id, claimed_email, claimed_wallet_address
		FROM user_invites
		WHERE owner_id = $1
		ORDER BY sent_at, invite_token
	`

	rows, err := q.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get invites: %w", err)
	}
	defer rows.Close()

	var invites []domain.Invite
	for rows.Next() {
		var inv domain.Invite
		var invitedUser sql.NullString
		var clickedAt, redeemedAt sql.NullTime

		err := rows.Scan(
			&inv.Email,
			&inv.InviteToken,
			&inv.IsPersonal,
			&inv.Status,
			&inv.RecipientName,
			&inv.Message,
			&inv.SentAt,
			&clickedAt,
			&redeemedAt,
			&invitedUser,
			&inv.ClaimedEmail,
			&inv.ClaimedWalletAddress,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invite: %w", err)
		}

		if invitedUser.Valid {
			inv.InvitedUser = invitedUser.String
		}
		if clickedAt.Valid {
			inv.ClickedAt = &clickedAt.Time
		}
		if redeemedAt.Valid {
			inv.RedeemedAt = &redeemedAt.Time
		}

		invites = append(invites, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invites: %w", err)
	}

	return invites, nil
}

// syncCollections writes referrals, contacts and invites of user inside tx.
// Referrals and invites are never removed; contacts are rewritten in order.
func (r *userRepository) syncCollections(ctx context.Context, tx *sql.Tx, user *domain.User) error {
	for _, referred := range user.Referrals {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO user_referrals (referrer_id, referred_id, created_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (referrer_id, referred_id) DO NOTHING
		`, user.ID, referred, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed to save referral: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_contacts WHERE owner_id = $1`, user.ID); err != nil {
		return fmt.Errorf("failed to clear contacts: %w", err)
	}
	for i, c := range user.Contacts {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO user_contacts (owner_id, position, name, email, wallet_address, haven_user_id, status, invited_at, joined_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, user.ID, i, c.Name, c.Email, c.WalletAddress, nullString(c.HavenUser), c.Status, c.InvitedAt, c.JoinedAt)
		if err != nil {
			return fmt.Errorf("failed to save contact: %w", err)
		}
	}

	for _, inv := range user.Invites {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO user_invites (owner_id, invite_token, email, is_personal, status, recipient_name, message,
				sent_at, clicked_at, redeemed_at, invited_user_id, claimed_email, claimed_wallet_address)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (invite_token) DO UPDATE
			SET status = EXCLUDED.status, clicked_at = EXCLUDED.clicked_at, redeemed_at = EXCLUDED.redeemed_at,
				invited_user_id = EXCLUDED.invited_user_id, claimed_email = EXCLUDED.claimed_email,
				claimed_wallet_address = EXCLUDED.claimed_wallet_address
			WHERE user_invites.owner_id = EXCLUDED.owner_id
		`,
			user.ID,
			inv.InviteToken,
			inv.Email,
			inv.IsPersonal,
			inv.Status,
			inv.RecipientName,
			inv.Message,
			inv.SentAt,
			inv.ClickedAt,
			inv.RedeemedAt,
			nullString(inv.InvitedUser),
			inv.ClaimedEmail,
			inv.ClaimedWalletAddress,
		)
		if err != nil {
			return fmt.Errorf("failed to save invite: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return fmt.Errorf("invite token owned by another user: %w", ErrDuplicateInviteToken)
		}
	}

	return nil
}

func (r *userRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return mapTxConflict(err)
	}

	if err := tx.Commit(); err != nil {
		return mapTxConflict(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// lockOrder returns users sorted by id so concurrent saves of the same pair
// take row locks in the same order
func lockOrder(users []*domain.User) []*domain.User {
	ordered := slices.Clone(users)
	slices.SortFunc(ordered, func(a, b *domain.User) int {
		return strings.Compare(a.ID, b.ID)
	})
	return ordered
}

// mapTxConflict turns deadlock and serialization aborts into ErrVersionConflict
// so the caller re-reads and retries
func mapTxConflict(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40P01", "40001": // deadlock_detected, serialization_failure
			return fmt.Errorf("%w: %w", err, ErrVersionConflict)
		}
	}
	return err
}

// mapUniqueViolation translates unique_violation errors into repository sentinels
func mapUniqueViolation(err error, msg string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
		switch pqErr.Constraint {
		case "users_email_key":
			return fmt.Errorf("%s: %w", msg, ErrDuplicateEmail)
		case "users_wallet_address_key":
			return fmt.Errorf("%s: %w", msg, ErrDuplicateWallet)
		case "users_identity_id_key":
			return fmt.Errorf("%s: %w", msg, ErrDuplicateIdentity)
		case "users_referral_code_key":
			return fmt.Errorf("%s: %w", msg, ErrDuplicateReferralCode)
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
