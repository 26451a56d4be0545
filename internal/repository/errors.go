package repository

import "errors"

// Common repository errors
var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail is returned when another user already owns the email
	ErrDuplicateEmail = errors.New("user with this email already exists")

	// ErrDuplicateWallet is returned when another user already owns the wallet address
	ErrDuplicateWallet = errors.New("user with this wallet address already exists")

	// ErrDuplicateIdentity is returned when the identity subject is already bound to a user
	ErrDuplicateIdentity = errors.New("user with this identity already exists")

	// ErrDuplicateReferralCode is returned when a referral code collides
	ErrDuplicateReferralCode = errors.New("referral code already exists")

	// ErrDuplicateInviteToken is returned when an invite token collides across users
	ErrDuplicateInviteToken = errors.New("invite token already exists")

	// ErrVersionConflict is returned when a user record changed since it was loaded
	ErrVersionConflict = errors.New("user record was modified concurrently")
)
