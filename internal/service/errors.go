package service

import "errors"

// Service errors. Handlers map them to a status code and a reason.
var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidCode     = errors.New("invalid referral code")
	ErrSelfReferral    = errors.New("cannot refer yourself")
	ErrAlreadyReferred = errors.New("referral already set for this account")
	ErrWrongRecipient  = errors.New("invite is only valid for the email it was sent to")
	ErrAlreadyUsed     = errors.New("invite has already been used")
	ErrAccountConflict = errors.New("email or wallet already belongs to another account")
)

// Reason returns the machine readable reason code of err
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrInvalidCode):
		return "invalid_code"
	case errors.Is(err, ErrSelfReferral):
		return "self_referral"
	case errors.Is(err, ErrAlreadyReferred):
		return "already_referred"
	case errors.Is(err, ErrWrongRecipient):
		return "wrong_recipient"
	case errors.Is(err, ErrAlreadyUsed):
		return "already_used"
	case errors.Is(err, ErrAccountConflict):
		return "account_conflict"
	default:
		return "internal"
	}
}
