package domain

import (
	"sort"
	"time"
)

// InviteStatus is the forward-only lifecycle of an invite
type InviteStatus string

const (
	InviteStatusSent     InviteStatus = "sent"
	InviteStatusClicked  InviteStatus = "clicked"
	InviteStatusSignedUp InviteStatus = "signed_up"
)

func (s InviteStatus) rank() int {
	switch s {
	case InviteStatusClicked:
		return 1
	case InviteStatusSignedUp:
		return 2
	default:
		return 0
	}
}

// Invite represents a personal, email-bound invitation issued by a user
type Invite struct {
	Email                string       `json:"email" db:"email"`
	InviteToken          string       `json:"invite_token" db:"invite_token"`
	IsPersonal           bool         `json:"is_personal" db:"is_personal"`
	Status               InviteStatus `json:"status" db:"status"`
	RecipientName        string       `json:"recipient_name" db:"recipient_name"`
	Message              string       `json:"message" db:"message"`
	SentAt               time.Time    `json:"sent_at" db:"sent_at"`
	ClickedAt            *time.Time   `json:"clicked_at" db:"clicked_at"`
	RedeemedAt           *time.Time   `json:"redeemed_at" db:"redeemed_at"`
	InvitedUser          string       `json:"invited_user" db:"invited_user_id"`
	ClaimedEmail         string       `json:"claimed_email" db:"claimed_email"`
	ClaimedWalletAddress string       `json:"claimed_wallet_address" db:"claimed_wallet_address"`
}

// MarkClicked advances sent -> clicked. Returns false when the invite is past sent.
func (i *Invite) MarkClicked(now time.Time) bool {
	if i.Status != InviteStatusSent {
		return false
	}
	i.Status = InviteStatusClicked
	if i.ClickedAt == nil {
		i.ClickedAt = &now
	}
	return true
}

// BackfillClicked stamps clickedAt when a claim skipped the click step
func (i *Invite) BackfillClicked(now time.Time) {
	if i.ClickedAt != nil {
		return
	}
	i.ClickedAt = &now
	if i.Status == InviteStatusSent {
		i.Status = InviteStatusClicked
	}
}

// IsRedeemedBy reports whether userID already redeemed the invite
func (i *Invite) IsRedeemedBy(userID string) bool {
	return i.Status == InviteStatusSignedUp && i.InvitedUser != "" && i.InvitedUser == userID
}

// IsRedeemedByOther reports whether someone other than userID redeemed the invite
func (i *Invite) IsRedeemedByOther(userID string) bool {
	return i.Status == InviteStatusSignedUp && i.InvitedUser != "" && i.InvitedUser != userID
}

// Redeem binds the invite to the redeeming user. redeemedAt keeps its first value.
func (i *Invite) Redeem(user *User, now time.Time) {
	if i.Status.rank() < InviteStatusSignedUp.rank() {
		i.Status = InviteStatusSignedUp
	}
	i.InvitedUser = user.ID
	if i.RedeemedAt == nil {
		i.RedeemedAt = &now
	}
	i.ClaimedEmail = NormalizeEmail(user.Email)
	i.ClaimedWalletAddress = user.WalletAddress
}

func sortInvitesNewestFirst(invites []Invite) {
	sort.SliceStable(invites, func(a, b int) bool {
		return invites[a].SentAt.After(invites[b].SentAt)
	})
}
