package domain

import (
	"strings"
	"time"
)

// ContactStatus describes the relationship with a counterparty
type ContactStatus string

const (
	ContactStatusExternal ContactStatus = "external"
	ContactStatusInvited  ContactStatus = "invited"
	ContactStatusActive   ContactStatus = "active"
)

func (s ContactStatus) rank() int {
	switch s {
	case ContactStatusInvited:
		return 1
	case ContactStatusActive:
		return 2
	default:
		return 0
	}
}

// Contact represents a directory entry inside a user's contact list
type Contact struct {
	Name          string        `json:"name" db:"name"`
	Email         string        `json:"email" db:"email"`
	WalletAddress string        `json:"wallet_address" db:"wallet_address"`
	HavenUser     string        `json:"haven_user" db:"haven_user_id"`
	Status        ContactStatus `json:"status" db:"status"`
	InvitedAt     *time.Time    `json:"invited_at" db:"invited_at"`
	JoinedAt      *time.Time    `json:"joined_at" db:"joined_at"`
}

// ContactPatch carries the fields merged onto a matching contact.
// Empty fields leave the stored value untouched.
type ContactPatch struct {
	Name          string
	Email         string
	WalletAddress string
	HavenUser     string
	Status        ContactStatus
	InvitedAt     *time.Time
	JoinedAt      *time.Time

	// OverwriteWallet replaces a stored wallet; otherwise it is only filled when empty
	OverwriteWallet bool
}

func (c *Contact) matchesEmail(email string) bool {
	return email != "" && c.Email != "" && strings.EqualFold(c.Email, email)
}

func (c *Contact) matchesWallet(wallet string) bool {
	return wallet != "" && c.WalletAddress == wallet
}

func (c *Contact) apply(p ContactPatch) {
	if p.Name != "" {
		c.Name = p.Name
	}
	if p.Email != "" {
		c.Email = NormalizeEmail(p.Email)
	}
	if p.WalletAddress != "" && (p.OverwriteWallet || c.WalletAddress == "") {
		c.WalletAddress = p.WalletAddress
	}
	if p.HavenUser != "" {
		c.HavenUser = p.HavenUser
	}
	if p.Status != "" && (c.Status == "" || p.Status.rank() > c.Status.rank()) {
		c.Status = p.Status
	}
	if c.InvitedAt == nil && p.InvitedAt != nil {
		t := *p.InvitedAt
		c.InvitedAt = &t
	}
	if c.JoinedAt == nil && p.JoinedAt != nil {
		t := *p.JoinedAt
		c.JoinedAt = &t
	}
}

// FindContactByEmail returns the contact matching email case-insensitively, or nil
func (u *User) FindContactByEmail(email string) *Contact {
	for i := range u.Contacts {
		if u.Contacts[i].matchesEmail(email) {
			return &u.Contacts[i]
		}
	}
	return nil
}

// UpsertContact merges p onto the first contact matching its email, then its
// wallet, or appends a new entry. Returns the stored contact.
func (u *User) UpsertContact(p ContactPatch) *Contact {
	if c := u.FindContactByEmail(p.Email); c != nil {
		c.apply(p)
		return c
	}
	for i := range u.Contacts {
		if u.Contacts[i].matchesWallet(p.WalletAddress) {
			u.Contacts[i].apply(p)
			return &u.Contacts[i]
		}
	}

	c := Contact{Status: ContactStatusExternal}
	p.OverwriteWallet = true
	c.apply(p)
	u.Contacts = append(u.Contacts, c)
	return &u.Contacts[len(u.Contacts)-1]
}

// RemoveContacts drops every contact matching email or wallet. Returns the count removed.
func (u *User) RemoveContacts(email, wallet string) int {
	kept := u.Contacts[:0]
	removed := 0
	for _, c := range u.Contacts {
		if c.matchesEmail(email) || c.matchesWallet(wallet) {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	u.Contacts = kept
	return removed
}
