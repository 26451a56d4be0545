package dto

// ErrorResponse represents an error response
type ErrorResponse struct {
	OK      bool        `json:"ok"`
	Reason  string      `json:"reason"`
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// UserResponse is the serialized user returned by session and onboarding
type UserResponse struct {
	ID                      string  `json:"id"`
	IdentityID              string  `json:"privyId"`
	Email                   string  `json:"email"`
	WalletAddress           string  `json:"walletAddress"`
	FirstName               *string `json:"firstName"`
	LastName                *string `json:"lastName"`
	Country                 *string `json:"country"`
	DisplayCurrency         string  `json:"displayCurrency"`
	ProfileImageURL         *string `json:"profileImageUrl"`
	FinancialKnowledgeLevel string  `json:"financialKnowledgeLevel"`
	RiskLevel               string  `json:"riskLevel"`
	ReferralCode            string  `json:"referralCode"`
	ReferredBy              *string `json:"referredBy"`
	IsOnboarded             bool    `json:"isOnboarded"`
	IsPro                   bool    `json:"isPro"`
	LastLoginAt             *string `json:"lastLoginAt"`
	CreatedAt               string  `json:"createdAt"`
	UpdatedAt               string  `json:"updatedAt"`
}

// SessionResponse is returned after a successful session exchange
type SessionResponse struct {
	OK        bool         `json:"ok"`
	IsNewUser bool         `json:"isNewUser"`
	Token     string       `json:"token"`
	TokenType string       `json:"tokenType"`
	ExpiresIn int          `json:"expiresIn"`
	User      UserResponse `json:"user"`
}

// ReferralUser is the public view of a referred user
type ReferralUser struct {
	ID              string  `json:"id"`
	FirstName       *string `json:"firstName"`
	LastName        *string `json:"lastName"`
	Email           string  `json:"email"`
	WalletAddress   string  `json:"walletAddress"`
	ProfileImageURL *string `json:"profileImageUrl"`
	CreatedAt       string  `json:"createdAt"`
}

// MeResponse is the full profile of the caller
type MeResponse struct {
	User      UserResponse      `json:"user"`
	Contacts  []ContactResponse `json:"contacts"`
	Invites   []InviteResponse  `json:"invites"`
	Referrals []ReferralUser    `json:"referrals"`
}

// ReferralInviter is the inviter identity returned by a referral code claim
type ReferralInviter struct {
	ID           string  `json:"id"`
	Email        string  `json:"email"`
	FirstName    *string `json:"firstName"`
	LastName     *string `json:"lastName"`
	ReferralCode string  `json:"referralCode"`
}

// ClaimReferralResponse is returned by a referral code claim
type ClaimReferralResponse struct {
	OK      bool             `json:"ok"`
	Reason  string           `json:"reason,omitempty"`
	Message string           `json:"message,omitempty"`
	Inviter *ReferralInviter `json:"inviter,omitempty"`
}

// InviteInviter is the inviter identity returned by an invite claim
type InviteInviter struct {
	ID       string  `json:"id"`
	Email    string  `json:"email"`
	FullName *string `json:"fullName"`
}

// InviteResponse is the serialized state of an invite
type InviteResponse struct {
	Email         string  `json:"email"`
	InviteToken   string  `json:"inviteToken,omitempty"`
	Status        string  `json:"status"`
	RecipientName *string `json:"recipientName,omitempty"`
	SentAt        *string `json:"sentAt"`
	ClickedAt     *string `json:"clickedAt"`
	RedeemedAt    *string `json:"redeemedAt"`
}

// ClaimInviteResponse is returned by an invite claim
type ClaimInviteResponse struct {
	OK            bool           `json:"ok"`
	AlreadyLinked bool           `json:"alreadyLinked"`
	Inviter       InviteInviter  `json:"inviter"`
	Invite        InviteResponse `json:"invite"`
}

// PersonalInviteResponse is returned when issuing a personal invite
type PersonalInviteResponse struct {
	OK      bool            `json:"ok"`
	Reason  string          `json:"reason,omitempty"`
	Message string          `json:"message,omitempty"`
	Reused  bool            `json:"reused"`
	Invite  *InviteResponse `json:"invite,omitempty"`
	Link    string          `json:"link,omitempty"`
	Path    string          `json:"path,omitempty"`
}

// InviteListResponse lists the caller's personal invites
type InviteListResponse struct {
	Invites []InviteResponse `json:"invites"`
}

// TrackInviteResponse reports the invite status after a click
type TrackInviteResponse struct {
	OK     bool   `json:"ok"`
	Status string `json:"status,omitempty"`
}

// ContactResponse is one entry of the contact list
type ContactResponse struct {
	ID            string  `json:"id"`
	Name          *string `json:"name"`
	Email         *string `json:"email"`
	WalletAddress *string `json:"walletAddress"`
	Status        string  `json:"status"`
}

// ContactListResponse wraps the contact list
type ContactListResponse struct {
	OK       bool              `json:"ok"`
	Contacts []ContactResponse `json:"contacts"`
}

// ResolvedContactResponse is the recipient to send value to
type ResolvedContactResponse struct {
	Email           string  `json:"email"`
	Name            *string `json:"name"`
	WalletAddress   string  `json:"walletAddress"`
	Status          string  `json:"status"`
	ProfileImageURL *string `json:"profileImageUrl"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}
