package dto

// SessionRequest exchanges an identity provider access token for a session.
// The token may also arrive as a Bearer header.
type SessionRequest struct {
	AccessToken   string `json:"accessToken"`
	Email         string `json:"email" binding:"omitempty,email"`
	WalletAddress string `json:"solanaAddress" binding:"omitempty,max=128"`
}

// OnboardRequest completes the user profile
type OnboardRequest struct {
	FirstName               string `json:"firstName" binding:"required,max=100"`
	LastName                string `json:"lastName" binding:"required,max=100"`
	Country                 string `json:"country" binding:"omitempty,max=56"`
	DisplayCurrency         string `json:"displayCurrency"`
	FinancialKnowledgeLevel string `json:"financialKnowledgeLevel"`
	RiskLevel               string `json:"riskLevel"`
}

// ClaimReferralRequest links the caller to the owner of a referral code
type ClaimReferralRequest struct {
	ReferralCode string `json:"referralCode" binding:"required"`
}

// ClaimInviteRequest redeems a personal invite token.
// ReferralCode is accepted for compatibility and ignored.
type ClaimInviteRequest struct {
	InviteToken  string `json:"inviteToken" binding:"required"`
	ReferralCode string `json:"referralCode,omitempty"`
}

// PersonalInviteRequest issues a personal invite to one email
type PersonalInviteRequest struct {
	Email         string `json:"email" binding:"required"`
	RecipientName string `json:"recipientName" binding:"omitempty,max=200"`
	Message       string `json:"message" binding:"omitempty,max=1000"`
}

// TrackInviteRequest records a visit of an invite link
type TrackInviteRequest struct {
	InviteToken string `json:"inviteToken"`
}

// ContactRequest adds or updates a contact. At least one of email or wallet is required.
type ContactRequest struct {
	Name          string `json:"name" binding:"omitempty,max=200"`
	Email         string `json:"email"`
	WalletAddress string `json:"walletAddress" binding:"omitempty,max=128"`
}

// RemoveContactRequest removes contacts matching email or wallet
type RemoveContactRequest struct {
	Email         string `json:"email"`
	WalletAddress string `json:"walletAddress"`
}
