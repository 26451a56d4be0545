package acceptance

import (
	"net/http"

	"github.com/prperemyshlev/haven-service/internal/dto"
)

func (s *Suite) TestSession_CreatesUserOnce() {
	first := s.signIn("did:privy:alice", "Alice@Example.com")
	s.True(first.OK)
	s.True(first.IsNewUser)
	s.NotEmpty(first.Token)
	s.Equal("Bearer", first.TokenType)
	s.Equal("alice@example.com", first.User.Email)
	s.Equal("pending", first.User.WalletAddress)
	s.Regexp(`^HVN_[A-Z0-9]{6}$`, first.User.ReferralCode)

	second := s.signIn("did:privy:alice", "alice@example.com")
	s.False(second.IsNewUser)
	s.Equal(first.User.ID, second.User.ID)
	s.Equal(first.User.ReferralCode, second.User.ReferralCode)
}

func (s *Suite) TestSession_RejectsForeignToken() {
	status, raw := s.do(http.MethodPost, "/api/v1/auth/session", "", dto.SessionRequest{AccessToken: "not-a-jwt"})
	s.Equal(http.StatusUnauthorized, status)

	var errResp dto.ErrorResponse
	s.decode(raw, &errResp)
	s.Equal("unauthorized", errResp.Reason)
}

func (s *Suite) TestSession_TokenInHeader() {
	req, err := http.NewRequest(http.MethodPost, s.BaseURL+"/api/v1/auth/session", http.NoBody)
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+s.identityToken("did:privy:header", "header@example.com"))

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)
	s.NotEmpty(resp.Cookies(), "Should set the session cookie")
}

func (s *Suite) TestMe_AndLogout() {
	session := s.signIn("did:privy:alice", "alice@example.com")

	status, raw := s.do(http.MethodGet, "/api/v1/auth/me", session.Token, nil)
	s.Require().Equal(http.StatusOK, status, string(raw))

	var me dto.MeResponse
	s.decode(raw, &me)
	s.Equal(session.User.ID, me.User.ID)
	s.Empty(me.Referrals)

	status, _ = s.do(http.MethodPost, "/api/v1/auth/logout", session.Token, nil)
	s.Equal(http.StatusOK, status)

	status, _ = s.do(http.MethodGet, "/api/v1/auth/me", session.Token, nil)
	s.Equal(http.StatusUnauthorized, status)
}

func (s *Suite) TestOnboard() {
	session := s.signIn("did:privy:alice", "alice@example.com")

	status, raw := s.do(http.MethodPost, "/api/v1/auth/onboard", session.Token, dto.OnboardRequest{
		FirstName:       "Alice",
		LastName:        "Doe",
		Country:         "pt",
		DisplayCurrency: "EUR",
	})
	s.Require().Equal(http.StatusOK, status, string(raw))

	var user dto.UserResponse
	s.decode(raw, &user)
	s.True(user.IsOnboarded)
	s.Require().NotNil(user.Country)
	s.Equal("PT", *user.Country)

	status, _ = s.do(http.MethodPost, "/api/v1/auth/onboard", session.Token, dto.OnboardRequest{
		FirstName:       "Alice",
		LastName:        "Doe",
		DisplayCurrency: "XYZ",
	})
	s.Equal(http.StatusBadRequest, status)
}
