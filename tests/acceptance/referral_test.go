package acceptance

import (
	"net/http"
	"sync"

	"github.com/prperemyshlev/haven-service/internal/dto"
)

func (s *Suite) TestReferralCode_ClaimThenAlreadyReferred() {
	alice := s.signIn("did:privy:alice", "alice@example.com")
	bob := s.signIn("did:privy:bob", "bob@example.com")

	status, raw := s.do(http.MethodPost, "/api/v1/user/referral/claim", bob.Token, dto.ClaimReferralRequest{
		ReferralCode: alice.User.ReferralCode,
	})
	s.Require().Equal(http.StatusOK, status, string(raw))

	var claim dto.ClaimReferralResponse
	s.decode(raw, &claim)
	s.True(claim.OK)
	s.Require().NotNil(claim.Inviter)
	s.Equal(alice.User.ID, claim.Inviter.ID)

	status, raw = s.do(http.MethodPost, "/api/v1/user/referral/claim", bob.Token, dto.ClaimReferralRequest{
		ReferralCode: alice.User.ReferralCode,
	})
	s.Require().Equal(http.StatusOK, status)
	s.decode(raw, &claim)
	s.Equal("already_referred", claim.Reason)

	status, raw = s.do(http.MethodGet, "/api/v1/auth/me", alice.Token, nil)
	s.Require().Equal(http.StatusOK, status)
	var me dto.MeResponse
	s.decode(raw, &me)
	s.Require().Len(me.Referrals, 1)
	s.Equal(bob.User.ID, me.Referrals[0].ID)
}

func (s *Suite) TestReferralCode_Rejections() {
	alice := s.signIn("did:privy:alice", "alice@example.com")

	status, raw := s.do(http.MethodPost, "/api/v1/user/referral/claim", alice.Token, dto.ClaimReferralRequest{
		ReferralCode: alice.User.ReferralCode,
	})
	s.Equal(http.StatusBadRequest, status)
	var errResp dto.ErrorResponse
	s.decode(raw, &errResp)
	s.Equal("self_referral", errResp.Reason)

	status, raw = s.do(http.MethodPost, "/api/v1/user/referral/claim", alice.Token, dto.ClaimReferralRequest{
		ReferralCode: "HVN_NOPE00",
	})
	s.Equal(http.StatusNotFound, status)
	s.decode(raw, &errResp)
	s.Equal("invalid_code", errResp.Reason)
}

func (s *Suite) TestPersonalInvite_FullFlow() {
	alice := s.signIn("did:privy:alice", "alice@example.com")

	status, raw := s.do(http.MethodPost, "/api/v1/user/invite/personal", alice.Token, dto.PersonalInviteRequest{
		Email:         "bob@example.com",
		RecipientName: "Bob",
	})
	s.Require().Equal(http.StatusOK, status, string(raw))

	var issued dto.PersonalInviteResponse
	s.decode(raw, &issued)
	s.True(issued.OK)
	s.False(issued.Reused)
	s.Require().NotNil(issued.Invite)
	token := issued.Invite.InviteToken
	s.Equal("https://app.haven.test/sign-in?invite="+token, issued.Link)

	// reissuing returns the same invite
	status, raw = s.do(http.MethodPost, "/api/v1/user/invite/personal", alice.Token, dto.PersonalInviteRequest{Email: "bob@example.com"})
	s.Require().Equal(http.StatusOK, status)
	var reissued dto.PersonalInviteResponse
	s.decode(raw, &reissued)
	s.True(reissued.Reused)
	s.Equal(token, reissued.Invite.InviteToken)

	status, raw = s.do(http.MethodPost, "/api/v1/user/invite/track", "", dto.TrackInviteRequest{InviteToken: token})
	s.Require().Equal(http.StatusOK, status)
	var click dto.TrackInviteResponse
	s.decode(raw, &click)
	s.True(click.OK)
	s.Equal("clicked", click.Status)

	carol := s.signIn("did:privy:carol", "carol@example.com")
	status, raw = s.do(http.MethodPost, "/api/v1/user/invite/claim", carol.Token, dto.ClaimInviteRequest{InviteToken: token})
	s.Equal(http.StatusForbidden, status)
	var errResp dto.ErrorResponse
	s.decode(raw, &errResp)
	s.Equal("wrong_recipient", errResp.Reason)

	bob := s.signIn("did:privy:bob", "bob@example.com")
	status, raw = s.do(http.MethodPost, "/api/v1/user/invite/claim", bob.Token, dto.ClaimInviteRequest{InviteToken: token})
	s.Require().Equal(http.StatusOK, status, string(raw))
	var claim dto.ClaimInviteResponse
	s.decode(raw, &claim)
	s.False(claim.AlreadyLinked)
	s.Equal(alice.User.ID, claim.Inviter.ID)
	s.Equal("signed_up", claim.Invite.Status)
	s.Equal(token, claim.Invite.InviteToken)

	status, raw = s.do(http.MethodPost, "/api/v1/user/invite/claim", bob.Token, dto.ClaimInviteRequest{InviteToken: token})
	s.Require().Equal(http.StatusOK, status)
	s.decode(raw, &claim)
	s.True(claim.AlreadyLinked)

	status, raw = s.do(http.MethodGet, "/api/v1/user/contacts", alice.Token, nil)
	s.Require().Equal(http.StatusOK, status)
	var contacts dto.ContactListResponse
	s.decode(raw, &contacts)
	s.Require().Len(contacts.Contacts, 1)
	s.Equal("active", contacts.Contacts[0].Status)

	status, raw = s.do(http.MethodGet, "/api/v1/auth/me", alice.Token, nil)
	s.Require().Equal(http.StatusOK, status)
	var me dto.MeResponse
	s.decode(raw, &me)
	s.Len(me.Referrals, 1)
	s.Require().Len(me.Invites, 1)
	s.NotNil(me.Invites[0].RedeemedAt)
}

func (s *Suite) TestPersonalInvite_AlreadyOnHaven() {
	alice := s.signIn("did:privy:alice", "alice@example.com")
	s.signIn("did:privy:bob", "bob@example.com")

	status, raw := s.do(http.MethodPost, "/api/v1/user/invite/personal", alice.Token, dto.PersonalInviteRequest{Email: "bob@example.com"})
	s.Require().Equal(http.StatusOK, status)

	var issued dto.PersonalInviteResponse
	s.decode(raw, &issued)
	s.False(issued.OK)
	s.Equal("already_on_haven", issued.Reason)
}

func (s *Suite) TestConcurrentReferralClaims_LinkOnce() {
	alice := s.signIn("did:privy:alice", "alice@example.com")
	carol := s.signIn("did:privy:carol", "carol@example.com")
	bob := s.signIn("did:privy:bob", "bob@example.com")

	var wg sync.WaitGroup
	for _, code := range []string{alice.User.ReferralCode, carol.User.ReferralCode} {
		wg.Add(1)
		go func(code string) {
			defer wg.Done()
			s.do(http.MethodPost, "/api/v1/user/referral/claim", bob.Token, dto.ClaimReferralRequest{ReferralCode: code})
		}(code)
	}
	wg.Wait()

	referrers := 0
	for _, inviter := range []dto.SessionResponse{alice, carol} {
		status, raw := s.do(http.MethodGet, "/api/v1/auth/me", inviter.Token, nil)
		s.Require().Equal(http.StatusOK, status)
		var me dto.MeResponse
		s.decode(raw, &me)
		referrers += len(me.Referrals)
	}
	s.Equal(1, referrers)
}

func (s *Suite) TestContacts_UpsertResolveRemove() {
	alice := s.signIn("did:privy:alice", "alice@example.com")

	status, raw := s.do(http.MethodPost, "/api/v1/user/contacts", alice.Token, dto.ContactRequest{
		Name:          "Erin",
		Email:         "erin@example.com",
		WalletAddress: "ErinWallet1111",
	})
	s.Require().Equal(http.StatusOK, status, string(raw))

	status, raw = s.do(http.MethodGet, "/api/v1/user/contacts/resolve?email=erin@example.com", alice.Token, nil)
	s.Require().Equal(http.StatusOK, status, string(raw))
	var resolved dto.ResolvedContactResponse
	s.decode(raw, &resolved)
	s.Equal("ErinWallet1111", resolved.WalletAddress)
	s.Equal("external", resolved.Status)

	status, _ = s.do(http.MethodGet, "/api/v1/user/contacts/resolve?email=nobody@example.com", alice.Token, nil)
	s.Equal(http.StatusNotFound, status)

	status, raw = s.do(http.MethodDelete, "/api/v1/user/contacts", alice.Token, dto.RemoveContactRequest{Email: "erin@example.com"})
	s.Require().Equal(http.StatusOK, status)
	var contacts dto.ContactListResponse
	s.decode(raw, &contacts)
	s.Empty(contacts.Contacts)
}
