package acceptance

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prperemyshlev/haven-service/internal/dto"
)

// identityToken signs an access token the way the identity provider does
func (s *Suite) identityToken(subject, email string) string {
	claims := jwt.MapClaims{
		"sub": subject,
		"iss": identityIssuer,
		"aud": identityAppID,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	if email != "" {
		claims["email"] = email
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(s.identityKey)
	s.Require().NoError(err)
	return token
}

// do sends a JSON request and returns the status and the raw body
func (s *Suite) do(method, path, sessionToken string, body any) (int, []byte) {
	var reader io.Reader = http.NoBody
	if body != nil {
		payload, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, s.BaseURL+path, reader)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if sessionToken != "" {
		req.Header.Set("Authorization", "Bearer "+sessionToken)
	}

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	return resp.StatusCode, raw
}

func (s *Suite) decode(raw []byte, out any) {
	s.Require().NoError(json.Unmarshal(raw, out), string(raw))
}

// signIn creates a session for subject and returns it
func (s *Suite) signIn(subject, email string) dto.SessionResponse {
	status, raw := s.do(http.MethodPost, "/api/v1/auth/session", "", dto.SessionRequest{
		AccessToken: s.identityToken(subject, email),
	})
	s.Require().Equal(http.StatusOK, status, string(raw))

	var session dto.SessionResponse
	s.decode(raw, &session)
	return session
}
