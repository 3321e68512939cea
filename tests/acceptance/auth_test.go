package acceptance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/scholar-spark/auth-service/internal/dto"
)

func (s *Suite) postJSON(path string, body any) *http.Response {
	s.T().Helper()

	payload, err := json.Marshal(body)
	s.Require().NoError(err)

	resp, err := http.Post(s.BaseURL+path, "application/json", bytes.NewBuffer(payload))
	s.Require().NoError(err)

	return resp
}

func (s *Suite) doAuthed(method, path, token string, body any) *http.Response {
	s.T().Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewBuffer(payload)
	}

	req, err := http.NewRequest(method, s.BaseURL+path, reader)
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)

	return resp
}

func (s *Suite) register(email, password string) dto.UserResponse {
	s.T().Helper()

	resp := s.postJSON("/api/v1/auth/register", dto.RegisterRequest{
		Email:     email,
		Password:  password,
		FirstName: "Test",
		LastName:  "User",
	})
	defer resp.Body.Close()
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var user dto.UserResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&user))
	return user
}

func (s *Suite) login(email, password string) (dto.AuthResponse, int) {
	s.T().Helper()

	resp := s.postJSON("/api/v1/auth/login", dto.LoginRequest{
		Email:    email,
		Password: password,
	})
	defer resp.Body.Close()

	var auth dto.AuthResponse
	_ = json.NewDecoder(resp.Body).Decode(&auth)
	return auth, resp.StatusCode
}

func (s *Suite) TestRegister_Success() {
	user := s.register("test@example.com", "Password123")

	s.NotZero(user.ID)
	s.Equal("test@example.com", user.Email)
	s.True(user.IsActive)
	s.Equal("Test", user.FirstName)
	s.Equal("User", user.LastName)
	s.Equal("Test User", user.DisplayName)
}

func (s *Suite) TestRegister_DuplicateEmail() {
	s.register("duplicate@example.com", "Password123")

	resp := s.postJSON("/api/v1/auth/register", dto.RegisterRequest{
		Email:     "duplicate@example.com",
		Password:  "Password123",
		FirstName: "Test",
		LastName:  "User",
	})
	defer resp.Body.Close()

	s.Equal(http.StatusConflict, resp.StatusCode)

	var errResp dto.ErrorResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&errResp))
	s.Equal("Conflict", errResp.Error)
}

func (s *Suite) TestRegister_InvalidEmail() {
	resp := s.postJSON("/api/v1/auth/register", dto.RegisterRequest{
		Email:     "not-an-email",
		Password:  "Password123",
		FirstName: "Test",
		LastName:  "User",
	})
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestLogin_RoundTrip() {
	s.register("login@example.com", "Password123")

	auth, status := s.login("login@example.com", "Password123")
	s.Require().Equal(http.StatusOK, status)

	s.NotEmpty(auth.AccessToken)
	s.NotEmpty(auth.RefreshToken)
	s.Equal("Bearer", auth.TokenType)
	s.NotZero(auth.ExpiresIn)

	meResp := s.doAuthed(http.MethodGet, "/api/v1/auth/me", auth.AccessToken, nil)
	defer meResp.Body.Close()
	s.Require().Equal(http.StatusOK, meResp.StatusCode)

	var me dto.UserResponse
	s.Require().NoError(json.NewDecoder(meResp.Body).Decode(&me))
	s.Equal("login@example.com", me.Email)
}

func (s *Suite) TestLogin_FailuresAreIndistinguishable() {
	s.register("real@example.com", "Password123")

	unknownResp := s.postJSON("/api/v1/auth/login", dto.LoginRequest{
		Email:    "ghost@example.com",
		Password: "Password123",
	})
	defer unknownResp.Body.Close()

	wrongResp := s.postJSON("/api/v1/auth/login", dto.LoginRequest{
		Email:    "real@example.com",
		Password: "WrongPass456",
	})
	defer wrongResp.Body.Close()

	s.Equal(http.StatusUnauthorized, unknownResp.StatusCode)
	s.Equal(http.StatusUnauthorized, wrongResp.StatusCode)

	unknownBody, _ := io.ReadAll(unknownResp.Body)
	wrongBody, _ := io.ReadAll(wrongResp.Body)
	s.Equal(string(unknownBody), string(wrongBody), "failure responses must not reveal whether the account exists")
}

func (s *Suite) TestRefresh_RotatesToken() {
	s.register("refresh@example.com", "Password123")
	auth, status := s.login("refresh@example.com", "Password123")
	s.Require().Equal(http.StatusOK, status)

	refreshResp := s.postJSON("/api/v1/auth/refresh", dto.RefreshRequest{RefreshToken: auth.RefreshToken})
	defer refreshResp.Body.Close()
	s.Require().Equal(http.StatusOK, refreshResp.StatusCode)

	var refreshed dto.AuthResponse
	s.Require().NoError(json.NewDecoder(refreshResp.Body).Decode(&refreshed))
	s.NotEmpty(refreshed.AccessToken)
	s.NotEmpty(refreshed.RefreshToken)

	replayResp := s.postJSON("/api/v1/auth/refresh", dto.RefreshRequest{RefreshToken: auth.RefreshToken})
	defer replayResp.Body.Close()
	s.Equal(http.StatusUnauthorized, replayResp.StatusCode, "a rotated refresh token must be rejected")
}

func (s *Suite) TestPasswordReset_SingleUse() {
	user := s.register("reset@example.com", "OldPassword1")

	requestResp := s.postJSON("/api/v1/auth/password-reset", dto.PasswordResetRequest{Email: "reset@example.com"})
	defer requestResp.Body.Close()
	s.Require().Equal(http.StatusAccepted, requestResp.StatusCode)

	var token string
	err := s.Postgres.DB.QueryRow(
		`SELECT token FROM password_reset_tokens WHERE user_id = $1 AND used_at IS NULL`, user.ID,
	).Scan(&token)
	s.Require().NoError(err, "reset request should persist a token")

	confirmResp := s.postJSON("/api/v1/auth/password-reset/confirm", dto.PasswordResetConfirmRequest{
		Token:       token,
		NewPassword: "NewPassword1",
	})
	defer confirmResp.Body.Close()
	s.Require().Equal(http.StatusOK, confirmResp.StatusCode)

	replayResp := s.postJSON("/api/v1/auth/password-reset/confirm", dto.PasswordResetConfirmRequest{
		Token:       token,
		NewPassword: "AnotherPass1",
	})
	defer replayResp.Body.Close()
	s.Equal(http.StatusUnauthorized, replayResp.StatusCode, "a consumed reset token must be rejected")

	_, status := s.login("reset@example.com", "NewPassword1")
	s.Equal(http.StatusOK, status, "new password should work")

	_, status = s.login("reset@example.com", "OldPassword1")
	s.Equal(http.StatusUnauthorized, status, "old password should stop working")
}

func (s *Suite) TestPasswordReset_UnknownEmailLooksIdentical() {
	resp := s.postJSON("/api/v1/auth/password-reset", dto.PasswordResetRequest{Email: "nobody@example.com"})
	defer resp.Body.Close()

	s.Equal(http.StatusAccepted, resp.StatusCode)
}

func (s *Suite) TestOTP_IssueAndVerify() {
	s.register("otp@example.com", "Password123")
	auth, status := s.login("otp@example.com", "Password123")
	s.Require().Equal(http.StatusOK, status)

	issueResp := s.doAuthed(http.MethodPost, "/api/v1/auth/otp", auth.AccessToken, dto.OTPIssueRequest{Source: "email"})
	defer issueResp.Body.Close()
	s.Require().Equal(http.StatusCreated, issueResp.StatusCode)

	var otp dto.OTPResponse
	s.Require().NoError(json.NewDecoder(issueResp.Body).Decode(&otp))
	s.NotEmpty(otp.Token)

	verifyResp := s.doAuthed(http.MethodPost, "/api/v1/auth/otp/verify", auth.AccessToken, dto.OTPVerifyRequest{Token: otp.Token})
	defer verifyResp.Body.Close()
	s.Equal(http.StatusOK, verifyResp.StatusCode)

	badResp := s.doAuthed(http.MethodPost, "/api/v1/auth/otp/verify", auth.AccessToken, dto.OTPVerifyRequest{Token: "bogus"})
	defer badResp.Body.Close()
	s.Equal(http.StatusBadRequest, badResp.StatusCode)
}

func (s *Suite) TestUserLifecycle_DeleteAndReactivate() {
	user := s.register("lifecycle@example.com", "Password123")
	auth, status := s.login("lifecycle@example.com", "Password123")
	s.Require().Equal(http.StatusOK, status)

	deleteResp := s.doAuthed(http.MethodDelete, fmt.Sprintf("/api/v1/users/%d", user.ID), auth.AccessToken, nil)
	defer deleteResp.Body.Close()
	s.Require().Equal(http.StatusOK, deleteResp.StatusCode)

	_, status = s.login("lifecycle@example.com", "Password123")
	s.Equal(http.StatusUnauthorized, status, "deleted account must not authenticate")

	reactivateResp := s.doAuthed(http.MethodPatch, fmt.Sprintf("/api/v1/users/%d/reactivate", user.ID), auth.AccessToken, nil)
	defer reactivateResp.Body.Close()
	s.Require().Equal(http.StatusOK, reactivateResp.StatusCode)

	_, status = s.login("lifecycle@example.com", "Password123")
	s.Equal(http.StatusOK, status, "reactivated account should authenticate again")
}

func (s *Suite) TestUserLifecycle_CannotDeleteAnotherUser() {
	s.register("owner@example.com", "Password123")
	victim := s.register("victim@example.com", "Password123")

	auth, status := s.login("owner@example.com", "Password123")
	s.Require().Equal(http.StatusOK, status)

	deleteResp := s.doAuthed(http.MethodDelete, fmt.Sprintf("/api/v1/users/%d", victim.ID), auth.AccessToken, nil)
	defer deleteResp.Body.Close()
	s.Equal(http.StatusForbidden, deleteResp.StatusCode)
}
