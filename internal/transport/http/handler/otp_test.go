package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-otp-auth/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mock ---

type mockOTPService struct{ mock.Mock }

func (m *mockOTPService) SendCode(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *mockOTPService) VerifyCode(ctx context.Context, email string, code int) (string, *domain.Identity, error) {
	args := m.Called(ctx, email, code)
	if i, _ := args.Get(1).(*domain.Identity); i != nil {
		return args.String(0), i, args.Error(2)
	}
	return args.String(0), nil, args.Error(2)
}

// --- helpers ---

const testCredentialTTL = 28 * 24 * time.Hour

func postJSON(t *testing.T, h http.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func credentialCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == CredentialCookieName {
			return c
		}
	}
	return nil
}

// --- Send ---

func TestSend_InvalidBody(t *testing.T) {
	svc := &mockOTPService{}
	h := NewOTPHandler(svc, testCredentialTTL)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{not json")))
	rr := httptest.NewRecorder()
	h.Send(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	svc.AssertNotCalled(t, "SendCode", mock.Anything, mock.Anything)
}

func TestSend_MalformedEmail(t *testing.T) {
	svc := &mockOTPService{}
	h := NewOTPHandler(svc, testCredentialTTL)

	rr := postJSON(t, h.Send, map[string]string{"email": "not-an-email"})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	svc.AssertNotCalled(t, "SendCode", mock.Anything, mock.Anything)
}

func TestSend_Conflict(t *testing.T) {
	svc := &mockOTPService{}
	svc.On("SendCode", mock.Anything, "a@x.com").Return(domain.ErrConflict)
	h := NewOTPHandler(svc, testCredentialTTL)

	rr := postJSON(t, h.Send, map[string]string{"email": "a@x.com"})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	// Error bodies carry the text under "message" (and mirror it in "error").
	var env MessageEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.NotEmpty(t, env.Message)
	assert.Equal(t, env.Message, env.Error)
}

func TestSend_OK(t *testing.T) {
	svc := &mockOTPService{}
	svc.On("SendCode", mock.Anything, "a@x.com").Return(nil)
	h := NewOTPHandler(svc, testCredentialTTL)

	rr := postJSON(t, h.Send, map[string]string{"email": "a@x.com"})

	assert.Equal(t, http.StatusOK, rr.Code)
	var env MessageEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Contains(t, env.Message, "OTP sent")
}

func TestSend_DependencyFault_Returns500WithGenericMessage(t *testing.T) {
	svc := &mockOTPService{}
	svc.On("SendCode", mock.Anything, "a@x.com").Return(assert.AnError)
	h := NewOTPHandler(svc, testCredentialTTL)

	rr := postJSON(t, h.Send, map[string]string{"email": "a@x.com"})

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), assert.AnError.Error())
}

// --- Verify ---

func TestVerify_OTPWrongLength(t *testing.T) {
	svc := &mockOTPService{}
	h := NewOTPHandler(svc, testCredentialTTL)

	rr := postJSON(t, h.Verify, map[string]string{"email": "a@x.com", "otp": "12345"})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	svc.AssertNotCalled(t, "VerifyCode", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerify_OTPNotNumeric(t *testing.T) {
	svc := &mockOTPService{}
	h := NewOTPHandler(svc, testCredentialTTL)

	rr := postJSON(t, h.Verify, map[string]string{"email": "a@x.com", "otp": "12a4"})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	svc.AssertNotCalled(t, "VerifyCode", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerify_LeadingZeros_PassedAsIntegerValue(t *testing.T) {
	svc := &mockOTPService{}
	ident := &domain.Identity{IdentityID: "i1", Email: "a@x.com", Role: domain.RoleUser}
	svc.On("VerifyCode", mock.Anything, "a@x.com", 42).Return("bearer-token", ident, nil)
	h := NewOTPHandler(svc, testCredentialTTL)

	rr := postJSON(t, h.Verify, map[string]string{"email": "a@x.com", "otp": "0042"})

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestVerify_OK_SetsCredentialCookie(t *testing.T) {
	svc := &mockOTPService{}
	ident := &domain.Identity{IdentityID: "i1", Email: "a@x.com", Role: domain.RoleUser}
	svc.On("VerifyCode", mock.Anything, "a@x.com", 1234).Return("bearer-token", ident, nil)
	h := NewOTPHandler(svc, testCredentialTTL)

	rr := postJSON(t, h.Verify, map[string]string{"email": "a@x.com", "otp": "1234"})

	require.Equal(t, http.StatusOK, rr.Code)

	c := credentialCookie(t, rr)
	require.NotNil(t, c, "expected %s cookie", CredentialCookieName)
	assert.Equal(t, "bearer-token", c.Value)
	assert.True(t, c.HttpOnly)
	// Cookie lifetime mirrors the credential TTL.
	assert.InDelta(t, time.Now().Add(testCredentialTTL).Unix(), c.Expires.Unix(), 60)

	var env AuthEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Equal(t, "bearer-token", env.Bearer)
	require.NotNil(t, env.Identity)
	assert.Equal(t, "i1", env.Identity.IdentityID)
	assert.Equal(t, "Login success", env.Message)
}

func TestVerify_DomainOutcomes_MapToStatusCodes(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", domain.ErrNotFound, http.StatusNotFound},
		{"expired", domain.ErrExpired, http.StatusGone},
		{"wrong code", domain.ErrInvalidCode, http.StatusBadRequest},
		{"dependency fault", assert.AnError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockOTPService{}
			svc.On("VerifyCode", mock.Anything, "a@x.com", 1234).Return("", nil, tc.err)
			h := NewOTPHandler(svc, testCredentialTTL)

			rr := postJSON(t, h.Verify, map[string]string{"email": "a@x.com", "otp": "1234"})

			assert.Equal(t, tc.status, rr.Code)
			assert.Nil(t, credentialCookie(t, rr))

			var env MessageEnvelope
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
			assert.NotEmpty(t, env.Message)
		})
	}
}
