package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-otp-auth/internal/application/otp"
	"github.com/go-otp-auth/internal/pkg/validate"
)

// CredentialCookieName is the cookie the verify endpoint sets on success.
const CredentialCookieName = "jwt-token"

// OTPHandler handles the send/verify login endpoints.
type OTPHandler struct {
	svc           otp.Service
	credentialTTL time.Duration
}

func NewOTPHandler(svc otp.Service, credentialTTL time.Duration) *OTPHandler {
	return &OTPHandler{svc: svc, credentialTTL: credentialTTL}
}

func (h *OTPHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req otp.SendCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid email address")
		return
	}
	if err := h.svc.SendCode(r.Context(), req.Email); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "OTP sent successfully!"})
}

func (h *OTPHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req otp.VerifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	// len=4,numeric guarantees digits; Atoi yields the integer value, so a
	// leading-zero code like "0042" compares as 42.
	code, err := strconv.Atoi(req.OTP)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	bearer, ident, err := h.svc.VerifyCode(r.Context(), req.Email, code)
	if err != nil {
		httpError(w, err)
		return
	}

	// Cookie expiry mirrors the token's own validity window.
	http.SetCookie(w, &http.Cookie{
		Name:     CredentialCookieName,
		Value:    bearer,
		Path:     "/",
		Expires:  time.Now().Add(h.credentialTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, AuthEnvelope{
		Bearer:   bearer,
		Identity: ident,
		Message:  "Login success",
	})
}
