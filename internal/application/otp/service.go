package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/go-otp-auth/internal/domain"
	"github.com/go-otp-auth/internal/pkg/id"
)

// SendCodeRequest is the payload for requesting a login code.
type SendCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// VerifyCodeRequest is the payload for exchanging a code for a credential.
// The OTP arrives as a string of exactly 4 digits; it is compared by integer
// value, so "0042" and a stored 42 match.
type VerifyCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=4,numeric"`
}

// IdentityStore is the persistence contract the lifecycle manager needs.
// Every mutating operation is conditional: the store, not the caller, decides
// races between concurrent requests for the same email.
type IdentityStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.Identity, error)
	CreateIfAbsent(ctx context.Context, ident *domain.Identity) error
	SetCodeIfNoneOutstanding(ctx context.Context, email string, code int, expiry, now int64) error
	ClearCodeIfMatches(ctx context.Context, email string, code int) error
}

// Mailer delivers the code out-of-band.
type Mailer interface {
	SendEmail(to, subject, body string) error
}

// CredentialIssuer turns an identity's stable attributes into a signed token.
type CredentialIssuer interface {
	Sign(identityID, role string) (string, error)
}

// Service drives the OTP lifecycle: send, single-use verify, credential issuance.
type Service interface {
	SendCode(ctx context.Context, email string) error
	VerifyCode(ctx context.Context, email string, code int) (bearer string, ident *domain.Identity, err error)
}

type ServiceDeps struct {
	IdentityRepo IdentityStore
	Mailer       Mailer
	Issuer       CredentialIssuer
	CodeTTL      time.Duration
}

type service struct {
	identities IdentityStore
	mailer     Mailer
	issuer     CredentialIssuer
	codeTTL    time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		identities: deps.IdentityRepo,
		mailer:     deps.Mailer,
		issuer:     deps.Issuer,
		codeTTL:    deps.CodeTTL,
	}
}

// SendCode generates a fresh 4-digit code for the email, delivers it, and
// records it with an expiry of now + CodeTTL. An unexpired outstanding code
// blocks a new send with domain.ErrConflict; an expired one is overwritten.
// Nothing is persisted unless delivery succeeded, and conditional writes
// settle any race the initial read check let through: a lost conditional
// create falls through to the conditional code write, so concurrent first
// sends for the same unknown email can never leave two records behind.
func (s *service) SendCode(ctx context.Context, email string) error {
	ident, err := s.identities.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	now := time.Now().Unix()
	if ident != nil && ident.CodeExpiry != nil && *ident.CodeExpiry > now {
		return fmt.Errorf("a code was already sent to this email: %w", domain.ErrConflict)
	}

	code, err := newCode()
	if err != nil {
		return err
	}
	expiry := now + int64(s.codeTTL.Seconds())

	if err := s.mailer.SendEmail(email, loginCodeSubject, loginCodeBody(code, s.codeTTL)); err != nil {
		return fmt.Errorf("send login code to %s: %w", email, err)
	}

	if ident != nil {
		return s.identities.SetCodeIfNoneOutstanding(ctx, email, code, expiry, now)
	}

	ts := time.Now().UTC()
	err = s.identities.CreateIfAbsent(ctx, &domain.Identity{
		IdentityID:  id.New(),
		Email:       email,
		Role:        domain.RoleUser,
		PendingCode: &code,
		CodeExpiry:  &expiry,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	})
	if errors.Is(err, domain.ErrConflict) {
		// A concurrent first send created the record; settle against it.
		// The write reports conflict while the winner's code is outstanding.
		return s.identities.SetCodeIfNoneOutstanding(ctx, email, code, expiry, now)
	}
	return err
}

// VerifyCode checks the supplied code against the identity's pending one and,
// on a match, clears it and issues a signed credential. The clear is
// conditional on the stored value, so one issued code yields at most one
// credential even under concurrent verifies.
func (s *service) VerifyCode(ctx context.Context, email string, code int) (string, *domain.Identity, error) {
	ident, err := s.identities.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return "", nil, err
	}

	if !ident.HasPendingCode() {
		return "", nil, fmt.Errorf("no code issued, request a new one: %w", domain.ErrNotFound)
	}
	if *ident.CodeExpiry < time.Now().Unix() {
		// The stale code stays on the record; a fresh send overwrites it.
		return "", nil, fmt.Errorf("code expired, request a new one: %w", domain.ErrExpired)
	}
	if *ident.PendingCode != code {
		return "", nil, fmt.Errorf("wrong code: %w", domain.ErrInvalidCode)
	}

	if err := s.identities.ClearCodeIfMatches(ctx, ident.Email, code); err != nil {
		return "", nil, err
	}

	bearer, err := s.issuer.Sign(ident.IdentityID, ident.Role)
	if err != nil {
		return "", nil, err
	}
	return bearer, ident, nil
}

const loginCodeSubject = "Your login code"

func loginCodeBody(code int, ttl time.Duration) string {
	// Zero-padded for display only; the stored and compared value is the integer.
	return fmt.Sprintf("Your one-time login code is %04d. It is valid for the next %d minutes.",
		code, int(ttl.Minutes()))
}

// newCode draws a code uniformly from the 4-digit numeric space [0, 10000).
func newCode() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}
