package http

import (
	"time"

	"github.com/go-otp-auth/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-otp-auth/internal/infrastructure/jwt"
	"github.com/go-otp-auth/internal/infrastructure/smtp"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	IdentityRepo *dynamo.IdentityRepo
	Mailer       smtp.Mailer
	JWTProvider  *jwtinfra.Provider
	CodeTTL      time.Duration
}
