package domain

import "time"

// Role assigned to identities created through the login flow.
const RoleUser = "user"

// Identity is the record kept per email address. It is created lazily on the
// first code send for an unknown email and is never deleted by this service.
// PendingCode and CodeExpiry are set and cleared together; at most one code is
// outstanding at any time.
type Identity struct {
	IdentityID  string    `json:"id" dynamodbav:"identity_id"`
	Email       string    `json:"email" dynamodbav:"email"`
	Role        string    `json:"role" dynamodbav:"role"`
	PendingCode *int      `json:"-" dynamodbav:"pending_code,omitempty"`
	CodeExpiry  *int64    `json:"-" dynamodbav:"code_expiry,omitempty"` // Unix seconds
	CreatedAt   time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt   time.Time `json:"updated" dynamodbav:"updated_at"`
}

// HasPendingCode reports whether a verification cycle is outstanding.
func (i *Identity) HasPendingCode() bool {
	return i.PendingCode != nil && i.CodeExpiry != nil
}
