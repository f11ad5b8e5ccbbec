package dynamo

// DynamoDB attribute names used in update expressions.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldPendingCode = "pending_code"
	fieldCodeExpiry  = "code_expiry"
	fieldUpdatedAt   = "updated_at"
)
