package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-otp-auth/internal/domain"
)

// IdentityRepo provides typed DynamoDB operations for the identities table.
// The table is keyed by email, so the one-record-per-address rule is enforced
// by the store itself rather than by a read-then-write check; lookups by
// identity_id go through the identity_id-index GSI. The mutating operations
// are conditional writes, so the uniqueness, one-outstanding-code and
// single-use guarantees hold under concurrent requests.
type IdentityRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewIdentityRepo(client *dynamodb.Client, tableName string) *IdentityRepo {
	return &IdentityRepo{client: client, tableName: tableName}
}

// CreateIfAbsent persists a first-time identity, conditional on no record
// existing for its email. Returns domain.ErrConflict when a concurrent
// request created the record first.
func (r *IdentityRepo) CreateIfAbsent(ctx context.Context, ident *domain.Identity) error {
	item, err := attributevalue.MarshalMap(ident)
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(email)"),
	})
	if isConditionalCheckFailed(err) {
		return fmt.Errorf("identity already exists: %w", domain.ErrConflict)
	}
	return err
}

// Get looks up an identity by its id via the identity_id-index GSI.
func (r *IdentityRepo) Get(ctx context.Context, identityID string) (*domain.Identity, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String("identity_id-index"),
		KeyConditionExpression:    aws.String("#a = :v"),
		ExpressionAttributeNames:  map[string]string{"#a": "identity_id"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: identityID}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("identity not found: %w", domain.ErrNotFound)
	}
	var ident domain.Identity
	if err := attributevalue.UnmarshalMap(out.Items[0], &ident); err != nil {
		return nil, err
	}
	return &ident, nil
}

// GetByEmail reads the identity record keyed by the email. The match is
// byte-exact: emails are stored as received, with no case folding.
func (r *IdentityRepo) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("email", email),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("identity not found: %w", domain.ErrNotFound)
	}
	var ident domain.Identity
	if err := attributevalue.UnmarshalMap(out.Item, &ident); err != nil {
		return nil, err
	}
	return &ident, nil
}

// SetCodeIfNoneOutstanding writes a new pending code and its expiry, but only
// when no unexpired code exists on the record. Returns domain.ErrConflict when
// the condition fails, i.e. a concurrent send already claimed the window.
func (r *IdentityRepo) SetCodeIfNoneOutstanding(ctx context.Context, email string, code int, expiry, now int64) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldPendingCode: code,
		fieldCodeExpiry:  expiry,
		fieldUpdatedAt:   time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	ue.Names["#ce"] = fieldCodeExpiry
	ue.Values[":now"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(now, 10)}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("email", email),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(email) AND (attribute_not_exists(#ce) OR #ce <= :now)"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if isConditionalCheckFailed(err) {
		return fmt.Errorf("a code is already outstanding: %w", domain.ErrConflict)
	}
	return err
}

// ClearCodeIfMatches removes the pending code and its expiry in one write,
// conditioned on the stored code still equalling the supplied value. Returns
// domain.ErrNotFound when the code was already consumed or replaced.
func (r *IdentityRepo) ClearCodeIfMatches(ctx context.Context, email string, code int) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("email", email),
		UpdateExpression:    aws.String("REMOVE #pc, #ce SET #ua = :ua"),
		ConditionExpression: aws.String("#pc = :c"),
		ExpressionAttributeNames: map[string]string{
			"#pc": fieldPendingCode,
			"#ce": fieldCodeExpiry,
			"#ua": fieldUpdatedAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":c":  &types.AttributeValueMemberN{Value: strconv.Itoa(code)},
			":ua": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
	})
	if isConditionalCheckFailed(err) {
		return fmt.Errorf("code already consumed: %w", domain.ErrNotFound)
	}
	return err
}

func isConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
