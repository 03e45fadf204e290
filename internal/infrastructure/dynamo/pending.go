package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/palitan-tayo-api/internal/domain"
)

// pendingItem is the stored shape of a pending registration.
// PK: email, SK: purpose ("registration" | "password_reset").
// PurgeAt is a Unix timestamp used as DynamoDB TTL; it trails ExpiresAt by the
// retention window so expired codes can still be told apart from missing ones.
type pendingItem struct {
	domain.PendingRegistration
	Purpose string `dynamodbav:"purpose"`
	PurgeAt int64  `dynamodbav:"purge_at"`
}

// PendingRepo manages pending registrations and password-reset codes.
type PendingRepo struct {
	client     API
	tableName  string
	purpose    string
	defaultTTL time.Duration
	retention  time.Duration
	now        func() time.Time
}

func NewPendingRepo(client API, tableName, purpose string, defaultTTL, retention time.Duration) *PendingRepo {
	return &PendingRepo{
		client:     client,
		tableName:  tableName,
		purpose:    purpose,
		defaultTTL: defaultTTL,
		retention:  retention,
		now:        time.Now,
	}
}

func (r *PendingRepo) Set(ctx context.Context, reg domain.PendingRegistration, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = r.defaultTTL
	}
	now := r.now().UTC()
	reg.CreatedAt = now
	reg.ExpiresAt = now.Add(ttl)
	item, err := attributevalue.MarshalMap(pendingItem{
		PendingRegistration: reg,
		Purpose:             r.purpose,
		PurgeAt:             reg.ExpiresAt.Add(r.retention).Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal pending registration: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *PendingRepo) Get(ctx context.Context, email string) (*domain.PendingRegistration, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            compositeKey("email", email, "purpose", r.purpose),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, domain.ErrNotFound
	}
	var it pendingItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, err
	}
	return &it.PendingRegistration, nil
}

func (r *PendingRepo) Validate(ctx context.Context, email, otp string) (*domain.PendingRegistration, error) {
	reg, err := r.Get(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrOTPNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := reg.Check(otp, r.now()); err != nil {
		return nil, err
	}
	return reg, nil
}

func (r *PendingRepo) Delete(ctx context.Context, email string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       compositeKey("email", email, "purpose", r.purpose),
	})
	return err
}
