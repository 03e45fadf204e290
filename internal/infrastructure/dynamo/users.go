package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/palitan-tayo-api/internal/domain"
)

// UserRepo provides typed DynamoDB operations for the users table.
// DynamoDB cannot enforce uniqueness on a GSI, so every user is written
// together with EMAIL#<email> and USERNAME#<username> guard items in one
// transaction. The GSI lookups before the write only pick the error message.
type UserRepo struct {
	client    API
	tableName string
}

const (
	emailGuardPrefix    = "EMAIL#"
	usernameGuardPrefix = "USERNAME#"
)

func NewUserRepo(client API, tableName string) *UserRepo {
	return &UserRepo{client: client, tableName: tableName}
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	if _, err := r.GetByEmail(ctx, u.Email); err == nil {
		return errEmailTaken
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if _, err := r.GetByUsername(ctx, u.Username); err == nil {
		return errUsernameTaken
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	// Order matters: cancellation reasons are reported per item.
	puts := []map[string]types.AttributeValue{
		item,
		r.guard(emailGuardPrefix+u.Email, u.UserID),
	}
	if u.Username != "" {
		puts = append(puts, r.guard(usernameGuardPrefix+u.Username, u.UserID))
	}
	tx := make([]types.TransactWriteItem, 0, len(puts))
	for _, it := range puts {
		tx = append(tx, types.TransactWriteItem{Put: &types.Put{
			TableName:           aws.String(r.tableName),
			Item:                it,
			ConditionExpression: aws.String("attribute_not_exists(user_id)"),
		}})
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: tx})
	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		return conflictFromReasons(tce.CancellationReasons)
	}
	return err
}

var (
	errEmailTaken    = domain.Conflict("Email is already registered.")
	errUsernameTaken = domain.Conflict("Username already exists.")
)

func (r *UserRepo) guard(key, owner string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"user_id":  &types.AttributeValueMemberS{Value: key},
		"owner_id": &types.AttributeValueMemberS{Value: owner},
	}
}

// conflictFromReasons maps the failed condition (user, email guard, username
// guard, in that order) to the matching conflict.
func conflictFromReasons(reasons []types.CancellationReason) error {
	for i, reason := range reasons {
		if aws.ToString(reason.Code) != "ConditionalCheckFailed" {
			continue
		}
		switch i {
		case 1:
			return errEmailTaken
		case 2:
			return errUsernameTaken
		}
	}
	return fmt.Errorf("user id collision: %w", domain.ErrConflict)
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey("user_id", userID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.queryGSI(ctx, "username-index", "username", username)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.queryGSI(ctx, "email-index", "email", email)
}

func (r *UserRepo) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		"password_hash": passwordHash,
		"updated_at":    time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("user_id", userID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(user_id)"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	return err
}

func (r *UserRepo) queryGSI(ctx context.Context, index, attr, value string) (*domain.User, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    aws.String("#a = :v"),
		ExpressionAttributeNames:  map[string]string{"#a": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: value}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("user with %s %q: %w", attr, value, domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Items[0], &u); err != nil {
		return nil, err
	}
	return &u, nil
}
