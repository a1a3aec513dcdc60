package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"dream-agent/internal/domain"
)

const (
	pkPrefixUser  = "USER#"
	pkPrefixEmail = "EMAIL#"
	skProfile     = "PROFILE#"
)

// UserClient stores accounts in their own table. Each user is written as a
// profile item keyed by id plus an email item that enforces uniqueness.
type UserClient struct {
	api       dynamodbAPI
	tableName string
}

func NewUsers(api dynamodbAPI, tableName string) (*UserClient, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &UserClient{api: api, tableName: tableName}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func userKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pkPrefixUser + id},
		"SK": &types.AttributeValueMemberS{Value: skProfile},
	}
}

func emailKey(email string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pkPrefixEmail + normalizeEmail(email)},
		"SK": &types.AttributeValueMemberS{Value: skProfile},
	}
}

// CreateUser writes the profile and email items in one transaction and
// reports domain.ErrUserExists when the email is taken.
func (c *UserClient) CreateUser(ctx context.Context, u domain.User) error {
	if u.ID == "" || normalizeEmail(u.Email) == "" {
		return errors.New("repository: CreateUser: id and email are required")
	}

	profile := userKey(u.ID)
	profile["id"] = &types.AttributeValueMemberS{Value: u.ID}
	profile["email"] = &types.AttributeValueMemberS{Value: normalizeEmail(u.Email)}
	profile["hashed_password"] = &types.AttributeValueMemberS{Value: u.HashedPassword}
	profile["created_at"] = &types.AttributeValueMemberS{Value: u.CreatedAt.UTC().Format(time.RFC3339)}
	putOptional(profile, "name", u.Name)

	pointer := emailKey(u.Email)
	pointer["user_id"] = &types.AttributeValueMemberS{Value: u.ID}

	_, err := c.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           aws.String(c.tableName),
					Item:                pointer,
					ConditionExpression: aws.String("attribute_not_exists(PK)"),
				},
			},
			{
				Put: &types.Put{
					TableName:           aws.String(c.tableName),
					Item:                profile,
					ConditionExpression: aws.String("attribute_not_exists(PK)"),
				},
			},
		},
	})
	if err != nil {
		if conditionFailed(err) {
			return domain.ErrUserExists
		}
		return fmt.Errorf("repository: CreateUser: %w", err)
	}
	return nil
}

// GetUserByEmail resolves the email item and then the profile.
func (c *UserClient) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.tableName),
		Key:            emailKey(email),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("repository: GetUserByEmail get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.User{}, domain.ErrUserNotFound
	}
	id, err := strAttr(out.Item, "user_id")
	if err != nil {
		return domain.User{}, fmt.Errorf("repository: GetUserByEmail decode: %w", err)
	}
	return c.GetUserByID(ctx, id)
}

func (c *UserClient) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.tableName),
		Key:            userKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("repository: GetUserByID get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.User{}, domain.ErrUserNotFound
	}
	u, err := itemToUser(out.Item)
	if err != nil {
		return domain.User{}, fmt.Errorf("repository: GetUserByID decode: %w", err)
	}
	return u, nil
}

func itemToUser(item map[string]types.AttributeValue) (domain.User, error) {
	id, err := strAttr(item, "id")
	if err != nil {
		return domain.User{}, err
	}
	email, err := strAttr(item, "email")
	if err != nil {
		return domain.User{}, err
	}
	hash, err := strAttr(item, "hashed_password")
	if err != nil {
		return domain.User{}, err
	}
	createdAt, err := timeAttr(item, "created_at")
	if err != nil {
		return domain.User{}, err
	}
	return domain.User{
		ID:             id,
		Email:          email,
		HashedPassword: hash,
		Name:           optStrAttr(item, "name"),
		CreatedAt:      createdAt,
	}, nil
}

// conditionFailed reports whether a transaction was cancelled by a failed
// condition check.
func conditionFailed(err error) bool {
	var canceled *types.TransactionCanceledException
	if !errors.As(err, &canceled) {
		return false
	}
	for _, reason := range canceled.CancellationReasons {
		if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
			return true
		}
	}
	return false
}
