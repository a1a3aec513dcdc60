package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"dream-agent/internal/domain"
)

const (
	skMeta          = "META#"
	pkPrefixSession = "SESSION#"

	// OwnerIndex is the sparse GSI (user_id, created_at) used for per-user
	// listing. Legacy sessions without user_id are not projected into it.
	// ListRecent decodes full sessions straight from the index, so it must be
	// created with ProjectionType ALL; KEYS_ONLY or INCLUDE items lack
	// "interpretation" and fail to decode.
	OwnerIndex = "user_id-created_at-index"
)

// dynamodbAPI is the minimal DynamoDB interface required by the clients.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Client wraps a DynamoDB table holding one item per dream session.
type Client struct {
	api       dynamodbAPI
	tableName string
}

// New creates a new session repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName}, nil
}

func sessionPK(id string) string {
	return pkPrefixSession + id
}

func sessionKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: sessionPK(id)},
		"SK": &types.AttributeValueMemberS{Value: skMeta},
	}
}

// CreateSession writes a new session item; ids never collide with an
// existing item.
func (c *Client) CreateSession(ctx context.Context, s domain.Session) error {
	if strings.TrimSpace(s.ID) == "" {
		return errors.New("repository: CreateSession: id is required")
	}
	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.tableName),
		Item:                sessionItem(s),
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		return fmt.Errorf("repository: CreateSession: %w", err)
	}
	return nil
}

// GetSession reads a session by id with a consistent read.
func (c *Client) GetSession(ctx context.Context, id string) (domain.Session, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.tableName),
		Key:            sessionKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.Session{}, fmt.Errorf("repository: GetSession get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	s, err := itemToSession(out.Item)
	if err != nil {
		return domain.Session{}, fmt.Errorf("repository: GetSession decode: %w", err)
	}
	return s, nil
}

// ListRecent returns up to limit sessions, newest first. With a userID it
// queries the owner index; without one it scans the whole table.
func (c *Client) ListRecent(ctx context.Context, userID string, limit int) ([]domain.Session, error) {
	if limit < 1 {
		limit = 1
	}
	if userID == "" {
		return c.scanRecent(ctx, limit)
	}

	out, err := c.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		IndexName:              aws.String(OwnerIndex),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
		// Newest first so Limit keeps the most recent sessions.
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: ListRecent query: %w", err)
	}
	return decodeSessions(out.Items, "ListRecent")
}

func (c *Client) scanRecent(ctx context.Context, limit int) ([]domain.Session, error) {
	var items []map[string]types.AttributeValue
	var startKey map[string]types.AttributeValue
	for {
		out, err := c.api.Scan(ctx, &dynamodb.ScanInput{
			TableName:        aws.String(c.tableName),
			FilterExpression: aws.String("SK = :meta"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":meta": &types.AttributeValueMemberS{Value: skMeta},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("repository: ListRecent scan: %w", err)
		}
		items = append(items, out.Items...)
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	sessions, err := decodeSessions(items, "ListRecent")
	if err != nil {
		return nil, err
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	if len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

// AppendFollowup pushes one exchange onto the session's followups list in a
// single atomic update.
func (c *Client) AppendFollowup(ctx context.Context, id string, f domain.Followup) error {
	_, err := c.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(c.tableName),
		Key:                 sessionKey(id),
		UpdateExpression:    aws.String("SET followups = list_append(if_not_exists(followups, :empty), :fu)"),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":empty": &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
			":fu":    &types.AttributeValueMemberL{Value: []types.AttributeValue{followupItem(f)}},
		},
	})
	if err != nil {
		return notFoundOr(err, "AppendFollowup")
	}
	return nil
}

// ownedCondition matches sessions owned by :uid or without an owner.
const ownedCondition = "attribute_exists(PK) AND (attribute_not_exists(user_id) OR user_id = :uid)"

// DeleteSession removes the session when userID may mutate it.
func (c *Client) DeleteSession(ctx context.Context, id, userID string) error {
	_, err := c.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(c.tableName),
		Key:                 sessionKey(id),
		ConditionExpression: aws.String(ownedCondition),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return notFoundOr(err, "DeleteSession")
	}
	return nil
}

// SetTitle back-fills the title of a session owned by userID.
func (c *Client) SetTitle(ctx context.Context, id, userID, title string) error {
	return c.setFields(ctx, "SetTitle", id, userID, "SET title = :title", map[string]types.AttributeValue{
		":title": &types.AttributeValueMemberS{Value: title},
	})
}

// SetImage back-fills the generated image of a session owned by userID.
func (c *Client) SetImage(ctx context.Context, id, userID, imageURL string, at time.Time) error {
	return c.setFields(ctx, "SetImage", id, userID, "SET image_url = :url, image_generated_at = :at", map[string]types.AttributeValue{
		":url": &types.AttributeValueMemberS{Value: imageURL},
		":at":  &types.AttributeValueMemberS{Value: at.UTC().Format(time.RFC3339)},
	})
}

func (c *Client) setFields(ctx context.Context, op, id, userID, update string, values map[string]types.AttributeValue) error {
	values[":uid"] = &types.AttributeValueMemberS{Value: userID}
	_, err := c.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(c.tableName),
		Key:                       sessionKey(id),
		UpdateExpression:          aws.String(update),
		ConditionExpression:       aws.String(ownedCondition),
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return notFoundOr(err, op)
	}
	return nil
}

// notFoundOr maps a failed condition to domain.ErrSessionNotFound.
func notFoundOr(err error, op string) error {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return domain.ErrSessionNotFound
	}
	return fmt.Errorf("repository: %s: %w", op, err)
}

func decodeSessions(items []map[string]types.AttributeValue, op string) ([]domain.Session, error) {
	sessions := make([]domain.Session, 0, len(items))
	for _, item := range items {
		s, err := itemToSession(item)
		if err != nil {
			return nil, fmt.Errorf("repository: %s unmarshal: %w", op, err)
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}
