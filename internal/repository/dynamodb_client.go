package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"shopping-agent/internal/domain"
)

const (
	skPrefixCmd = "CMD#"
	ttlDuration = 30 * 24 * time.Hour // 30-day TTL

	DefaultRecentLimit = 20
	MaxRecentLimit     = 100
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Client wraps a DynamoDB table used as an append-only command journal for
// one shopping list.
type Client struct {
	api       dynamodbAPI
	tableName string
	listID    string
	now       func() time.Time
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName, listID string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	listID = strings.TrimSpace(listID)
	if listID == "" {
		return nil, errors.New("repository: list id must not be empty")
	}
	return &Client{api: api, tableName: tableName, listID: listID, now: time.Now}, nil
}

// listPK returns the DynamoDB partition key for a shopping list.
func listPK(listID string) string {
	return "LIST#" + listID
}

// cmdSK returns the sort key for a command recorded at ts.
func cmdSK(ts time.Time) string {
	return skPrefixCmd + ts.UTC().Format(time.RFC3339Nano)
}

// RecordCommand persists one applied command and returns the stored record.
func (c *Client) RecordCommand(ctx context.Context, text string, cmd domain.ParsedCommand) (domain.CommandRecord, error) {
	now := c.now().UTC()
	rec := domain.CommandRecord{
		PK:        listPK(c.listID),
		SK:        cmdSK(now),
		CommandID: uuid.NewString(),
		Text:      text,
		Action:    cmd.Action,
		Items:     cmd.Items,
		Response:  cmd.Response,
		CreatedAt: now,
		TTL:       now.Add(ttlDuration).Unix(),
	}
	if rec.Items == nil {
		rec.Items = []domain.ParsedItem{}
	}

	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.tableName),
		Item:                recordItem(rec),
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return domain.CommandRecord{}, fmt.Errorf("repository: RecordCommand: %w", err)
	}
	return rec, nil
}

// RecentCommands returns up to limit of the newest journal entries in
// chronological order. A limit outside 1..MaxRecentLimit falls back to the
// nearest sensible value.
func (c *Client) RecentCommands(ctx context.Context, limit int) ([]domain.CommandRecord, error) {
	switch {
	case limit <= 0:
		limit = DefaultRecentLimit
	case limit > MaxRecentLimit:
		limit = MaxRecentLimit
	}

	out, err := c.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: listPK(c.listID)},
			":prefix": &types.AttributeValueMemberS{Value: skPrefixCmd},
		},
		// Newest first so LIMIT keeps the most recent commands.
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: RecentCommands query: %w", err)
	}

	recs := make([]domain.CommandRecord, 0, len(out.Items))
	for _, item := range out.Items {
		rec, err := itemToRecord(item)
		if err != nil {
			return nil, fmt.Errorf("repository: RecentCommands unmarshal: %w", err)
		}
		recs = append(recs, rec)
	}
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
	return recs, nil
}

func recordItem(rec domain.CommandRecord) map[string]types.AttributeValue {
	items := make([]types.AttributeValue, 0, len(rec.Items))
	for _, it := range rec.Items {
		m := map[string]types.AttributeValue{
			"name": &types.AttributeValueMemberS{Value: it.Name},
		}
		if it.Quantity > 0 {
			m["quantity"] = &types.AttributeValueMemberN{Value: strconv.Itoa(it.Quantity)}
		}
		if it.Category != "" {
			m["category"] = &types.AttributeValueMemberS{Value: string(it.Category)}
		}
		items = append(items, &types.AttributeValueMemberM{Value: m})
	}

	return map[string]types.AttributeValue{
		"PK":        &types.AttributeValueMemberS{Value: rec.PK},
		"SK":        &types.AttributeValueMemberS{Value: rec.SK},
		"commandId": &types.AttributeValueMemberS{Value: rec.CommandID},
		"text":      &types.AttributeValueMemberS{Value: rec.Text},
		"action":    &types.AttributeValueMemberS{Value: string(rec.Action)},
		"items":     &types.AttributeValueMemberL{Value: items},
		"response":  &types.AttributeValueMemberS{Value: rec.Response},
		"createdAt": &types.AttributeValueMemberS{Value: rec.CreatedAt.Format(time.RFC3339Nano)},
		"ttl":       &types.AttributeValueMemberN{Value: strconv.FormatInt(rec.TTL, 10)},
	}
}

// itemToRecord converts a DynamoDB attribute map to a CommandRecord.
func itemToRecord(item map[string]types.AttributeValue) (domain.CommandRecord, error) {
	pk, err := strAttr(item, "PK")
	if err != nil {
		return domain.CommandRecord{}, err
	}
	sk, err := strAttr(item, "SK")
	if err != nil {
		return domain.CommandRecord{}, err
	}
	text, err := strAttr(item, "text")
	if err != nil {
		return domain.CommandRecord{}, err
	}
	action, err := strAttr(item, "action")
	if err != nil {
		return domain.CommandRecord{}, err
	}
	created, err := strAttr(item, "createdAt")
	if err != nil {
		return domain.CommandRecord{}, err
	}
	createdAt, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return domain.CommandRecord{}, fmt.Errorf("repository: parse attribute %q: %w", "createdAt", err)
	}
	commandID, _ := strAttr(item, "commandId") // allow empty
	response, _ := strAttr(item, "response")   // allow empty

	items, err := parsedItemsAttr(item, "items")
	if err != nil {
		return domain.CommandRecord{}, err
	}

	return domain.CommandRecord{
		PK:        pk,
		SK:        sk,
		CommandID: commandID,
		Text:      text,
		Action:    domain.Action(action),
		Items:     items,
		Response:  response,
		CreatedAt: createdAt,
	}, nil
}

func parsedItemsAttr(item map[string]types.AttributeValue, key string) ([]domain.ParsedItem, error) {
	v, ok := item[key]
	if !ok {
		return []domain.ParsedItem{}, nil
	}
	l, ok := v.(*types.AttributeValueMemberL)
	if !ok {
		return nil, fmt.Errorf("repository: attribute %q is not a list", key)
	}
	out := make([]domain.ParsedItem, 0, len(l.Value))
	for i, elem := range l.Value {
		m, ok := elem.(*types.AttributeValueMemberM)
		if !ok {
			return nil, fmt.Errorf("repository: %s[%d] is not a map", key, i)
		}
		name, err := strAttr(m.Value, "name")
		if err != nil {
			return nil, err
		}
		p := domain.ParsedItem{Name: name}
		if _, ok := m.Value["quantity"]; ok {
			if p.Quantity, err = intAttr(m.Value, "quantity"); err != nil {
				return nil, err
			}
		}
		if cat, err := strAttr(m.Value, "category"); err == nil {
			p.Category = domain.Category(cat)
		}
		out = append(out, p)
	}
	return out, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func intAttr(item map[string]types.AttributeValue, key string) (int, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.Atoi(n.Value)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
