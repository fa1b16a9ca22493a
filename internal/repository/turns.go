package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"storefront-support/internal/domain"
)

const (
	skPrefixTurn     = "TURN#"
	escalationBucket = "ESCALATION"
)

func threadPK(threadID string) string {
	return "THREAD#" + threadID
}

func sessionPK(sessionID string) string {
	return "SESSION#" + sessionID
}

func turnSK(ts time.Time, id string) string {
	return skPrefixTurn + sortStamp(ts) + "#" + id
}

// LatestState reads the newest turn of the thread with a strongly consistent
// query. A thread without turns is idle.
func (c *Client) LatestState(ctx context.Context, threadID string) (domain.DialogueState, error) {
	out, err := c.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     strValue(threadPK(threadID)),
			":prefix": strValue(skPrefixTurn),
		},
		ProjectionExpression: aws.String("#state"),
		ExpressionAttributeNames: map[string]string{
			"#state": "state",
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
		ConsistentRead:   aws.Bool(true),
	})
	if err != nil {
		return domain.StateIdle, fmt.Errorf("repository: LatestState query: %w", err)
	}
	if out == nil || len(out.Items) == 0 {
		return domain.StateIdle, nil
	}
	return domain.DialogueState(optStrAttr(out.Items[0], "state")), nil
}

// AppendTurn inserts a turn. Existing items are never overwritten.
func (c *Client) AppendTurn(ctx context.Context, turn domain.Turn) error {
	if turn.ID == "" || turn.ThreadID == "" {
		return errors.New("repository: AppendTurn: id and thread id are required")
	}
	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.tableName),
		Item:                c.turnItem(turn),
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return fmt.Errorf("repository: AppendTurn: %w", err)
	}
	return nil
}

// ListEscalations reads the sparse escalation index newest first. The status
// filter is applied server-side, so pages may come back short.
func (c *Client) ListEscalations(ctx context.Context, status domain.ResolutionStatus, limit int) ([]domain.Turn, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		IndexName:              aws.String(gsi2),
		KeyConditionExpression: aws.String("GSI2PK = :bucket"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":bucket": strValue(escalationBucket),
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            limit32(limit),
	}
	if status != "" {
		in.FilterExpression = aws.String("resolutionStatus = :status")
		in.ExpressionAttributeValues[":status"] = strValue(string(status))
	}
	items, err := c.queryAll(ctx, in, limit, nil)
	if err != nil {
		return nil, fmt.Errorf("repository: ListEscalations query: %w", err)
	}
	return itemsToTurns(items, "ListEscalations")
}

// SessionHistory returns every turn of a session oldest first.
func (c *Client) SessionHistory(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error) {
	items, err := c.queryAll(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		IndexName:              aws.String(gsi1),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": strValue(sessionPK(sessionID)),
		},
		ScanIndexForward: aws.Bool(true),
		Limit:            limit32(limit),
	}, limit, nil)
	if err != nil {
		return nil, fmt.Errorf("repository: SessionHistory query: %w", err)
	}
	return itemsToTurns(items, "SessionHistory")
}

// UpdateResolution locates the escalated turn through the escalation index and
// sets its resolution status. Non-escalated turns are not reachable.
func (c *Client) UpdateResolution(ctx context.Context, turnID string, status domain.ResolutionStatus) error {
	items, err := c.queryAll(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		IndexName:              aws.String(gsi2),
		KeyConditionExpression: aws.String("GSI2PK = :bucket"),
		FilterExpression:       aws.String("#id = :id"),
		ExpressionAttributeNames: map[string]string{
			"#id": "id",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":bucket": strValue(escalationBucket),
			":id":     strValue(turnID),
		},
		ProjectionExpression: aws.String("PK, SK"),
	}, 1, nil)
	if err != nil {
		return fmt.Errorf("repository: UpdateResolution lookup: %w", err)
	}
	if len(items) == 0 {
		return domain.ErrNotFound
	}

	_, err = c.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": items[0]["PK"],
			"SK": items[0]["SK"],
		},
		UpdateExpression:    aws.String("SET resolutionStatus = :status"),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": strValue(string(status)),
		},
	})
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("repository: UpdateResolution: %w", err)
	}
	return nil
}

func (c *Client) turnItem(t domain.Turn) map[string]types.AttributeValue {
	ts := t.CreatedAt
	if ts.IsZero() {
		ts = c.now()
	}
	sk := turnSK(ts, t.ID)
	item := map[string]types.AttributeValue{
		"PK":        strValue(threadPK(t.ThreadID)),
		"SK":        strValue(sk),
		"GSI1PK":    strValue(sessionPK(t.SessionID)),
		"GSI1SK":    strValue(sk),
		"id":        strValue(t.ID),
		"threadId":  strValue(t.ThreadID),
		"sessionId": strValue(t.SessionID),
		"role":      strValue(string(t.Role)),
		"text":      strValue(t.Text),
		"userQuery": strValue(t.Query),
		"state":     strValue(string(t.State)),
		"escalated": &types.AttributeValueMemberBOOL{Value: t.Escalated},
		"createdAt": strValue(ts.UTC().Format(time.RFC3339Nano)),
		"ttl":       numValue(c.ttlValue()),
	}
	if t.Escalated {
		item["GSI2PK"] = strValue(escalationBucket)
		item["GSI2SK"] = strValue(sortStamp(ts) + "#" + t.ID)
		status := t.ResolutionStatus
		if status == "" {
			status = domain.ResolutionOpen
		}
		item["resolutionStatus"] = strValue(string(status))
	}
	return item
}

func itemToTurn(item map[string]types.AttributeValue) (domain.Turn, error) {
	id, err := strAttr(item, "id")
	if err != nil {
		return domain.Turn{}, err
	}
	threadID, err := strAttr(item, "threadId")
	if err != nil {
		return domain.Turn{}, err
	}
	role, err := strAttr(item, "role")
	if err != nil {
		return domain.Turn{}, err
	}
	createdAt, err := timeAttr(item, "createdAt")
	if err != nil {
		return domain.Turn{}, err
	}
	return domain.Turn{
		ID:               id,
		ThreadID:         threadID,
		SessionID:        optStrAttr(item, "sessionId"),
		Role:             domain.Role(role),
		Text:             optStrAttr(item, "text"),
		Query:            optStrAttr(item, "userQuery"),
		State:            domain.DialogueState(optStrAttr(item, "state")),
		Escalated:        boolAttr(item, "escalated"),
		ResolutionStatus: domain.ResolutionStatus(optStrAttr(item, "resolutionStatus")),
		CreatedAt:        createdAt,
	}, nil
}

func itemsToTurns(items []map[string]types.AttributeValue, op string) ([]domain.Turn, error) {
	turns := make([]domain.Turn, 0, len(items))
	for _, item := range items {
		t, err := itemToTurn(item)
		if err != nil {
			return nil, fmt.Errorf("repository: %s unmarshal: %w", op, err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}
