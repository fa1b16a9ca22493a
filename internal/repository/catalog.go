package repository

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"storefront-support/internal/domain"
)

const (
	skOrder          = "ORDER"
	skPrefixRefund   = "REFUND#"
	skPrefixQuestion = "Q#"
	ordersBucket     = "ORDERS"
	faqBucket        = "FAQ"
)

func orderPK(orderID string) string {
	return "ORDER#" + orderID
}

func faqPK(intent string) string {
	return "FAQ#" + intent
}

// GetOrder returns domain.ErrNotFound for unknown ids.
func (c *Client) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": strValue(orderPK(orderID)),
			"SK": strValue(skOrder),
		},
	})
	if err != nil {
		return domain.Order{}, fmt.Errorf("repository: GetOrder get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.Order{}, domain.ErrNotFound
	}
	o, err := itemToOrder(out.Item)
	if err != nil {
		return domain.Order{}, fmt.Errorf("repository: GetOrder unmarshal: %w", err)
	}
	return o, nil
}

// ListOrders returns the newest orders first.
func (c *Client) ListOrders(ctx context.Context, limit int) ([]domain.Order, error) {
	items, err := c.queryAll(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		IndexName:              aws.String(gsi1),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": strValue(ordersBucket),
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            limit32(limit),
	}, limit, nil)
	if err != nil {
		return nil, fmt.Errorf("repository: ListOrders query: %w", err)
	}
	orders := make([]domain.Order, 0, len(items))
	for _, item := range items {
		o, err := itemToOrder(item)
		if err != nil {
			return nil, fmt.Errorf("repository: ListOrders unmarshal: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// PutOrder upserts an order. Used for seeding only; the chat flow never
// writes orders.
func (c *Client) PutOrder(ctx context.Context, o domain.Order) error {
	if o.OrderID == "" {
		return errors.New("repository: PutOrder: order id is required")
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = c.now()
	}
	items := make([]types.AttributeValue, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
			"sku":      strValue(it.SKU),
			"name":     strValue(it.Name),
			"quantity": numValue(int64(it.Quantity)),
		}})
	}
	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item: map[string]types.AttributeValue{
			"PK":               strValue(orderPK(o.OrderID)),
			"SK":               strValue(skOrder),
			"GSI1PK":           strValue(ordersBucket),
			"GSI1SK":           strValue(sortStamp(o.CreatedAt) + "#" + o.OrderID),
			"orderId":          strValue(o.OrderID),
			"status":           strValue(o.Status),
			"expectedDelivery": strValue(o.ExpectedDelivery),
			"deliveredOn":      strValue(o.DeliveredOn),
			"items":            &types.AttributeValueMemberL{Value: items},
			"createdAt":        strValue(o.CreatedAt.UTC().Format(time.RFC3339Nano)),
		},
	})
	if err != nil {
		return fmt.Errorf("repository: PutOrder: %w", err)
	}
	return nil
}

func itemToOrder(item map[string]types.AttributeValue) (domain.Order, error) {
	id, err := strAttr(item, "orderId")
	if err != nil {
		return domain.Order{}, err
	}
	status, err := strAttr(item, "status")
	if err != nil {
		return domain.Order{}, err
	}
	o := domain.Order{
		OrderID:          id,
		Status:           status,
		ExpectedDelivery: optStrAttr(item, "expectedDelivery"),
		DeliveredOn:      optStrAttr(item, "deliveredOn"),
		Items:            []domain.OrderItem{},
	}
	if _, ok := item["createdAt"]; ok {
		if o.CreatedAt, err = timeAttr(item, "createdAt"); err != nil {
			return domain.Order{}, err
		}
	}
	if list, ok := item["items"].(*types.AttributeValueMemberL); ok {
		for _, v := range list.Value {
			m, ok := v.(*types.AttributeValueMemberM)
			if !ok {
				return domain.Order{}, errors.New("repository: order item is not a map")
			}
			qty, err := intAttr(m.Value, "quantity")
			if err != nil {
				return domain.Order{}, err
			}
			o.Items = append(o.Items, domain.OrderItem{
				SKU:      optStrAttr(m.Value, "sku"),
				Name:     optStrAttr(m.Value, "name"),
				Quantity: qty,
			})
		}
	}
	return o, nil
}

// LatestRefund returns the newest refund recorded against the order.
func (c *Client) LatestRefund(ctx context.Context, orderID string) (domain.Refund, error) {
	out, err := c.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     strValue(orderPK(orderID)),
			":prefix": strValue(skPrefixRefund),
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
		ConsistentRead:   aws.Bool(true),
	})
	if err != nil {
		return domain.Refund{}, fmt.Errorf("repository: LatestRefund query: %w", err)
	}
	if out == nil || len(out.Items) == 0 {
		return domain.Refund{}, domain.ErrNotFound
	}
	item := out.Items[0]
	refundID, err := strAttr(item, "refundId")
	if err != nil {
		return domain.Refund{}, fmt.Errorf("repository: LatestRefund unmarshal: %w", err)
	}
	createdAt, err := timeAttr(item, "createdAt")
	if err != nil {
		return domain.Refund{}, fmt.Errorf("repository: LatestRefund unmarshal: %w", err)
	}
	return domain.Refund{
		RefundID:  refundID,
		OrderID:   orderID,
		Reason:    optStrAttr(item, "reason"),
		Status:    optStrAttr(item, "status"),
		CreatedAt: createdAt,
	}, nil
}

func (c *Client) CreateRefund(ctx context.Context, r domain.Refund) error {
	if r.RefundID == "" || r.OrderID == "" {
		return errors.New("repository: CreateRefund: refund id and order id are required")
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = c.now()
	}
	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item: map[string]types.AttributeValue{
			"PK":        strValue(orderPK(r.OrderID)),
			"SK":        strValue(skPrefixRefund + sortStamp(r.CreatedAt) + "#" + r.RefundID),
			"refundId":  strValue(r.RefundID),
			"orderId":   strValue(r.OrderID),
			"reason":    strValue(r.Reason),
			"status":    strValue(r.Status),
			"createdAt": strValue(r.CreatedAt.UTC().Format(time.RFC3339Nano)),
		},
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return fmt.Errorf("repository: CreateRefund: %w", err)
	}
	return nil
}

// FindFAQByQuestion scans the FAQ index, which holds a few dozen entries, and
// matches case-insensitively on the client. DynamoDB's contains() is
// case-sensitive.
func (c *Client) FindFAQByQuestion(ctx context.Context, text string) (domain.FAQEntry, error) {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return domain.FAQEntry{}, domain.ErrNotFound
	}
	entries, err := c.ListFAQ(ctx)
	if err != nil {
		return domain.FAQEntry{}, err
	}
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Question), needle) {
			return e, nil
		}
	}
	return domain.FAQEntry{}, domain.ErrNotFound
}

// FindFAQByIntent returns the first entry of the intent in FAQ order. The
// partition is sorted by question only, so the whole intent is read.
func (c *Client) FindFAQByIntent(ctx context.Context, intent string) (domain.FAQEntry, error) {
	items, err := c.queryAll(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     strValue(faqPK(intent)),
			":prefix": strValue(skPrefixQuestion),
		},
	}, 0, nil)
	if err != nil {
		return domain.FAQEntry{}, fmt.Errorf("repository: FindFAQByIntent query: %w", err)
	}
	entries, err := itemsToFAQ(items)
	if err != nil {
		return domain.FAQEntry{}, fmt.Errorf("repository: FindFAQByIntent unmarshal: %w", err)
	}
	if len(entries) == 0 {
		return domain.FAQEntry{}, domain.ErrNotFound
	}
	return entries[0], nil
}

// ListFAQ returns every entry in FAQ order: position, then question.
func (c *Client) ListFAQ(ctx context.Context) ([]domain.FAQEntry, error) {
	items, err := c.queryAll(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		IndexName:              aws.String(gsi1),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": strValue(faqBucket),
		},
		ScanIndexForward: aws.Bool(true),
	}, 0, nil)
	if err != nil {
		return nil, fmt.Errorf("repository: ListFAQ query: %w", err)
	}
	entries, err := itemsToFAQ(items)
	if err != nil {
		return nil, fmt.Errorf("repository: ListFAQ unmarshal: %w", err)
	}
	return entries, nil
}

// PutFAQ upserts an entry. Used for seeding.
func (c *Client) PutFAQ(ctx context.Context, e domain.FAQEntry) error {
	if e.Intent == "" || e.Question == "" {
		return errors.New("repository: PutFAQ: intent and question are required")
	}
	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item: map[string]types.AttributeValue{
			"PK":       strValue(faqPK(e.Intent)),
			"SK":       strValue(skPrefixQuestion + e.Question),
			"GSI1PK":   strValue(faqBucket),
			"GSI1SK":   strValue(faqSortKey(e)),
			"intent":   strValue(e.Intent),
			"question": strValue(e.Question),
			"answer":   strValue(e.Answer),
			"position": numValue(int64(e.Position)),
		},
	})
	if err != nil {
		return fmt.Errorf("repository: PutFAQ: %w", err)
	}
	return nil
}

func itemToFAQ(item map[string]types.AttributeValue) (domain.FAQEntry, error) {
	question, err := strAttr(item, "question")
	if err != nil {
		return domain.FAQEntry{}, err
	}
	answer, err := strAttr(item, "answer")
	if err != nil {
		return domain.FAQEntry{}, err
	}
	e := domain.FAQEntry{Intent: optStrAttr(item, "intent"), Question: question, Answer: answer}
	// Items written before positions existed sort first, like the SQL default.
	if _, ok := item["position"]; ok {
		if e.Position, err = intAttr(item, "position"); err != nil {
			return domain.FAQEntry{}, err
		}
	}
	return e, nil
}

// itemsToFAQ decodes and sorts items in FAQ order. GSI1SK already sorts this
// way for new items; the sort covers rows written with the old key.
func itemsToFAQ(items []map[string]types.AttributeValue) ([]domain.FAQEntry, error) {
	entries := make([]domain.FAQEntry, 0, len(items))
	for _, item := range items {
		e, err := itemToFAQ(item)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	slices.SortStableFunc(entries, compareFAQ)
	return entries, nil
}

func compareFAQ(a, b domain.FAQEntry) int {
	if c := cmp.Compare(a.Position, b.Position); c != 0 {
		return c
	}
	return cmp.Compare(a.Question, b.Question)
}

func faqSortKey(e domain.FAQEntry) string {
	return fmt.Sprintf("%06d#%s", e.Position, e.Question)
}
