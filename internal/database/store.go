package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storefront-support/internal/demodata"
	"storefront-support/internal/domain"
)

// Store implements the chat service's store interfaces on a relational
// database.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("database: db must not be nil")
	}
	return &Store{db: db}, nil
}

// Migrate brings the schema up to date.
func (s *Store) Migrate() error {
	if err := GetMigrator(s.db).Migrate(); err != nil {
		return fmt.Errorf("database: migrate: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// LatestState returns the state of the thread's highest-sequence turn.
func (s *Store) LatestState(ctx context.Context, threadID string) (domain.DialogueState, error) {
	var rows []Conversation
	err := s.db.WithContext(ctx).
		Select("state").
		Where("thread_id = ?", threadID).
		Order("seq DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return domain.StateIdle, fmt.Errorf("database: latest state: %w", err)
	}
	if len(rows) == 0 {
		return domain.StateIdle, nil
	}
	return domain.DialogueState(rows[0].State), nil
}

func (s *Store) AppendTurn(ctx context.Context, t domain.Turn) error {
	row := Conversation{
		ID:               t.ID,
		ThreadID:         t.ThreadID,
		SessionID:        t.SessionID,
		Role:             string(t.Role),
		Text:             t.Text,
		UserQuery:        t.Query,
		State:            string(t.State),
		EscalationFlag:   t.Escalated,
		ResolutionStatus: string(t.ResolutionStatus),
		CreatedAt:        t.CreatedAt.UTC(),
	}
	if row.EscalationFlag && row.ResolutionStatus == "" {
		row.ResolutionStatus = string(domain.ResolutionOpen)
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("database: append turn: %w", err)
	}
	return nil
}

// ListEscalations returns escalated turns newest first.
func (s *Store) ListEscalations(ctx context.Context, status domain.ResolutionStatus, limit int) ([]domain.Turn, error) {
	q := s.db.WithContext(ctx).Where("escalation_flag = ?", true)
	if status != "" {
		q = q.Where("resolution_status = ?", string(status))
	}
	var rows []Conversation
	if err := q.Order("created_at DESC").Order("seq DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("database: list escalations: %w", err)
	}
	return toTurns(rows), nil
}

func (s *Store) SessionHistory(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error) {
	var rows []Conversation
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("seq ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("database: session history: %w", err)
	}
	return toTurns(rows), nil
}

// UpdateResolution only touches escalated turns.
func (s *Store) UpdateResolution(ctx context.Context, turnID string, status domain.ResolutionStatus) error {
	res := s.db.WithContext(ctx).
		Model(&Conversation{}).
		Where("id = ? AND escalation_flag = ?", turnID, true).
		Update("resolution_status", string(status))
	if res.Error != nil {
		return fmt.Errorf("database: update resolution: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	var rows []Order
	if err := s.db.WithContext(ctx).Where("order_id = ?", orderID).Limit(1).Find(&rows).Error; err != nil {
		return domain.Order{}, fmt.Errorf("database: get order: %w", err)
	}
	if len(rows) == 0 {
		return domain.Order{}, domain.ErrNotFound
	}
	return toOrder(rows[0])
}

func (s *Store) ListOrders(ctx context.Context, limit int) ([]domain.Order, error) {
	var rows []Order
	if err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("database: list orders: %w", err)
	}
	orders := make([]domain.Order, 0, len(rows))
	for _, r := range rows {
		o, err := toOrder(r)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func (s *Store) PutOrder(ctx context.Context, o domain.Order) error {
	if o.Items == nil {
		o.Items = []domain.OrderItem{}
	}
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("database: marshal order items: %w", err)
	}
	row := Order{
		OrderID:          o.OrderID,
		Status:           o.Status,
		ExpectedDelivery: o.ExpectedDelivery,
		DeliveredOn:      o.DeliveredOn,
		Items:            items,
		CreatedAt:        o.CreatedAt.UTC(),
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("database: put order: %w", err)
	}
	return nil
}

func (s *Store) LatestRefund(ctx context.Context, orderID string) (domain.Refund, error) {
	var rows []Refund
	err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Order("seq DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return domain.Refund{}, fmt.Errorf("database: latest refund: %w", err)
	}
	if len(rows) == 0 {
		return domain.Refund{}, domain.ErrNotFound
	}
	r := rows[0]
	return domain.Refund{RefundID: r.RefundID, OrderID: r.OrderID, Reason: r.Reason, Status: r.Status, CreatedAt: r.CreatedAt.UTC()}, nil
}

func (s *Store) CreateRefund(ctx context.Context, r domain.Refund) error {
	row := Refund{
		RefundID:  r.RefundID,
		OrderID:   r.OrderID,
		Reason:    r.Reason,
		Status:    r.Status,
		CreatedAt: r.CreatedAt.UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("database: create refund: %w", err)
	}
	return nil
}

const faqOrder = "position ASC, question ASC"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// FindFAQByQuestion returns the first entry, in FAQ order, whose question
// contains text, ignoring case.
func (s *Store) FindFAQByQuestion(ctx context.Context, text string) (domain.FAQEntry, error) {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return domain.FAQEntry{}, domain.ErrNotFound
	}
	pattern := "%" + likeEscaper.Replace(needle) + "%"
	return s.findFAQ(ctx, "LOWER(question) LIKE ? ESCAPE '\\'", pattern)
}

func (s *Store) FindFAQByIntent(ctx context.Context, intent string) (domain.FAQEntry, error) {
	return s.findFAQ(ctx, "intent = ?", intent)
}

func (s *Store) findFAQ(ctx context.Context, cond string, arg any) (domain.FAQEntry, error) {
	var rows []FAQ
	if err := s.db.WithContext(ctx).Where(cond, arg).Order(faqOrder).Limit(1).Find(&rows).Error; err != nil {
		return domain.FAQEntry{}, fmt.Errorf("database: find faq: %w", err)
	}
	if len(rows) == 0 {
		return domain.FAQEntry{}, domain.ErrNotFound
	}
	return toFAQ(rows[0]), nil
}

func (s *Store) ListFAQ(ctx context.Context) ([]domain.FAQEntry, error) {
	var rows []FAQ
	if err := s.db.WithContext(ctx).Order(faqOrder).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("database: list faq: %w", err)
	}
	entries := make([]domain.FAQEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, toFAQ(r))
	}
	return entries, nil
}

func (s *Store) PutFAQ(ctx context.Context, e domain.FAQEntry) error {
	row := FAQ{Intent: e.Intent, Question: e.Question, Answer: e.Answer, Position: e.Position}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("database: put faq: %w", err)
	}
	return nil
}

// Seed inserts the demo FAQ entries and orders, skipping rows that exist.
func (s *Store) Seed(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(txn *gorm.DB) error {
		tx := &Store{db: txn}
		for _, e := range demodata.FAQ() {
			if err := tx.PutFAQ(ctx, e); err != nil {
				return err
			}
		}
		for _, o := range demodata.Orders() {
			if err := tx.PutOrder(ctx, o); err != nil {
				return err
			}
		}
		return nil
	})
}

func toTurns(rows []Conversation) []domain.Turn {
	turns := make([]domain.Turn, 0, len(rows))
	for _, r := range rows {
		turns = append(turns, domain.Turn{
			ID:               r.ID,
			ThreadID:         r.ThreadID,
			SessionID:        r.SessionID,
			Role:             domain.Role(r.Role),
			Text:             r.Text,
			Query:            r.UserQuery,
			State:            domain.DialogueState(r.State),
			Escalated:        r.EscalationFlag,
			ResolutionStatus: domain.ResolutionStatus(r.ResolutionStatus),
			CreatedAt:        r.CreatedAt.UTC(),
		})
	}
	return turns
}

func toOrder(r Order) (domain.Order, error) {
	o := domain.Order{
		OrderID:          r.OrderID,
		Status:           r.Status,
		ExpectedDelivery: r.ExpectedDelivery,
		DeliveredOn:      r.DeliveredOn,
		Items:            []domain.OrderItem{},
		CreatedAt:        r.CreatedAt.UTC(),
	}
	if len(r.Items) > 0 {
		if err := json.Unmarshal(r.Items, &o.Items); err != nil {
			return domain.Order{}, fmt.Errorf("database: invalid items JSON for order %s: %w", r.OrderID, err)
		}
	}
	return o, nil
}

func toFAQ(r FAQ) domain.FAQEntry {
	return domain.FAQEntry{Intent: r.Intent, Question: r.Question, Answer: r.Answer, Position: r.Position}
}
