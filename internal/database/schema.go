package database

import (
	"time"

	"gorm.io/datatypes"
)

// Conversation is one turn of the chat log. Seq gives the exact insertion
// order, which created_at alone cannot guarantee.
type Conversation struct {
	Seq              uint64 `gorm:"primaryKey;autoIncrement;index:idx_conversations_thread_seq,priority:2"`
	ID               string `gorm:"size:36;uniqueIndex;not null"`
	ThreadID         string `gorm:"size:128;not null;index:idx_conversations_thread_seq,priority:1"`
	SessionID        string `gorm:"size:128;not null;index"`
	Role             string `gorm:"size:10;not null"`
	Text             string `gorm:"not null"`
	UserQuery        string
	State            string    `gorm:"size:32"`
	EscalationFlag   bool      `gorm:"not null;default:false;index"`
	ResolutionStatus string    `gorm:"size:20"`
	CreatedAt        time.Time `gorm:"not null"`
}

type Order struct {
	OrderID          string         `gorm:"primaryKey;size:32"`
	Status           string         `gorm:"size:32;not null"`
	ExpectedDelivery string         `gorm:"size:32"`
	DeliveredOn      string         `gorm:"size:32"`
	Items            datatypes.JSON // []domain.OrderItem
	CreatedAt        time.Time
}

type Refund struct {
	Seq       uint64 `gorm:"primaryKey;autoIncrement"`
	RefundID  string `gorm:"size:36;uniqueIndex;not null"`
	OrderID   string `gorm:"size:32;not null;index"`
	Reason    string
	Status    string    `gorm:"size:20;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

type FAQ struct {
	ID       uint   `gorm:"primaryKey"`
	Intent   string `gorm:"size:64;not null;uniqueIndex:idx_faq_intent_question,priority:1"`
	Question string `gorm:"size:512;not null;uniqueIndex:idx_faq_intent_question,priority:2"`
	Answer   string `gorm:"not null"`
	Position int    `gorm:"not null;default:0;index"`
}

// Override the default name, which is "faqs".
func (FAQ) TableName() string {
	return "faq"
}
