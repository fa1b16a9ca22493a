package database

import (
	"fmt"
	"log/slog"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"storefront-support/internal/demodata"
)

const threadSeqIndex = "idx_conversations_thread_seq"

func migrations() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			ID: "0",
			Migrate: func(txn *gorm.DB) error {
				return txn.AutoMigrate(&Conversation{}, &Order{}, &Refund{}, &FAQ{})
			},
		},
		{
			ID:       "1",
			Migrate:  addThreadSeqIndex,
			Rollback: dropThreadSeqIndex,
		},
		{
			ID:       "2",
			Migrate:  addFAQPosition,
			Rollback: dropFAQPosition,
		},
	}
}

func GetMigrator(db *gorm.DB) *gormigrate.Gormigrate {
	migrator := gormigrate.New(db, gormigrate.DefaultOptions, migrations())

	migrator.InitSchema(func(txn *gorm.DB) error {
		// Runs on a clean database instead of replaying every migration.
		slog.Info("clean database detected, running full schema initialization")
		return txn.AutoMigrate(&Conversation{}, &Order{}, &Refund{}, &FAQ{})
	})

	return migrator
}

func addThreadSeqIndex(txn *gorm.DB) error {
	if txn.Migrator().HasIndex(&Conversation{}, threadSeqIndex) {
		return nil
	}
	if err := txn.Migrator().CreateIndex(&Conversation{}, threadSeqIndex); err != nil {
		return fmt.Errorf("error creating %s: %w", threadSeqIndex, err)
	}
	return nil
}

func dropThreadSeqIndex(txn *gorm.DB) error {
	if err := txn.Migrator().DropIndex(&Conversation{}, threadSeqIndex); err != nil {
		return fmt.Errorf("error dropping %s: %w", threadSeqIndex, err)
	}
	return nil
}

// addFAQPosition adds the match-order column and backfills it for the demo
// entries seeded before the column existed.
func addFAQPosition(txn *gorm.DB) error {
	if !txn.Migrator().HasColumn(&FAQ{}, "Position") {
		if err := txn.Migrator().AddColumn(&FAQ{}, "Position"); err != nil {
			return fmt.Errorf("error adding faq.position: %w", err)
		}
	}
	for _, e := range demodata.FAQ() {
		err := txn.Model(&FAQ{}).
			Where("intent = ? AND question = ? AND position = 0", e.Intent, e.Question).
			Update("position", e.Position).Error
		if err != nil {
			return fmt.Errorf("error backfilling faq.position: %w", err)
		}
	}
	return nil
}

func dropFAQPosition(txn *gorm.DB) error {
	if err := txn.Migrator().DropColumn(&FAQ{}, "Position"); err != nil {
		return fmt.Errorf("error dropping faq.position: %w", err)
	}
	return nil
}
