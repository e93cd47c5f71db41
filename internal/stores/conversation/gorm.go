package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethanbaker/mentor/pkg/conversation"
	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormStore handles conversation persistence using GORM
type GormStore struct {
	db *gorm.DB
}

// NewMySqlStore opens a MySQL-backed store
func NewMySqlStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return NewGormStore(db)
}

// NewSqliteStore opens a SQLite-backed store. Use ":memory:" for a throwaway database.
func NewSqliteStore(path string) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer at a time
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB from gorm.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return NewGormStore(db)
}

// NewGormStore wraps an open connection and migrates the conversation table
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&Row{}); err != nil {
		return nil, fmt.Errorf("failed to migrate tables: %w", err)
	}

	return &GormStore{db: db}, nil
}

// LoadMostRecent returns the latest record for an owner and context, or nil if there is none
func (s *GormStore) LoadMostRecent(ctx context.Context, owner string, c conversation.Context) (*conversation.Record, error) {
	var row Row
	result := s.scoped(ctx, owner, &c).Order("updated_at DESC").Order("created_at DESC").Limit(1).Find(&row)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to load most recent conversation: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return nil, nil
	}
	return row.toRecord(), nil
}

// Upsert creates a record or replaces the messages of an existing one
func (s *GormStore) Upsert(ctx context.Context, owner string, c conversation.Context, messages []conversation.Turn, existingID string) (*conversation.Record, error) {
	now := time.Now().UTC()

	// Create a new record when no id has been claimed yet
	if existingID == "" {
		row := &Row{
			ID:          uuid.New(),
			CreatedAt:   now,
			UpdatedAt:   now,
			OwnerID:     owner,
			ContextType: string(c.Type),
			ContextID:   c.ID,
			Title:       conversation.TitleFor(messages),
			Messages:    conversation.CloneTurns(messages),
		}

		if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
			return nil, fmt.Errorf("failed to create conversation: %w", err)
		}
		return row.toRecord(), nil
	}

	id, err := uuid.Parse(existingID)
	if err != nil {
		return nil, conversation.ErrNotFound
	}

	var row Row
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&row, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return conversation.ErrNotFound
			}
			return err
		}

		if row.OwnerID != owner {
			return conversation.ErrForbidden
		}
		if row.ContextType != string(c.Type) || row.ContextID != c.ID {
			return conversation.ErrNotFound
		}

		// Last write wins on updated_at
		row.Messages = conversation.CloneTurns(messages)
		row.Title = conversation.TitleFor(messages)
		row.UpdatedAt = now

		return tx.Model(&row).Updates(map[string]any{
			"messages":   row.Messages,
			"title":      row.Title,
			"updated_at": now,
		}).Error
	})
	if err != nil {
		if errors.Is(err, conversation.ErrNotFound) || errors.Is(err, conversation.ErrForbidden) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update conversation: %w", err)
	}

	return row.toRecord(), nil
}

// ListHistory lists an owner's records newest first
func (s *GormStore) ListHistory(ctx context.Context, owner string, c *conversation.Context, limit int) ([]*conversation.Record, error) {
	if limit <= 0 {
		limit = conversation.DefaultHistoryLimit
	}

	var rows []Row
	if err := s.scoped(ctx, owner, c).Order("updated_at DESC").Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	records := make([]*conversation.Record, 0, len(rows))
	for i := range rows {
		records = append(records, rows[i].toRecord())
	}
	return records, nil
}

// Get returns one record owned by owner
func (s *GormStore) Get(ctx context.Context, id, owner string) (*conversation.Record, error) {
	row, err := s.owned(s.db.WithContext(ctx), id, owner)
	if err != nil {
		return nil, err
	}
	return row.toRecord(), nil
}

// Delete removes a record owned by owner
func (s *GormStore) Delete(ctx context.Context, id, owner string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := s.owned(tx, id, owner)
		if err != nil {
			return err
		}

		if err := tx.Delete(row).Error; err != nil {
			return fmt.Errorf("failed to delete conversation: %w", err)
		}
		return nil
	})
}

// GetDB returns the underlying GORM database connection
func (s *GormStore) GetDB() *gorm.DB {
	return s.db
}

// Close closes the database connection
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB from gorm.DB: %w", err)
	}
	return sqlDB.Close()
}

// scoped builds a query limited to one owner and, optionally, one context
func (s *GormStore) scoped(ctx context.Context, owner string, c *conversation.Context) *gorm.DB {
	query := s.db.WithContext(ctx).Where("owner_id = ?", owner)
	if c != nil {
		query = query.Where("context_type = ? AND context_id = ?", string(c.Type), c.ID)
	}
	return query
}

// owned fetches a row and verifies it belongs to owner
func (s *GormStore) owned(db *gorm.DB, id, owner string) (*Row, error) {
	guid, err := uuid.Parse(id)
	if err != nil {
		return nil, conversation.ErrNotFound
	}

	var row Row
	if err := db.First(&row, "id = ?", guid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, conversation.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	if row.OwnerID != owner {
		return nil, conversation.ErrForbidden
	}
	return &row, nil
}
