package conversation

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethanbaker/mentor/pkg/conversation"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Messages is a wrapper type that implements database serialization for a transcript
type Messages []conversation.Turn

// Value implements the driver.Valuer interface for database storage
func (m Messages) Value() (driver.Value, error) {
	if m == nil {
		return "[]", nil
	}

	b, err := json.Marshal([]conversation.Turn(m))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database retrieval
func (m *Messages) Scan(value any) error {
	if value == nil {
		*m = Messages{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Messages", value)
	}

	var turns []conversation.Turn
	if err := json.Unmarshal(bytes, &turns); err != nil {
		return fmt.Errorf("failed to unmarshal Messages: %w", err)
	}

	*m = turns
	return nil
}

// Row is the GORM model for a stored conversation
type Row struct {
	ID        uuid.UUID      `json:"id" gorm:"type:char(36);primaryKey;unique;not null"`
	CreatedAt time.Time      `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"column:updated_at;index"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"column:deleted_at;index"`

	OwnerID     string   `json:"owner_id" gorm:"size:255;not null;index:idx_owner_context"`
	ContextType string   `json:"context_type" gorm:"size:64;not null;index:idx_owner_context"`
	ContextID   string   `json:"context_id" gorm:"size:255;index:idx_owner_context"`
	Title       string   `json:"title" gorm:"size:255"`
	Messages    Messages `json:"messages" gorm:"column:messages;type:text;not null"`
}

// TableName specifies the database table name for GORM
func (Row) TableName() string {
	return "mentor_conversations"
}

// toRecord converts the row to its domain form
func (r *Row) toRecord() *conversation.Record {
	return &conversation.Record{
		ID:    r.ID.String(),
		Owner: r.OwnerID,
		Context: conversation.Context{
			Type: conversation.ContextType(r.ContextType),
			ID:   r.ContextID,
		},
		Title:     r.Title,
		Messages:  conversation.CloneTurns(r.Messages),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
