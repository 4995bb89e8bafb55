package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/teachback/teachback-backend/internal/domain"
	"github.com/teachback/teachback-backend/internal/platform/apierr"
	"github.com/teachback/teachback-backend/internal/platform/logger"
)

// conversationRecord is the persisted row shape: the whole serialized
// aggregate lives in a JSON column, keyed by the conversation id.
type conversationRecord struct {
	ID        string         `gorm:"primaryKey;column:id"`
	Document  datatypes.JSON `gorm:"column:document"`
	Revision  int64          `gorm:"column:revision"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (conversationRecord) TableName() string { return "conversations" }

// SQLiteStore persists conversations in a local SQLite database through
// gorm. The revision check happens in the UPDATE's WHERE clause, so a
// stale writer loses instead of silently overwriting.
type SQLiteStore struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSQLiteStore(path string, log *logger.Logger) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		path = "teachback.db"
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db %q: %w", path, err)
	}
	if err := db.AutoMigrate(&conversationRecord{}); err != nil {
		return nil, fmt.Errorf("migrating conversations table: %w", err)
	}
	return &SQLiteStore{db: db, log: log.With("store", "SQLiteStore")}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, conv *domain.Conversation) error {
	if conv == nil || conv.ID == uuid.Nil {
		return apierr.Validation(errors.New("conversation has no id"))
	}

	next := *conv
	next.Revision = conv.Revision + 1
	raw, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("serializing conversation %s: %w", conv.ID, err)
	}

	id := conv.ID.String()
	now := time.Now().UTC()

	res := s.db.WithContext(ctx).
		Model(&conversationRecord{}).
		Where("id = ? AND revision = ?", id, conv.Revision).
		Updates(map[string]any{
			"document":   datatypes.JSON(raw),
			"revision":   next.Revision,
			"updated_at": now,
		})
	if res.Error != nil {
		return fmt.Errorf("updating conversation %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Model(&conversationRecord{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("checking conversation %s: %w", id, err)
		}
		if count > 0 {
			return apierr.Conflict(fmt.Errorf("conversation %s: revision %d is stale", id, conv.Revision))
		}
		rec := conversationRecord{
			ID:        id,
			Document:  datatypes.JSON(raw),
			Revision:  next.Revision,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
			return fmt.Errorf("inserting conversation %s: %w", id, err)
		}
	}

	conv.Revision = next.Revision
	s.log.Debug("Saved conversation", "conversation_id", id, "revision", conv.Revision)
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, id string) (*domain.Conversation, error) {
	if _, err := uuid.Parse(strings.TrimSpace(id)); err != nil {
		return nil, apierr.Validation(fmt.Errorf("conversation id %q is not a uuid", id))
	}

	var rec conversationRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound(fmt.Errorf("no conversation with id %s", id))
		}
		return nil, fmt.Errorf("loading conversation %s: %w", id, err)
	}

	var conv domain.Conversation
	if err := json.Unmarshal(rec.Document, &conv); err != nil {
		return nil, apierr.Corrupt(fmt.Errorf("conversation %s: %w", id, err))
	}
	return &conv, nil
}
