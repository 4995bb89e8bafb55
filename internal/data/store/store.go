// Package store persists conversations as one record per conversation id.
package store

import (
	"context"

	"github.com/teachback/teachback-backend/internal/domain"
)

// ConversationStore is the persistence contract for the conversation
// aggregate. Save overwrites the record for the conversation's id and bumps
// its revision; a stale in-memory revision fails with a conflict error.
// Load fails with not_found when no record exists and with corrupt_record
// when the stored record cannot be deserialized. Implementations never
// fabricate a default conversation.
type ConversationStore interface {
	Save(ctx context.Context, conv *domain.Conversation) error
	Load(ctx context.Context, id string) (*domain.Conversation, error)
}
