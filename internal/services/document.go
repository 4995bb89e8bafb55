package services

import (
	"context"
	"fmt"

	"github.com/teachback/teachback-backend/internal/data/store"
	"github.com/teachback/teachback-backend/internal/domain"
	"github.com/teachback/teachback-backend/internal/platform/apierr"
	"github.com/teachback/teachback-backend/internal/platform/logger"
)

// DefaultMaxDocumentChars bounds the extracted document text; anything
// longer will not fit the extraction prompt.
const DefaultMaxDocumentChars = 100000

type DocumentService interface {
	// CreateFromUpload extracts text from an uploaded file, creates a fresh
	// conversation around it, persists it, and returns the conversation id.
	CreateFromUpload(ctx context.Context, filename string, data []byte) (string, error)
}

type documentService struct {
	log      *logger.Logger
	store    store.ConversationStore
	maxChars int
}

func NewDocumentService(log *logger.Logger, convStore store.ConversationStore, maxChars int) DocumentService {
	if maxChars <= 0 {
		maxChars = DefaultMaxDocumentChars
	}
	return &documentService{
		log:      log.With("service", "DocumentService"),
		store:    convStore,
		maxChars: maxChars,
	}
}

func (s *documentService) CreateFromUpload(ctx context.Context, filename string, data []byte) (string, error) {
	text, err := ExtractText(filename, data)
	if err != nil {
		return "", apierr.Validation(fmt.Errorf("extracting text: %w", err))
	}
	if text == "" {
		return "", apierr.Validation(fmt.Errorf("no text could be extracted from %q", filename))
	}
	if len(text) > s.maxChars {
		return "", apierr.Validation(fmt.Errorf("document text exceeds the %d character limit", s.maxChars))
	}

	conv := domain.NewConversation(text)
	if err := s.store.Save(ctx, conv); err != nil {
		return "", err
	}

	s.log.Info("Created conversation from upload",
		"conversation_id", conv.ID.String(),
		"filename", filename,
		"text_len", len(text),
	)
	return conv.ID.String(), nil
}
