package services

import (
	"context"
	"strings"
	"testing"

	"github.com/teachback/teachback-backend/internal/platform/apierr"
	"github.com/teachback/teachback-backend/internal/platform/logger"
)

func TestCreateFromUpload(t *testing.T) {
	st := newMemStore()
	svc := NewDocumentService(logger.NewNop(), st, 0)

	id, err := svc.CreateFromUpload(context.Background(), "exam.txt", []byte("Q1: define entropy."))
	if err != nil {
		t.Fatalf("CreateFromUpload: %v", err)
	}

	conv, err := st.Load(context.Background(), id)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if conv.DocumentText != "Q1: define entropy." {
		t.Fatalf("documentText=%q", conv.DocumentText)
	}
	if len(conv.Concepts) != 0 || len(conv.ConversationHistory) != 0 {
		t.Fatalf("new conversation must start empty: %+v", conv)
	}
}

func TestCreateFromUploadRejectsOversizedDocument(t *testing.T) {
	st := newMemStore()
	svc := NewDocumentService(logger.NewNop(), st, 50)

	_, err := svc.CreateFromUpload(context.Background(), "big.txt", []byte(strings.Repeat("a", 51)))
	if !apierr.HasCode(err, apierr.CodeValidation) {
		t.Fatalf("expected validation_error, got %v", err)
	}
	if st.saveCount() != 0 {
		t.Fatalf("rejected upload must not write")
	}
}

func TestCreateFromUploadRejectsUnsupportedFile(t *testing.T) {
	st := newMemStore()
	svc := NewDocumentService(logger.NewNop(), st, 0)

	_, err := svc.CreateFromUpload(context.Background(), "image.png", []byte{0x89, 'P', 'N', 'G', 0x00})
	if !apierr.HasCode(err, apierr.CodeValidation) {
		t.Fatalf("expected validation_error, got %v", err)
	}
}
