package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/teachback/teachback-backend/internal/domain"
	"github.com/teachback/teachback-backend/internal/platform/apierr"
	"github.com/teachback/teachback-backend/internal/platform/keylock"
	"github.com/teachback/teachback-backend/internal/platform/logger"
	"github.com/teachback/teachback-backend/internal/platform/openai"
)

// memStore is an in-memory ConversationStore with the same revision
// semantics as the real stores. It counts writes so tests can assert that
// failed operations persisted nothing.
type memStore struct {
	mu    sync.Mutex
	recs  map[string][]byte
	saves int
}

func newMemStore() *memStore {
	return &memStore{recs: make(map[string][]byte)}
}

func (m *memStore) Save(_ context.Context, conv *domain.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := conv.ID.String()
	var stored int64
	if raw, ok := m.recs[id]; ok {
		var probe struct {
			Revision int64 `json:"revision"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil {
			return apierr.Corrupt(err)
		}
		stored = probe.Revision
	}
	if stored != conv.Revision {
		return apierr.Conflict(fmt.Errorf("stored revision %d, have %d", stored, conv.Revision))
	}

	next := *conv
	next.Revision = conv.Revision + 1
	raw, err := json.Marshal(&next)
	if err != nil {
		return err
	}
	m.recs[id] = raw
	conv.Revision = next.Revision
	m.saves++
	return nil
}

func (m *memStore) Load(_ context.Context, id string) (*domain.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, ok := m.recs[id]
	if !ok {
		return nil, apierr.NotFound(fmt.Errorf("no conversation with id %s", id))
	}
	var conv domain.Conversation
	if err := json.Unmarshal(raw, &conv); err != nil {
		return nil, apierr.Corrupt(err)
	}
	return &conv, nil
}

func (m *memStore) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

type llmCall struct {
	Prompt      string
	Temperature *float64
}

// fakeLLM scripts the language-model capability and records every call.
type fakeLLM struct {
	mu       sync.Mutex
	calls    []llmCall
	generate func(prompt string, opts openai.GenerateOptions) (string, error)
}

func (f *fakeLLM) Generate(_ context.Context, prompt string, opts openai.GenerateOptions) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, llmCall{Prompt: prompt, Temperature: opts.Temperature})
	f.mu.Unlock()
	return f.generate(prompt, opts)
}

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func seedConversation(t *testing.T, st *memStore, documentText string, conceptNames ...string) *domain.Conversation {
	t.Helper()
	conv := domain.NewConversation(documentText)
	concepts := make([]domain.Concept, 0, len(conceptNames))
	for _, name := range conceptNames {
		concepts = append(concepts, domain.NewConcept(name))
	}
	conv.ReplaceConcepts(concepts)
	if err := st.Save(context.Background(), conv); err != nil {
		t.Fatalf("seeding conversation: %v", err)
	}
	return conv
}

func newConversationService(st *memStore, llm openai.Client, scorer ProgressScorer) ConversationService {
	if scorer == nil {
		scorer = NewRandomScorer()
	}
	return NewConversationService(logger.NewNop(), st, llm, scorer, keylock.New())
}
