package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/teachback/teachback-backend/internal/data/store"
	"github.com/teachback/teachback-backend/internal/domain"
	"github.com/teachback/teachback-backend/internal/platform/apierr"
	"github.com/teachback/teachback-backend/internal/platform/keylock"
	"github.com/teachback/teachback-backend/internal/platform/logger"
	"github.com/teachback/teachback-backend/internal/platform/openai"
)

// ExtractionResult is what the HTTP layer returns from /extract/concepts.
type ExtractionResult struct {
	Concepts       []domain.Concept
	InitialMessage string
}

type ExtractionService interface {
	// ExtractConcepts derives the conversation's concepts from its document
	// text, seeds the opening agent message, and persists. All-or-nothing:
	// on any failure the stored conversation is left untouched.
	ExtractConcepts(ctx context.Context, id string) (*ExtractionResult, error)
}

type extractionService struct {
	log           *logger.Logger
	store         store.ConversationStore
	llm           openai.Client
	conversations ConversationService
	locks         *keylock.KeyedMutex
	mockMode      bool
}

func NewExtractionService(
	log *logger.Logger,
	convStore store.ConversationStore,
	llm openai.Client,
	conversations ConversationService,
	locks *keylock.KeyedMutex,
	mockMode bool,
) ExtractionService {
	return &extractionService{
		log:           log.With("service", "ExtractionService"),
		store:         convStore,
		llm:           llm,
		conversations: conversations,
		locks:         locks,
		mockMode:      mockMode,
	}
}

// extractedConcept is one entry of the model's response object, in response
// order. Question labels are opaque and kept only for traceability.
type extractedConcept struct {
	Name      string
	Questions []string
}

func (s *extractionService) ExtractConcepts(ctx context.Context, id string) (*ExtractionResult, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apierr.Validation(errors.New("missing conversation id"))
	}

	if s.mockMode {
		s.log.Warn("MOCK_UPLOAD_FLOW is on, returning canned concepts", "conversation_id", id)
		return mockExtractionResult(), nil
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	conv, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	response, err := s.llm.Generate(ctx, buildConceptExtractionPrompt(conv.DocumentText), openai.GenerateOptions{})
	if err != nil {
		return nil, apierr.ExtractionFailed(fmt.Errorf("concept extraction for conversation %s: %w", id, err))
	}

	extracted, err := parseConceptMap(response)
	if err != nil {
		return nil, apierr.ExtractionFailed(fmt.Errorf("concept extraction for conversation %s: %w", id, err))
	}

	concepts := make([]domain.Concept, 0, len(extracted))
	for _, e := range extracted {
		s.log.Debug("Extracted concept", "concept", e.Name, "questions", e.Questions)
		concepts = append(concepts, domain.NewConcept(e.Name))
	}

	initialMessage := ""
	if len(concepts) > 0 {
		initialMessage, err = s.conversations.StartConversation(ctx, conv.DocumentText, concepts[0].Name)
		if err != nil {
			return nil, err
		}
	}

	conv.ReplaceConcepts(concepts)
	if initialMessage != "" {
		conv.AppendAgent(initialMessage)
	}
	if err := s.store.Save(ctx, conv); err != nil {
		return nil, err
	}

	s.log.Info("Extracted concepts",
		"conversation_id", id,
		"concept_count", len(concepts),
	)
	return &ExtractionResult{Concepts: conv.Concepts, InitialMessage: initialMessage}, nil
}

// parseConceptMap decodes the model response as a single JSON object from
// concept name to question labels, preserving the key order of the
// response. Anything else is a shape error.
func parseConceptMap(response string) ([]extractedConcept, error) {
	dec := json.NewDecoder(strings.NewReader(stripCodeFences(response)))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("response is not valid JSON: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("response is not a JSON object (got %v)", tok)
	}

	var out []extractedConcept
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("reading concept name: %w", err)
		}
		name, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("concept name is not a string: %v", keyTok)
		}
		var questions []string
		if err := dec.Decode(&questions); err != nil {
			return nil, fmt.Errorf("concept %q: value is not an array of strings: %w", name, err)
		}
		out = append(out, extractedConcept{Name: name, Questions: questions})
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("unterminated JSON object: %w", err)
	}
	if tok, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("trailing data after JSON object: %v", tok)
	}
	return out, nil
}

// stripCodeFences unwraps a ```json ... ``` fenced response; models fence
// their output even when told not to.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func mockExtractionResult() *ExtractionResult {
	return &ExtractionResult{
		Concepts: []domain.Concept{
			{
				Name:        "Concept 1",
				Progress:    0,
				SubConcepts: []domain.SubConcept{},
			},
			{
				Name:     "Concept 2",
				Progress: 42,
				SubConcepts: []domain.SubConcept{
					domain.NewSubConcept("Natural Language Processing", []string{"Word Embeddings"}),
					domain.NewSubConcept("Word Embeddings", nil),
				},
			},
			{
				Name:     "Concept 3",
				Progress: 78,
				SubConcepts: []domain.SubConcept{
					domain.NewSubConcept("Computer Vision", []string{"Image Classification", "Object Detection"}),
					domain.NewSubConcept("Image Classification", nil),
					domain.NewSubConcept("Object Detection", nil),
				},
			},
		},
		InitialMessage: "MOCKED INITIAL MESSAGE",
	}
}
