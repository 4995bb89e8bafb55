package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/teachback/teachback-backend/internal/data/store"
	"github.com/teachback/teachback-backend/internal/domain"
	"github.com/teachback/teachback-backend/internal/platform/apierr"
	"github.com/teachback/teachback-backend/internal/platform/keylock"
	"github.com/teachback/teachback-backend/internal/platform/logger"
	"github.com/teachback/teachback-backend/internal/platform/openai"
)

// AdvanceResult is one completed dialogue turn: the agent's reply plus the
// updated concept list.
type AdvanceResult struct {
	Response string
	Concepts []domain.Concept
}

type ConversationService interface {
	// Advance records one teaching turn: appends the user message and the
	// generated agent reply, bumps every concept's progress, and persists.
	// Nothing is persisted if reply generation fails.
	Advance(ctx context.Context, id string, userMessage string) (*AdvanceResult, error)

	// StartConversation generates the opening question for a concept. The
	// caller seeds the conversation history with the returned text.
	StartConversation(ctx context.Context, documentText string, conceptName string) (string, error)
}

type conversationService struct {
	log    *logger.Logger
	store  store.ConversationStore
	llm    openai.Client
	scorer ProgressScorer
	locks  *keylock.KeyedMutex
}

func NewConversationService(
	log *logger.Logger,
	convStore store.ConversationStore,
	llm openai.Client,
	scorer ProgressScorer,
	locks *keylock.KeyedMutex,
) ConversationService {
	return &conversationService{
		log:    log.With("service", "ConversationService"),
		store:  convStore,
		llm:    llm,
		scorer: scorer,
		locks:  locks,
	}
}

func (s *conversationService) Advance(ctx context.Context, id string, userMessage string) (*AdvanceResult, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apierr.Validation(errors.New("missing conversation id"))
	}
	if strings.TrimSpace(userMessage) == "" {
		return nil, apierr.Validation(errors.New("missing message"))
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	conv, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	conceptName := ""
	if cur := conv.CurrentConcept(); cur != nil {
		conceptName = cur.Name
	}

	temp := 0.5
	reply, err := s.llm.Generate(ctx, buildFollowUpPrompt(conv.DocumentText, conceptName), openai.GenerateOptions{Temperature: &temp})
	if err != nil {
		// All-or-nothing: the user turn is not persisted either.
		return nil, apierr.GenerationFailed(fmt.Errorf("generating reply for conversation %s: %w", id, err))
	}
	reply = strings.TrimSpace(reply)

	conv.AppendUser(userMessage)
	conv.AppendAgent(reply)
	for i := range conv.Concepts {
		conv.Concepts[i].AdvanceProgress(s.scorer.Score(conv, &conv.Concepts[i], userMessage))
	}

	if err := s.store.Save(ctx, conv); err != nil {
		return nil, err
	}

	s.log.Debug("Advanced conversation",
		"conversation_id", id,
		"target_concept", conceptName,
		"history_len", len(conv.ConversationHistory),
	)
	return &AdvanceResult{Response: reply, Concepts: conv.Concepts}, nil
}

func (s *conversationService) StartConversation(ctx context.Context, documentText string, conceptName string) (string, error) {
	temp := 0.5
	opening, err := s.llm.Generate(ctx, buildOpeningQuestionPrompt(documentText, conceptName), openai.GenerateOptions{Temperature: &temp})
	if err != nil {
		return "", apierr.GenerationFailed(fmt.Errorf("generating opening question for %q: %w", conceptName, err))
	}
	return strings.TrimSpace(opening), nil
}
