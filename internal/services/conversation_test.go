package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/teachback/teachback-backend/internal/domain"
	"github.com/teachback/teachback-backend/internal/platform/apierr"
	"github.com/teachback/teachback-backend/internal/platform/openai"
)

type fixedScorer struct{ delta int }

func (f fixedScorer) Score(_ *domain.Conversation, _ *domain.Concept, _ string) int {
	return f.delta
}

func TestAdvanceAppendsUserThenAgent(t *testing.T) {
	st := newMemStore()
	conv := seedConversation(t, st, "exam text", "Recursion", "Graphs")

	llm := &fakeLLM{generate: func(prompt string, _ openai.GenerateOptions) (string, error) {
		return "  Why does recursion need a base case?\n", nil
	}}
	svc := newConversationService(st, llm, fixedScorer{delta: 5})

	res, err := svc.Advance(context.Background(), conv.ID.String(), "Recursion calls itself")
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if res.Response != "Why does recursion need a base case?" {
		t.Fatalf("response=%q", res.Response)
	}

	got, err := st.Load(context.Background(), conv.ID.String())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	wantHistory := []string{
		"User: Recursion calls itself",
		"Agent: Why does recursion need a base case?",
	}
	if len(got.ConversationHistory) != 2 ||
		got.ConversationHistory[0] != wantHistory[0] ||
		got.ConversationHistory[1] != wantHistory[1] {
		t.Fatalf("history=%#v, want %#v", got.ConversationHistory, wantHistory)
	}
	for _, c := range got.Concepts {
		if c.Progress != 5 {
			t.Fatalf("concept %q progress=%d, want 5", c.Name, c.Progress)
		}
	}
	if len(res.Concepts) != 2 || res.Concepts[0].Progress != 5 {
		t.Fatalf("result concepts=%+v", res.Concepts)
	}
}

func TestAdvanceTargetsFirstConcept(t *testing.T) {
	st := newMemStore()
	conv := seedConversation(t, st, "exam text", "Sorting", "Hashing")

	llm := &fakeLLM{generate: func(prompt string, _ openai.GenerateOptions) (string, error) {
		return "ok", nil
	}}
	svc := newConversationService(st, llm, fixedScorer{delta: 1})

	if _, err := svc.Advance(context.Background(), conv.ID.String(), "hi"); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	if len(llm.calls) != 1 {
		t.Fatalf("llm calls=%d, want 1", len(llm.calls))
	}
	call := llm.calls[0]
	if !strings.Contains(call.Prompt, "'Sorting'") {
		t.Fatalf("prompt does not target first concept:\n%s", call.Prompt)
	}
	if !strings.Contains(call.Prompt, "exam text") {
		t.Fatalf("prompt is missing the document text:\n%s", call.Prompt)
	}
	if call.Temperature == nil || *call.Temperature != 0.5 {
		t.Fatalf("temperature=%v, want 0.5", call.Temperature)
	}
}

func TestAdvanceUnknownIDIsNotFoundAndWritesNothing(t *testing.T) {
	st := newMemStore()
	llm := &fakeLLM{generate: func(string, openai.GenerateOptions) (string, error) {
		t.Fatal("llm must not be called for an unknown conversation")
		return "", nil
	}}
	svc := newConversationService(st, llm, nil)

	_, err := svc.Advance(context.Background(), uuid.NewString(), "hello")
	if !apierr.HasCode(err, apierr.CodeNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
	if st.saveCount() != 0 {
		t.Fatalf("expected no writes, got %d", st.saveCount())
	}
}

func TestAdvanceValidatesInput(t *testing.T) {
	st := newMemStore()
	svc := newConversationService(st, &fakeLLM{generate: func(string, openai.GenerateOptions) (string, error) {
		return "", nil
	}}, nil)

	cases := []struct {
		name    string
		id      string
		message string
	}{
		{name: "empty_id", id: "", message: "hi"},
		{name: "empty_message", id: uuid.NewString(), message: "   "},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Advance(context.Background(), tc.id, tc.message)
			if !apierr.HasCode(err, apierr.CodeValidation) {
				t.Fatalf("expected validation_error, got %v", err)
			}
		})
	}
}

func TestAdvanceGenerationFailureRollsBackEverything(t *testing.T) {
	st := newMemStore()
	conv := seedConversation(t, st, "exam text", "Trees")
	savesBefore := st.saveCount()

	llm := &fakeLLM{generate: func(string, openai.GenerateOptions) (string, error) {
		return "", errors.New("provider down")
	}}
	svc := newConversationService(st, llm, nil)

	_, err := svc.Advance(context.Background(), conv.ID.String(), "a tree has nodes")
	if !apierr.HasCode(err, apierr.CodeGenerationFailed) {
		t.Fatalf("expected generation_failed, got %v", err)
	}
	if st.saveCount() != savesBefore {
		t.Fatalf("expected no new writes on failure")
	}

	got, err := st.Load(context.Background(), conv.ID.String())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.ConversationHistory) != 0 {
		t.Fatalf("history must stay empty on rollback, got %#v", got.ConversationHistory)
	}
	if got.Concepts[0].Progress != 0 {
		t.Fatalf("progress must stay 0 on rollback, got %d", got.Concepts[0].Progress)
	}
}

func TestProgressInvariantsOverManyAdvances(t *testing.T) {
	st := newMemStore()
	conv := seedConversation(t, st, "exam text", "A", "B", "C")

	llm := &fakeLLM{generate: func(string, openai.GenerateOptions) (string, error) {
		return "next question", nil
	}}
	svc := newConversationService(st, llm, NewRandomScorer())

	prev := make(map[string]int)
	for turn := 0; turn < 40; turn++ {
		res, err := svc.Advance(context.Background(), conv.ID.String(), "teaching turn")
		if err != nil {
			t.Fatalf("Advance %d: %v", turn, err)
		}
		for _, c := range res.Concepts {
			if c.Progress < 0 || c.Progress > domain.MaxProgress {
				t.Fatalf("turn %d: concept %q progress out of range: %d", turn, c.Name, c.Progress)
			}
			if c.Progress < prev[c.Name] {
				t.Fatalf("turn %d: concept %q progress decreased %d -> %d", turn, c.Name, prev[c.Name], c.Progress)
			}
			prev[c.Name] = c.Progress
		}
	}
	// 40 turns at a minimum increment of 1 may legitimately stop short of
	// the cap, but every concept must have moved.
	for name, p := range prev {
		if p == 0 {
			t.Fatalf("concept %q never progressed", name)
		}
	}
}

func TestAdvanceWithNoConceptsStillWorks(t *testing.T) {
	st := newMemStore()
	conv := seedConversation(t, st, "exam text")

	llm := &fakeLLM{generate: func(prompt string, _ openai.GenerateOptions) (string, error) {
		return "tell me more", nil
	}}
	svc := newConversationService(st, llm, nil)

	res, err := svc.Advance(context.Background(), conv.ID.String(), "hello")
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if res.Response != "tell me more" {
		t.Fatalf("response=%q", res.Response)
	}
	if len(res.Concepts) != 0 {
		t.Fatalf("concepts=%+v, want empty", res.Concepts)
	}
}

func TestStartConversation(t *testing.T) {
	st := newMemStore()
	llm := &fakeLLM{generate: func(prompt string, _ openai.GenerateOptions) (string, error) {
		if !strings.Contains(prompt, "'Bayes Theorem'") {
			t.Errorf("prompt does not mention the concept:\n%s", prompt)
		}
		return " What does Bayes' theorem let us update? ", nil
	}}
	svc := newConversationService(st, llm, nil)

	got, err := svc.StartConversation(context.Background(), "exam text", "Bayes Theorem")
	if err != nil {
		t.Fatalf("StartConversation: %v", err)
	}
	if got != "What does Bayes' theorem let us update?" {
		t.Fatalf("got %q", got)
	}
}

func TestStartConversationGenerationFailure(t *testing.T) {
	st := newMemStore()
	llm := &fakeLLM{generate: func(string, openai.GenerateOptions) (string, error) {
		return "", errors.New("quota exceeded")
	}}
	svc := newConversationService(st, llm, nil)

	_, err := svc.StartConversation(context.Background(), "doc", "Concept")
	if !apierr.HasCode(err, apierr.CodeGenerationFailed) {
		t.Fatalf("expected generation_failed, got %v", err)
	}
}
