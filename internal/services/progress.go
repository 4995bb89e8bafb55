package services

import (
	"math/rand"

	"github.com/teachback/teachback-backend/internal/domain"
)

// ProgressScorer decides how much a concept's progress grows after a
// teaching turn. It is an interface so the coarse random increment can be
// swapped for a real comprehension signal without touching the state
// machine.
type ProgressScorer interface {
	Score(conv *domain.Conversation, concept *domain.Concept, userMessage string) int
}

// randomScorer draws a uniform increment in [1, 10] per concept per turn.
type randomScorer struct{}

func NewRandomScorer() ProgressScorer {
	return randomScorer{}
}

func (randomScorer) Score(_ *domain.Conversation, _ *domain.Concept, _ string) int {
	return rand.Intn(10) + 1
}
