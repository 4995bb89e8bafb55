// Package domain holds the conversation aggregate: a document's text, the
// concepts derived from it, and the role-prefixed dialogue history.
package domain

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

const (
	RoleUser  = "User"
	RoleAgent = "Agent"

	// MaxProgress is the cap for per-concept teaching progress.
	MaxProgress = 100
)

// ErrMalformed marks records that cannot be deserialized into a valid
// aggregate (missing required fields, malformed id).
var ErrMalformed = errors.New("malformed record")

// SubConcept is a finer-grained teachable unit nested under a Concept.
// Connections name related sub-concepts; referential integrity is not
// enforced, dangling names are allowed.
type SubConcept struct {
	Name        string   `json:"name"`
	Connections []string `json:"connections"`
}

func NewSubConcept(name string, connections []string) SubConcept {
	if connections == nil {
		connections = []string{}
	}
	return SubConcept{Name: name, Connections: connections}
}

func (sc *SubConcept) UnmarshalJSON(b []byte) error {
	var aux struct {
		Name        *string  `json:"name"`
		Connections []string `json:"connections"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if aux.Name == nil {
		return fmt.Errorf("%w: subConcept missing name", ErrMalformed)
	}
	sc.Name = *aux.Name
	sc.Connections = aux.Connections
	if sc.Connections == nil {
		sc.Connections = []string{}
	}
	return nil
}

// Concept is a teachable unit derived from the document, tracked with a
// progress score in [0, MaxProgress].
type Concept struct {
	Name        string       `json:"name"`
	Progress    int          `json:"progress"`
	SubConcepts []SubConcept `json:"subConcepts"`
}

func NewConcept(name string) Concept {
	return Concept{Name: name, Progress: 0, SubConcepts: []SubConcept{}}
}

// AdvanceProgress raises progress by delta, clamped at MaxProgress.
// Progress never decreases; non-positive deltas are ignored.
func (c *Concept) AdvanceProgress(delta int) {
	if delta <= 0 {
		return
	}
	c.Progress += delta
	if c.Progress > MaxProgress {
		c.Progress = MaxProgress
	}
}

func (c *Concept) UnmarshalJSON(b []byte) error {
	var aux struct {
		Name        *string      `json:"name"`
		Progress    *int         `json:"progress"`
		SubConcepts []SubConcept `json:"subConcepts"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if aux.Name == nil {
		return fmt.Errorf("%w: concept missing name", ErrMalformed)
	}
	c.Name = *aux.Name
	c.Progress = 0
	if aux.Progress != nil {
		c.Progress = *aux.Progress
	}
	c.SubConcepts = aux.SubConcepts
	if c.SubConcepts == nil {
		c.SubConcepts = []SubConcept{}
	}
	return nil
}

// Conversation is the aggregate root. The id is assigned at creation and
// immutable; documentText is set once from the uploaded document; history
// is append-only with role-prefixed entries.
type Conversation struct {
	ID                  uuid.UUID `json:"id"`
	DocumentText        string    `json:"documentText"`
	Concepts            []Concept `json:"concepts"`
	ConversationHistory []string  `json:"conversationHistory"`

	// Revision is an optimistic-concurrency counter bumped on every save.
	Revision int64 `json:"revision"`
}

func NewConversation(documentText string) *Conversation {
	return &Conversation{
		ID:                  uuid.New(),
		DocumentText:        documentText,
		Concepts:            []Concept{},
		ConversationHistory: []string{},
	}
}

func (c *Conversation) AppendUser(message string) {
	c.ConversationHistory = append(c.ConversationHistory, RoleUser+": "+message)
}

func (c *Conversation) AppendAgent(message string) {
	c.ConversationHistory = append(c.ConversationHistory, RoleAgent+": "+message)
}

// ReplaceConcepts swaps the whole concept list; extraction is all-or-nothing.
func (c *Conversation) ReplaceConcepts(concepts []Concept) {
	if concepts == nil {
		concepts = []Concept{}
	}
	c.Concepts = concepts
}

// CurrentConcept returns the conversation's target concept (the first one),
// or nil when no concepts have been extracted yet.
func (c *Conversation) CurrentConcept() *Concept {
	if len(c.Concepts) == 0 {
		return nil
	}
	return &c.Concepts[0]
}

func (c *Conversation) UnmarshalJSON(b []byte) error {
	var aux struct {
		ID                  *string   `json:"id"`
		DocumentText        *string   `json:"documentText"`
		Concepts            []Concept `json:"concepts"`
		ConversationHistory []string  `json:"conversationHistory"`
		Revision            *int64    `json:"revision"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if aux.ID == nil {
		return fmt.Errorf("%w: conversation missing id", ErrMalformed)
	}
	id, err := uuid.Parse(*aux.ID)
	if err != nil {
		return fmt.Errorf("%w: conversation id %q is not a uuid", ErrMalformed, *aux.ID)
	}
	if aux.DocumentText == nil {
		return fmt.Errorf("%w: conversation missing documentText", ErrMalformed)
	}

	c.ID = id
	c.DocumentText = *aux.DocumentText
	c.Concepts = aux.Concepts
	if c.Concepts == nil {
		c.Concepts = []Concept{}
	}
	c.ConversationHistory = aux.ConversationHistory
	if c.ConversationHistory == nil {
		c.ConversationHistory = []string{}
	}
	if aux.Revision != nil {
		c.Revision = *aux.Revision
	} else {
		c.Revision = 0
	}
	return nil
}
