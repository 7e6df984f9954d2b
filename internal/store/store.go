// Package store persists assessment results and advisory conversations.
// Session state lives here, never inside the pure engines: the UI layer
// creates a session, the engines transform values, the store records them.
package store

import (
	"context"

	"github.com/quantalpha/advisor-cli/internal/model"
)

// AssessmentFilter specifies criteria for listing assessments.
type AssessmentFilter struct {
	Profile model.RiskProfileName `json:"profile,omitempty"`
	Limit   int                   `json:"limit,omitempty"`
	Offset  int                   `json:"offset,omitempty"`
}

// Store defines the persistence interface for advisory sessions.
type Store interface {
	// Assessments
	CreateAssessment(ctx context.Context, a model.Assessment) (*model.Assessment, error)
	GetAssessment(ctx context.Context, id string) (*model.Assessment, error)
	ListAssessments(ctx context.Context, filter AssessmentFilter) ([]model.Assessment, error)

	// Conversations
	CreateConversation(ctx context.Context) (*model.Conversation, error)
	GetConversation(ctx context.Context, id string) (*model.Conversation, error)
	AppendMessages(ctx context.Context, conversationID string, msgs ...model.ChatMessage) error
	ListConversations(ctx context.Context, limit int) ([]model.Conversation, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
