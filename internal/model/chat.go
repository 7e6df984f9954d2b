package model

import "time"

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is a single conversation turn.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is a persisted advisory chat session. Listings populate
// MessageCount without loading Messages; a full load carries both.
type Conversation struct {
	ID           string        `json:"id"`
	Messages     []ChatMessage `json:"messages"`
	MessageCount int           `json:"message_count"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Assessment is a persisted questionnaire result: the answers given, the
// computed score, and the derived profile with its target allocation.
type Assessment struct {
	ID         string          `json:"id"`
	Answers    AnswerSet       `json:"answers"`
	Score      int             `json:"score"`
	Profile    RiskProfileName `json:"profile"`
	Allocation Allocation      `json:"allocation"`
	CreatedAt  time.Time       `json:"created_at"`
}
