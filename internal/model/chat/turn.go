package chat

import "time"

// Roles a turn may carry.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one persisted message inside a conversation. Turns are immutable
// once written; history is totally ordered by created_at with insertion
// order breaking ties.
type Turn struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID string    `gorm:"size:36;index;not null" json:"conversationId"`
	Role           string    `gorm:"size:16;not null" json:"role"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	Attachment     string    `gorm:"size:255" json:"attachment,omitempty"`
	CreatedAt      time.Time `gorm:"index;not null" json:"createdAt"`
}

// TurnView is the projection of a turn shared with clients and prompt
// construction.
type TurnView struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// View strips the persistence fields from a turn.
func (t Turn) View() TurnView {
	return TurnView{Role: t.Role, Content: t.Content}
}
