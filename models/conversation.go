package models

import "time"

// Conversation is a detached snapshot of a stored conversation. Messages are
// sorted newest-first when materialized. LastMessage and LastMessageTime are
// denormalized preview fields populated at creation time only; callers that
// need a live preview should derive it from the head of Messages.
type Conversation struct {
	ID              string     `json:"id"`
	ParticipantsID  []string   `json:"participants_id"`
	Messages        []Message  `json:"messages"`
	Title           *string    `json:"title,omitempty"`
	LastMessage     *string    `json:"last_message,omitempty"`
	LastMessageTime *time.Time `json:"last_message_time,omitempty"`
}
