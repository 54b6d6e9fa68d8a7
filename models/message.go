package models

import "time"

// MessageType is derived from the shape of the message content, never
// supplied by callers directly.
type MessageType string

const (
	MessageTypeText    MessageType = "text"
	MessageTypeImage   MessageType = "image"
	MessageTypeUnknown MessageType = "unknown"
)

// ParseMessageType maps a stored raw value back to a MessageType, falling
// back to unknown for anything unrecognised.
func ParseMessageType(raw string) MessageType {
	switch MessageType(raw) {
	case MessageTypeText, MessageTypeImage:
		return MessageType(raw)
	default:
		return MessageTypeUnknown
	}
}

// Content carries the payload of a message. Exactly one of Text or ImageURLs
// is expected to be populated; when both are, the text wins for
// classification purposes.
type Content struct {
	Text      *string  `json:"text,omitempty"`
	ImageURLs []string `json:"image_urls,omitempty"`
}

// InferType classifies content by which fields are non-empty.
func (c Content) InferType() MessageType {
	if c.Text != nil && *c.Text != "" {
		return MessageTypeText
	}
	if len(c.ImageURLs) > 0 {
		return MessageTypeImage
	}
	return MessageTypeUnknown
}

// Message is a detached snapshot of a stored message. ConversationID and
// SenderID are nullable; a message with an unknown sender is representable.
type Message struct {
	ID             string      `json:"id"`
	Type           MessageType `json:"type"`
	ConversationID *string     `json:"conversation_id,omitempty"`
	SenderID       *string     `json:"sender_id,omitempty"`
	Content        Content     `json:"content"`
	Timestamp      time.Time   `json:"timestamp"`
}

// UpdateMessageAction describes an in-place mutation of an existing message.
// Deleting the last remaining image of an image message deletes the message
// itself rather than leaving an empty shell behind.
type UpdateMessageAction struct {
	DeleteImageIndex int
}
