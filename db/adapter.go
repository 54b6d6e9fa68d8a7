package db

import (
	"sort"
	"time"

	"github.com/chatterbox/engine/models"
)

// entityAdapter translates stored records into detached domain snapshots and
// applies domain updates onto existing records in place. It is stateless and
// carries no store dependency, so it can be tested in isolation.
//
// Missing ids and usernames default to the empty string, an unrecognised type
// raw value defaults to unknown, and a missing timestamp defaults to now.
type entityAdapter struct{}

func (entityAdapter) toUser(entity *UserEntity) models.User {
	if entity == nil {
		return models.User{}
	}
	return models.User{ID: entity.UserID, Username: entity.Username}
}

func (a entityAdapter) toConversation(entity *ConversationEntity) models.Conversation {
	if entity == nil {
		return models.Conversation{}
	}

	messages := make([]models.Message, 0, len(entity.Messages))
	for _, m := range entity.Messages {
		messages = append(messages, a.toMessage(m))
	}
	// newest first
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.After(messages[j].Timestamp)
	})

	participants := make([]string, 0, len(entity.Participants))
	for _, p := range entity.Participants {
		participants = append(participants, p.UserID)
	}

	return models.Conversation{
		ID:              entity.ConversationID,
		ParticipantsID:  participants,
		Messages:        messages,
		Title:           entity.Title,
		LastMessage:     entity.LastMessage,
		LastMessageTime: entity.LastMessageTime,
	}
}

func (a entityAdapter) toMessage(entity *MessageEntity) models.Message {
	if entity == nil {
		return models.Message{Type: models.MessageTypeUnknown, Timestamp: time.Now()}
	}

	timestamp := entity.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	return models.Message{
		ID:             entity.MessageID,
		Type:           models.ParseMessageType(entity.Type),
		ConversationID: entity.ConversationID,
		SenderID:       entity.SenderID,
		Content:        a.toContent(entity.Content),
		Timestamp:      timestamp,
	}
}

func (entityAdapter) toContent(entity *MessageContentEntity) models.Content {
	if entity == nil {
		return models.Content{}
	}

	// Row ids are monotonic, so ascending id equals insertion order. Updates
	// reuse surviving image rows, which keeps this order stable across edits.
	images := make([]*ImageEntity, len(entity.Images))
	copy(images, entity.Images)
	sort.SliceStable(images, func(i, j int) bool { return images[i].ID < images[j].ID })

	var urls []string
	for _, img := range images {
		urls = append(urls, img.URL)
	}
	return models.Content{Text: entity.Text, ImageURLs: urls}
}

// applyMessage copies domain message fields onto an existing record without
// reallocating it, preserving record identity for live-query diffing.
func (entityAdapter) applyMessage(entity *MessageEntity, message models.Message) {
	entity.MessageID = message.ID
	entity.Type = string(message.Type)
	entity.ConversationID = message.ConversationID
	entity.SenderID = message.SenderID
	entity.Timestamp = message.Timestamp
}

func (entityAdapter) applyContent(entity *MessageContentEntity, content models.Content, messageID string) {
	entity.MessageID = messageID
	entity.Text = content.Text
}
