package services

import (
	"context"
	"time"

	"github.com/chatterbox/engine/db"
	"github.com/chatterbox/engine/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ChatService orchestrates conversations and messages on top of the storage
// facade: message-type inference, conversation bootstrap, and the image-edit
// flow that keeps stored records and backing files consistent.
type ChatService interface {
	CreateConversation(title *string, participantsID []string) (models.Conversation, error)
	EnsureConversation(user models.User) (models.Conversation, error)
	GetConversations(userID string) ([]models.Conversation, error)
	SaveMessage(content models.Content, conversationID string, senderID *string) error
	DeleteMessage(id string) error
	UpdateMessage(message models.Message, action models.UpdateMessageAction) error
	ObserveConversation(ctx context.Context, conversationID string) (<-chan models.Conversation, error)
}

type chatService struct {
	chatRepo db.ChatRepository
	media    MediaService
	log      *logrus.Logger
}

func NewChatService(chatRepo db.ChatRepository, media MediaService, log *logrus.Logger) ChatService {
	return &chatService{
		chatRepo: chatRepo,
		media:    media,
		log:      log,
	}
}

func (s *chatService) CreateConversation(title *string, participantsID []string) (models.Conversation, error) {
	conversation := models.Conversation{
		ID:             uuid.NewString(),
		ParticipantsID: participantsID,
		Messages:       []models.Message{},
		Title:          title,
	}
	if err := s.chatRepo.SaveConversation(conversation); err != nil {
		return models.Conversation{}, err
	}
	return conversation, nil
}

// EnsureConversation reuses the user's first existing conversation and
// creates one with the user as sole participant on first entry.
func (s *chatService) EnsureConversation(user models.User) (models.Conversation, error) {
	conversations, err := s.chatRepo.GetConversations(user.ID)
	if err != nil {
		return models.Conversation{}, err
	}
	if len(conversations) > 0 {
		return conversations[0], nil
	}
	return s.CreateConversation(nil, []string{user.ID})
}

func (s *chatService) GetConversations(userID string) ([]models.Conversation, error) {
	return s.chatRepo.GetConversations(userID)
}

// SaveMessage classifies the content by shape and persists the message. A
// message with neither text nor images is dropped before persistence: no
// record, no id, no notification.
func (s *chatService) SaveMessage(content models.Content, conversationID string, senderID *string) error {
	messageType := content.InferType()
	if messageType == models.MessageTypeUnknown {
		s.log.Debugf("dropping empty message for conversation %s", conversationID)
		return nil
	}

	message := models.Message{
		ID:             uuid.NewString(),
		Type:           messageType,
		ConversationID: &conversationID,
		SenderID:       senderID,
		Content:        content,
		Timestamp:      time.Now(),
	}
	return s.chatRepo.SaveMessage(message)
}

func (s *chatService) DeleteMessage(id string) error {
	return s.chatRepo.DeleteMessage(id)
}

// UpdateMessage applies an image deletion to an image message. Removing the
// last remaining image deletes the whole message instead of leaving an empty
// shell. The stripped backing file is deleted here; the store never touches
// files.
func (s *chatService) UpdateMessage(message models.Message, action models.UpdateMessageAction) error {
	if message.Type != models.MessageTypeImage {
		return nil
	}
	index := action.DeleteImageIndex
	images := message.Content.ImageURLs
	if index < 0 || index >= len(images) {
		return nil
	}

	removed := images[index]
	remaining := make([]string, 0, len(images)-1)
	remaining = append(remaining, images[:index]...)
	remaining = append(remaining, images[index+1:]...)

	var err error
	if len(remaining) == 0 {
		err = s.chatRepo.DeleteMessage(message.ID)
	} else {
		updated := message
		updated.Content = models.Content{Text: message.Content.Text, ImageURLs: remaining}
		err = s.chatRepo.UpdateMessage(updated)
	}
	if err != nil {
		return err
	}

	// the record is already consistent; a leaked file only costs disk space
	if err := s.media.DeleteImage(removed); err != nil {
		s.log.Warnf("couldn't delete image file %s: %v", removed, err)
	}
	return nil
}

func (s *chatService) ObserveConversation(ctx context.Context, conversationID string) (<-chan models.Conversation, error) {
	return s.chatRepo.ObserveConversation(ctx, conversationID)
}
