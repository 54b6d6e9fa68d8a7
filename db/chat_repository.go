package db

import (
	"context"
	"sync"

	"github.com/chatterbox/engine/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ChatRepository is the storage facade: domain-level CRUD against the object
// graph plus a live-query subscription per conversation. Detached domain
// snapshots cross this boundary; entities never do.
type ChatRepository interface {
	SaveConversation(conversation models.Conversation) error
	SaveUser(user models.User) error
	GetUser(id string) (models.User, error)
	GetConversations(userID string) ([]models.Conversation, error)
	SaveMessage(message models.Message) error
	UpdateMessage(message models.Message) error
	DeleteMessage(id string) error
	ObserveConversation(ctx context.Context, conversationID string) (<-chan models.Conversation, error)
}

type chatRepo struct {
	// mu is the confinement context: every mutation and the notification
	// fan-out that follows it run to completion under it, so back-to-back
	// writes from one caller are observed in order.
	mu      sync.Mutex
	DB      *gorm.DB
	adapter entityAdapter
	queries *liveQuerySet
	log     *logrus.Logger
}

func NewChatRepo(db *GormDB, log *logrus.Logger) ChatRepository {
	return &chatRepo{
		DB:      db.DB,
		queries: newLiveQuerySet(),
		log:     log,
	}
}

func (r *chatRepo) SaveConversation(conversation models.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.DB.Transaction(func(tx *gorm.DB) error {
		entity := &ConversationEntity{
			ConversationID:  conversation.ID,
			Title:           conversation.Title,
			LastMessage:     conversation.LastMessage,
			LastMessageTime: conversation.LastMessageTime,
		}
		if err := tx.Create(entity).Error; err != nil {
			return errors.Wrap(err, "create conversation")
		}

		// Participants are wired by id-list membership; ids with no stored
		// user are skipped rather than fabricated.
		if len(conversation.ParticipantsID) == 0 {
			return nil
		}
		var participants []*UserEntity
		if err := tx.Where("user_id IN ?", conversation.ParticipantsID).Find(&participants).Error; err != nil {
			return errors.Wrap(err, "fetch participants")
		}
		if len(participants) == 0 {
			r.log.Warnf("conversation %s has no stored participants", conversation.ID)
			return nil
		}
		if err := tx.Model(entity).Association("Participants").Append(participants); err != nil {
			return errors.Wrap(err, "wire participants")
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.notifyLocked()
	return nil
}

func (r *chatRepo) SaveUser(user models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	exists, err := rowExists(r.DB, &UserEntity{}, "user_id = ?", user.ID)
	if err != nil {
		return err
	}
	if exists {
		return errors.Wrapf(ErrConstraintViolation, "user %s already exists", user.ID)
	}

	entity := &UserEntity{UserID: user.ID, Username: user.Username}
	if err := r.DB.Create(entity).Error; err != nil {
		return errors.Wrap(err, "create user")
	}

	r.notifyLocked()
	return nil
}

func (r *chatRepo) GetUser(id string) (models.User, error) {
	var entity UserEntity
	err := r.DB.Where("user_id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, errors.Wrapf(ErrNotFound, "user %s", id)
		}
		return models.User{}, errors.Wrap(err, "fetch user")
	}
	return r.adapter.toUser(&entity), nil
}

func (r *chatRepo) GetConversations(userID string) ([]models.Conversation, error) {
	var entities []*ConversationEntity
	err := r.DB.
		Preload("Participants").
		Preload("Messages.Content.Images").
		Joins("JOIN conversation_participants ON conversation_participants.conversation_id = conversations.conversation_id").
		Where("conversation_participants.user_id = ?", userID).
		Find(&entities).Error
	if err != nil {
		return nil, errors.Wrap(err, "fetch conversations")
	}

	conversations := make([]models.Conversation, 0, len(entities))
	for _, entity := range entities {
		conversations = append(conversations, r.adapter.toConversation(entity))
	}
	return conversations, nil
}

func (r *chatRepo) SaveMessage(message models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.DB.Transaction(func(tx *gorm.DB) error {
		entity := &MessageEntity{}
		r.adapter.applyMessage(entity, message)

		// Relationships are wired by stable-id lookup; a dangling id is
		// stored as detached rather than inventing the related record.
		if message.ConversationID != nil {
			if ok, err := rowExists(tx, &ConversationEntity{}, "conversation_id = ?", *message.ConversationID); err != nil {
				return err
			} else if !ok {
				r.log.Warnf("message %s references missing conversation %s", message.ID, *message.ConversationID)
				entity.ConversationID = nil
			}
		}
		if message.SenderID != nil {
			if ok, err := rowExists(tx, &UserEntity{}, "user_id = ?", *message.SenderID); err != nil {
				return err
			} else if !ok {
				entity.SenderID = nil
			}
		}

		if err := tx.Create(entity).Error; err != nil {
			return errors.Wrap(err, "create message")
		}

		content := &MessageContentEntity{}
		r.adapter.applyContent(content, message.Content, entity.MessageID)
		if err := tx.Create(content).Error; err != nil {
			return errors.Wrap(err, "create message content")
		}

		for _, url := range message.Content.ImageURLs {
			img, err := findOrCreateImage(tx, url)
			if err != nil {
				return err
			}
			if err := tx.Model(content).Association("Images").Append(img); err != nil {
				return errors.Wrap(err, "wire image")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.notifyLocked()
	return nil
}

// UpdateMessage reconciles the stored image set against the message's URL
// list: stored images absent from the list are detached and dropped, missing
// ones are created, and matching ones are reused unchanged so their record
// identity survives the edit. Backing files are the caller's to delete.
func (r *chatRepo) UpdateMessage(message models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	changed := false
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		var entity MessageEntity
		err := tx.Preload("Content.Images").Where("message_id = ?", message.ID).First(&entity).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.Wrapf(ErrNotFound, "message %s", message.ID)
			}
			return errors.Wrap(err, "fetch message")
		}

		content := entity.Content
		if content == nil {
			content = &MessageContentEntity{}
			r.adapter.applyContent(content, message.Content, entity.MessageID)
			if err := tx.Create(content).Error; err != nil {
				return errors.Wrap(err, "create message content")
			}
			changed = true
		}

		desired := make(map[string]bool, len(message.Content.ImageURLs))
		for _, url := range message.Content.ImageURLs {
			desired[url] = true
		}
		stored := make(map[string]bool, len(content.Images))

		for _, img := range content.Images {
			stored[img.URL] = true
			if desired[img.URL] {
				continue
			}
			if err := tx.Model(content).Association("Images").Delete(img); err != nil {
				return errors.Wrap(err, "detach image")
			}
			if err := dropImageIfOrphaned(tx, img); err != nil {
				return err
			}
			changed = true
		}

		for _, url := range message.Content.ImageURLs {
			if stored[url] {
				continue
			}
			img, err := findOrCreateImage(tx, url)
			if err != nil {
				return err
			}
			if err := tx.Model(content).Association("Images").Append(img); err != nil {
				return errors.Wrap(err, "wire image")
			}
			changed = true
		}

		if !stringPtrEqual(content.Text, message.Content.Text) {
			// column-level update; Save would upsert the stale Images
			// association and resurrect join rows removed above
			if err := tx.Model(&MessageContentEntity{ID: content.ID}).Update("text", message.Content.Text).Error; err != nil {
				return errors.Wrap(err, "update message content")
			}
			changed = true
		}
		return nil
	})
	if err != nil {
		return err
	}

	if changed {
		r.notifyLocked()
	}
	return nil
}

// DeleteMessage removes a message and its owned content. A missing id is
// logged and treated as a successful no-op; no notification is emitted since
// nothing changed.
func (r *chatRepo) DeleteMessage(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	deleted := false
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		var entity MessageEntity
		err := tx.Preload("Content.Images").Where("message_id = ?", id).First(&entity).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				r.log.Infof("no message with id %s to delete", id)
				return nil
			}
			return errors.Wrap(err, "fetch message")
		}

		if entity.Content != nil {
			for _, img := range entity.Content.Images {
				if err := tx.Model(entity.Content).Association("Images").Delete(img); err != nil {
					return errors.Wrap(err, "detach image")
				}
				if err := dropImageIfOrphaned(tx, img); err != nil {
					return err
				}
			}
			if err := tx.Delete(entity.Content).Error; err != nil {
				return errors.Wrap(err, "delete message content")
			}
		}
		if err := tx.Delete(&entity).Error; err != nil {
			return errors.Wrap(err, "delete message")
		}
		deleted = true
		return nil
	})
	if err != nil {
		return err
	}

	if deleted {
		r.notifyLocked()
	}
	return nil
}

// ObserveConversation registers a standing query for one conversation and
// emits the mapped current state immediately, then again after every commit
// the store performs. The subscription ends when ctx is cancelled. Changes to
// related messages and images surface too, because the relationship traversal
// is re-evaluated on each notification.
func (r *chatRepo) ObserveConversation(ctx context.Context, conversationID string) (<-chan models.Conversation, error) {
	r.mu.Lock()
	initial, ok := r.currentState(conversationID)
	if !ok {
		initial = models.Conversation{ID: conversationID}
	}
	id, ch := r.queries.add(conversationID, initial)
	r.mu.Unlock()

	go func() {
		<-ctx.Done()
		r.queries.remove(id)
	}()
	return ch, nil
}

// notifyLocked re-runs every standing query after a commit. Callers must hold
// r.mu, which keeps notification order aligned with commit order.
func (r *chatRepo) notifyLocked() {
	r.queries.notify(r.currentState)
}

func (r *chatRepo) currentState(conversationID string) (models.Conversation, bool) {
	var entity ConversationEntity
	err := r.DB.
		Preload("Participants").
		Preload("Messages.Content.Images").
		Where("conversation_id = ?", conversationID).
		First(&entity).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Errorf("live query refresh failed for conversation %s: %v", conversationID, err)
		}
		return models.Conversation{}, false
	}
	return r.adapter.toConversation(&entity), true
}

func findOrCreateImage(tx *gorm.DB, url string) (*ImageEntity, error) {
	img := &ImageEntity{}
	if err := tx.Where("url = ?", url).FirstOrCreate(img, &ImageEntity{URL: url}).Error; err != nil {
		return nil, errors.Wrap(err, "find or create image")
	}
	return img, nil
}

// dropImageIfOrphaned deletes an image row once nothing references it. The
// schema is many-to-many even though contents use images 1:1 in practice, so
// shared rows are left alone.
func dropImageIfOrphaned(tx *gorm.DB, img *ImageEntity) error {
	remaining := tx.Model(img).Association("Contents").Count()
	if remaining > 0 {
		return nil
	}
	if err := tx.Delete(img).Error; err != nil {
		return errors.Wrap(err, "delete orphaned image")
	}
	return nil
}

func rowExists(tx *gorm.DB, model interface{}, query string, args ...interface{}) (bool, error) {
	var count int64
	if err := tx.Model(model).Where(query, args...).Count(&count).Error; err != nil {
		return false, errors.Wrap(err, "existence check")
	}
	return count > 0, nil
}

func stringPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
