package db

import "time"

// The stored object graph: users and conversations are related many-to-many
// through conversation_participants, a conversation owns its messages, each
// message owns one content row, and contents reference images many-to-many
// through content_images. Relationships are wired by stable-id lookup inside
// the repository, never by callers.

type UserEntity struct {
	UserID    string `gorm:"primaryKey;column:user_id"`
	Username  string
	CreatedAt time.Time

	Conversations []*ConversationEntity `gorm:"many2many:conversation_participants;foreignKey:UserID;joinForeignKey:UserID;references:ConversationID;joinReferences:ConversationID"`
}

func (UserEntity) TableName() string { return "users" }

type ConversationEntity struct {
	ConversationID  string `gorm:"primaryKey;column:conversation_id"`
	Title           *string
	LastMessage     *string
	LastMessageTime *time.Time
	CreatedAt       time.Time

	Participants []*UserEntity    `gorm:"many2many:conversation_participants;foreignKey:ConversationID;joinForeignKey:ConversationID;references:UserID;joinReferences:UserID"`
	Messages     []*MessageEntity `gorm:"foreignKey:ConversationID;references:ConversationID"`
}

func (ConversationEntity) TableName() string { return "conversations" }

type MessageEntity struct {
	MessageID      string `gorm:"primaryKey;column:message_id"`
	Type           string
	ConversationID *string   `gorm:"index"`
	SenderID       *string   `gorm:"index"`
	Timestamp      time.Time `gorm:"index"`

	Content *MessageContentEntity `gorm:"foreignKey:MessageID;references:MessageID"`
}

func (MessageEntity) TableName() string { return "messages" }

type MessageContentEntity struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	MessageID string `gorm:"uniqueIndex"`
	Text      *string

	Images []*ImageEntity `gorm:"many2many:content_images;foreignKey:ID;joinForeignKey:ContentID;references:ID;joinReferences:ImageID"`
}

func (MessageContentEntity) TableName() string { return "message_contents" }

// ImageEntity rows are deduplicated by URL and reused across updates so that
// live-query diffing sees surviving images as the same records. The
// autoincrement id doubles as insertion order when contents are materialized.
type ImageEntity struct {
	ID  uint   `gorm:"primaryKey;autoIncrement"`
	URL string `gorm:"uniqueIndex"`

	Contents []*MessageContentEntity `gorm:"many2many:content_images;foreignKey:ID;joinForeignKey:ImageID;references:ID;joinReferences:ContentID"`
}

func (ImageEntity) TableName() string { return "images" }
