package services

import (
	"time"

	"exachat_go_backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChatStoreDB defines the interface for chat persistence operations
type ChatStoreDB interface {
	SaveChatToDB(chat *models.Chat) error
	GetChatByIDFromDB(chatID string) (*models.Chat, error)
	DeleteChatByIDFromDB(chatID string) (*models.Chat, error)
	SaveMessageToDB(message *models.Message) error
	GetMessagesByChatIDFromDB(chatID string) ([]models.Message, error)
	CountUserMessagesSince(userID uuid.UUID, since time.Time) (int64, error)
	SaveStreamToDB(streamID, chatID string) error
	GetStreamIDsByChatIDFromDB(chatID string) ([]string, error)
}

// DefaultChatStore implements ChatStoreDB
type DefaultChatStore struct {
	db *gorm.DB
}

// NewChatStoreDB creates a new DefaultChatStore
func NewChatStoreDB(db *gorm.DB) ChatStoreDB {
	return &DefaultChatStore{db: db}
}

// SaveChatToDB creates a new chat record
func (s *DefaultChatStore) SaveChatToDB(chat *models.Chat) error {
	return s.db.Create(chat).Error
}

// GetChatByIDFromDB retrieves a chat by its id
func (s *DefaultChatStore) GetChatByIDFromDB(chatID string) (*models.Chat, error) {
	var chat models.Chat
	result := s.db.Where("id = ?", chatID).First(&chat)
	if result.Error != nil {
		return nil, result.Error
	}
	return &chat, nil
}

// DeleteChatByIDFromDB deletes a chat together with its messages and stream
// records, returning the deleted chat representation
func (s *DefaultChatStore) DeleteChatByIDFromDB(chatID string) (*models.Chat, error) {
	var chat models.Chat
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", chatID).First(&chat).Error; err != nil {
			return err
		}
		if err := tx.Where("chat_id = ?", chatID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("chat_id = ?", chatID).Delete(&models.Stream{}).Error; err != nil {
			return err
		}
		return tx.Delete(&chat).Error
	})
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// SaveMessageToDB appends a message to a chat. Messages are append-only.
func (s *DefaultChatStore) SaveMessageToDB(message *models.Message) error {
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	return s.db.Create(message).Error
}

// GetMessagesByChatIDFromDB retrieves a chat's messages in creation order
func (s *DefaultChatStore) GetMessagesByChatIDFromDB(chatID string) ([]models.Message, error) {
	var messages []models.Message
	result := s.db.Where("chat_id = ?", chatID).Order("created_at asc").Find(&messages)
	if result.Error != nil {
		return nil, result.Error
	}
	return messages, nil
}

// CountUserMessagesSince counts user-authored messages across all of a
// principal's chats from the given instant onward
func (s *DefaultChatStore) CountUserMessagesSince(userID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	result := s.db.Model(&models.Message{}).
		Joins("JOIN chats ON chats.id = messages.chat_id").
		Where("chats.user_id = ? AND messages.role = ? AND messages.created_at >= ?", userID, models.RoleUser, since).
		Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}
	return count, nil
}

// SaveStreamToDB records a stream id against a chat
func (s *DefaultChatStore) SaveStreamToDB(streamID, chatID string) error {
	return s.db.Create(&models.Stream{ID: streamID, ChatID: chatID, CreatedAt: time.Now()}).Error
}

// GetStreamIDsByChatIDFromDB retrieves a chat's stream ids in creation order
func (s *DefaultChatStore) GetStreamIDsByChatIDFromDB(chatID string) ([]string, error) {
	var streams []models.Stream
	result := s.db.Where("chat_id = ?", chatID).Order("created_at asc").Find(&streams)
	if result.Error != nil {
		return nil, result.Error
	}
	ids := make([]string, len(streams))
	for i, st := range streams {
		ids[i] = st.ID
	}
	return ids, nil
}
