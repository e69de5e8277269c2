package services

import (
	"context"
	"time"

	"exachat_go_backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockChatStore struct {
	mock.Mock
}

func (m *MockChatStore) SaveChatToDB(chat *models.Chat) error {
	args := m.Called(chat)
	return args.Error(0)
}

func (m *MockChatStore) GetChatByIDFromDB(chatID string) (*models.Chat, error) {
	args := m.Called(chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Chat), args.Error(1)
}

func (m *MockChatStore) DeleteChatByIDFromDB(chatID string) (*models.Chat, error) {
	args := m.Called(chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Chat), args.Error(1)
}

func (m *MockChatStore) SaveMessageToDB(message *models.Message) error {
	args := m.Called(message)
	return args.Error(0)
}

func (m *MockChatStore) GetMessagesByChatIDFromDB(chatID string) ([]models.Message, error) {
	args := m.Called(chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockChatStore) CountUserMessagesSince(userID uuid.UUID, since time.Time) (int64, error) {
	args := m.Called(userID, since)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockChatStore) SaveStreamToDB(streamID, chatID string) error {
	args := m.Called(streamID, chatID)
	return args.Error(0)
}

func (m *MockChatStore) GetStreamIDsByChatIDFromDB(chatID string) ([]string, error) {
	args := m.Called(chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockSearchProvider struct {
	mock.Mock
}

func (m *MockSearchProvider) SearchAndContents(ctx context.Context, query string, category SearchCategory) ([]ExaResult, error) {
	args := m.Called(ctx, query, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ExaResult), args.Error(1)
}

type MockScrapeProvider struct {
	mock.Mock
}

func (m *MockScrapeProvider) Scrape(ctx context.Context, url string) (*ScrapeResult, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ScrapeResult), args.Error(1)
}
