package api

import (
	"context"
	"time"

	"exachat_go_backend/internal/models"
	"exachat_go_backend/internal/services"
	"exachat_go_backend/internal/stream"

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

type MockEntitlements struct {
	mock.Mock
}

func (m *MockEntitlements) CheckMessageQuota(userID uuid.UUID, tier string) error {
	args := m.Called(userID, tier)
	return args.Error(0)
}

type MockTitles struct {
	mock.Mock
}

func (m *MockTitles) GenerateTitle(ctx context.Context, message string) (string, error) {
	args := m.Called(ctx, message)
	return args.String(0), args.Error(1)
}

// MockGenerator replays a fixed event sequence through a fresh channel.
// A non-nil Release holds the events back until it is closed.
type MockGenerator struct {
	mock.Mock
	Events  []stream.Event
	Release <-chan struct{}
}

func (m *MockGenerator) StreamGeneration(ctx context.Context, input services.GenerationInput) <-chan stream.Event {
	m.Called(ctx, input)
	ch := make(chan stream.Event, len(m.Events))
	go func() {
		if m.Release != nil {
			<-m.Release
		}
		for _, ev := range m.Events {
			ch <- ev
		}
		close(ch)
	}()
	return ch
}

type MockTools struct {
	mock.Mock
}

func (m *MockTools) ActiveToolNames(selections []services.ToolSelection) []string {
	args := m.Called(selections)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]string)
}
