package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"exachat_go_backend/internal/models"
	"exachat_go_backend/internal/stream"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"google.golang.org/api/iterator"
)

type fakeResponseStream struct {
	responses []*genai.GenerateContentResponse
	err       error
	next      int
}

func (f *fakeResponseStream) Next() (*genai.GenerateContentResponse, error) {
	if f.next < len(f.responses) {
		response := f.responses[f.next]
		f.next++
		return response, nil
	}
	if f.err != nil {
		return nil, f.err
	}
	return nil, iterator.Done
}

// fakeModelSession hands out one prepared stream per round and records the
// parts sent each round.
type fakeModelSession struct {
	streams []*fakeResponseStream
	sent    [][]genai.Part
}

func (f *fakeModelSession) SendMessageStream(ctx context.Context, parts ...genai.Part) ResponseStream {
	f.sent = append(f.sent, parts)
	if len(f.streams) == 0 {
		return &fakeResponseStream{}
	}
	next := f.streams[0]
	f.streams = f.streams[1:]
	return next
}

type fakeModelStreamer struct {
	session      *fakeModelSession
	systemPrompt string
	tools        []*genai.Tool
	history      []*genai.Content
}

func (f *fakeModelStreamer) StartSession(systemPrompt string, tools []*genai.Tool, history []*genai.Content) ModelSession {
	f.systemPrompt = systemPrompt
	f.tools = tools
	f.history = history
	return f.session
}

func textChunk(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(text)}},
		}},
	}
}

func callChunk(name string, args map[string]any) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.FunctionCall{Name: name, Args: args}}},
		}},
	}
}

func collectEvents(t *testing.T, ch <-chan stream.Event) []stream.Event {
	t.Helper()
	var events []stream.Event
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("event channel never closed")
		}
	}
}

func streamedText(events []stream.Event) string {
	var b strings.Builder
	for _, ev := range events {
		if ev.Type == stream.EventText {
			b.WriteString(ev.Data.(string))
		}
	}
	return b.String()
}

func eventTypes(events []stream.Event) []string {
	types := make([]string, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	return types
}

func newStreamingService(session *fakeModelSession, store *MockChatStore, search *MockSearchProvider, maxSteps int) (*GenerationService, *fakeModelStreamer) {
	streamer := &fakeModelStreamer{session: session}
	service := &GenerationService{
		streamer:     streamer,
		toolRegistry: NewToolRegistry(search, new(MockScrapeProvider)),
		chatStore:    store,
		maxSteps:     maxSteps,
		timeout:      5 * time.Second,
	}
	return service, streamer
}

func TestStreamGenerationTextRoundTrip(t *testing.T) {
	session := &fakeModelSession{streams: []*fakeResponseStream{
		{responses: []*genai.GenerateContentResponse{
			textChunk("The answer "),
			textChunk("is 42."),
		}},
	}}
	store := new(MockChatStore)
	var saved *models.Message
	store.On("SaveMessageToDB", mock.AnythingOfType("*models.Message")).
		Run(func(args mock.Arguments) { saved = args.Get(0).(*models.Message) }).
		Return(nil).Once()
	service, streamer := newStreamingService(session, store, new(MockSearchProvider), 10)

	previous := []models.Message{textMessage(t, "m1", "c1", models.RoleUser, "earlier question")}
	events := collectEvents(t, service.StreamGeneration(context.Background(), GenerationInput{
		ChatID:           "c1",
		PreviousMessages: previous,
		UserText:         "what is the answer?",
		SystemPrompt:     "You answer questions.",
		ActiveTools:      []string{"searchNews"},
	}))

	assert.Equal(t, "The answer is 42.", streamedText(events))
	finish := events[len(events)-1]
	assert.Equal(t, stream.EventFinish, finish.Type)

	// The persisted assistant message carries exactly the streamed text.
	parts, err := saved.GetParts()
	assert.NoError(t, err)
	assert.Equal(t, "The answer is 42.", parts[0].Text)
	assert.Equal(t, saved.ID, finish.Data.(map[string]interface{})["messageId"])
	assert.Equal(t, models.RoleAssistant, saved.Role)

	// Session configuration passes through the streamer untouched.
	assert.Equal(t, "You answer questions.", streamer.systemPrompt)
	assert.Len(t, streamer.tools, 1)
	assert.Equal(t, "searchNews", streamer.tools[0].FunctionDeclarations[0].Name)
	assert.Len(t, streamer.history, 1)

	// The single round carries the user text.
	assert.Len(t, session.sent, 1)
	assert.Equal(t, genai.Text("what is the answer?"), session.sent[0][0])
	store.AssertExpectations(t)
}

func TestStreamGenerationToolRound(t *testing.T) {
	session := &fakeModelSession{streams: []*fakeResponseStream{
		{responses: []*genai.GenerateContentResponse{callChunk("searchNews", map[string]any{"query": "acme"})}},
		{responses: []*genai.GenerateContentResponse{textChunk("Acme had a good quarter.")}},
	}}
	store := new(MockChatStore)
	store.On("SaveMessageToDB", mock.Anything).Return(nil).Once()
	search := new(MockSearchProvider)
	search.On("SearchAndContents", mock.Anything, "acme", CategoryNews).Return([]ExaResult{
		{Title: "Acme Q3", URL: "https://news.test/acme", Text: "Earnings up."},
	}, nil).Once()
	service, _ := newStreamingService(session, store, search, 10)

	events := collectEvents(t, service.StreamGeneration(context.Background(), GenerationInput{
		ChatID:      "c1",
		UserText:    "how is acme doing?",
		ActiveTools: []string{"searchNews"},
	}))

	assert.Equal(t, []string{
		stream.EventToolCall,
		stream.EventToolResult,
		stream.EventText,
		stream.EventFinish,
	}, eventTypes(events))
	assert.Equal(t, "searchNews", events[0].Data.(map[string]interface{})["toolName"])

	// The second round feeds the tool output back as a function response.
	assert.Len(t, session.sent, 2)
	response, ok := session.sent[1][0].(genai.FunctionResponse)
	assert.True(t, ok)
	assert.Equal(t, "searchNews", response.Name)
	assert.Contains(t, response.Response, "results")
	search.AssertExpectations(t)
}

func TestStreamGenerationStepBound(t *testing.T) {
	// The model keeps asking for tools; the loop must stop at maxSteps.
	var streams []*fakeResponseStream
	for i := 0; i < 6; i++ {
		streams = append(streams, &fakeResponseStream{responses: []*genai.GenerateContentResponse{
			callChunk("searchNews", map[string]any{"query": "more"}),
		}})
	}
	session := &fakeModelSession{streams: streams}
	store := new(MockChatStore)
	store.On("SaveMessageToDB", mock.Anything).Return(nil).Once()
	search := new(MockSearchProvider)
	search.On("SearchAndContents", mock.Anything, "more", CategoryNews).Return([]ExaResult{}, nil)
	service, _ := newStreamingService(session, store, search, 3)

	events := collectEvents(t, service.StreamGeneration(context.Background(), GenerationInput{
		ChatID:      "c1",
		UserText:    "dig deeper",
		ActiveTools: []string{"searchNews"},
	}))

	assert.Len(t, session.sent, 3)
	assert.Equal(t, stream.EventFinish, events[len(events)-1].Type)
	store.AssertExpectations(t)
}

func TestStreamGenerationErrorDowngrade(t *testing.T) {
	session := &fakeModelSession{streams: []*fakeResponseStream{
		{err: fmt.Errorf("provider exploded: quota")},
	}}
	store := new(MockChatStore)
	service, _ := newStreamingService(session, store, new(MockSearchProvider), 10)

	events := collectEvents(t, service.StreamGeneration(context.Background(), GenerationInput{
		ChatID:   "c1",
		UserText: "hello",
	}))

	assert.Equal(t, []string{stream.EventError}, eventTypes(events))
	assert.Equal(t, GenericStreamErrorMessage, events[0].Data, "provider error text must not leak")
	store.AssertNotCalled(t, "SaveMessageToDB", mock.Anything)
}

func TestStreamGenerationConsumerCancel(t *testing.T) {
	session := &fakeModelSession{streams: []*fakeResponseStream{
		{err: context.Canceled},
	}}
	store := new(MockChatStore)
	service, _ := newStreamingService(session, store, new(MockSearchProvider), 10)

	events := collectEvents(t, service.StreamGeneration(context.Background(), GenerationInput{
		ChatID:   "c1",
		UserText: "hello",
	}))

	assert.Empty(t, events, "a gone consumer gets no error frame")
	store.AssertNotCalled(t, "SaveMessageToDB", mock.Anything)
}

func textMessage(t *testing.T, id, chatID, role, text string) models.Message {
	t.Helper()
	message := models.Message{
		ID:        id,
		ChatID:    chatID,
		Role:      role,
		CreatedAt: time.Now(),
	}
	assert.NoError(t, message.SetParts([]models.MessagePart{{Type: "text", Text: text}}))
	return message
}

func TestHistoryToContents(t *testing.T) {
	t.Run("maps roles and preserves order", func(t *testing.T) {
		messages := []models.Message{
			textMessage(t, "m1", "c1", models.RoleUser, "hello"),
			textMessage(t, "m2", "c1", models.RoleAssistant, "hi there"),
			textMessage(t, "m3", "c1", models.RoleUser, "how are you?"),
		}

		contents := HistoryToContents(messages)

		assert.Len(t, contents, 3)
		assert.Equal(t, "user", contents[0].Role)
		assert.Equal(t, "model", contents[1].Role)
		assert.Equal(t, "user", contents[2].Role)
		assert.Equal(t, genai.Text("hello"), contents[0].Parts[0])
		assert.Equal(t, genai.Text("hi there"), contents[1].Parts[0])
	})

	t.Run("skips messages without text parts", func(t *testing.T) {
		empty := models.Message{ID: "m1", ChatID: "c1", Role: models.RoleUser}
		assert.NoError(t, empty.SetParts([]models.MessagePart{}))
		messages := []models.Message{
			empty,
			textMessage(t, "m2", "c1", models.RoleAssistant, "answer"),
		}

		contents := HistoryToContents(messages)

		assert.Len(t, contents, 1)
		assert.Equal(t, "model", contents[0].Role)
	})

	t.Run("skips undecodable parts", func(t *testing.T) {
		broken := models.Message{ID: "m1", ChatID: "c1", Role: models.RoleUser, Parts: []byte("{not json")}

		contents := HistoryToContents([]models.Message{broken})

		assert.Empty(t, contents)
	})

	t.Run("empty history yields no contents", func(t *testing.T) {
		assert.Empty(t, HistoryToContents(nil))
	})
}

func TestPersistAssistantMessage(t *testing.T) {
	t.Run("saves the message with a fresh id", func(t *testing.T) {
		store := new(MockChatStore)
		var saved *models.Message
		store.On("SaveMessageToDB", mock.AnythingOfType("*models.Message")).
			Run(func(args mock.Arguments) {
				saved = args.Get(0).(*models.Message)
			}).
			Return(nil).Once()
		service := &GenerationService{chatStore: store}

		messageID := service.persistAssistantMessage("chat-1", "final answer")

		assert.NotEmpty(t, messageID)
		assert.Equal(t, messageID, saved.ID)
		assert.Equal(t, "chat-1", saved.ChatID)
		assert.Equal(t, models.RoleAssistant, saved.Role)
		parts, err := saved.GetParts()
		assert.NoError(t, err)
		assert.Equal(t, "final answer", parts[0].Text)
		store.AssertExpectations(t)
	})

	t.Run("save failure is absorbed", func(t *testing.T) {
		store := new(MockChatStore)
		store.On("SaveMessageToDB", mock.AnythingOfType("*models.Message")).
			Return(assert.AnError).Once()
		service := &GenerationService{chatStore: store}

		messageID := service.persistAssistantMessage("chat-1", "text")

		assert.NotEmpty(t, messageID, "a message id is reported even when persistence fails")
	})
}
