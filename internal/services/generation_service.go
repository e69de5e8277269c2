package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"exachat_go_backend/internal/models"
	"exachat_go_backend/internal/stream"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/iterator"
)

// GenericStreamErrorMessage is the only error text ever surfaced inside a
// generation stream; provider and internal errors are logged, not leaked.
const GenericStreamErrorMessage = "Oops, an error occurred!"

// GenerationInput carries everything one generation needs. ActiveTools is
// the immutable per-request allow-list; tools outside it are never declared
// to the model.
type GenerationInput struct {
	ChatID           string
	PreviousMessages []models.Message
	UserText         string
	SystemPrompt     string
	ActiveTools      []string
}

// ResponseStream yields the incremental chunks of one model response round.
type ResponseStream interface {
	Next() (*genai.GenerateContentResponse, error)
}

// ModelSession is one running conversation with the model.
type ModelSession interface {
	SendMessageStream(ctx context.Context, parts ...genai.Part) ResponseStream
}

// ModelStreamer opens configured model sessions.
type ModelStreamer interface {
	StartSession(systemPrompt string, tools []*genai.Tool, history []*genai.Content) ModelSession
}

type genaiStreamer struct {
	client    *genai.Client
	modelName string
}

func (g *genaiStreamer) StartSession(systemPrompt string, tools []*genai.Tool, history []*genai.Content) ModelSession {
	model := g.client.GenerativeModel(g.modelName)
	model.SystemInstruction = genai.NewUserContent(genai.Text(systemPrompt))
	model.Tools = tools
	session := model.StartChat()
	session.History = history
	return &genaiSession{session: session}
}

type genaiSession struct {
	session *genai.ChatSession
}

func (s *genaiSession) SendMessageStream(ctx context.Context, parts ...genai.Part) ResponseStream {
	return s.session.SendMessageStream(ctx, parts...)
}

// GenerationService drives one model generation to completion: it streams
// tokens, executes tool calls the model issues, feeds results back, and
// persists the final assistant message.
type GenerationService struct {
	streamer     ModelStreamer
	toolRegistry *ToolRegistry
	chatStore    ChatStoreDB
	maxSteps     int
	timeout      time.Duration
}

func NewGenerationService(
	genAIClient *genai.Client,
	modelName string,
	toolRegistry *ToolRegistry,
	chatStore ChatStoreDB,
	maxSteps int,
	timeout time.Duration,
) *GenerationService {
	return &GenerationService{
		streamer:     &genaiStreamer{client: genAIClient, modelName: modelName},
		toolRegistry: toolRegistry,
		chatStore:    chatStore,
		maxSteps:     maxSteps,
		timeout:      timeout,
	}
}

// StreamGeneration starts a generation and returns its event stream. The
// channel closes when the generation completes, fails, or the context ends.
func (s *GenerationService) StreamGeneration(ctx context.Context, input GenerationInput) <-chan stream.Event {
	events := make(chan stream.Event, 16)
	go s.run(ctx, input, events)
	return events
}

func (s *GenerationService) run(ctx context.Context, input GenerationInput, events chan<- stream.Event) {
	defer close(events)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	session := s.streamer.StartSession(
		input.SystemPrompt,
		s.toolRegistry.Declarations(input.ActiveTools),
		HistoryToContents(input.PreviousMessages),
	)

	var assistantText strings.Builder
	parts := []genai.Part{genai.Text(input.UserText)}

	// The model may chain several tool rounds before its final text; each
	// round streams through the same event channel.
	for step := 0; step < s.maxSteps; step++ {
		calls, err := s.streamOnce(ctx, session, parts, events, &assistantText)
		if err != nil {
			// A consumer disconnect is routine, not a generation failure;
			// there is nobody left to send the error frame to.
			if errors.Is(err, context.Canceled) {
				log.Debug().Str("chatID", input.ChatID).Msg("Generation canceled by consumer")
				return
			}
			log.Error().Err(err).Str("chatID", input.ChatID).Msg("Generation stream failed")
			emit(ctx, events, stream.Event{Type: stream.EventError, Data: GenericStreamErrorMessage})
			return
		}
		if len(calls) == 0 {
			break
		}

		parts = parts[:0]
		for _, call := range calls {
			emit(ctx, events, stream.Event{Type: stream.EventToolCall, Data: map[string]interface{}{
				"toolName": call.Name,
				"args":     call.Args,
			}})

			result, ok := s.toolRegistry.Execute(ctx, call.Name, call.Args)
			if !ok {
				// The allow-list should make this unreachable; report it
				// as data so the model can recover.
				result = map[string]interface{}{
					"error":   "Unknown tool",
					"message": call.Name,
				}
			}

			emit(ctx, events, stream.Event{Type: stream.EventToolResult, Data: map[string]interface{}{
				"toolName": call.Name,
				"result":   result,
			}})

			parts = append(parts, genai.FunctionResponse{
				Name:     call.Name,
				Response: result,
			})
		}
	}

	messageID := s.persistAssistantMessage(input.ChatID, assistantText.String())
	emit(ctx, events, stream.Event{Type: stream.EventFinish, Data: map[string]interface{}{
		"messageId": messageID,
	}})
}

// streamOnce sends one round of parts and forwards the incremental response,
// returning any function calls the model issued during the round.
func (s *GenerationService) streamOnce(
	ctx context.Context,
	session ModelSession,
	parts []genai.Part,
	events chan<- stream.Event,
	assistantText *strings.Builder,
) ([]genai.FunctionCall, error) {
	var calls []genai.FunctionCall

	responseIterator := session.SendMessageStream(ctx, parts...)
	for {
		response, err := responseIterator.Next()
		if err == iterator.Done {
			return calls, nil
		}
		if err != nil {
			return nil, err
		}

		if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
			continue
		}

		for _, part := range response.Candidates[0].Content.Parts {
			switch p := part.(type) {
			case genai.Text:
				assistantText.WriteString(string(p))
				if !emit(ctx, events, stream.Event{Type: stream.EventText, Data: string(p)}) {
					return nil, ctx.Err()
				}
			case genai.FunctionCall:
				calls = append(calls, p)
			}
		}
	}
}

// persistAssistantMessage saves the trailing assistant message under a fresh
// message id. Failures are logged and absorbed: the client already received
// the streamed tokens, so the stream is never re-opened or corrupted.
func (s *GenerationService) persistAssistantMessage(chatID, text string) string {
	message := &models.Message{
		ID:        uuid.New().String(),
		ChatID:    chatID,
		Role:      models.RoleAssistant,
		CreatedAt: time.Now(),
	}
	if err := message.SetParts([]models.MessagePart{{Type: "text", Text: text}}); err != nil {
		log.Error().Err(err).Str("chatID", chatID).Msg("Failed to encode assistant message")
		return message.ID
	}
	if err := s.chatStore.SaveMessageToDB(message); err != nil {
		log.Error().Err(err).Str("chatID", chatID).Msg("Failed to save assistant message")
	}
	return message.ID
}

// emit forwards one event unless the consumer context has ended.
func emit(ctx context.Context, events chan<- stream.Event, ev stream.Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// HistoryToContents converts persisted messages into model conversation
// turns. Only text parts participate in the context window.
func HistoryToContents(messages []models.Message) []*genai.Content {
	var contents []*genai.Content
	for i := range messages {
		message := &messages[i]
		role := "user"
		if message.Role == models.RoleAssistant {
			role = "model"
		}

		parts, err := message.GetParts()
		if err != nil {
			log.Warn().Err(err).Str("messageID", message.ID).Msg("Skipping undecodable message parts")
			continue
		}

		var genaiParts []genai.Part
		for _, part := range parts {
			if part.Type == "text" && part.Text != "" {
				genaiParts = append(genaiParts, genai.Text(part.Text))
			}
		}
		if len(genaiParts) == 0 {
			continue
		}

		contents = append(contents, &genai.Content{Role: role, Parts: genaiParts})
	}
	return contents
}
