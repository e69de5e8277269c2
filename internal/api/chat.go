package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	apperrors "exachat_go_backend/internal/errors"
	"exachat_go_backend/internal/models"
	"exachat_go_backend/internal/services"
	"exachat_go_backend/internal/stream"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var allowedAttachmentTypes = map[string]bool{
	"image/png":  true,
	"image/jpg":  true,
	"image/jpeg": true,
}

// ChatHandler serves the chat endpoints. A nil stream registry degrades
// POST to direct (non-resumable) streaming and GET to 204.
type ChatHandler struct {
	chatStore      services.ChatStoreDB
	entitlements   services.EntitlementChecker
	titles         services.TitleGenerator
	generator      services.Generator
	tools          services.ToolResolver
	streamRegistry *stream.Registry
	staleness      time.Duration
	now            func() time.Time
}

func NewChatHandler(
	chatStore services.ChatStoreDB,
	entitlements services.EntitlementChecker,
	titles services.TitleGenerator,
	generator services.Generator,
	tools services.ToolResolver,
	streamRegistry *stream.Registry,
	staleness time.Duration,
) *ChatHandler {
	return &ChatHandler{
		chatStore:      chatStore,
		entitlements:   entitlements,
		titles:         titles,
		generator:      generator,
		tools:          tools,
		streamRegistry: streamRegistry,
		staleness:      staleness,
		now:            time.Now,
	}
}

type incomingMessage struct {
	ID          string               `json:"id"`
	CreatedAt   time.Time            `json:"createdAt"`
	Role        string               `json:"role"`
	Content     string               `json:"content"`
	Parts       []models.MessagePart `json:"parts"`
	Attachments []models.Attachment  `json:"attachments"`
}

type postChatRequest struct {
	ID            string                   `json:"id"`
	Message       incomingMessage          `json:"message"`
	Visibility    string                   `json:"visibility"`
	SelectedTools []services.ToolSelection `json:"selectedTools"`
}

func badRequest() *apperrors.CustomError {
	return apperrors.NewBadRequestError("bad_request:api",
		"The request couldn't be processed. Please check your input and try again.")
}

func (r *postChatRequest) validate() *apperrors.CustomError {
	if _, err := uuid.Parse(r.ID); err != nil {
		return badRequest()
	}
	if _, err := uuid.Parse(r.Message.ID); err != nil {
		return badRequest()
	}
	if r.Message.Role != models.RoleUser {
		return badRequest()
	}
	if n := len([]rune(r.Message.Content)); n < 1 || n > 2000 {
		return badRequest()
	}
	if len(r.Message.Parts) == 0 {
		return badRequest()
	}
	for _, part := range r.Message.Parts {
		if part.Type != "text" {
			return badRequest()
		}
		if n := len([]rune(part.Text)); n < 1 || n > 2000 {
			return badRequest()
		}
	}
	for _, attachment := range r.Message.Attachments {
		if attachment.URL == "" || attachment.Name == "" || len([]rune(attachment.Name)) > 2000 {
			return badRequest()
		}
		if !allowedAttachmentTypes[attachment.ContentType] {
			return badRequest()
		}
	}
	if r.Visibility != models.VisibilityPublic && r.Visibility != models.VisibilityPrivate {
		return badRequest()
	}
	for _, selection := range r.SelectedTools {
		if !services.ValidToolSelection(selection) {
			return badRequest()
		}
	}
	return nil
}

func currentUser(c *gin.Context) (*models.User, *apperrors.CustomError) {
	value, exists := c.Get("user")
	if !exists {
		return nil, apperrors.NewUnauthorizedError("unauthorized:chat")
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil, apperrors.NewUnauthorizedError("unauthorized:chat")
	}
	return user, nil
}

// requestHints pulls geolocation hints from the edge proxy headers. Absent
// headers render as empty values in the prompt.
func requestHints(c *gin.Context) services.RequestHints {
	return services.RequestHints{
		Latitude:  c.GetHeader("X-Vercel-IP-Latitude"),
		Longitude: c.GetHeader("X-Vercel-IP-Longitude"),
		City:      c.GetHeader("X-Vercel-IP-City"),
		Country:   c.GetHeader("X-Vercel-IP-Country"),
	}
}

// PostChat accepts a user message, persists conversation state and streams
// the assistant reply back as SSE frames.
func (h *ChatHandler) PostChat(c *gin.Context) {
	var request postChatRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		apperrors.HandleError(c, badRequest())
		return
	}
	if customErr := request.validate(); customErr != nil {
		apperrors.HandleError(c, customErr)
		return
	}

	user, customErr := currentUser(c)
	if customErr != nil {
		apperrors.HandleError(c, customErr)
		return
	}

	if err := h.entitlements.CheckMessageQuota(user.ID, user.Tier); err != nil {
		apperrors.HandleError(c, err)
		return
	}

	chat, err := h.chatStore.GetChatByIDFromDB(request.ID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			apperrors.HandleError(c, apperrors.NewInternalError(err))
			return
		}

		title, titleErr := h.titles.GenerateTitle(c.Request.Context(), request.Message.Content)
		if titleErr != nil {
			// Degrade to the raw message text rather than failing the chat.
			log.Warn().Err(titleErr).Str("chatID", request.ID).Msg("Title generation failed")
			title = services.NormalizeTitle(request.Message.Content)
		}

		chat = &models.Chat{
			ID:         request.ID,
			UserID:     user.ID,
			Title:      title,
			Visibility: request.Visibility,
			CreatedAt:  time.Now(),
		}
		if err := h.chatStore.SaveChatToDB(chat); err != nil {
			apperrors.HandleError(c, apperrors.NewInternalError(err))
			return
		}
	} else if chat.UserID != user.ID {
		apperrors.HandleError(c, apperrors.NewForbiddenError("forbidden:chat",
			"This chat belongs to another user."))
		return
	}

	previousMessages, err := h.chatStore.GetMessagesByChatIDFromDB(request.ID)
	if err != nil {
		apperrors.HandleError(c, apperrors.NewInternalError(err))
		return
	}

	userMessage := &models.Message{
		ID:        request.Message.ID,
		ChatID:    request.ID,
		Role:      models.RoleUser,
		CreatedAt: time.Now(),
	}
	if err := userMessage.SetParts(request.Message.Parts); err != nil {
		apperrors.HandleError(c, apperrors.NewInternalError(err))
		return
	}
	if err := userMessage.SetAttachments(request.Message.Attachments); err != nil {
		apperrors.HandleError(c, apperrors.NewInternalError(err))
		return
	}
	if err := h.chatStore.SaveMessageToDB(userMessage); err != nil {
		apperrors.HandleError(c, apperrors.NewInternalError(err))
		return
	}

	streamID := uuid.New().String()
	if err := h.chatStore.SaveStreamToDB(streamID, request.ID); err != nil {
		apperrors.HandleError(c, apperrors.NewInternalError(err))
		return
	}

	input := services.GenerationInput{
		ChatID:           request.ID,
		PreviousMessages: previousMessages,
		UserText:         request.Message.Content,
		SystemPrompt:     services.ComposeSystemPrompt(requestHints(c), request.SelectedTools),
		ActiveTools:      h.tools.ActiveToolNames(request.SelectedTools),
	}

	if h.streamRegistry == nil {
		// Direct mode: the generation lives and dies with the request.
		writeEventStream(c, h.generator.StreamGeneration(c.Request.Context(), input))
		return
	}

	// Resumable mode: the generation is detached from the request so a
	// disconnected client can come back for the buffered remainder.
	events := h.generator.StreamGeneration(context.Background(), input)
	producer := h.streamRegistry.Register(streamID, request.ID)
	go func() {
		for ev := range events {
			producer.Publish(ev)
		}
		producer.Close()
	}()

	subscription, ok := h.streamRegistry.Resume(c.Request.Context(), streamID)
	if !ok {
		// The producer finished before we subscribed; nothing left to send.
		c.Status(http.StatusOK)
		return
	}
	writeEventStream(c, subscription)
}

// GetChat resumes the most recent stream for a chat, or replays the freshly
// persisted final message when the generation has just concluded.
func (h *ChatHandler) GetChat(c *gin.Context) {
	resumeRequestedAt := h.now()

	if h.streamRegistry == nil {
		c.Status(http.StatusNoContent)
		return
	}

	chatID := c.Query("chatId")
	if chatID == "" {
		apperrors.HandleError(c, badRequest())
		return
	}

	user, customErr := currentUser(c)
	if customErr != nil {
		apperrors.HandleError(c, customErr)
		return
	}

	chat, err := h.chatStore.GetChatByIDFromDB(chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			apperrors.HandleError(c, apperrors.NewNotFoundError("not_found:chat", "Chat not found."))
			return
		}
		apperrors.HandleError(c, apperrors.NewInternalError(err))
		return
	}

	if chat.Visibility == models.VisibilityPrivate && chat.UserID != user.ID {
		apperrors.HandleError(c, apperrors.NewForbiddenError("forbidden:chat",
			"This chat belongs to another user."))
		return
	}

	streamIDs, err := h.chatStore.GetStreamIDsByChatIDFromDB(chatID)
	if err != nil {
		apperrors.HandleError(c, apperrors.NewInternalError(err))
		return
	}
	if len(streamIDs) == 0 {
		apperrors.HandleError(c, apperrors.NewNotFoundError("not_found:stream", "Stream not found."))
		return
	}

	recentStreamID := streamIDs[len(streamIDs)-1]

	if subscription, ok := h.streamRegistry.Resume(c.Request.Context(), recentStreamID); ok {
		writeEventStream(c, subscription)
		return
	}

	// The generation concluded before the reconnect. Replay the persisted
	// final message while it is recent; otherwise return an empty stream.
	messages, err := h.chatStore.GetMessagesByChatIDFromDB(chatID)
	if err != nil {
		apperrors.HandleError(c, apperrors.NewInternalError(err))
		return
	}
	if len(messages) == 0 {
		c.Status(http.StatusOK)
		return
	}

	mostRecent := messages[len(messages)-1]
	if mostRecent.Role != models.RoleAssistant {
		c.Status(http.StatusOK)
		return
	}
	if resumeRequestedAt.Sub(mostRecent.CreatedAt) > h.staleness {
		c.Status(http.StatusOK)
		return
	}

	payload, err := messagePayload(&mostRecent)
	if err != nil {
		apperrors.HandleError(c, apperrors.NewInternalError(err))
		return
	}
	c.SSEvent(stream.EventAppendMessage, payload)
}

// DeleteChat removes a chat the caller owns, cascading to its messages and
// stream records, and returns the deleted representation.
func (h *ChatHandler) DeleteChat(c *gin.Context) {
	chatID := c.Query("id")
	if chatID == "" {
		apperrors.HandleError(c, badRequest())
		return
	}

	user, customErr := currentUser(c)
	if customErr != nil {
		apperrors.HandleError(c, customErr)
		return
	}

	chat, err := h.chatStore.GetChatByIDFromDB(chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			apperrors.HandleError(c, apperrors.NewNotFoundError("not_found:chat", "Chat not found."))
			return
		}
		apperrors.HandleError(c, apperrors.NewInternalError(err))
		return
	}

	if chat.UserID != user.ID {
		apperrors.HandleError(c, apperrors.NewForbiddenError("forbidden:chat",
			"This chat belongs to another user."))
		return
	}

	deleted, err := h.chatStore.DeleteChatByIDFromDB(chatID)
	if err != nil {
		apperrors.HandleError(c, apperrors.NewInternalError(err))
		return
	}

	c.JSON(http.StatusOK, deleted)
}

// writeEventStream forwards stream events to the client as SSE frames until
// the channel closes or the client disconnects.
func writeEventStream(c *gin.Context, events <-chan stream.Event) {
	c.Stream(func(w io.Writer) bool {
		ev, ok := <-events
		if !ok {
			return false
		}
		c.SSEvent(ev.Type, ev.Data)
		return true
	})
}

// messagePayload shapes a persisted message for client replay.
func messagePayload(message *models.Message) (gin.H, error) {
	parts, err := message.GetParts()
	if err != nil {
		return nil, err
	}
	attachments, err := message.GetAttachments()
	if err != nil {
		return nil, err
	}
	return gin.H{
		"id":          message.ID,
		"chatId":      message.ChatID,
		"role":        message.Role,
		"parts":       parts,
		"attachments": attachments,
		"createdAt":   message.CreatedAt.Format(time.RFC3339),
	}, nil
}
