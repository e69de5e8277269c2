package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
)

const titleSystemPrompt = `You will generate a short title based on the first message a user begins a conversation with.
- Ensure it is not more than 80 characters long.
- The title should be a summary of the user's message.
- Do not use quotes or colons.`

// TitleService derives a chat title from the first user message via a
// separate, non-streaming summarization call.
type TitleService struct {
	genAIClient *genai.Client
	modelName   string
}

func NewTitleService(genAIClient *genai.Client, modelName string) *TitleService {
	return &TitleService{
		genAIClient: genAIClient,
		modelName:   modelName,
	}
}

func (s *TitleService) GenerateTitle(ctx context.Context, message string) (string, error) {
	model := s.genAIClient.GenerativeModel(s.modelName)
	model.SystemInstruction = genai.NewUserContent(genai.Text(titleSystemPrompt))

	resp, err := model.GenerateContent(ctx, genai.Text(message))
	if err != nil {
		return "", fmt.Errorf("failed to generate title: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty title response")
	}

	var title strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			title.WriteString(string(text))
		}
	}

	return NormalizeTitle(title.String()), nil
}

// NormalizeTitle trims whitespace and surrounding quotes and clamps the
// title to 80 characters.
func NormalizeTitle(title string) string {
	title = strings.TrimSpace(title)
	title = strings.Trim(title, `"'`)
	title = strings.ReplaceAll(title, "\n", " ")
	if runes := []rune(title); len(runes) > 80 {
		title = string(runes[:80])
	}
	return title
}
