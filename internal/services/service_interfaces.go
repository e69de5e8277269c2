package services

import (
	"context"

	"exachat_go_backend/internal/stream"

	"github.com/google/uuid"
)

type EntitlementChecker interface {
	CheckMessageQuota(userID uuid.UUID, tier string) error
}

type TitleGenerator interface {
	GenerateTitle(ctx context.Context, message string) (string, error)
}

type Generator interface {
	StreamGeneration(ctx context.Context, input GenerationInput) <-chan stream.Event
}

type ToolResolver interface {
	ActiveToolNames(selections []ToolSelection) []string
}
