package services

import (
	"time"

	apperrors "exachat_go_backend/internal/errors"
	"exachat_go_backend/internal/models"

	"github.com/google/uuid"
)

// Entitlement is derived from a principal's tier, never stored.
type Entitlement struct {
	MaxMessagesPerDay int64
}

var entitlementsByTier = map[string]Entitlement{
	models.TierGuest:   {MaxMessagesPerDay: 20},
	models.TierRegular: {MaxMessagesPerDay: 100},
}

// EntitlementForTier resolves a tier to its quota. Unknown tiers get the
// guest quota.
func EntitlementForTier(tier string) Entitlement {
	if e, ok := entitlementsByTier[tier]; ok {
		return e
	}
	return entitlementsByTier[models.TierGuest]
}

// EntitlementService gates new work on a principal's daily message quota.
type EntitlementService struct {
	chatStore ChatStoreDB
	window    time.Duration
}

func NewEntitlementService(chatStore ChatStoreDB, window time.Duration) *EntitlementService {
	return &EntitlementService{
		chatStore: chatStore,
		window:    window,
	}
}

// CheckMessageQuota fails with a rate limit error once the trailing-window
// user message count reaches the tier's limit. No side effects.
func (s *EntitlementService) CheckMessageQuota(userID uuid.UUID, tier string) error {
	entitlement := EntitlementForTier(tier)

	count, err := s.chatStore.CountUserMessagesSince(userID, time.Now().Add(-s.window))
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	if count >= entitlement.MaxMessagesPerDay {
		return apperrors.NewRateLimitError("rate_limit:chat")
	}

	return nil
}
