package models

import "time"

// Stream records one generation attempt against a chat. Rows are never
// mutated or deleted individually; the chat delete cascade removes them.
// Only the most recent stream of a chat is eligible for resumption.
type Stream struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	ChatID    string    `gorm:"index;not null" json:"chatId"`
	CreatedAt time.Time `json:"createdAt"`
}
