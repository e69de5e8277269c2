package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Chat ids are opaque client-generated tokens, so the primary key is the
// id itself rather than a serial column.
type Chat struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;index;not null" json:"userId"`
	Title      string    `json:"title"`
	Visibility string    `gorm:"not null;default:private" json:"visibility"`
	CreatedAt  time.Time `json:"createdAt"`
}

// MessagePart is one ordered content segment of a message.
type MessagePart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Attachment references an uploaded file accompanying a message.
type Attachment struct {
	URL         string `json:"url"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
}

// Message rows are append-only; they are never mutated after creation.
type Message struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	ChatID      string    `gorm:"index;not null" json:"chatId"`
	Role        string    `gorm:"not null" json:"role"`
	Parts       []byte    `gorm:"type:jsonb" json:"-"`
	Attachments []byte    `gorm:"type:jsonb" json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
}

// SetParts JSON-encodes the ordered content parts onto the row.
func (m *Message) SetParts(parts []MessagePart) error {
	data, err := json.Marshal(parts)
	if err != nil {
		return err
	}
	m.Parts = data
	return nil
}

// GetParts decodes the ordered content parts from the row.
func (m *Message) GetParts() ([]MessagePart, error) {
	if len(m.Parts) == 0 {
		return nil, nil
	}
	var parts []MessagePart
	if err := json.Unmarshal(m.Parts, &parts); err != nil {
		return nil, err
	}
	return parts, nil
}

// SetAttachments JSON-encodes the attachments onto the row.
func (m *Message) SetAttachments(attachments []Attachment) error {
	data, err := json.Marshal(attachments)
	if err != nil {
		return err
	}
	m.Attachments = data
	return nil
}

// GetAttachments decodes the attachments from the row.
func (m *Message) GetAttachments() ([]Attachment, error) {
	if len(m.Attachments) == 0 {
		return nil, nil
	}
	var attachments []Attachment
	if err := json.Unmarshal(m.Attachments, &attachments); err != nil {
		return nil, err
	}
	return attachments, nil
}
