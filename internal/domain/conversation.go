package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Conversation - диалог двух пользователей.
// Состав участников фиксируется при создании и не меняется.
type Conversation struct {
	ID           int64     `json:"id"`
	PairKey      string    `json:"-"`
	Participants []*User   `json:"participants,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ConversationPreview - строка списка диалогов с метаданными для UI
type ConversationPreview struct {
	Conversation
	LastMessage *Message `json:"last_message"`
	UnreadCount int      `json:"unread_count"`
}

type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation"`
	SenderID       uuid.UUID `json:"sender_id"`
	SenderUsername string    `json:"sender_username,omitempty"`
	Content        string    `json:"content"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

// PairKey строит ключ неупорядоченной пары участников.
// Уникальный индекс по нему исключает дубли диалогов при гонке создания.
func PairKey(a, b uuid.UUID) string {
	if a.String() > b.String() {
		a, b = b, a
	}
	return fmt.Sprintf("%s_%s", a, b)
}
