package domain

import (
	"time"

	"github.com/google/uuid"
)

// Flag - жалоба на диалог или на конкретное сообщение.
// Заполнен ровно один целевой объект, согласованный с Type:
// для room сообщение пусто, для message указаны и сообщение, и его диалог.
type Flag struct {
	ID             int64     `json:"id"`
	Type           string    `json:"flag_type"`
	Status         string    `json:"status"`
	ConversationID int64     `json:"room_id"`
	MessageID      *int64    `json:"message_id,omitempty"`
	ReportedBy     uuid.UUID `json:"reported_by"`
	Reason         string    `json:"reason"`
	ModeratorNote  *string   `json:"moderator_note,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

const (
	FlagTypeRoom    = "room"
	FlagTypeMessage = "message"
)

const (
	FlagStatusPending   = "pending"
	FlagStatusResolved  = "resolved"
	FlagStatusDismissed = "dismissed"
)

// ModerationLog - запись аудита, только добавляется и никогда не меняется.
// Ссылка на жалобу слабая: при удалении жалобы обнуляется, а не каскадирует.
type ModerationLog struct {
	ID          int64     `json:"id"`
	FlagID      *int64    `json:"flag_id"`
	Action      string    `json:"action"`
	Note        string    `json:"note"`
	ModeratorID uuid.UUID `json:"moderator_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// ActionDelete - единственное значение action с побочным эффектом:
// каскадное удаление сообщения или всего диалога
const ActionDelete = "delete"

// FlagFilter - фильтры листинга жалоб
type FlagFilter struct {
	Type       string
	Status     string
	ReportedBy *uuid.UUID
	Limit      int
	Offset     int
}
