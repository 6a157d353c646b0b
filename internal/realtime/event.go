package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"messenger/internal/domain"

	"github.com/google/uuid"
)

const (
	EventTypeMessage = "message"
	EventTypeTyping  = "typing"
)

// ErrUnknownEventType возвращается для кадра с валидным JSON,
// но не описанным в сумме типом
var ErrUnknownEventType = errors.New("realtime: unknown event type")

// InboundEvent - закрытая сумма типов входящих кадров.
// Новый вид события обязан получить свою ветку в switch обработчика,
// иначе он не скомпилируется против ParseInbound.
type InboundEvent interface {
	isInboundEvent()
}

// MessageEvent - кадр {"type":"message","content":...}
type MessageEvent struct {
	Content string
}

// TypingEvent - кадр {"type":"typing","is_typing":...}
type TypingEvent struct {
	IsTyping bool
}

func (MessageEvent) isInboundEvent() {}
func (TypingEvent) isInboundEvent()  {}

type inboundFrame struct {
	Type     string          `json:"type"`
	Content  json.RawMessage `json:"content"`
	IsTyping *bool           `json:"is_typing"`
}

// ParseInbound разбирает входящий кадр в один из вариантов InboundEvent
func ParseInbound(data []byte) (InboundEvent, error) {
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("realtime: malformed frame: %w", err)
	}

	switch frame.Type {
	case EventTypeMessage:
		var content string
		if len(frame.Content) > 0 {
			if err := json.Unmarshal(frame.Content, &content); err != nil {
				return nil, fmt.Errorf("realtime: message content must be a string: %w", err)
			}
		}
		return MessageEvent{Content: content}, nil

	case EventTypeTyping:
		isTyping := false
		if frame.IsTyping != nil {
			isTyping = *frame.IsTyping
		}
		return TypingEvent{IsTyping: isTyping}, nil

	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownEventType, frame.Type)
	}
}

// MessagePayload - тело исходящего кадра message
type MessagePayload struct {
	ID             int64     `json:"id"`
	Content        string    `json:"content"`
	SenderID       uuid.UUID `json:"sender_id"`
	SenderUsername string    `json:"sender_username"`
	CreatedAt      time.Time `json:"created_at"`
}

type outboundMessageFrame struct {
	Type    string         `json:"type"`
	Message MessagePayload `json:"message"`
}

type outboundTypingFrame struct {
	Type     string    `json:"type"`
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	IsTyping bool      `json:"is_typing"`
}

// EncodeMessageFrame собирает исходящий кадр message из сохраненного сообщения
func EncodeMessageFrame(message *domain.Message) ([]byte, error) {
	return json.Marshal(outboundMessageFrame{
		Type: EventTypeMessage,
		Message: MessagePayload{
			ID:             message.ID,
			Content:        message.Content,
			SenderID:       message.SenderID,
			SenderUsername: message.SenderUsername,
			CreatedAt:      message.CreatedAt,
		},
	})
}

// EncodeTypingFrame собирает исходящий кадр typing.
// Отправитель получает свое же эхо наравне с кадрами message.
func EncodeTypingFrame(user *domain.User, isTyping bool) ([]byte, error) {
	return json.Marshal(outboundTypingFrame{
		Type:     EventTypeTyping,
		UserID:   user.ID,
		Username: user.Username,
		IsTyping: isTyping,
	})
}
