package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"messenger/internal/config"
	"messenger/internal/domain"
	"messenger/internal/service"
	"messenger/pkg/logger"

	"github.com/gorilla/websocket"
)

// Client - одно joined-соединение в комнате.
// Жизненный цикл: Connecting -> Authorizing -> Joined -> Closed;
// Client создается только для соединений, прошедших до Joined,
// отклоненные закрываются раньше без регистрации в Hub.
type Client struct {
	hub            *Hub
	conversationID int64
	user           *domain.User

	conn *websocket.Conn
	send chan []byte

	conversations service.ConversationService
	presence      service.PresenceService
	cfg           config.RealtimeConfig
	log           logger.Logger

	closeOnce    sync.Once
	teardownOnce sync.Once
}

func NewClient(
	hub *Hub,
	conversationID int64,
	user *domain.User,
	conn *websocket.Conn,
	conversations service.ConversationService,
	presence service.PresenceService,
	cfg config.RealtimeConfig,
	log logger.Logger,
) *Client {
	return &Client{
		hub:            hub,
		conversationID: conversationID,
		user:           user,
		conn:           conn,
		send:           make(chan []byte, cfg.SendQueueSize),
		conversations:  conversations,
		presence:       presence,
		cfg:            cfg,
		log:            log,
	}
}

// Run регистрирует соединение в комнате, поднимает presence и запускает
// насосы чтения и записи. Блокируется до закрытия соединения.
func (c *Client) Run(ctx context.Context) {
	c.hub.Join(c.conversationID, c)

	// Online только после успешного входа в комнату
	if err := c.presence.SetOnline(ctx, c.user.ID, true); err != nil {
		c.log.Warn("Failed to set user online", "error", err, "user_id", c.user.ID)
	}

	go c.writePump()
	c.readPump(ctx)
}

// teardown - единственный путь выхода: Leave + presence off выполняются
// ровно один раз на любом сценарии разрыва
func (c *Client) teardown(ctx context.Context) {
	c.teardownOnce.Do(func() {
		c.hub.Leave(c.conversationID, c)
		c.closeSend()
		c.conn.Close()

		if err := c.presence.SetOnline(ctx, c.user.ID, false); err != nil {
			c.log.Warn("Failed to set user offline", "error", err, "user_id", c.user.ID)
		}
	})
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

func (c *Client) readPump(ctx context.Context) {
	defer c.teardown(ctx)

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("Unexpected connection close", "error", err, "user_id", c.user.ID)
			}
			return
		}

		event, err := ParseInbound(data)
		if err != nil {
			if errors.Is(err, ErrUnknownEventType) {
				// Неизвестный тип кадра пропускаем, соединение живет
				c.log.Debug("Ignoring unknown inbound event", "user_id", c.user.ID)
				continue
			}
			c.log.Warn("Malformed inbound frame, closing connection", "error", err, "user_id", c.user.ID)
			return
		}

		if err := c.handleEvent(ctx, event); err != nil {
			c.log.Error("Failed to handle inbound event", "error", err, "user_id", c.user.ID)
			return
		}
	}
}

// handleEvent разбирает сумму входящих событий исчерпывающим switch
func (c *Client) handleEvent(ctx context.Context, event InboundEvent) error {
	switch ev := event.(type) {
	case MessageEvent:
		// Сначала долговременная запись, потом рассылка: участники видят
		// сообщение не раньше, чем оно сохранено.
		// Контент проходит дословно, без trim-валидации REST-пути.
		message, err := c.conversations.AppendMessage(ctx, c.conversationID, c.user, ev.Content)
		if err != nil {
			return err
		}

		frame, err := EncodeMessageFrame(message)
		if err != nil {
			return err
		}
		c.hub.Broadcast(c.conversationID, frame)
		return nil

	case TypingEvent:
		// Без персистентности; эхо уходит и самому отправителю
		frame, err := EncodeTypingFrame(c.user, ev.IsTyping)
		if err != nil {
			return err
		}
		c.hub.Broadcast(c.conversationID, frame)
		return nil

	default:
		// Недостижимо, пока ParseInbound закрывает все варианты
		return errors.New("realtime: unhandled event variant")
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// UserID удобен для логов и тестов
func (c *Client) UserID() string {
	return c.user.ID.String()
}
