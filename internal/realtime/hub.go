package realtime

import (
	"sync"

	"messenger/pkg/logger"
)

// Hub - реестр комнат: conversation id -> множество живых соединений.
// Создается один раз в main и передается обработчикам явно;
// никакого глобального состояния пакета.
type Hub struct {
	mu    sync.RWMutex
	rooms map[int64]*room
	log   logger.Logger
}

type room struct {
	mu      sync.Mutex
	members map[*Client]struct{}
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		rooms: make(map[int64]*room),
		log:   log,
	}
}

// Join регистрирует соединение в комнате, создавая ее при необходимости.
// Вставка участника происходит под блокировкой реестра: иначе Leave
// может удалить опустевшую комнату между чтением указателя и вставкой,
// и соединение окажется в комнате-сироте, невидимой для Broadcast.
func (h *Hub) Join(conversationID int64, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[conversationID]
	if !ok {
		r = &room{members: make(map[*Client]struct{})}
		h.rooms[conversationID] = r
	}

	r.mu.Lock()
	r.members[c] = struct{}{}
	r.mu.Unlock()
}

// Leave убирает соединение из комнаты; опустевшая комната удаляется.
// Повторный вызов для уже ушедшего соединения безвреден.
func (h *Hub) Leave(conversationID int64, c *Client) {
	h.mu.Lock()
	r, ok := h.rooms[conversationID]
	h.mu.Unlock()
	if !ok {
		return
	}

	r.mu.Lock()
	delete(r.members, c)
	empty := len(r.members) == 0
	r.mu.Unlock()

	if empty {
		h.mu.Lock()
		// Перепроверка под write-блокировкой: кто-то мог успеть войти
		r.mu.Lock()
		if len(r.members) == 0 {
			delete(h.rooms, conversationID)
		}
		r.mu.Unlock()
		h.mu.Unlock()
	}
}

// Broadcast доставляет кадр всем участникам комнаты, включая отправителя.
// Отправка неблокирующая: соединение с переполненной очередью
// отключается, чтобы один медленный получатель не стопорил комнату.
func (h *Hub) Broadcast(conversationID int64, frame []byte) {
	h.mu.RLock()
	r, ok := h.rooms[conversationID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	var slow []*Client

	r.mu.Lock()
	for c := range r.members {
		select {
		case c.send <- frame:
		default:
			slow = append(slow, c)
			delete(r.members, c)
		}
	}
	r.mu.Unlock()

	for _, c := range slow {
		h.log.Warn("Dropping slow realtime consumer",
			"conversation_id", conversationID, "user_id", c.user.ID)
		c.closeSend()
	}
}

// RoomSize возвращает число активных соединений комнаты
func (h *Hub) RoomSize(conversationID int64) int {
	h.mu.RLock()
	r, ok := h.rooms[conversationID]
	h.mu.RUnlock()
	if !ok {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}
