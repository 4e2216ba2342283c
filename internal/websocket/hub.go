package websocket

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MessageType определяет типы событий
type MessageType string

const (
	// Системные типы
	TypeConnect    MessageType = "connect"
	TypeDisconnect MessageType = "disconnect"
	TypePing       MessageType = "ping"
	TypePong       MessageType = "pong"

	// События координации бесед
	TypeConversationRequest      MessageType = "conversation:request"
	TypeConversationRequestError MessageType = "conversation:request:error"
	TypeConversationAccept       MessageType = "conversation:accept"
	TypeConversationCheckCode    MessageType = "conversation:check-code"
	TypeConversationCodeResult   MessageType = "conversation:check-code:result"

	// События счётчиков и статусов
	TypeConversationMarkAsRead      MessageType = "conversation:mark-as-read"
	TypeConversationMarkAsReadError MessageType = "conversation:mark-as-read:error"
	TypeConversationUnreadCounts    MessageType = "conversation:update-unread-counts"
	TypeConversationOnlineStatus    MessageType = "conversation:online-status"

	// Новое сообщение в беседе
	TypeMessageNew MessageType = "message:new"
)

type Message struct {
	Type      MessageType     `json:"type"`
	UserID    uuid.UUID       `json:"user_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Hub маршрутизирует события по именованным каналам: личный канал
// пользователя и комнаты пар. Доставка fire-and-forget — без
// подтверждений и повторов.
type Hub struct {
	clients map[uuid.UUID]*Client

	// Подписчики по имени канала
	channels map[string]map[uuid.UUID]*Client

	// Каналы для регистрации/отмены регистрации
	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	// Контекст для graceful shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub создает новый Hub
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[uuid.UUID]*Client),
		channels:   make(map[string]map[uuid.UUID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Run запускает hub
func (h *Hub) Run() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-ticker.C:
			h.ping()
		}
	}
}

// Stop останавливает hub
func (h *Hub) Stop() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		close(client.Send)
		if client.Conn != nil {
			client.Conn.Close()
		}
	}
}

// Register регистрирует нового клиента
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister отменяет регистрацию клиента
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client

	// Личный канал пользователя: адресные события доходят до всех
	// его соединений
	h.joinUnsafe(client, InboxChannel(client.UserID))

	log.Printf("Client registered: %s (User: %s)", client.ID, client.UserID)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; ok {
		for channel := range client.Channels {
			h.leaveUnsafe(client, channel)
		}

		delete(h.clients, client.ID)
		close(client.Send)

		log.Printf("Client unregistered: %s (User: %s)", client.ID, client.UserID)
	}
}

// Join подписывает клиента на канал
func (h *Hub) Join(client *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.joinUnsafe(client, channel)
}

func (h *Hub) joinUnsafe(client *Client, channel string) {
	if _, ok := h.channels[channel]; !ok {
		h.channels[channel] = make(map[uuid.UUID]*Client)
	}

	h.channels[channel][client.ID] = client

	client.mu.Lock()
	client.Channels[channel] = true
	client.mu.Unlock()
}

// Leave отписывает клиента от канала
func (h *Hub) Leave(client *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leaveUnsafe(client, channel)
}

func (h *Hub) leaveUnsafe(client *Client, channel string) {
	if subscribers, ok := h.channels[channel]; ok {
		delete(subscribers, client.ID)
		if len(subscribers) == 0 {
			delete(h.channels, channel)
		}
	}

	client.mu.Lock()
	delete(client.Channels, channel)
	client.mu.Unlock()
}

// LeaveAll отписывает клиента от всех каналов с данным префиксом.
// Используется с ChatRoomPrefix при полном отключении: комнаты пар
// освобождаются, личный канал остаётся.
func (h *Hub) LeaveAll(client *Client, prefix string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, channel := range client.GetChannels() {
		if strings.HasPrefix(channel, prefix) {
			h.leaveUnsafe(client, channel)
		}
	}
}

// Emit доставляет событие всем подписчикам канала
func (h *Hub) Emit(channel string, msgType MessageType, payload interface{}) {
	msg := Message{
		Type:      msgType,
		Timestamp: time.Now(),
	}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			log.Printf("Failed to marshal %s payload: %v", msgType, err)
			return
		}
		msg.Data = data
	}

	msgData, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal %s event: %v", msgType, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.channels[channel] {
		select {
		case client.Send <- msgData:
		default:
			log.Printf("Client %s send channel full", client.ID)
		}
	}
}

// EmitToUser доставляет событие в личный канал пользователя
func (h *Hub) EmitToUser(userID uuid.UUID, msgType MessageType, payload interface{}) {
	h.Emit(InboxChannel(userID), msgType, payload)
}

func (h *Hub) ping() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	msg := Message{
		Type:      TypePing,
		Timestamp: time.Now(),
	}

	if data, err := json.Marshal(msg); err == nil {
		for _, client := range h.clients {
			select {
			case client.Send <- data:
			default:
			}
		}
	}
}

// ChannelUsers возвращает пользователей, подписанных на канал
func (h *Hub) ChannelUsers(channel string) []uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()

	userMap := make(map[uuid.UUID]bool)
	if subscribers, ok := h.channels[channel]; ok {
		for _, client := range subscribers {
			userMap[client.UserID] = true
		}
	}

	users := make([]uuid.UUID, 0, len(userMap))
	for userID := range userMap {
		users = append(users, userID)
	}
	return users
}
