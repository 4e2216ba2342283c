package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Время ожидания записи
	writeWait = 10 * time.Second

	// Время ожидания pong от клиента
	pongWait = 60 * time.Second

	// Интервал отправки ping
	pingPeriod = (pongWait * 9) / 10

	// Максимальный размер сообщения
	maxMessageSize = 64 * 1024 // 64KB
)

type Client struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Conn     *websocket.Conn
	Send     chan []byte
	Channels map[string]bool
	Hub      *Hub
	mu       sync.RWMutex
}

// ConnectionHandler обрабатывает события одного соединения. Вызовы
// для одного клиента идут строго по одному в порядке поступления;
// HandleDisconnect гарантированно выполняется при любом завершении
// читающего цикла, в том числе аварийном.
type ConnectionHandler interface {
	HandleMessage(client *Client, msg *Message) error
	HandleDisconnect(client *Client)
}

func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID) *Client {
	return &Client{
		ID:       uuid.New(),
		UserID:   userID,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		Channels: make(map[string]bool),
		Hub:      hub,
	}
}

// ReadPump читает события от клиента
func (c *Client) ReadPump(handler ConnectionHandler) {
	defer func() {
		if handler != nil {
			handler.HandleDisconnect(c)
		}
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		err := c.Conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		msg.UserID = c.UserID

		if msg.Type == TypePong {
			continue
		}

		if handler != nil {
			if err := handler.HandleMessage(c, &msg); err != nil {
				log.Printf("Error handling %s: %v", msg.Type, err)
			}
		}
	}
}

// WritePump отправляет события клиенту
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub закрыл канал
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			c.Conn.WriteMessage(websocket.TextMessage, message)

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendEvent отправляет событие в это соединение
func (c *Client) SendEvent(msgType MessageType, payload interface{}) error {
	msg := Message{
		Type:      msgType,
		Timestamp: time.Now(),
	}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		msg.Data = data
	}

	msgData, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	select {
	case c.Send <- msgData:
		return nil
	default:
		return ErrClientQueueFull
	}
}

// SendErrorEvent отправляет именованное событие ошибки; соединение
// при этом остаётся живым
func (c *Client) SendErrorEvent(msgType MessageType, errorMsg string) {
	if err := c.SendEvent(msgType, map[string]string{"error": errorMsg}); err != nil {
		log.Printf("Failed to send %s to client %s: %v", msgType, c.ID, err)
	}
}

func (c *Client) IsInChannel(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Channels[channel]
}

func (c *Client) GetChannels() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	channels := make([]string, 0, len(c.Channels))
	for channel := range c.Channels {
		channels = append(channels, channel)
	}
	return channels
}
