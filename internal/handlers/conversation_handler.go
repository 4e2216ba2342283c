package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/google/uuid"
	"github.com/ssolovyev/tetatet/internal/database"
	"github.com/ssolovyev/tetatet/internal/handlers/dto"
	"github.com/ssolovyev/tetatet/internal/models"
	"github.com/ssolovyev/tetatet/internal/session"
	"github.com/ssolovyev/tetatet/internal/websocket"
	"gorm.io/gorm"
)

// ConversationHandler — координатор связей и бесед поверх одного
// соединения: обрабатывает запросы на установление связи, отметки о
// прочтении и переходы присутствия. События одного клиента
// обрабатываются по одному, в порядке поступления.
type ConversationHandler struct {
	db       *database.Database
	hub      *websocket.Hub
	sessions session.Store
}

func NewConversationHandler(db *database.Database, hub *websocket.Hub, sessions session.Store) *ConversationHandler {
	return &ConversationHandler{
		db:       db,
		hub:      hub,
		sessions: sessions,
	}
}

func (h *ConversationHandler) HandleMessage(client *websocket.Client, msg *websocket.Message) error {
	switch msg.Type {
	case websocket.TypeConversationRequest:
		return h.handleConversationRequest(client, msg)

	case websocket.TypeConversationCheckCode:
		return h.handleCheckConnectCode(client, msg)

	case websocket.TypeConversationMarkAsRead:
		return h.handleMarkAsRead(client, msg)

	default:
		log.Printf("Unknown message type: %s", msg.Type)
		return nil
	}
}

// HandleConnect регистрирует сессию соединения и подключает его к
// комнатам всех пар пользователя. Событие "online" уходит друзьям
// только на первой сессии: второе устройство перехода не вызывает.
func (h *ConversationHandler) HandleConnect(client *websocket.Client) {
	ctx := context.Background()
	count := h.sessions.AddSession(ctx, client.UserID.String(), client.ID.String())

	friendships, err := h.db.GetUserFriendships(client.UserID)
	if err != nil {
		log.Printf("Failed to load friendships for %s: %v", client.UserID, err)
		return
	}

	for _, friendship := range friendships {
		friendID := friendship.FriendOf(client.UserID)
		h.hub.Join(client, websocket.ChatRoom(client.UserID, friendID))
	}

	if count == 1 {
		h.announcePresence(client.UserID, true)
	}
}

// HandleDisconnect снимает сессию и, если она была последней,
// рассылает "offline" и освобождает комнаты пар. Личный канал
// остаётся за клиентом до отмены регистрации в hub.
func (h *ConversationHandler) HandleDisconnect(client *websocket.Client) {
	ctx := context.Background()
	remaining := h.sessions.RemoveSession(ctx, client.UserID.String(), client.ID.String())

	if remaining > 0 {
		return
	}

	h.announcePresence(client.UserID, false)
	h.hub.LeaveAll(client, websocket.ChatRoomPrefix)
}

// announcePresence доставляет смену присутствия в личные каналы всех
// друзей. Доставка всегда адресная: друг получит событие, даже если
// его соединение ещё не вошло в общую комнату.
func (h *ConversationHandler) announcePresence(userID uuid.UUID, online bool) {
	user, err := h.db.GetUser(userID.String())
	if err != nil {
		log.Printf("Failed to load user %s: %v", userID, err)
		return
	}

	friendships, err := h.db.GetUserFriendships(userID)
	if err != nil {
		log.Printf("Failed to load friendships for %s: %v", userID, err)
		return
	}

	status := dto.OnlineStatus{
		FriendID: userID.String(),
		UserName: user.UserName,
		Online:   online,
	}

	for _, friendship := range friendships {
		h.hub.EmitToUser(friendship.FriendOf(userID), websocket.TypeConversationOnlineStatus, status)
	}
}

// handleConversationRequest проверяет connect-код и создаёт связь
// вместе с беседой пары. Гонку одновременных запросов разрешает
// уникальный индекс на канонической паре: проигравший получает
// "already exist".
func (h *ConversationHandler) handleConversationRequest(client *websocket.Client, msg *websocket.Message) error {
	var payload dto.ConversationRequestPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil || payload.ConnectCode == "" {
		client.SendErrorEvent(websocket.TypeConversationRequestError, "Unable to find conversations")
		return nil
	}

	friend, err := h.db.FindUserByConnectCode(payload.ConnectCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			client.SendErrorEvent(websocket.TypeConversationRequestError, "Unable to find conversations")
			return nil
		}
		client.SendErrorEvent(websocket.TypeConversationRequestError, "Error conversation:request")
		return err
	}

	if friend.ID == client.UserID {
		client.SendErrorEvent(websocket.TypeConversationRequestError, "Can not add yourself as friend")
		return nil
	}

	if _, err := h.db.FindFriendshipBetween(client.UserID, friend.ID); err == nil {
		client.SendErrorEvent(websocket.TypeConversationRequestError, "already exist")
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		client.SendErrorEvent(websocket.TypeConversationRequestError, "Error conversation:request")
		return err
	}

	friendship := &models.Friendship{
		RequesterID: client.UserID,
		RecipientID: friend.ID,
	}

	if err := h.db.CreateFriendship(friendship); err != nil {
		switch {
		case errors.Is(err, database.ErrFriendshipExists):
			client.SendErrorEvent(websocket.TypeConversationRequestError, "already exist")
			return nil
		case errors.Is(err, models.ErrSelfFriendship):
			client.SendErrorEvent(websocket.TypeConversationRequestError, "Can not add yourself as friend")
			return nil
		default:
			client.SendErrorEvent(websocket.TypeConversationRequestError, "Error conversation:request")
			return err
		}
	}

	// Беседа могла появиться раньше своей связи — переиспользуем
	conversation, err := h.db.GetOrCreateConversation(client.UserID, friend.ID)
	if err != nil {
		client.SendErrorEvent(websocket.TypeConversationRequestError, "Error conversation:request")
		return err
	}

	h.hub.Join(client, websocket.ChatRoom(client.UserID, friend.ID))

	requester, err := h.db.GetUser(client.UserID.String())
	if err != nil {
		client.SendErrorEvent(websocket.TypeConversationRequestError, "Error conversation:request")
		return err
	}

	ctx := context.Background()
	unreadCounts := map[string]int{
		client.UserID.String(): 0,
		friend.ID.String():     0,
	}

	// Каждому участнику — свой вариант события: в friend всегда
	// другая сторона
	h.hub.EmitToUser(client.UserID, websocket.TypeConversationAccept, dto.ConversationAccepted{
		ConversationID: conversation.ID.String(),
		Friend: dto.FriendInfo{
			ID:       friend.ID.String(),
			UserName: friend.UserName,
			FullName: friend.FullName,
			Online:   h.sessions.IsOnline(ctx, friend.ID.String()),
		},
		UnreadCounts: unreadCounts,
		LastMessage:  conversation.Preview(),
	})

	h.hub.EmitToUser(friend.ID, websocket.TypeConversationAccept, dto.ConversationAccepted{
		ConversationID: conversation.ID.String(),
		Friend: dto.FriendInfo{
			ID:       requester.ID.String(),
			UserName: requester.UserName,
			FullName: requester.FullName,
			Online:   h.sessions.IsOnline(ctx, requester.ID.String()),
		},
		UnreadCounts: unreadCounts,
		LastMessage:  conversation.Preview(),
	})

	return nil
}

// handleCheckConnectCode — проверка кода без побочных эффектов,
// те же шаги валидации, что и у запроса связи.
func (h *ConversationHandler) handleCheckConnectCode(client *websocket.Client, msg *websocket.Message) error {
	var payload dto.ConversationRequestPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil || payload.ConnectCode == "" {
		return client.SendEvent(websocket.TypeConversationCodeResult, dto.CheckCodeResult{
			ConnectCode: payload.ConnectCode,
			Valid:       false,
		})
	}

	valid, err := h.checkConnectCode(client.UserID, payload.ConnectCode)
	if err != nil {
		return err
	}

	return client.SendEvent(websocket.TypeConversationCodeResult, dto.CheckCodeResult{
		ConnectCode: payload.ConnectCode,
		Valid:       valid,
	})
}

func (h *ConversationHandler) checkConnectCode(userID uuid.UUID, connectCode string) (bool, error) {
	return checkConnectCodeAgainst(h.db, userID, connectCode)
}

// checkConnectCodeAgainst — общая валидация кода для socket- и
// REST-путей: резолв кода, запрет самосвязи, проверка дубликата.
func checkConnectCodeAgainst(db *database.Database, userID uuid.UUID, connectCode string) (bool, error) {
	friend, err := db.FindUserByConnectCode(connectCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	if friend.ID == userID {
		return false, nil
	}

	if _, err := db.FindFriendshipBetween(userID, friend.ID); err == nil {
		return false, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	return true, nil
}

// handleMarkAsRead обнуляет счётчик непрочитанного действующего
// пользователя и рассылает обновление в комнату пары. Чужой счётчик
// никогда не меняется этим путём.
func (h *ConversationHandler) handleMarkAsRead(client *websocket.Client, msg *websocket.Message) error {
	var payload dto.MarkAsReadPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		client.SendErrorEvent(websocket.TypeConversationMarkAsReadError, "No Friend Found")
		return nil
	}

	friendID, err := uuid.Parse(payload.FriendID)
	if err != nil {
		client.SendErrorEvent(websocket.TypeConversationMarkAsReadError, "No Friend Found")
		return nil
	}

	if _, err := h.db.FindFriendshipBetween(client.UserID, friendID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			client.SendErrorEvent(websocket.TypeConversationMarkAsReadError, "No Friend Found")
			return nil
		}
		client.SendErrorEvent(websocket.TypeConversationMarkAsReadError, "Error : conversation:mark-as-read:error")
		return err
	}

	conversation, err := h.db.MarkConversationRead(payload.ConversationID, client.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, database.ErrNotParticipant) {
			client.SendErrorEvent(websocket.TypeConversationMarkAsReadError, "No Conversations Found")
			return nil
		}
		client.SendErrorEvent(websocket.TypeConversationMarkAsReadError, "Error : conversation:mark-as-read:error")
		return err
	}

	room := websocket.ChatRoom(client.UserID, friendID)
	h.hub.Emit(room, websocket.TypeConversationUnreadCounts, dto.UnreadCountsUpdated{
		ConversationID: conversation.ID.String(),
		UnreadCounts: map[string]int{
			client.UserID.String(): 0,
			friendID.String():      conversation.UnreadFor(friendID),
		},
	})

	return nil
}
