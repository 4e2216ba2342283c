package dto

import "github.com/ssolovyev/tetatet/internal/models"

// ConversationRequestPayload — входящий запрос на установление связи
type ConversationRequestPayload struct {
	ConnectCode string `json:"connectCode"`
}

// CheckCodeResult — результат проверки connect-кода
type CheckCodeResult struct {
	ConnectCode string `json:"connectCode"`
	Valid       bool   `json:"valid"`
}

// FriendInfo — вторая сторона беседы глазами получателя события
type FriendInfo struct {
	ID       string `json:"_id"`
	UserName string `json:"userName"`
	FullName string `json:"fullName"`
	Online   bool   `json:"online"`
}

// ConversationAccepted — нормализованное событие создания беседы.
// Каждый участник получает свой вариант: в friend всегда другая
// сторона, conversationId и счётчики общие.
type ConversationAccepted struct {
	ConversationID string                 `json:"conversationId"`
	Friend         FriendInfo             `json:"friend"`
	UnreadCounts   map[string]int         `json:"unreadCounts"`
	LastMessage    *models.MessagePreview `json:"lastMessage"`
}

// MarkAsReadPayload — входящий запрос отметки о прочтении
type MarkAsReadPayload struct {
	ConversationID string `json:"conversationId"`
	FriendID       string `json:"friendId"`
}

// UnreadCountsUpdated — событие обновления счётчиков для комнаты пары
type UnreadCountsUpdated struct {
	ConversationID string         `json:"conversationId"`
	UnreadCounts   map[string]int `json:"unreadCounts"`
}

// OnlineStatus — серверное событие смены присутствия
type OnlineStatus struct {
	FriendID string `json:"friendId"`
	UserName string `json:"userName"`
	Online   bool   `json:"online"`
}

// ConversationSummary — элемент списка бесед для начальной загрузки
type ConversationSummary struct {
	ConversationID *string                `json:"conversationId"`
	LastMessage    *models.MessagePreview `json:"lastMessage"`
	UnreadCounts   map[string]int         `json:"unreadCounts"`
	Friend         FriendInfo             `json:"friend"`
}
