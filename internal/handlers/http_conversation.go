package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ssolovyev/tetatet/internal/database"
	"github.com/ssolovyev/tetatet/internal/handlers/dto"
	"github.com/ssolovyev/tetatet/internal/middleware"
	"github.com/ssolovyev/tetatet/internal/session"
)

type HTTPConversationHandler struct {
	db       *database.Database
	sessions session.Store
}

func NewHTTPConversationHandler(db *database.Database, sessions session.Store) *HTTPConversationHandler {
	return &HTTPConversationHandler{db: db, sessions: sessions}
}

// GetConversations собирает список бесед для начальной загрузки:
// каждая связь пользователя вместе с её беседой, счётчиками и живым
// статусом друга из реестра сессий.
func (h *HTTPConversationHandler) GetConversations(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	friendships, err := h.db.GetUserFriendships(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error in getConversations controller"})
		return
	}

	if len(friendships) == 0 {
		c.JSON(http.StatusOK, gin.H{"data": []dto.ConversationSummary{}})
		return
	}

	conversations, err := h.db.GetUserConversations(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error in getConversations controller"})
		return
	}

	// Беседы по идентификатору друга для быстрого сопоставления
	byFriend := make(map[uuid.UUID]int, len(conversations))
	for i := range conversations {
		byFriend[conversations[i].OtherParticipant(userID)] = i
	}

	data := make([]dto.ConversationSummary, 0, len(friendships))
	for _, friendship := range friendships {
		friend := friendship.Recipient
		if friendship.RecipientID == userID {
			friend = friendship.Requester
		}

		summary := dto.ConversationSummary{
			UnreadCounts: map[string]int{
				friendship.RequesterID.String(): 0,
				friendship.RecipientID.String(): 0,
			},
			Friend: dto.FriendInfo{
				ID:       friend.ID.String(),
				UserName: friend.UserName,
				FullName: friend.FullName,
				Online:   h.sessions.IsOnline(c.Request.Context(), friend.ID.String()),
			},
		}

		if i, ok := byFriend[friend.ID]; ok {
			conversation := &conversations[i]
			id := conversation.ID.String()
			summary.ConversationID = &id
			summary.LastMessage = conversation.Preview()
			summary.UnreadCounts = map[string]int{
				friendship.RequesterID.String(): conversation.UnreadFor(friendship.RequesterID),
				friendship.RecipientID.String(): conversation.UnreadFor(friendship.RecipientID),
			}
		}

		data = append(data, summary)
	}

	c.JSON(http.StatusOK, gin.H{"data": data})
}

// CheckConnectCode — REST-вариант проверки кода перед отправкой
// запроса на связь.
func (h *HTTPConversationHandler) CheckConnectCode(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	connectCode := c.Query("connectCode")
	if connectCode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid connect code"})
		return
	}

	valid, err := checkConnectCodeAgainst(h.db, userID, connectCode)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error in checking connect code"})
		return
	}

	if !valid {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid connect code"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Code is valid"})
}
