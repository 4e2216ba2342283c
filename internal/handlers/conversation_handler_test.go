package handlers

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/ssolovyev/tetatet/internal/database"
	"github.com/ssolovyev/tetatet/internal/handlers/dto"
	"github.com/ssolovyev/tetatet/internal/models"
	"github.com/ssolovyev/tetatet/internal/session"
	ws "github.com/ssolovyev/tetatet/internal/websocket"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	db       *database.Database
	hub      *ws.Hub
	sessions session.Store
	handler  *ConversationHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(gdb))

	db := database.NewDatabase(gdb)
	hub := ws.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	sessions := session.NewMemoryStore()
	handler := NewConversationHandler(db, hub, sessions)

	return &testEnv{db: db, hub: hub, sessions: sessions, handler: handler}
}

func (e *testEnv) createUser(t *testing.T, userName, connectCode string) *models.User {
	t.Helper()

	user := &models.User{
		ConnectCode: connectCode,
		UserName:    userName,
		FullName:    userName + " Full",
	}
	require.NoError(t, e.db.SaveUser(user))
	return user
}

// connect открывает "соединение" пользователя: регистрация в hub и
// полный путь HandleConnect, как при реальном апгрейде
func (e *testEnv) connect(t *testing.T, user *models.User) *ws.Client {
	t.Helper()

	client := ws.NewClient(e.hub, nil, user.ID)
	e.hub.Register(client)
	require.Eventually(t, func() bool {
		return client.IsInChannel(ws.InboxChannel(user.ID))
	}, time.Second, 5*time.Millisecond)

	e.handler.HandleConnect(client)
	return client
}

func (e *testEnv) sendEvent(t *testing.T, client *ws.Client, msgType ws.MessageType, payload interface{}) {
	t.Helper()

	data, err := json.Marshal(payload)
	require.NoError(t, err)

	err = e.handler.HandleMessage(client, &ws.Message{
		Type:   msgType,
		UserID: client.UserID,
		Data:   data,
	})
	require.NoError(t, err)
}

func awaitEvent(t *testing.T, client *ws.Client, msgType ws.MessageType) ws.Message {
	t.Helper()

	deadline := time.After(time.Second)
	for {
		select {
		case data := <-client.Send:
			var msg ws.Message
			require.NoError(t, json.Unmarshal(data, &msg))
			if msg.Type == msgType {
				return msg
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", msgType)
			return ws.Message{}
		}
	}
}

func requireNoEvent(t *testing.T, client *ws.Client, msgType ws.MessageType) {
	t.Helper()

	timeout := time.After(100 * time.Millisecond)
	for {
		select {
		case data := <-client.Send:
			var msg ws.Message
			require.NoError(t, json.Unmarshal(data, &msg))
			require.NotEqual(t, msgType, msg.Type)
		case <-timeout:
			return
		}
	}
}

func decodePayload(t *testing.T, msg ws.Message, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(msg.Data, out))
}

func TestConversationRequest_BothPartiesAccepted(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)

	alice := env.createUser(t, "alice", "482913")
	bob := env.createUser(t, "bob", "771204")

	aliceClient := env.connect(t, alice)
	bobClient := env.connect(t, bob)

	env.sendEvent(t, bobClient, ws.TypeConversationRequest, dto.ConversationRequestPayload{
		ConnectCode: "482913",
	})

	var forBob, forAlice dto.ConversationAccepted
	decodePayload(t, awaitEvent(t, bobClient, ws.TypeConversationAccept), &forBob)
	decodePayload(t, awaitEvent(t, aliceClient, ws.TypeConversationAccept), &forAlice)

	// Общая беседа, нулевые счётчики, friend — всегда другая сторона
	req.Equal(forBob.ConversationID, forAlice.ConversationID)
	req.Equal(alice.ID.String(), forBob.Friend.ID)
	req.Equal(bob.ID.String(), forAlice.Friend.ID)
	req.Equal(map[string]int{alice.ID.String(): 0, bob.ID.String(): 0}, forBob.UnreadCounts)
	req.Equal(forBob.UnreadCounts, forAlice.UnreadCounts)
	req.True(forBob.Friend.Online)
	req.Nil(forBob.LastMessage)

	friendship, err := env.db.FindFriendshipBetween(alice.ID, bob.ID)
	req.NoError(err)
	req.Equal(models.FriendshipAccepted, friendship.Status)

	conversation, err := env.db.FindConversationBetween(alice.ID, bob.ID)
	req.NoError(err)
	req.Equal(conversation.ID.String(), forBob.ConversationID)

	// Инициатор подключён к комнате пары
	req.True(bobClient.IsInChannel(ws.ChatRoom(alice.ID, bob.ID)))
}

func TestConversationRequest_SelfRejected(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)

	alice := env.createUser(t, "alice", "482913")
	client := env.connect(t, alice)

	env.sendEvent(t, client, ws.TypeConversationRequest, dto.ConversationRequestPayload{
		ConnectCode: "482913",
	})

	msg := awaitEvent(t, client, ws.TypeConversationRequestError)

	var payload map[string]string
	decodePayload(t, msg, &payload)
	req.Equal("Can not add yourself as friend", payload["error"])

	friendships, err := env.db.GetUserFriendships(alice.ID)
	req.NoError(err)
	req.Empty(friendships)

	conversations, err := env.db.GetUserConversations(alice.ID)
	req.NoError(err)
	req.Empty(conversations)
}

func TestConversationRequest_UnknownCode(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)

	alice := env.createUser(t, "alice", "482913")
	client := env.connect(t, alice)

	env.sendEvent(t, client, ws.TypeConversationRequest, dto.ConversationRequestPayload{
		ConnectCode: "000000",
	})

	var payload map[string]string
	decodePayload(t, awaitEvent(t, client, ws.TypeConversationRequestError), &payload)
	req.Equal("Unable to find conversations", payload["error"])
}

func TestConversationRequest_DuplicateRejected(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)

	alice := env.createUser(t, "alice", "482913")
	bob := env.createUser(t, "bob", "771204")

	client := env.connect(t, bob)

	env.sendEvent(t, client, ws.TypeConversationRequest, dto.ConversationRequestPayload{
		ConnectCode: "482913",
	})
	awaitEvent(t, client, ws.TypeConversationAccept)

	// Повтор в том же направлении
	env.sendEvent(t, client, ws.TypeConversationRequest, dto.ConversationRequestPayload{
		ConnectCode: "482913",
	})

	var payload map[string]string
	decodePayload(t, awaitEvent(t, client, ws.TypeConversationRequestError), &payload)
	req.Equal("already exist", payload["error"])

	// И со стороны второго участника
	aliceClient := env.connect(t, alice)
	env.sendEvent(t, aliceClient, ws.TypeConversationRequest, dto.ConversationRequestPayload{
		ConnectCode: "771204",
	})
	decodePayload(t, awaitEvent(t, aliceClient, ws.TypeConversationRequestError), &payload)
	req.Equal("already exist", payload["error"])

	friendships, err := env.db.GetUserFriendships(alice.ID)
	req.NoError(err)
	req.Len(friendships, 1)

	conversations, err := env.db.GetUserConversations(alice.ID)
	req.NoError(err)
	req.Len(conversations, 1)
}

func TestCheckConnectCode(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)

	alice := env.createUser(t, "alice", "482913")
	bob := env.createUser(t, "bob", "771204")
	env.createUser(t, "carol", "905512")

	client := env.connect(t, bob)

	check := func(code string) dto.CheckCodeResult {
		env.sendEvent(t, client, ws.TypeConversationCheckCode, dto.ConversationRequestPayload{
			ConnectCode: code,
		})
		var result dto.CheckCodeResult
		decodePayload(t, awaitEvent(t, client, ws.TypeConversationCodeResult), &result)
		return result
	}

	req.True(check("905512").Valid)
	req.False(check("771204").Valid) // свой код
	req.False(check("000000").Valid) // неизвестный код

	require.NoError(t, env.db.CreateFriendship(&models.Friendship{
		RequesterID: alice.ID,
		RecipientID: bob.ID,
	}))
	req.False(check("482913").Valid) // уже друзья

	// Проверка ничего не создаёт
	conversations, err := env.db.GetUserConversations(bob.ID)
	req.NoError(err)
	req.Empty(conversations)
}

func TestMarkAsRead_ZeroesOnlyActorAndNotifiesRoom(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)

	alice := env.createUser(t, "alice", "482913")
	bob := env.createUser(t, "bob", "771204")

	req.NoError(env.db.CreateFriendship(&models.Friendship{
		RequesterID: alice.ID,
		RecipientID: bob.ID,
	}))
	conversation, err := env.db.GetOrCreateConversation(alice.ID, bob.ID)
	req.NoError(err)

	aliceClient := env.connect(t, alice)
	bobClient := env.connect(t, bob)

	// bob написал дважды, alice ответила один раз
	for _, m := range []struct {
		sender  *models.User
		content string
	}{{bob, "пинг"}, {bob, "ты тут?"}, {alice, "тут"}} {
		req.NoError(env.db.SaveMessage(&models.Message{
			ConversationID: conversation.ID,
			SenderID:       m.sender.ID,
			Content:        m.content,
		}))
	}

	env.sendEvent(t, aliceClient, ws.TypeConversationMarkAsRead, dto.MarkAsReadPayload{
		ConversationID: conversation.ID.String(),
		FriendID:       bob.ID.String(),
	})

	// Событие уходит в комнату пары: его получают оба
	var forAlice, forBob dto.UnreadCountsUpdated
	decodePayload(t, awaitEvent(t, aliceClient, ws.TypeConversationUnreadCounts), &forAlice)
	decodePayload(t, awaitEvent(t, bobClient, ws.TypeConversationUnreadCounts), &forBob)

	req.Equal(conversation.ID.String(), forAlice.ConversationID)
	req.Equal(0, forAlice.UnreadCounts[alice.ID.String()])
	req.Equal(1, forAlice.UnreadCounts[bob.ID.String()])
	req.Equal(forAlice, forBob)

	// Чужой счётчик в хранилище не тронут
	stored, err := env.db.GetConversation(conversation.ID.String())
	req.NoError(err)
	req.Equal(0, stored.UnreadFor(alice.ID))
	req.Equal(1, stored.UnreadFor(bob.ID))
}

func TestMarkAsRead_Errors(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)

	alice := env.createUser(t, "alice", "482913")
	bob := env.createUser(t, "bob", "771204")
	carol := env.createUser(t, "carol", "905512")

	req.NoError(env.db.CreateFriendship(&models.Friendship{
		RequesterID: alice.ID,
		RecipientID: bob.ID,
	}))
	conversation, err := env.db.GetOrCreateConversation(alice.ID, bob.ID)
	req.NoError(err)

	client := env.connect(t, alice)

	var payload map[string]string

	// Не друг
	env.sendEvent(t, client, ws.TypeConversationMarkAsRead, dto.MarkAsReadPayload{
		ConversationID: conversation.ID.String(),
		FriendID:       carol.ID.String(),
	})
	decodePayload(t, awaitEvent(t, client, ws.TypeConversationMarkAsReadError), &payload)
	req.Equal("No Friend Found", payload["error"])

	// Несуществующая беседа
	env.sendEvent(t, client, ws.TypeConversationMarkAsRead, dto.MarkAsReadPayload{
		ConversationID: "c0ffee00-0000-0000-0000-000000000000",
		FriendID:       bob.ID.String(),
	})
	decodePayload(t, awaitEvent(t, client, ws.TypeConversationMarkAsReadError), &payload)
	req.Equal("No Conversations Found", payload["error"])
}

func TestPresence_MultiDeviceLifecycle(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)

	alice := env.createUser(t, "alice", "482913")
	bob := env.createUser(t, "bob", "771204")

	req.NoError(env.db.CreateFriendship(&models.Friendship{
		RequesterID: alice.ID,
		RecipientID: bob.ID,
	}))

	bobClient := env.connect(t, bob)

	// Первое устройство: друзья получают ровно один "online"
	aliceFirst := env.connect(t, alice)

	var status dto.OnlineStatus
	decodePayload(t, awaitEvent(t, bobClient, ws.TypeConversationOnlineStatus), &status)
	req.Equal(alice.ID.String(), status.FriendID)
	req.Equal("alice", status.UserName)
	req.True(status.Online)

	// Второе устройство перехода не вызывает
	aliceSecond := env.connect(t, alice)
	requireNoEvent(t, bobClient, ws.TypeConversationOnlineStatus)

	room := ws.ChatRoom(alice.ID, bob.ID)
	req.True(aliceFirst.IsInChannel(room))
	req.True(aliceSecond.IsInChannel(room))

	// Отключение первого устройства: всё ещё online, без событий
	env.handler.HandleDisconnect(aliceFirst)
	req.True(env.sessions.IsOnline(nil, alice.ID.String()))
	requireNoEvent(t, bobClient, ws.TypeConversationOnlineStatus)

	// Последнее устройство: ровно один "offline", комнаты пар
	// освобождены, личный канал остался
	env.handler.HandleDisconnect(aliceSecond)
	decodePayload(t, awaitEvent(t, bobClient, ws.TypeConversationOnlineStatus), &status)
	req.False(status.Online)
	requireNoEvent(t, bobClient, ws.TypeConversationOnlineStatus)

	req.False(env.sessions.IsOnline(nil, alice.ID.String()))
	req.False(aliceSecond.IsInChannel(room))
	req.True(aliceSecond.IsInChannel(ws.InboxChannel(alice.ID)))
}

func TestConnect_JoinsExistingFriendRooms(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)

	alice := env.createUser(t, "alice", "482913")
	bob := env.createUser(t, "bob", "771204")
	carol := env.createUser(t, "carol", "905512")

	req.NoError(env.db.CreateFriendship(&models.Friendship{RequesterID: alice.ID, RecipientID: bob.ID}))
	req.NoError(env.db.CreateFriendship(&models.Friendship{RequesterID: alice.ID, RecipientID: carol.ID}))

	client := env.connect(t, alice)

	req.True(client.IsInChannel(ws.ChatRoom(alice.ID, bob.ID)))
	req.True(client.IsInChannel(ws.ChatRoom(alice.ID, carol.ID)))
}
