package websocket

import (
	"fmt"

	"github.com/google/uuid"
)

// ChatRoomPrefix — все парные комнаты начинаются с этого префикса,
// чтобы их можно было покинуть скопом, не задев личный канал.
const ChatRoomPrefix = "chat_"

// ChatRoom строит детерминированное имя комнаты пары: идентификаторы
// сортируются, поэтому оба участника получают одно и то же имя без
// координации.
func ChatRoom(userA, userB uuid.UUID) string {
	a, b := userA.String(), userB.String()
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("%s%s_%s", ChatRoomPrefix, a, b)
}

// InboxChannel — личный канал пользователя, именуется его
// идентификатором.
func InboxChannel(userID uuid.UUID) string {
	return userID.String()
}
