package session

import (
	"context"
	"time"
)

// TTL окна неактивности: ключ пользователя живёт 10 минут и
// продлевается каждым успешным добавлением сессии. Так реестр не
// копит мусор после падений без disconnect.
const SessionTTL = 10 * time.Minute

// Store отслеживает живые соединения пользователей. Реестр — это
// вспомогательное эфемерное состояние: реализация обязана молча
// деградировать при недоступности бэкенда (запись — no-op, чтение —
// "оффлайн"), а не возвращать ошибку вызывающему.
type Store interface {
	// AddSession идемпотентно добавляет соединение в набор
	// пользователя и возвращает размер набора после добавления.
	AddSession(ctx context.Context, userID, connectionID string) int64

	// RemoveSession убирает соединение и возвращает число
	// оставшихся; пустой набор удаляется целиком.
	RemoveSession(ctx context.Context, userID, connectionID string) int64

	SessionCount(ctx context.Context, userID string) int64

	IsOnline(ctx context.Context, userID string) bool
}
