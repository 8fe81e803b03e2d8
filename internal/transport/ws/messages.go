package ws

// Типы событий, которые сервер шлёт в /ws/rooms
const (
	TypeRooms    = "rooms"    // снапшот комнат, как GET /api/rooms
	TypeActivity = "activity" // новая запись журнала
	TypeError    = "error"    // тик не удался, поток продолжается
)

type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
	TSUnix  int64  `json:"ts_unix"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
