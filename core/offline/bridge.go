package offline

import (
	"encoding/json"
	"net/http"
	"time"

	"MusicFlow/logger"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSBridge exposes a coordinator over a websocket: text frames from the
// client are posted as messages, worker messages are written back as JSON.
type WSBridge struct {
	coord *Coordinator
}

func NewWSBridge(coord *Coordinator) *WSBridge {
	return &WSBridge{coord: coord}
}

func (b *WSBridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}
	defer conn.Close()

	msgs, unsubscribe := b.coord.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go b.writePump(conn, msgs, done)
	defer close(done)

	conn.SetReadLimit(1 << 20)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket read error", logger.ErrorField(err))
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warn("invalid worker message", logger.ErrorField(err))
			continue
		}
		if err := b.coord.Post(msg); err != nil {
			logger.Warn("failed to post worker message", logger.ErrorField(err))
			return
		}
	}
}

func (b *WSBridge) writePump(conn *websocket.Conn, msgs <-chan Message, done <-chan struct{}) {
	for {
		select {
		case msg, ok := <-msgs:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				logger.Warn("websocket write", logger.ErrorField(err))
				return
			}
		case <-done:
			return
		}
	}
}
