package websocket

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tabrown76/Aramark-Scripts/internal/automation"
	"github.com/tabrown76/Aramark-Scripts/internal/events"
	"github.com/tabrown76/Aramark-Scripts/internal/logging"
	"github.com/tabrown76/Aramark-Scripts/internal/middleware"
	"github.com/tabrown76/Aramark-Scripts/internal/svc"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Messages queued per client before new ones are dropped.
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || middleware.IsLocalhostOrigin(origin)
	},
}

// Message is one frame sent to the console panel.
type Message struct {
	Type     string             `json:"type"` // "hello", "log" or "run"
	Instance string             `json:"instance,omitempty"`
	Line     *logging.Line      `json:"line,omitempty"`
	Report   *automation.Report `json:"run,omitempty"`
}

// LogsHandler streams log lines and finished runs. The first frame names
// the server instance, so clients can tell a reconnect from a restart when
// recent log lines are replayed.
func LogsHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logging.Errorf("WebSocket upgrade error: %v", err)
			return
		}

		send := make(chan Message, sendBuffer)
		done := make(chan struct{})

		// Bus handlers run on the bus goroutine and must never block it.
		enqueue := func(m Message) {
			select {
			case send <- m:
			case <-done:
			default:
			}
		}

		send <- Message{Type: "hello", Instance: svcCtx.InstanceID}

		runSub := events.Subscribe(svcCtx.Bus, events.TopicRunFinished, func(ctx context.Context, rep *automation.Report) error {
			enqueue(Message{Type: "run", Report: rep})
			return nil
		}, false)

		logSub := events.Subscribe(svcCtx.Bus, events.TopicLogLine, func(ctx context.Context, l logging.Line) error {
			enqueue(Message{Type: "log", Line: &l})
			return nil
		}, true)

		go writePump(conn, send, done)
		readPump(conn)

		logSub.Unsubscribe()
		runSub.Unsubscribe()
		close(done)
	}
}

// readPump drains client frames so pongs and close messages are handled.
func readPump(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writePump(conn *websocket.Conn, send <-chan Message, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case <-done:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case m := <-send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(m); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
