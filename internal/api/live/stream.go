package live

import (
	"context"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Stream writes snapshot and then every update from sub newer than since to
// conn until the peer goes away, the subscription ends or ctx is done. It owns
// conn and sub.
func Stream(ctx context.Context, conn *websocket.Conn, sub *Subscription, snapshot []byte, since time.Time) {
	defer sub.Cancel()
	defer conn.Close()

	peerGone := make(chan struct{})
	go readPump(conn, peerGone)

	if err := write(conn, websocket.TextMessage, snapshot); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-sub.Updates():
			if !ok {
				_ = write(conn, websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "subscription ended"))
				return
			}
			// queued before the snapshot was read
			if !msg.UpdatedAt.After(since) {
				continue
			}
			if err := write(conn, websocket.TextMessage, msg.Data); err != nil {
				slog.DebugContext(ctx, "Live stream write failed", slog.Any("error", err))
				return
			}
		case <-ticker.C:
			if err := write(conn, websocket.PingMessage, nil); err != nil {
				return
			}
		case <-peerGone:
			return
		case <-ctx.Done():
			_ = write(conn, websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		}
	}
}

// readPump discards client frames; it exists to process pongs and notice
// when the peer closes.
func readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func write(conn *websocket.Conn, messageType int, data []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(messageType, data)
}
