package api

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/CrazyForks/tiny-svg/protocol"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWS attaches the connection as the host's UI. Text frames from the
// client are host requests; host events are written back in order.
func (h *handler) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", slog.Any("err", err))
		return
	}
	defer conn.Close()

	l := h.log.With(slog.String("conn", uuid.NewString()[:8]))

	// gorilla/websocket forbids concurrent writes.
	var writeMu sync.Mutex
	write := func(frame []byte) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteMessage(websocket.TextMessage, frame)
	}

	out := protocol.NewQueue(protocol.DefaultQueueSize)
	kick, detach := h.host.Attach(out)
	defer out.Close()
	defer detach()
	l.Info("ui connected")

	// Pump host events to the client. Exits when out is closed.
	go func() {
		for frame := range out.Frames() {
			if err := write(frame); err != nil {
				return
			}
		}
	}()

	// Displaced by a newer connection or a CLOSE request: close the socket so
	// the read loop below unblocks.
	connDone := make(chan struct{})
	go func() {
		select {
		case <-kick:
			writeMu.Lock()
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "closed by host"))
			writeMu.Unlock()
			conn.Close()
		case <-r.Context().Done():
			conn.Close()
		case <-connDone:
		}
	}()
	defer close(connDone)

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			l.Info("ui disconnected")
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		h.host.Send(data)
	}
}
