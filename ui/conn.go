package ui

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	applog "github.com/CrazyForks/tiny-svg/log"
)

// Conn is a websocket link to a running host. It sends request frames and
// delivers event frames on Frames.
type Conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
	frames  chan []byte
	log     *slog.Logger

	closeOnce sync.Once
	done      chan struct{}
	stopped   chan struct{}
}

// Dial connects to the host websocket at url.
func Dial(ctx context.Context, url string) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c := &Conn{
		ws:      ws,
		frames:  make(chan []byte, 256),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		log:     applog.WithComponent("ui").With(slog.String("remote", url)),
	}
	go c.readLoop()
	return c, nil
}

func (c *Conn) readLoop() {
	defer close(c.stopped)
	defer close(c.frames)
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Debug("connection closed", slog.Any("err", err))
			}
			return
		}
		select {
		case c.frames <- data:
		case <-c.done:
			return
		}
	}
}

// Frames delivers event frames in arrival order. It is closed when the
// connection ends.
func (c *Conn) Frames() <-chan []byte { return c.frames }

// Done is closed once the read loop has exited.
func (c *Conn) Done() <-chan struct{} { return c.stopped }

// Send writes one request frame. Errors are logged; delivery is not
// retried.
func (c *Conn) Send(frame []byte) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.log.Warn("send failed", slog.Any("err", err))
	}
}

// Close sends a close frame and closes the connection. The read loop stops
// even if nobody is draining Frames.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	c.writeMu.Lock()
	_ = c.ws.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	return c.ws.Close()
}
