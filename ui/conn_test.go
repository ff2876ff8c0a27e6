package ui_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/CrazyForks/tiny-svg/ui"
)

func TestCloseStopsUndrainedReadLoop(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		// More frames than the client buffers, so its reader blocks.
		for i := 0; i < 300; i++ {
			if err := ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"get-presets"}`)); err != nil {
				return
			}
		}
		ws.ReadMessage()
	}))
	defer srv.Close()

	conn, err := ui.Dial(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	// Let the buffer fill without reading Frames.
	time.Sleep(100 * time.Millisecond)
	conn.Close()

	select {
	case <-conn.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("read loop still running after Close")
	}
	// A second Close must not panic.
	conn.Close()
}
