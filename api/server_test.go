package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/CrazyForks/tiny-svg/api"
	"github.com/CrazyForks/tiny-svg/compress"
	"github.com/CrazyForks/tiny-svg/host"
	"github.com/CrazyForks/tiny-svg/preset"
	"github.com/CrazyForks/tiny-svg/selection"
	"github.com/CrazyForks/tiny-svg/storage"
	"github.com/CrazyForks/tiny-svg/svgopt"
)

const iconSVG = `<?xml version="1.0"?>
<!-- exported -->
<svg xmlns="http://www.w3.org/2000/svg" width="24" height="24" viewBox="0 0 24 24">
  <title>icon</title>
  <path d="M 0.0000 0.0000 L 10.0000 10.0000"   fill="#ff0000"/>
</svg>`

type testServer struct {
	*httptest.Server
	host     *host.Host
	store    *preset.Store
	provider *selection.StaticProvider
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gw, err := storage.NewFile(t.TempDir(), "test")
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	store := preset.NewStore(gw)
	provider := selection.NewStaticProvider(selection.StaticNode{NodeID: "1:1", NodeName: "icon", SVG: []byte(iconSVG)})
	h := host.New(store, provider)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.Run(ctx)
	}()

	srv := httptest.NewServer(api.RegisterRoutes(h, compress.NewEngine(svgopt.New())))
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return &testServer{Server: srv, host: h, store: store, provider: provider}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, s.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("expected %d, got %d", want, resp.StatusCode)
	}
}
