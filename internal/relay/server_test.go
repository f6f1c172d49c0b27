// ABOUTME: Tests for the relay server
// ABOUTME: Bridges a test browser to a fake upstream agent over httptest
package relay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/harperreed/wavstream/pkg/protocol"
)

// fakeUpstream plays the agent API side of the relay
type fakeUpstream struct {
	t        *testing.T
	upgrader websocket.Upgrader
	conns    chan *websocket.Conn
	requests chan *url.URL
}

func newFakeUpstream(t *testing.T, mux *http.ServeMux) (*fakeUpstream, *httptest.Server) {
	u := &fakeUpstream{
		t:        t,
		upgrader: websocket.Upgrader{Subprotocols: []string{protocol.Subprotocol}},
		conns:    make(chan *websocket.Conn, 1),
		requests: make(chan *url.URL, 1),
	}
	if mux == nil {
		mux = http.NewServeMux()
	}
	mux.HandleFunc("/v1/convai/conversation", u.handle)
	mux.HandleFunc("/signed", u.handle)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return u, srv
}

func (u *fakeUpstream) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := u.upgrader.Upgrade(w, r, nil)
	if err != nil {
		u.t.Errorf("upstream upgrade failed: %v", err)
		return
	}
	u.requests <- r.URL
	u.conns <- conn
}

func (u *fakeUpstream) accept(t *testing.T) (*websocket.Conn, *url.URL) {
	t.Helper()
	select {
	case conn := <-u.conns:
		t.Cleanup(func() { conn.Close() })
		return conn, <-u.requests
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for upstream connection")
		return nil, nil
	}
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func newTestRelay(t *testing.T, config Config) (*Server, *httptest.Server) {
	t.Helper()

	s, err := NewServer(config)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		srv.Close()
		s.closeSessions()
		s.wg.Wait()
	})
	return s, srv
}

func dialBrowser(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	dialer := websocket.Dialer{Subprotocols: []string{protocol.Subprotocol}}
	conn, _, err := dialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatalf("browser dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if conn.Subprotocol() != protocol.Subprotocol {
		t.Errorf("negotiated subprotocol %q, want %q", conn.Subprotocol(), protocol.Subprotocol)
	}
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var msg map[string]any
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("invalid JSON %s: %v", data, err)
	}
	return msg
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRelayBridgesAndFixesPong(t *testing.T) {
	upstream, upstreamSrv := newFakeUpstream(t, nil)
	s, relaySrv := newTestRelay(t, Config{
		AgentID:     "agent-1",
		UpstreamURL: wsURL(upstreamSrv) + "/v1/convai/conversation",
	})

	browser := dialBrowser(t, relaySrv)
	agent, reqURL := upstream.accept(t)

	if got := reqURL.Query().Get("agent_id"); got != "agent-1" {
		t.Errorf("upstream agent_id = %q, want agent-1", got)
	}
	waitFor(t, "session registration", func() bool { return s.Sessions() == 1 })

	// Downstream: ping is normalized and its id remembered
	agent.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping","ping_event":{"event_id":9,"ping_ms":10}}`))
	ping := readJSON(t, browser)
	if ping["type"] != "ping" {
		t.Fatalf("browser got %v, want ping", ping)
	}
	if _, ok := ping["ping_event"].(map[string]any)["ping_ms"]; ok {
		t.Error("ping_ms should be dropped")
	}

	// Upstream: literal "ping" becomes the stored id
	browser.WriteMessage(websocket.TextMessage, []byte(`{"type":"pong","event_id":"ping"}`))
	pong := readJSON(t, agent)
	if pong["type"] != "pong" || pong["event_id"] != float64(9) {
		t.Errorf("upstream got %v, want pong with event_id 9", pong)
	}

	// Other messages pass through unchanged
	browser.WriteMessage(websocket.TextMessage, []byte(`{"user_audio_chunk":"AAA="}`))
	chunk := readJSON(t, agent)
	if chunk["user_audio_chunk"] != "AAA=" {
		t.Errorf("upstream got %v, want audio chunk", chunk)
	}

	// Closing the browser closes the upstream side too
	browser.Close()
	agent.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := agent.ReadMessage(); err == nil {
		t.Error("expected upstream socket to be closed")
	}
	waitFor(t, "session cleanup", func() bool { return s.Sessions() == 0 })
}

func TestRelayUpstreamCloseEndsSession(t *testing.T) {
	upstream, upstreamSrv := newFakeUpstream(t, nil)
	s, relaySrv := newTestRelay(t, Config{
		AgentID:     "agent-1",
		UpstreamURL: wsURL(upstreamSrv) + "/v1/convai/conversation",
	})

	browser := dialBrowser(t, relaySrv)
	agent, _ := upstream.accept(t)

	agent.WriteMessage(websocket.TextMessage, []byte(`{"type":"interruption","interruption_event":{"event_id":1}}`))
	if msg := readJSON(t, browser); msg["type"] != "interruption" {
		t.Errorf("browser got %v, want interruption", msg)
	}

	agent.Close()

	browser.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := browser.ReadMessage(); err == nil {
		t.Error("expected browser socket to be closed")
	}
	waitFor(t, "session cleanup", func() bool { return s.Sessions() == 0 })
}

func TestRelayPrivateAgentUsesSignedURL(t *testing.T) {
	mux := http.NewServeMux()
	var upstreamSrv *httptest.Server
	mux.HandleFunc("/get-signed-url", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xi-api-key") != "secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("agent_id") != "private-agent" {
			http.Error(w, "unknown agent", http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"signed_url": wsURL(upstreamSrv) + "/signed?token=abc",
		})
	})
	upstream, upstreamSrv := newFakeUpstream(t, mux)

	_, relaySrv := newTestRelay(t, Config{
		AgentID:       "private-agent",
		AgentPrivate:  true,
		APIKey:        "secret",
		SignedURLBase: upstreamSrv.URL + "/get-signed-url",
	})

	dialBrowser(t, relaySrv)
	_, reqURL := upstream.accept(t)

	if reqURL.Path != "/signed" || reqURL.Query().Get("token") != "abc" {
		t.Errorf("upstream dialed %s, want the signed url", reqURL)
	}
}

func TestRelaySignedURLFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	s, relaySrv := newTestRelay(t, Config{
		AgentID:       "private-agent",
		AgentPrivate:  true,
		APIKey:        "wrong",
		SignedURLBase: srv.URL,
	})

	if _, err := s.upstreamURL(context.Background()); err == nil {
		t.Fatal("expected signed url error")
	}

	browser := dialBrowser(t, relaySrv)
	browser.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := browser.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseTryAgainLater) {
		t.Errorf("expected try-again-later close, got %v", err)
	}

	resp, err := http.Get(relaySrv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics request failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "wavstream_relay_upstream_errors_total 1") {
		t.Error("upstream error not counted in /metrics")
	}
}

func TestPublicUpstreamURL(t *testing.T) {
	s, err := NewServer(Config{AgentID: "agent 1"})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	raw, err := s.upstreamURL(context.Background())
	if err != nil {
		t.Fatalf("upstreamURL failed: %v", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("invalid url %q: %v", raw, err)
	}
	if u.Scheme != "wss" || u.Host != "api.elevenlabs.io" || u.Path != "/v1/convai/conversation" {
		t.Errorf("unexpected upstream url %s", raw)
	}
	if u.Query().Get("agent_id") != "agent 1" {
		t.Errorf("agent_id = %q, want %q", u.Query().Get("agent_id"), "agent 1")
	}
}

func TestNewServerValidation(t *testing.T) {
	if _, err := NewServer(Config{}); err == nil {
		t.Error("expected error without agent id")
	}
	if _, err := NewServer(Config{AgentID: "a", AgentPrivate: true}); err == nil {
		t.Error("expected error for private agent without api key")
	}

	s, err := NewServer(Config{AgentID: "a"})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	if s.config.Port != 8000 || s.config.PingInterval != DefaultPingInterval {
		t.Errorf("defaults not applied: %+v", s.config)
	}
}

func TestSessionLastPing(t *testing.T) {
	sess := &session{}
	if sess.lastPing() != nil {
		t.Error("expected no ping before one is seen")
	}
	sess.setLastPing(3)
	sess.setLastPing(4)
	if got := sess.lastPing(); got == nil || *got != 4 {
		t.Errorf("last ping = %v, want 4", got)
	}
}
