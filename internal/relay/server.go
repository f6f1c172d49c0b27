// ABOUTME: WebSocket relay between browser clients and the upstream agent API
// ABOUTME: Dials upstream per connection and pumps rewritten messages both ways
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/harperreed/wavstream/internal/metrics"
	"github.com/harperreed/wavstream/internal/version"
	"github.com/harperreed/wavstream/pkg/discovery"
	"github.com/harperreed/wavstream/pkg/protocol"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	// DefaultUpstreamURL is the public conversation endpoint
	DefaultUpstreamURL = "wss://api.elevenlabs.io/v1/convai/conversation"

	// DefaultSignedURLBase issues signed URLs for private agents
	DefaultSignedURLBase = "https://api.elevenlabs.io/v1/convai/conversation/get-signed-url"

	// DefaultPingInterval is the keep-alive period towards browsers
	DefaultPingInterval = 20 * time.Second

	signedURLTimeout = 10 * time.Second
	writeWait        = 10 * time.Second
)

// Config configures a relay server
type Config struct {
	// Port to listen on (default: 8000)
	Port int

	// Name used for mDNS advertisement
	Name string

	// AgentID selects the upstream agent (required)
	AgentID string

	// AgentPrivate requests a signed URL with APIKey before dialing
	AgentPrivate bool
	APIKey       string

	// UpstreamURL and SignedURLBase override the agent API endpoints
	UpstreamURL   string
	SignedURLBase string

	// PingInterval is the browser keep-alive period (default: 20s)
	PingInterval time.Duration

	// EnableMDNS advertises the relay on the local network
	EnableMDNS bool

	// HTTPClient is used for signed URL requests
	HTTPClient *http.Client
}

// Server bridges browser WebSocket connections to the agent API
type Server struct {
	config   Config
	upgrader websocket.Upgrader
	dialer   websocket.Dialer

	mux        *http.ServeMux
	httpServer *http.Server
	registry   *prometheus.Registry
	metrics    *metrics.RelayMetrics

	mdnsManager *discovery.Manager

	sessions   map[string]*session
	sessionsMu sync.Mutex

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewServer creates a relay server
func NewServer(config Config) (*Server, error) {
	if config.AgentID == "" {
		return nil, errors.New("agent id is required")
	}
	if config.AgentPrivate && config.APIKey == "" {
		return nil, errors.New("api key is required for private agents")
	}
	if config.Port == 0 {
		config.Port = 8000
	}
	if config.Name == "" {
		config.Name = "wavstream-relay"
	}
	if config.UpstreamURL == "" {
		config.UpstreamURL = DefaultUpstreamURL
	}
	if config.SignedURLBase == "" {
		config.SignedURLBase = DefaultSignedURLBase
	}
	if config.PingInterval <= 0 {
		config.PingInterval = DefaultPingInterval
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: signedURLTimeout}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Server{
		config: config,
		upgrader: websocket.Upgrader{
			Subprotocols: []string{protocol.Subprotocol},
			CheckOrigin: func(r *http.Request) bool {
				// Browsers on the local network connect from arbitrary origins
				return true
			},
		},
		dialer: websocket.Dialer{
			Subprotocols:     []string{protocol.Subprotocol},
			HandshakeTimeout: signedURLTimeout,
		},
		mux:      http.NewServeMux(),
		registry: registry,
		metrics:  metrics.NewRelayMetrics(registry),
		sessions: make(map[string]*session),
		stopChan: make(chan struct{}),
	}

	s.mux.Handle("/metrics", metrics.Handler(registry))
	s.mux.HandleFunc("/", s.handleWebSocket)

	return s, nil
}

// Handler returns the HTTP handler serving the relay and its metrics
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Registry returns the registry backing /metrics
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// Start serves until Stop is called or the listener fails
func (s *Server) Start() error {
	if s.config.EnableMDNS {
		s.mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        s.config.Port,
			Path:        "/",
		})

		if err := s.mdnsManager.Advertise(); err != nil {
			log.Printf("Failed to start mDNS advertisement: %v", err)
		} else {
			log.Printf("mDNS advertisement started")
		}
	}

	addr := fmt.Sprintf(":%d", s.config.Port)
	log.Printf("Relay running on %s (agent %s, private=%v)", addr, s.config.AgentID, s.config.AgentPrivate)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-s.stopChan:
		log.Printf("Relay shutting down...")
	case err := <-errChan:
		log.Printf("HTTP server error: %v", err)
		return err
	}

	if s.mdnsManager != nil {
		s.mdnsManager.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	s.closeSessions()
	s.wg.Wait()
	log.Printf("Relay stopped cleanly")

	return nil
}

// Stop stops the server
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// Sessions returns the number of bridged connections
func (s *Server) Sessions() int {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	return len(s.sessions)
}

func (s *Server) closeSessions() {
	s.sessionsMu.Lock()
	sessions := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.sessionsMu.Unlock()

	for _, sess := range sessions {
		sess.close()
	}
}

// upstreamURL resolves the agent endpoint, asking for a signed URL when private
func (s *Server) upstreamURL(ctx context.Context) (string, error) {
	if !s.config.AgentPrivate {
		u, err := url.Parse(s.config.UpstreamURL)
		if err != nil {
			return "", fmt.Errorf("invalid upstream url: %w", err)
		}
		q := u.Query()
		q.Set("agent_id", s.config.AgentID)
		u.RawQuery = q.Encode()
		return u.String(), nil
	}

	u, err := url.Parse(s.config.SignedURLBase)
	if err != nil {
		return "", fmt.Errorf("invalid signed url endpoint: %w", err)
	}
	q := u.Query()
	q.Set("agent_id", s.config.AgentID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build signed url request: %w", err)
	}
	req.Header.Set("xi-api-key", s.config.APIKey)
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := s.config.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("signed url request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("signed url request failed: %s", resp.Status)
	}

	var body struct {
		SignedURL string `json:"signed_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode signed url response: %w", err)
	}
	if body.SignedURL == "" {
		return "", errors.New("signed url response missing signed_url")
	}
	return body.SignedURL, nil
}

// handleWebSocket handles browser connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	select {
	case <-s.stopChan:
		http.Error(w, "relay shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	browser, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	log.Printf("Browser connected from %s", r.RemoteAddr)
	s.metrics.ConnectionsTotal.Inc()

	ctx, cancel := context.WithTimeout(r.Context(), signedURLTimeout)
	target, err := s.upstreamURL(ctx)
	var upstream *websocket.Conn
	if err == nil {
		upstream, _, err = s.dialer.DialContext(ctx, target, http.Header{"User-Agent": {version.UserAgent()}})
	}
	cancel()
	if err != nil {
		log.Printf("Relay error: %v", err)
		s.metrics.UpstreamErrors.Inc()
		browser.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "upstream unavailable"),
			time.Now().Add(writeWait))
		browser.Close()
		return
	}
	log.Printf("Upstream socket open")

	sess := newSession(browser, upstream)
	s.sessionsMu.Lock()
	s.sessions[sess.id] = sess
	s.sessionsMu.Unlock()
	s.metrics.ConnectionsActive.Inc()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(sess)

		s.sessionsMu.Lock()
		delete(s.sessions, sess.id)
		s.sessionsMu.Unlock()
		s.metrics.ConnectionsActive.Dec()
		log.Printf("Connection closed")
	}()
}

// run pumps both directions until either side fails
func (s *Server) run(sess *session) {
	defer sess.close()

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		defer sess.close()
		s.pumpToUpstream(sess)
	}()

	go func() {
		defer wg.Done()
		defer sess.close()
		s.pumpToBrowser(sess)
	}()

	go func() {
		defer wg.Done()
		s.keepAlive(sess)
	}()

	wg.Wait()
}

// pumpToUpstream forwards browser messages, fixing pong event ids
func (s *Server) pumpToUpstream(sess *session) {
	deadline := s.config.PingInterval * 2
	sess.browser.SetReadDeadline(time.Now().Add(deadline))
	sess.browser.SetPongHandler(func(string) error {
		return sess.browser.SetReadDeadline(time.Now().Add(deadline))
	})

	for {
		msgType, data, err := sess.browser.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("Browser read error: %v", err)
			}
			return
		}
		sess.browser.SetReadDeadline(time.Now().Add(deadline))

		if msgType == websocket.TextMessage {
			var rewritten bool
			data, rewritten = TransformUpstream(data, sess.lastPing())
			if rewritten {
				s.metrics.PongsRewritten.Inc()
			}
		}

		if err := sess.upstream.WriteMessage(msgType, data); err != nil {
			log.Printf("Upstream write error: %v", err)
			return
		}
		s.metrics.Message(metrics.Upstream)
	}
}

// pumpToBrowser forwards agent messages, remembering the last ping id
func (s *Server) pumpToBrowser(sess *session) {
	for {
		msgType, data, err := sess.upstream.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("Upstream read error: %v", err)
			}
			return
		}

		if msgType == websocket.TextMessage {
			var pingID *int
			data, pingID = TransformDownstream(data)
			if pingID != nil {
				sess.setLastPing(*pingID)
			}
		}

		if err := sess.browser.WriteMessage(msgType, data); err != nil {
			log.Printf("Browser write error: %v", err)
			return
		}
		s.metrics.Message(metrics.Downstream)
	}
}

// keepAlive pings the browser until the session closes
func (s *Server) keepAlive(sess *session) {
	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := sess.browser.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				sess.close()
				return
			}
		case <-sess.done:
			return
		}
	}
}

// session is one bridged browser connection
type session struct {
	id       string
	browser  *websocket.Conn
	upstream *websocket.Conn

	pingMu   sync.Mutex
	pingID   int
	havePing bool

	done      chan struct{}
	closeOnce sync.Once
}

func newSession(browser, upstream *websocket.Conn) *session {
	return &session{
		id:       uuid.New().String(),
		browser:  browser,
		upstream: upstream,
		done:     make(chan struct{}),
	}
}

func (s *session) setLastPing(id int) {
	s.pingMu.Lock()
	s.pingID = id
	s.havePing = true
	s.pingMu.Unlock()
}

func (s *session) lastPing() *int {
	s.pingMu.Lock()
	defer s.pingMu.Unlock()
	if !s.havePing {
		return nil
	}
	id := s.pingID
	return &id
}

// close shuts both sockets; safe to call from any pump
func (s *session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.browser.Close()
		s.upstream.Close()
	})
}
