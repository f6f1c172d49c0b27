// ABOUTME: WebSocket client for the conversation protocol
// ABOUTME: Handles dialing, the initiation handshake and typed event routing
package protocol

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Subprotocol is the WebSocket subprotocol the agent API speaks
const Subprotocol = "convai"

// Status is the connection state shown to users
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
)

// ErrNotConnected is returned when sending without a live connection
var ErrNotConnected = errors.New("not connected")

// Config holds client configuration
type Config struct {
	// URL of the relay or agent endpoint (ws:// or wss://)
	URL string

	// Header is sent with the upgrade request
	Header http.Header

	// Language and VoiceID override agent settings in the handshake
	Language string
	VoiceID  string

	// HandshakeTimeout bounds the WebSocket upgrade (default: 10s)
	HandshakeTimeout time.Duration

	// EventBuffer is the capacity of the Events channel (default: 100)
	EventBuffer int

	// OnStatus is called on every status change
	OnStatus func(Status)
}

// Client represents a conversation WebSocket client
type Client struct {
	config Config
	conn   *websocket.Conn

	// Events delivers parsed server events; it is closed when the connection ends
	Events chan Event

	mu      sync.RWMutex
	writeMu sync.Mutex
	status  Status
	err     error

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewClient creates a new WebSocket client
func NewClient(config Config) *Client {
	if config.HandshakeTimeout <= 0 {
		config.HandshakeTimeout = 10 * time.Second
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = 100
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		config: config,
		Events: make(chan Event, config.EventBuffer),
		status: StatusDisconnected,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Dial connects, sends the initiation handshake and starts the reader
func (c *Client) Dial(ctx context.Context) error {
	c.setStatus(StatusConnecting)
	log.Printf("Connecting to %s", c.config.URL)

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: c.config.HandshakeTimeout,
		Subprotocols:     []string{Subprotocol},
	}

	conn, _, err := dialer.DialContext(ctx, c.config.URL, c.config.Header)
	if err != nil {
		c.setStatus(StatusDisconnected)
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	if err := c.Send(NewClientInitiation(c.config.Language, c.config.VoiceID)); err != nil {
		conn.Close()
		c.setStatus(StatusDisconnected)
		return fmt.Errorf("failed to send initiation: %w", err)
	}

	c.setStatus(StatusConnected)
	go c.readMessages()

	return nil
}

// Send writes one JSON message
func (c *Client) Send(v any) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(v)
}

// SendPong answers a ping
func (c *Client) SendPong(eventID int) error {
	return c.Send(NewPong(eventID))
}

// SendAudioChunk sends user audio as base64 PCM
func (c *Client) SendAudioChunk(pcm []byte) error {
	return c.Send(NewUserAudioChunk(pcm))
}

// readMessages reads and routes incoming messages
func (c *Client) readMessages() {
	defer close(c.done)
	defer close(c.Events)

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.ctx.Err() == nil {
				log.Printf("Read error: %v", err)
				c.mu.Lock()
				c.err = err
				c.mu.Unlock()
			}
			c.setStatus(StatusDisconnected)
			return
		}

		if messageType != websocket.TextMessage {
			log.Printf("Ignoring non-text WebSocket message type: %d", messageType)
			continue
		}

		event, err := ParseEvent(data)
		if err != nil {
			log.Printf("Dropping malformed message: %v", err)
			continue
		}

		select {
		case c.Events <- event:
		case <-c.ctx.Done():
			c.setStatus(StatusDisconnected)
			return
		}
	}
}

func (c *Client) setStatus(status Status) {
	c.mu.Lock()
	changed := c.status != status
	c.status = status
	c.mu.Unlock()

	if changed && c.config.OnStatus != nil {
		c.config.OnStatus(status)
	}
}

// Status returns the current connection status
func (c *Client) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Done is closed once the reader has stopped
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns the read error that ended the connection, if any
func (c *Client) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// Close closes the connection
func (c *Client) Close() {
	c.cancel()

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return
	}

	c.writeMu.Lock()
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()
	conn.Close()

	log.Printf("Connection closed")
}
