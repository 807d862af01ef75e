// Package gateway forwards dispatched events to a downstream consumer over
// a WebSocket connection.
package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// ErrNotConnected is returned by Send before Connect succeeded.
var ErrNotConnected = errors.New("gateway: not connected")

// Message is the frame sent to the gateway for every forwarded event.
type Message struct {
	Type      string          `json:"type"`
	Source    string          `json:"source"`
	ContextID string          `json:"context_id,omitempty"`
	Data      json.RawMessage `json:"data"`
}

// Client manages a WebSocket connection to the gateway.
type Client struct {
	url    string
	token  string
	logger zerolog.Logger
	conn   *websocket.Conn
	mu     sync.Mutex
}

// NewClient creates a new gateway WebSocket client.
func NewClient(url, token string, logger zerolog.Logger) *Client {
	return &Client{
		url:    url,
		token:  token,
		logger: logger,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.Dial(c.url, header)
	if err != nil {
		return fmt.Errorf("connect to gateway: %w", err)
	}

	c.conn = conn
	c.logger.Info().Str("url", c.url).Msg("connected to gateway")
	return nil
}

// Send writes msg as one text frame.
func (c *Client) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write message: %w", err)
	}

	return nil
}

// Close closes the WebSocket connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
