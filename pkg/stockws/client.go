package stockws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

const DefaultReconnectDelay = 3 * time.Second

// Client handles the WebSocket connection to a search server and message routing.
type Client struct {
	url            string
	reconnectDelay time.Duration
	logger         *zap.Logger

	mu        sync.Mutex // guards conn writes and lastQuery
	conn      *websocket.Conn
	lastQuery *string
	handler   func(ServerMessage)
}

// NewClient creates a new WebSocket client with the given URL and logger.
func NewClient(url string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		url:            url,
		reconnectDelay: DefaultReconnectDelay,
		logger:         logger,
	}
}

// SetReconnectDelay sets the pause between reconnect attempts.
func (c *Client) SetReconnectDelay(d time.Duration) {
	c.reconnectDelay = d
}

// SetMessageHandler sets the function to handle incoming messages.
func (c *Client) SetMessageHandler(h func(ServerMessage)) {
	c.handler = h
}

// Connect establishes the WebSocket connection. It does not start the listener.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		c.logger.Error("Failed to connect to WebSocket", zap.String("url", c.url), zap.Error(err))
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.logger.Info("WebSocket connected", zap.String("url", c.url))
	return nil
}

func (c *Client) SendQuery(query string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastQuery = &query
	return c.write(ClientMessage{Type: TypeQuery, Query: query})
}

func (c *Client) SendRetry() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.write(ClientMessage{Type: TypeRetry})
}

// write sends one frame. Callers hold c.mu.
func (c *Client) write(msg ClientMessage) error {
	if c.conn == nil {
		return errors.New("websocket not connected")
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("websocket write failed: %w", err)
	}
	return nil
}

// Listen reads frames until ctx is done. A dropped connection is re-dialed every
// reconnect delay and the last query is sent again.
func (c *Client) Listen(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-done:
		}
	}()

	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return errors.New("websocket not connected")
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("WebSocket read error", zap.Error(err))

			if err := c.reconnect(ctx); err != nil {
				return err
			}
			c.logger.Info("Reconnected successfully")
			continue
		}

		var msg ServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn("failed to parse server message", zap.Error(err))
			continue
		}
		if c.handler != nil {
			c.handler(msg)
		}
	}
}

func (c *Client) reconnect(ctx context.Context) error {
	backoff := retry.BackoffFunc(func() (time.Duration, bool) {
		return c.reconnectDelay, false
	})

	// first attempt also waits, the server just dropped us
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.reconnectDelay):
	}

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		newConn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
		if err != nil {
			c.logger.Warn("Retrying reconnect...", zap.Error(err))
			return retry.RetryableError(err)
		}

		c.mu.Lock()
		defer c.mu.Unlock()

		// Close the old connection if it exists
		if c.conn != nil {
			_ = c.conn.Close()
		}
		c.conn = newConn

		if c.lastQuery != nil {
			if err := c.write(ClientMessage{Type: TypeQuery, Query: *c.lastQuery}); err != nil {
				return retry.RetryableError(err)
			}
		}
		return nil
	})
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if cerr := c.conn.Close(); err == nil {
		err = cerr
	}
	return err
}
