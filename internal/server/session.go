package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"stocksearch/internal/search"
	"stocksearch/pkg/stockws"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

type session struct {
	id       string
	conn     *websocket.Conn
	pipeline *search.Pipeline
	logger   *zap.Logger
}

// handleWS upgrades the connection and runs one search pipeline for it until
// either side goes away.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	id := uuid.NewString()
	logger := s.logger.With(zap.String("session", id))
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	pipeline := search.NewPipeline(s.searcher, search.WithDebounce(s.debounce), search.WithLogger(logger))
	pipeline.Start(ctx)
	defer pipeline.Close()

	sess := &session{id: id, conn: conn, pipeline: pipeline, logger: logger}
	logger.Info("search session opened", zap.String("remote", r.RemoteAddr))

	var wg conc.WaitGroup
	wg.Go(func() {
		defer cancel()
		sess.readPump()
	})
	wg.Go(func() {
		defer cancel()
		sess.writePump(ctx, s.connectivity)
	})
	wg.Wait()

	logger.Info("search session closed")
}

func (s *session) readPump() {
	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}
		s.handleMessage(msg)
	}
}

// handleMessage routes one client frame into the pipeline.
func (s *session) handleMessage(msg []byte) {
	var m stockws.ClientMessage
	if err := json.Unmarshal(msg, &m); err != nil {
		s.logger.Warn("failed to parse client message", zap.Error(err))
		return
	}

	switch m.Type {
	case stockws.TypeQuery:
		s.pipeline.OnQueryChanged(m.Query)
	case stockws.TypeRetry:
		s.pipeline.Retry()
	default:
		s.logger.Debug("ignoring client message", zap.String("type", m.Type))
	}
}

func (s *session) writePump(ctx context.Context, connectivity Connectivity) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	var status <-chan bool
	if connectivity != nil {
		ch, unsubscribe := connectivity.Subscribe()
		defer unsubscribe()
		status = ch
	}

	for {
		select {
		case <-ctx.Done():
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return

		case state, ok := <-s.pipeline.Updates():
			if !ok {
				return
			}
			if err := s.write(search.Render(state)); err != nil {
				return
			}

		case online := <-status:
			if err := s.write(stockws.ConnectivityMessage{Type: stockws.TypeConnectivity, Online: online}); err != nil {
				return
			}

		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *session) write(v any) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(v); err != nil {
		s.logger.Warn("websocket write failed", zap.Error(err))
		return err
	}
	return nil
}
