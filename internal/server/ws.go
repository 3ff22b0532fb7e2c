package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/intentlayer/intentlayer/internal/workflow"
)

const (
	wsBuffer       = 32
	wsWriteTimeout = 5 * time.Second
)

// KindHello is the first frame on a change feed. Its Version is the store
// version at connect time.
const KindHello workflow.AuditKind = "hello"

// handleWS streams every store Change to the client as JSON until the client
// goes away or the server shuts down. Clients that fall behind are dropped.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	changes := make(chan workflow.Change, wsBuffer)
	overflow := make(chan struct{})
	var overflowOnce sync.Once
	cancel := s.flow.Subscribe(func(c workflow.Change) {
		select {
		case changes <- c:
		default:
			overflowOnce.Do(func() { close(overflow) })
		}
	})
	defer cancel()

	// The feed is write-only; CloseRead handles control frames and cancels
	// ctx when the peer closes.
	ctx := conn.CloseRead(r.Context())

	s.logger.Debug("websocket client connected")
	if err := s.writeChange(ctx, conn, workflow.Change{Kind: KindHello, Version: s.flow.Version()}); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.closing:
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		case <-overflow:
			conn.Close(websocket.StatusPolicyViolation, "backpressure")
			return
		case c := <-changes:
			if err := s.writeChange(ctx, conn, c); err != nil {
				s.logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		}
	}
}

func (s *Server) writeChange(ctx context.Context, conn *websocket.Conn, c workflow.Change) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, c)
}
