package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/copilotd/internal/copilot"
)

// peakUtilizationThreshold is the percentage above which a state update
// triggers a proactive augmentation suggestion.
const peakUtilizationThreshold = 120

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Calculator frontends connect from any origin
	},
}

// handleSync upgrades the connection and serves the calculator sync
// protocol until the client disconnects.
//
// Replies are written only from this loop, one per inbound frame at most,
// which keeps writes serialized per connection as gorilla requires.
func (s *Server) handleSync(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade has already written the HTTP error response
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return nil
	}
	defer conn.Close()

	connID := uuid.NewString()
	ctx := c.Request().Context()

	s.addSocket(connID, conn)
	s.metrics.socketOpened(ctx)
	defer func() {
		s.removeSocket(connID)
		s.metrics.socketClosed(ctx)
	}()

	s.logger.Info("sync client connected", zap.String("conn_id", connID))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Warn("sync socket read failed",
					zap.String("conn_id", connID),
					zap.Error(err))
			}
			break
		}

		var env SyncEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.logger.Error("sync frame decode failed",
				zap.String("conn_id", connID),
				zap.Error(err))
			s.metrics.recordFrame(ctx, "invalid")
			if err := conn.WriteJSON(SyncReply{Type: frameError, Error: "Invalid JSON"}); err != nil {
				s.logger.Warn("sync write failed",
					zap.String("conn_id", connID),
					zap.Error(err))
				break
			}
			continue
		}

		s.metrics.recordFrame(ctx, env.Type)

		// Only state updates get a reply
		if env.Type != frameStateUpdate {
			continue
		}

		if err := conn.WriteJSON(stateUpdateReply(env.State)); err != nil {
			s.logger.Warn("sync write failed",
				zap.String("conn_id", connID),
				zap.Error(err))
			break
		}
	}

	s.logger.Info("sync client disconnected", zap.String("conn_id", connID))
	return nil
}

// stateUpdateReply builds the reply for one STATE_UPDATE frame. Peak
// utilization above the threshold means the calculator is modeling more
// demand than its configured capacity can collect.
func stateUpdateReply(state copilot.CalculatorState) SyncReply {
	peak, ok := state["peakUtilization"].(float64)
	if ok && peak > peakUtilizationThreshold {
		return SyncReply{
			Type:    frameSuggestion,
			Content: fmt.Sprintf("I notice your peak utilization is at %.0f%%. You are missing collection opportunities. Want me to model an AI augmentation scenario?", peak),
		}
	}
	return SyncReply{Type: frameAck}
}

// addSocket registers a sync connection under its ID.
func (s *Server) addSocket(id string, conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets[id] = conn
}

// removeSocket drops a sync connection from the registry.
func (s *Server) removeSocket(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sockets, id)
}

// SocketCount returns the number of connected sync clients.
func (s *Server) SocketCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sockets)
}
