package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	httpHandler "projector-server/handlers/http"
	"projector-server/usecases"
	"projector-server/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type incomingMessage struct {
	Type string `json:"type"` // heartbeat
}

const pongWait = 90 * time.Second

// WSHandler serves the wake-up channel of classroom agents.
type WSHandler struct {
	mgr        *ws.Manager
	projectors *usecases.ProjectorsUseCase
	log        *zap.Logger
}

func NewWSHandler(mgr *ws.Manager, projectors *usecases.ProjectorsUseCase, log *zap.Logger) *WSHandler {
	return &WSHandler{mgr: mgr, projectors: projectors, log: log}
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// HandleAgentWS upgrades the connection of the agent in classroom.
// GET /projectors/agents/ws?classroom=<classroom>
func (h *WSHandler) HandleAgentWS(c *gin.Context) {
	classroom := c.Query("classroom")
	if _, err := h.projectors.Get(c.Request.Context(), classroom); err != nil {
		httpHandler.RespondError(c, h.log, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.String("classroom", classroom), zap.Error(err))
		return
	}
	h.mgr.Register(classroom, conn)
	h.log.Info("agent connected", zap.String("classroom", classroom))

	defer func() {
		h.mgr.Unregister(classroom, conn)
		h.log.Info("agent disconnected", zap.String("classroom", classroom))
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("agent read error", zap.String("classroom", classroom), zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		if mt != websocket.TextMessage {
			continue
		}

		var base incomingMessage
		if err := json.Unmarshal(message, &base); err != nil {
			h.log.Debug("invalid agent message", zap.String("classroom", classroom), zap.Error(err))
			continue
		}
		switch base.Type {
		case "heartbeat":
			if err := h.mgr.Ping(classroom); err != nil {
				h.log.Debug("heartbeat ping failed", zap.String("classroom", classroom), zap.Error(err))
			}
		default:
			h.log.Debug("unknown agent message", zap.String("classroom", classroom), zap.String("type", base.Type))
		}
	}
}

// GetConnectedAgents GET /projectors/agents/connected
func (h *WSHandler) GetConnectedAgents(c *gin.Context) {
	agents := h.mgr.List()
	c.JSON(http.StatusOK, gin.H{"classrooms": agents, "count": len(agents)})
}
