package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/websage/backend/internal/answer"
	"github.com/websage/backend/internal/session"
	"github.com/websage/backend/pkg/logger"
)

// wsConn is the slice of *websocket.Conn the handler needs.
type wsConn interface {
	ReadJSON(v interface{}) error
	WriteJSON(v interface{}) error
	Close() error
}

// WebSocketHandler streams answers word by word so the client can render
// them as they arrive, then sends the sources in a final frame.
type WebSocketHandler struct {
	engine   *answer.Engine
	sessions *session.Manager
}

func NewWebSocketHandler(engine *answer.Engine, sessions *session.Manager) *WebSocketHandler {
	return &WebSocketHandler{
		engine:   engine,
		sessions: sessions,
	}
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")
	h.serve(c)
	logger.Info("WebSocket connection closed")
}

func (h *WebSocketHandler) serve(c wsConn) {
	// In-flight answer generation stops when the connection goes away.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer c.Close()

	for {
		var msg struct {
			Type      string `json:"type"`
			Content   string `json:"content"`
			SessionID string `json:"session_id"`
		}

		err := c.ReadJSON(&msg)
		if err != nil {
			logger.Debug("WebSocket read ended", zap.Error(err))
			return
		}

		if msg.Type != "question" || msg.Content == "" {
			continue
		}

		if h.engine == nil {
			h.sendError(c, "Answering is disabled: no language model credential configured")
			continue
		}

		if err := h.streamAnswer(ctx, c, msg.Content, msg.SessionID); err != nil {
			logger.Error("Failed to stream answer", zap.Error(err))
			h.sendError(c, "Failed to answer question")
		}
	}
}

func (h *WebSocketHandler) streamAnswer(ctx context.Context, c wsConn, question, sessionID string) error {
	sess := h.sessions.Get(sessionID)

	snap, ok := sess.Snapshot()
	if !ok {
		h.sendError(c, "Nothing indexed yet: extract content from URLs first")
		return nil
	}

	h.send(c, "status", "Retrieving context...")

	result, err := h.engine.Answer(ctx, snap, question)
	if err != nil {
		return err
	}

	words := strings.Fields(result.Text)
	for i, word := range words {
		chunk := word
		if i < len(words)-1 {
			chunk += " "
		}
		if err := h.send(c, "chunk", chunk); err != nil {
			return err
		}
	}

	sources := make([]map[string]interface{}, 0, len(result.Sources))
	for _, m := range result.Sources {
		sources = append(sources, map[string]interface{}{
			"url":        m.Segment.Source,
			"segment_id": m.Segment.ID,
			"score":      m.Score,
		})
	}

	return c.WriteJSON(map[string]interface{}{
		"type":       "complete",
		"answer_id":  result.ID,
		"sources":    sources,
		"latency_ms": result.LatencyMS,
	})
}

func (h *WebSocketHandler) send(c wsConn, msgType, content string) error {
	return c.WriteJSON(map[string]interface{}{
		"type":    msgType,
		"content": content,
	})
}

func (h *WebSocketHandler) sendError(c wsConn, errorMsg string) {
	c.WriteJSON(map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	})
}
