package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/websage/backend/internal/answer"
	"github.com/websage/backend/internal/metrics"
	"github.com/websage/backend/internal/session"
	"github.com/websage/backend/internal/storage/models"
	"github.com/websage/backend/internal/storage/sqlite"
	"github.com/websage/backend/pkg/logger"
)

type AnswerHandler struct {
	engine   *answer.Engine
	sessions *session.Manager
	db       *sqlite.Client
}

// NewAnswerHandler takes a nil engine when no chat backend is configured;
// requests then get a configuration error instead of an answer.
func NewAnswerHandler(engine *answer.Engine, sessions *session.Manager, db *sqlite.Client) *AnswerHandler {
	return &AnswerHandler{
		engine:   engine,
		sessions: sessions,
		db:       db,
	}
}

func (h *AnswerHandler) HandleAsk(c *fiber.Ctx) error {
	var req struct {
		Question  string `json:"question"`
		SessionID string `json:"session_id"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Question == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Question is required",
		})
	}

	if h.engine == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Answering is disabled: no language model credential configured",
		})
	}

	sess := h.sessions.Get(req.SessionID)

	snap, ok := sess.Snapshot()
	if !ok {
		metrics.AnswerTotal.WithLabelValues("not_indexed").Inc()
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Nothing indexed yet: extract content from URLs first",
		})
	}

	result, err := h.engine.Answer(c.Context(), snap, req.Question)
	if err != nil {
		metrics.AnswerTotal.WithLabelValues("error").Inc()
		logger.Error("Failed to answer question", zap.Error(err))

		var genErr *answer.GenerationError
		if errors.As(err, &genErr) {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": genErr.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to answer question",
		})
	}

	metrics.AnswerTotal.WithLabelValues("ok").Inc()
	metrics.AnswerDuration.Observe(float64(result.LatencyMS) / 1000)

	h.record(sess.ID, result)

	sources := make([]fiber.Map, 0, len(result.Sources))
	for _, m := range result.Sources {
		sources = append(sources, fiber.Map{
			"url":        m.Segment.Source,
			"segment_id": m.Segment.ID,
			"content":    m.Segment.Content,
			"score":      m.Score,
		})
	}

	return c.JSON(fiber.Map{
		"id":         result.ID,
		"session_id": sess.ID,
		"question":   result.Question,
		"answer":     result.Text,
		"sources":    sources,
		"latency_ms": result.LatencyMS,
	})
}

func (h *AnswerHandler) record(sessionID string, result *answer.Answer) {
	if h.db == nil {
		return
	}

	record := &models.AnswerRecord{
		ID:        result.ID,
		SessionID: sessionID,
		Question:  result.Question,
		Answer:    result.Text,
		LatencyMS: result.LatencyMS,
		CreatedAt: time.Now(),
	}

	sources := make([]models.AnswerSource, 0, len(result.Sources))
	for _, m := range result.Sources {
		sources = append(sources, models.AnswerSource{
			AnswerID:  result.ID,
			SourceURL: m.Segment.Source,
			SegmentID: m.Segment.ID,
			Score:     float64(m.Score),
		})
	}

	if err := h.db.InsertAnswer(record, sources); err != nil {
		logger.Warn("Failed to record answer", zap.Error(err))
	}
}
