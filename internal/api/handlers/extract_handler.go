package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/websage/backend/internal/embedding"
	"github.com/websage/backend/internal/extract"
	"github.com/websage/backend/internal/ingest"
	"github.com/websage/backend/internal/session"
	"github.com/websage/backend/pkg/logger"
)

type ExtractHandler struct {
	processor *ingest.Processor
	sessions  *session.Manager
	maxURLs   int
}

func NewExtractHandler(processor *ingest.Processor, sessions *session.Manager, maxURLs int) *ExtractHandler {
	if maxURLs <= 0 {
		maxURLs = 20
	}
	return &ExtractHandler{
		processor: processor,
		sessions:  sessions,
		maxURLs:   maxURLs,
	}
}

func (h *ExtractHandler) HandleExtract(c *fiber.Ctx) error {
	var req struct {
		URLs      []string `json:"urls"`
		Strategy  string   `json:"strategy"`
		SessionID string   `json:"session_id"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	urls := extract.NormalizeURLs(req.URLs)
	if len(urls) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "At least one URL is required",
		})
	}
	if len(urls) > h.maxURLs {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Too many URLs in one request",
		})
	}

	sess := h.sessions.Get(req.SessionID)
	strategy := extract.ParseStrategy(req.Strategy)

	report, err := h.processor.Process(c.Context(), sess, urls, strategy)
	if err != nil {
		logger.Error("Extraction request failed", zap.Error(err))
		status := fiber.StatusInternalServerError
		message := "Failed to index extracted content"
		if errors.Is(err, embedding.ErrNotConfigured) {
			status = fiber.StatusServiceUnavailable
			message = "No embedding credential configured; content was extracted but not indexed"
		}
		return c.Status(status).JSON(fiber.Map{
			"error":     message,
			"processed": report.Processed,
			"failures":  report.Failures,
		})
	}

	return c.JSON(fiber.Map{
		"batch_id":      report.BatchID,
		"session_id":    sess.ID,
		"strategy":      report.Strategy,
		"method":        report.Method,
		"processed":     report.Processed,
		"failures":      report.Failures,
		"segment_count": report.SegmentCount,
		"indexed":       report.Indexed,
		"suggestions":   report.Suggestions,
	})
}
