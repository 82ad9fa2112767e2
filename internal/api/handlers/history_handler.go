package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/websage/backend/internal/session"
	"github.com/websage/backend/internal/storage/sqlite"
	"github.com/websage/backend/pkg/logger"
)

type HistoryHandler struct {
	db       *sqlite.Client
	sessions *session.Manager
}

func NewHistoryHandler(db *sqlite.Client, sessions *session.Manager) *HistoryHandler {
	return &HistoryHandler{
		db:       db,
		sessions: sessions,
	}
}

func (h *HistoryHandler) GetAnswers(c *fiber.Ctx) error {
	sess := h.sessions.Get(c.Query("session_id"))

	records, err := h.db.ListAnswers(sess.ID, c.QueryInt("limit", 20))
	if err != nil {
		logger.Error("Failed to list answers", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load answer history",
		})
	}

	return c.JSON(fiber.Map{
		"session_id": sess.ID,
		"answers":    records,
	})
}

func (h *HistoryHandler) GetBatches(c *fiber.Ctx) error {
	sess := h.sessions.Get(c.Query("session_id"))

	batches, err := h.db.ListBatches(sess.ID, c.QueryInt("limit", 20))
	if err != nil {
		logger.Error("Failed to list batches", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load extraction history",
		})
	}

	return c.JSON(fiber.Map{
		"session_id":     sess.ID,
		"batches":        batches,
		"processed_urls": sess.ProcessedURLs(),
	})
}
