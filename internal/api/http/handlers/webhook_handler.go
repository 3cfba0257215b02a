package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/freshmanacadamy/Ver/internal/api/dto"
	"github.com/freshmanacadamy/Ver/internal/router"
)

// SecretHeader carries the token configured with setWebhook.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// EventHandler consumes classified events.
type EventHandler interface {
	Handle(ctx context.Context, ev router.Event) error
}

// UpdateFilter drops redelivered updates.
type UpdateFilter interface {
	FirstSeen(ctx context.Context, updateID int64) bool
}

// WebhookHandler receives Bot API updates.
type WebhookHandler struct {
	secret string
	events EventHandler
	filter UpdateFilter
	logger *zap.Logger
}

// NewWebhookHandler constructs the handler. An empty secret disables the
// header check; filter may be nil.
func NewWebhookHandler(secret string, events EventHandler, filter UpdateFilter, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{secret: secret, events: events, filter: filter, logger: logger}
}

// Receive handles POST /webhook. Workflow failures were already reported
// to the user, so the update is always acknowledged.
func (h *WebhookHandler) Receive(c *fiber.Ctx) error {
	if h.secret != "" {
		got := c.Get(SecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
			return fiber.NewError(http.StatusUnauthorized, "invalid webhook secret")
		}
	}

	var update dto.Update
	if err := c.BodyParser(&update); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid update payload")
	}

	if h.filter != nil && !h.filter.FirstSeen(c.UserContext(), update.UpdateID) {
		h.logger.Debug("duplicate update ignored", zap.Int64("update_id", update.UpdateID))
		return c.SendStatus(http.StatusOK)
	}

	ev, ok := router.Classify(update)
	if !ok {
		return c.SendStatus(http.StatusOK)
	}
	if err := h.events.Handle(c.UserContext(), ev); err != nil {
		h.logger.Debug("update handled with error", zap.Int64("update_id", update.UpdateID), zap.Error(err))
	}
	return c.SendStatus(http.StatusOK)
}
