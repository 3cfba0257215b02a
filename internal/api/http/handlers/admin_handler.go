package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/freshmanacadamy/Ver/internal/api/dto"
	"github.com/freshmanacadamy/Ver/internal/auth"
	"github.com/freshmanacadamy/Ver/internal/domain"
	"github.com/freshmanacadamy/Ver/internal/repository"
	"github.com/freshmanacadamy/Ver/internal/service"
	apperrors "github.com/freshmanacadamy/Ver/pkg/util/errorutil"
)

const defaultAuditLimit = 50

// AdminHandler exposes moderation and oversight endpoints.
type AdminHandler struct {
	engine     *service.Engine
	moderation *service.ModerationService
	chats      *service.ChatService
	audit      repository.AuditRepository
}

// NewAdminHandler constructs handler.
func NewAdminHandler(engine *service.Engine, moderation *service.ModerationService, chats *service.ChatService, audit repository.AuditRepository) *AdminHandler {
	return &AdminHandler{engine: engine, moderation: moderation, chats: chats, audit: audit}
}

type decisionRequest struct {
	Decision domain.Decision `json:"decision"`
}

type maintenanceRequest struct {
	Enabled bool `json:"enabled"`
}

// Pending handles GET /admin/pending.
func (h *AdminHandler) Pending(c *fiber.Ctx) error {
	admin, err := currentAdmin(c)
	if err != nil {
		return err
	}
	pending, err := h.moderation.Pending(admin.AdminID)
	if err != nil {
		return err
	}
	out := make([]dto.ListingResponse, 0, len(pending))
	for _, l := range pending {
		out = append(out, dto.NewListingResponse(l))
	}
	return c.JSON(fiber.Map{"data": out})
}

// Decide handles POST /admin/listings/:id/decision.
func (h *AdminHandler) Decide(c *fiber.Ctx) error {
	admin, err := currentAdmin(c)
	if err != nil {
		return err
	}
	listingID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req decisionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Decision != domain.DecisionApprove && req.Decision != domain.DecisionReject {
		return apperrors.NewValidationError("decision must be approve or reject", map[string]any{"decision": req.Decision})
	}

	listing, err := h.moderation.Decide(c.UserContext(), admin.AdminID, listingID, req.Decision)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewListingResponse(listing)})
}

// Chats handles GET /admin/chats.
func (h *AdminHandler) Chats(c *fiber.Ctx) error {
	active := h.chats.Active()
	out := make([]dto.ChatSummary, 0, len(active))
	for _, s := range active {
		out = append(out, dto.NewChatSummary(s))
	}
	return c.JSON(fiber.Map{"data": out})
}

// Chat handles GET /admin/chats/:identity.
func (h *AdminHandler) Chat(c *fiber.Ctx) error {
	identityID, err := pathID(c, "identity")
	if err != nil {
		return err
	}
	session, ok := h.chats.Lookup(identityID)
	if !ok {
		return apperrors.NewMissing(domain.ErrNoActiveSession, map[string]any{"identity_id": identityID})
	}
	return c.JSON(fiber.Map{"data": dto.NewChatDetail(session)})
}

// EndChat handles DELETE /admin/chats/:identity.
func (h *AdminHandler) EndChat(c *fiber.Ctx) error {
	admin, err := currentAdmin(c)
	if err != nil {
		return err
	}
	identityID, err := pathID(c, "identity")
	if err != nil {
		return err
	}
	if _, err := h.chats.ForceClose(c.UserContext(), admin.AdminID, identityID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Stats handles GET /admin/stats.
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.engine.Stats()})
}

// Maintenance handles PUT /admin/maintenance.
func (h *AdminHandler) Maintenance(c *fiber.Ctx) error {
	admin, err := currentAdmin(c)
	if err != nil {
		return err
	}
	var req maintenanceRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	h.engine.SetMaintenance(c.UserContext(), admin.AdminID, req.Enabled)
	return c.JSON(fiber.Map{"data": maintenanceRequest{Enabled: h.engine.Maintenance()}})
}

// Audit handles GET /admin/audit/:subject.
func (h *AdminHandler) Audit(c *fiber.Ctx) error {
	subjectID, err := pathID(c, "subject")
	if err != nil {
		return err
	}
	limit := c.QueryInt("limit", defaultAuditLimit)
	if limit <= 0 || limit > 500 {
		limit = defaultAuditLimit
	}
	entries, err := h.audit.ListBySubject(c.UserContext(), subjectID, limit)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	return c.JSON(fiber.Map{"data": entries})
}

func currentAdmin(c *fiber.Ctx) (*auth.Principal, error) {
	p, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return p, nil
}

func pathID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid "+name, map[string]any{name: c.Params(name)})
	}
	return id, nil
}
