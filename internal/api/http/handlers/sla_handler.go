package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/firelater/itsm-service/internal/api/dto"
	"github.com/firelater/itsm-service/internal/auth"
	"github.com/firelater/itsm-service/internal/domain"
	"github.com/firelater/itsm-service/internal/service"
	apperrors "github.com/firelater/itsm-service/pkg/util/errorutil"
)

// SLAHandler exposes SLA policy administration.
type SLAHandler struct {
	sla *service.SLAService
}

// NewSLAHandler constructs handler.
func NewSLAHandler(slaService *service.SLAService) *SLAHandler {
	return &SLAHandler{sla: slaService}
}

// CreatePolicy POST /sla/policies.
func (h *SLAHandler) CreatePolicy(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.SLAPolicyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	targets := make([]domain.SLATarget, 0, len(req.Targets))
	for _, target := range req.Targets {
		targets = append(targets, domain.SLATarget{
			Priority:      target.Priority,
			Metric:        target.Metric,
			TargetMinutes: target.TargetMinutes,
		})
	}

	policy, err := h.sla.CreatePolicy(c.Context(), principal.Tenant, &domain.SLAPolicy{
		Name:       req.Name,
		EntityType: req.EntityType,
		IsDefault:  req.IsDefault,
		Targets:    targets,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": policy})
}

// ListPolicies GET /sla/policies?entity_type=ISSUE.
func (h *SLAHandler) ListPolicies(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	entityType := domain.TicketKind(strings.ToUpper(c.Query("entity_type", string(domain.KindIssue))))
	policies, err := h.sla.ListPolicies(c.Context(), principal.Tenant, entityType)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": policies, "count": len(policies)})
}

// PreviewTargets GET /sla/targets?entity_type=ISSUE&priority=HIGH.
func (h *SLAHandler) PreviewTargets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	entityType := domain.TicketKind(strings.ToUpper(c.Query("entity_type", string(domain.KindIssue))))
	priority := domain.TicketPriority(strings.ToUpper(c.Query("priority", string(domain.PriorityMedium))))
	targets, err := h.sla.PreviewTargets(c.Context(), principal.Tenant, entityType, priority)
	if err != nil {
		return err
	}
	if targets == nil {
		return c.JSON(fiber.Map{"data": nil})
	}
	return c.JSON(fiber.Map{"data": targets})
}

// SweepBreaches POST /sla/sweep flags tickets past their resolution due date.
func (h *SLAHandler) SweepBreaches(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	flagged, err := h.sla.SweepBreaches(c.Context(), principal.Tenant)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"flagged": flagged}})
}
