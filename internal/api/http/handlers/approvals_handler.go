package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/firelater/itsm-service/internal/api/dto"
	"github.com/firelater/itsm-service/internal/auth"
	"github.com/firelater/itsm-service/internal/domain"
	"github.com/firelater/itsm-service/internal/service"
	apperrors "github.com/firelater/itsm-service/pkg/util/errorutil"
)

// ApprovalsHandler exposes chain authoring and approval actions.
type ApprovalsHandler struct {
	approvals *service.ApprovalService
}

// NewApprovalsHandler constructs handler.
func NewApprovalsHandler(approvals *service.ApprovalService) *ApprovalsHandler {
	return &ApprovalsHandler{approvals: approvals}
}

// CreateChain POST /approval-chains.
func (h *ApprovalsHandler) CreateChain(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.CreateChainRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Name == "" {
		return apperrors.NewValidationError("name required", nil)
	}

	steps := make([]*domain.ApprovalChainStep, 0, len(req.Steps))
	for _, step := range req.Steps {
		steps = append(steps, &domain.ApprovalChainStep{
			ID:              step.ID,
			Kind:            step.Kind,
			Order:           step.Order,
			AssigneeUserID:  step.AssigneeUserID,
			AssigneeGroupID: step.AssigneeGroupID,
			Condition:       step.Condition,
			NextStepID:      step.NextStepID,
			ElseStepID:      step.ElseStepID,
		})
	}

	chain, err := h.approvals.CreateChain(c.Context(), principal.Tenant, &domain.ApprovalChain{
		Name:  req.Name,
		Steps: steps,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": chainResponse(chain)})
}

// GetChain GET /approval-chains/:id.
func (h *ApprovalsHandler) GetChain(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	chain, err := h.approvals.GetChain(c.Context(), principal.Tenant, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": chainResponse(chain)})
}

// Resolve GET /approval-chains/:id/next.
func (h *ApprovalsHandler) Resolve(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	decision, err := h.approvals.Resolve(c.Context(), principal.Tenant, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": decisionResponse(decision)})
}

// RecordAction POST /approval-chains/:id/actions.
func (h *ApprovalsHandler) RecordAction(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.ApprovalActionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.StepID == "" {
		return apperrors.NewValidationError("step_id required", nil)
	}

	decision, err := h.approvals.RecordAction(c.Context(), principal.Tenant, c.Params("id"), req.StepID, principal.User.ID, req.Approved, req.Comments, req.TicketID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": decisionResponse(decision)})
}

// Delegate POST /approval-chains/:id/delegate.
func (h *ApprovalsHandler) Delegate(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.DelegateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.StepID == "" || req.DelegateID == "" {
		return apperrors.NewValidationError("step_id and delegate_id required", nil)
	}

	step, err := h.approvals.Delegate(c.Context(), principal.Tenant, c.Params("id"), req.StepID, principal.User.ID, req.DelegateID)
	if err != nil {
		return err
	}
	resp := stepResponse(step)
	return c.JSON(fiber.Map{"data": resp})
}

// EvaluateBranch POST /approval-chains/:id/steps/:stepId/evaluate.
func (h *ApprovalsHandler) EvaluateBranch(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var payload map[string]any
	if err := c.BodyParser(&payload); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	nextID, err := h.approvals.EvaluateBranch(c.Context(), principal.Tenant, c.Params("id"), c.Params("stepId"), payload)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"next_step_id": nextID}})
}

func chainResponse(chain *domain.ApprovalChain) dto.ChainResponse {
	steps := make([]dto.ChainStepResponse, 0, len(chain.Steps))
	for _, step := range chain.Steps {
		if step == nil {
			continue
		}
		steps = append(steps, stepResponse(step))
	}
	return dto.ChainResponse{
		ID:        chain.ID,
		Name:      chain.Name,
		Steps:     steps,
		CreatedAt: chain.CreatedAt,
	}
}

func stepResponse(step *domain.ApprovalChainStep) dto.ChainStepResponse {
	return dto.ChainStepResponse{
		ID:              step.ID,
		Kind:            step.Kind,
		Order:           step.Order,
		AssigneeUserID:  step.AssigneeUserID,
		AssigneeGroupID: step.AssigneeGroupID,
		Condition:       step.Condition,
		NextStepID:      step.NextStepID,
		ElseStepID:      step.ElseStepID,
	}
}

func decisionResponse(decision *service.ApprovalDecision) dto.DecisionResponse {
	resp := dto.DecisionResponse{State: string(decision.State)}
	if decision.NextStep != nil {
		next := stepResponse(decision.NextStep)
		resp.NextStep = &next
	}
	return resp
}
