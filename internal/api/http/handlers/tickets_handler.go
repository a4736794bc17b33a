package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/firelater/itsm-service/internal/api/dto"
	"github.com/firelater/itsm-service/internal/auth"
	"github.com/firelater/itsm-service/internal/domain"
	"github.com/firelater/itsm-service/internal/repository"
	"github.com/firelater/itsm-service/internal/service"
	apperrors "github.com/firelater/itsm-service/pkg/util/errorutil"
)

// TicketsHandler exposes the ticket lifecycle over HTTP.
type TicketsHandler struct {
	lifecycle *service.LifecycleService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(lifecycle *service.LifecycleService) *TicketsHandler {
	return &TicketsHandler{lifecycle: lifecycle}
}

// Create POST /tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.lifecycle.Create(c.Context(), principal.Tenant, principal.User.ID, service.CreateTicketInput{
		Kind:        req.Kind,
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Category:    req.Category,
		Impact:      req.Impact,
		Urgency:     req.Urgency,
		ProblemType: req.ProblemType,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// List GET /tickets with query filters.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	filter, err := parseTicketFilter(c)
	if err != nil {
		return err
	}
	tickets, err := h.lifecycle.List(c.Context(), principal.Tenant, filter)
	if err != nil {
		return err
	}

	summaries := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		summaries = append(summaries, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": summaries, "count": len(summaries)})
}

// Get GET /tickets/:id. The id segment also accepts a ticket number such as
// INC-000042 so links in notifications resolve without a second lookup.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	id := c.Params("id")
	var ticket *domain.Ticket
	var err error
	if looksLikeNumber(id) {
		ticket, err = h.lifecycle.GetByNumber(c.Context(), principal.Tenant, id)
	} else {
		ticket, err = h.lifecycle.Get(c.Context(), principal.Tenant, id)
	}
	if err != nil {
		return err
	}

	allowed, err := h.lifecycle.AllowedTransitions(c.Context(), principal.Tenant, ticket.ID)
	if err != nil {
		return err
	}
	history, err := h.lifecycle.History(c.Context(), principal.Tenant, ticket.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, allowed, history)})
}

// Update PATCH /tickets/:id.
func (h *TicketsHandler) Update(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.lifecycle.Update(c.Context(), principal.Tenant, c.Params("id"), principal.User.ID, service.UpdateTicketInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Category:    req.Category,
		Impact:      req.Impact,
		Urgency:     req.Urgency,
		ProblemType: req.ProblemType,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// ChangeStatus POST /tickets/:id/status.
func (h *TicketsHandler) ChangeStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.ChangeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return apperrors.NewValidationError("status required", nil)
	}

	ticket, err := h.lifecycle.ChangeStatus(c.Context(), principal.Tenant, c.Params("id"), principal.User.ID, service.ChangeStatusInput{
		NewStatus:  req.Status,
		Reason:     req.Reason,
		Resolution: req.Resolution,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// Assign POST /tickets/:id/assign.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.lifecycle.Assign(c.Context(), principal.Tenant, c.Params("id"), principal.User.ID, req.AssigneeID, req.GroupID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// Escalate POST /tickets/:id/escalate.
func (h *TicketsHandler) Escalate(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	ticket, err := h.lifecycle.Escalate(c.Context(), principal.Tenant, c.Params("id"), principal.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// SetRootCause POST /tickets/:id/root-cause.
func (h *TicketsHandler) SetRootCause(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.RootCauseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.lifecycle.SetRootCause(c.Context(), principal.Tenant, c.Params("id"), principal.User.ID, req.RootCause)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// History GET /tickets/:id/history.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	entries, err := h.lifecycle.History(c.Context(), principal.Tenant, c.Params("id"))
	if err != nil {
		return err
	}
	rows := make([]dto.StatusHistoryResponse, 0, len(entries))
	for i := range entries {
		rows = append(rows, historyRow(&entries[i]))
	}
	return c.JSON(fiber.Map{"data": rows, "count": len(rows)})
}

// Transitions GET /tickets/:id/transitions.
func (h *TicketsHandler) Transitions(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	allowed, err := h.lifecycle.AllowedTransitions(c.Context(), principal.Tenant, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": allowed})
}

func looksLikeNumber(id string) bool {
	return strings.HasPrefix(id, "INC-") || strings.HasPrefix(id, "PRB-")
}

func parseTicketFilter(c *fiber.Ctx) (repository.TicketFilter, error) {
	filter := repository.TicketFilter{
		Limit:  parseIntDefault(c.Query("limit"), 50),
		Offset: parseIntDefault(c.Query("offset"), 0),
	}
	if v := c.Query("kind"); v != "" {
		kind := domain.TicketKind(strings.ToUpper(v))
		if kind != domain.KindIssue && kind != domain.KindProblem {
			return filter, apperrors.NewValidationError("kind must be ISSUE or PROBLEM", nil)
		}
		filter.Kind = &kind
	}
	for _, raw := range splitCSV(c.Query("status")) {
		filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.ToUpper(raw)))
	}
	for _, raw := range splitCSV(c.Query("priority")) {
		filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.ToUpper(raw)))
	}
	if v := c.Query("reporter_id"); v != "" {
		filter.ReporterID = &v
	}
	if v := c.Query("assignee_id"); v != "" {
		filter.AssigneeID = &v
	}
	if v := c.Query("breached"); v != "" {
		breached := v == "true" || v == "1"
		filter.Breached = &breached
	}
	if v := c.Query("search"); v != "" {
		filter.SearchTerm = &v
	}
	var err error
	if filter.CreatedFrom, err = parseTime(c.Query("created_from")); err != nil {
		return filter, err
	}
	if filter.CreatedTo, err = parseTime(c.Query("created_to")); err != nil {
		return filter, err
	}
	if filter.UpdatedFrom, err = parseTime(c.Query("updated_from")); err != nil {
		return filter, err
	}
	if filter.UpdatedTo, err = parseTime(c.Query("updated_to")); err != nil {
		return filter, err
	}
	return filter, nil
}

func parseTime(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, apperrors.NewValidationError("timestamps must be RFC3339", nil)
	}
	return &parsed, nil
}

func parseIntDefault(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:              ticket.ID,
		Number:          ticket.Number,
		Kind:            ticket.Kind,
		Title:           ticket.Title,
		Status:          ticket.Status,
		Priority:        ticket.Priority,
		AssigneeID:      ticket.AssigneeID,
		SLABreached:     ticket.SLABreached,
		EscalationLevel: ticket.EscalationLevel,
		CreatedAt:       ticket.CreatedAt,
		UpdatedAt:       ticket.UpdatedAt,
	}
}

func ticketDetail(ticket *domain.Ticket, allowed []domain.TicketStatus, history []domain.StatusHistoryEntry) dto.TicketDetailResponse {
	rows := make([]dto.StatusHistoryResponse, 0, len(history))
	for i := range history {
		rows = append(rows, historyRow(&history[i]))
	}
	return dto.TicketDetailResponse{
		TicketSummary:         ticketSummary(ticket),
		Description:           ticket.Description,
		Category:              ticket.Category,
		Impact:                ticket.Impact,
		Urgency:               ticket.Urgency,
		ProblemType:           ticket.ProblemType,
		ReporterID:            ticket.ReporterID,
		AssigneeGroupID:       ticket.AssigneeGroupID,
		SLAPolicyID:           ticket.SLAPolicyID,
		ResponseDueAt:         ticket.ResponseDueAt,
		ResolutionDueAt:       ticket.ResolutionDueAt,
		FirstResponseAt:       ticket.FirstResponseAt,
		Resolution:            ticket.Resolution,
		ResolvedAt:            ticket.ResolvedAt,
		RootCause:             ticket.RootCause,
		RootCauseIdentifiedAt: ticket.RootCauseIdentifiedAt,
		IsKnownError:          ticket.IsKnownError,
		ClosedAt:              ticket.ClosedAt,
		AllowedTransitions:    allowed,
		History:               rows,
	}
}

func historyRow(entry *domain.StatusHistoryEntry) dto.StatusHistoryResponse {
	return dto.StatusHistoryResponse{
		ID:         entry.ID,
		FromStatus: entry.FromStatus,
		ToStatus:   entry.ToStatus,
		ActorID:    entry.ActorID,
		Reason:     entry.Reason,
		CreatedAt:  entry.CreatedAt,
	}
}
