package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/firelater/itsm-service/internal/domain"
)

// TicketFilter captures listing parameters.
type TicketFilter struct {
	Kind        *domain.TicketKind
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	ReporterID  *string
	AssigneeID  *string
	Breached    *bool
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	UpdatedFrom *time.Time
	UpdatedTo   *time.Time
	Limit       int
	Offset      int
}

// TicketRepository encapsulates ticket persistence. All methods are tenant
// scoped; the tenant picks the schema the query runs against.
type TicketRepository interface {
	Create(ctx context.Context, tenant string, ticket *domain.Ticket) error
	Update(ctx context.Context, tenant string, ticket *domain.Ticket) error
	GetByID(ctx context.Context, tenant, id string) (*domain.Ticket, error)
	GetByNumber(ctx context.Context, tenant, number string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, tenant string, filter TicketFilter) ([]domain.Ticket, error)
	ListDueUnbreached(ctx context.Context, tenant string, before time.Time) ([]domain.Ticket, error)
}

type ticketRepository struct {
	q Querier
}

// NewTicketRepository instantiates the repository.
func NewTicketRepository(q Querier) TicketRepository {
	return &ticketRepository{q: q}
}

const ticketColumns = `id, number, kind, title, description, status, priority, category,
       impact, urgency, problem_type, reporter_id, assignee_id, assignee_group_id,
       sla_policy_id, response_due_at, resolution_due_at, sla_breached,
       escalation_level, escalated_at, first_response_at, response_time_minutes,
       resolution, resolved_at, resolved_by_id, resolution_time_minutes,
       root_cause, root_cause_identified_at, is_known_error, known_error_since,
       closed_at, closed_by_id, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, tenant string, ticket *domain.Ticket) error {
	query := fmt.Sprintf(`
        INSERT INTO %s (number, kind, title, description, status, priority, category,
            impact, urgency, problem_type, reporter_id, assignee_id, assignee_group_id,
            sla_policy_id, response_due_at, resolution_due_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
        RETURNING id, created_at, updated_at`, table(tenant, "tickets"))
	return r.q.QueryRow(ctx, query,
		ticket.Number,
		ticket.Kind,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.Category,
		ticket.Impact,
		ticket.Urgency,
		ticket.ProblemType,
		ticket.ReporterID,
		ticket.AssigneeID,
		ticket.AssigneeGroupID,
		ticket.SLAPolicyID,
		ticket.ResponseDueAt,
		ticket.ResolutionDueAt,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, tenant string, ticket *domain.Ticket) error {
	query := fmt.Sprintf(`
        UPDATE %s SET title=$1, description=$2, status=$3, priority=$4, category=$5,
            impact=$6, urgency=$7, problem_type=$8, assignee_id=$9, assignee_group_id=$10,
            sla_policy_id=$11, response_due_at=$12, resolution_due_at=$13, sla_breached=$14,
            escalation_level=$15, escalated_at=$16, first_response_at=$17, response_time_minutes=$18,
            resolution=$19, resolved_at=$20, resolved_by_id=$21, resolution_time_minutes=$22,
            root_cause=$23, root_cause_identified_at=$24, is_known_error=$25, known_error_since=$26,
            closed_at=$27, closed_by_id=$28, updated_at=NOW()
        WHERE id=$29`, table(tenant, "tickets"))
	cmd, err := r.q.Exec(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.Category,
		ticket.Impact,
		ticket.Urgency,
		ticket.ProblemType,
		ticket.AssigneeID,
		ticket.AssigneeGroupID,
		ticket.SLAPolicyID,
		ticket.ResponseDueAt,
		ticket.ResolutionDueAt,
		ticket.SLABreached,
		ticket.EscalationLevel,
		ticket.EscalatedAt,
		ticket.FirstResponseAt,
		ticket.ResponseTimeMinutes,
		ticket.Resolution,
		ticket.ResolvedAt,
		ticket.ResolvedByID,
		ticket.ResolutionTimeMinutes,
		ticket.RootCause,
		ticket.RootCauseIdentifiedAt,
		ticket.IsKnownError,
		ticket.KnownErrorSince,
		ticket.ClosedAt,
		ticket.ClosedByID,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, tenant, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id=$1`, ticketColumns, table(tenant, "tickets"))
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByNumber(ctx context.Context, tenant, number string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE number=$1`, ticketColumns, table(tenant, "tickets"))
	return r.fetchSingle(ctx, query, number)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := scanTicket(r.q.QueryRow(ctx, query, arg), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, tenant string, filter TicketFilter) ([]domain.Ticket, error) {
	base := fmt.Sprintf(`SELECT %s FROM %s`, ticketColumns, table(tenant, "tickets"))
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Kind != nil {
		args = append(args, *filter.Kind)
		clauses = append(clauses, fmt.Sprintf("kind=$%d", len(args)))
	}
	if filter.ReporterID != nil {
		args = append(args, *filter.ReporterID)
		clauses = append(clauses, fmt.Sprintf("reporter_id=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assignee_id=$%d", len(args)))
	}
	if filter.Breached != nil {
		args = append(args, *filter.Breached)
		clauses = append(clauses, fmt.Sprintf("sla_breached=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, priority := range filter.Priorities {
			args = append(args, priority)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.UpdatedFrom != nil {
		args = append(args, *filter.UpdatedFrom)
		clauses = append(clauses, fmt.Sprintf("updated_at >= $%d", len(args)))
	}
	if filter.UpdatedTo != nil {
		args = append(args, *filter.UpdatedTo)
		clauses = append(clauses, fmt.Sprintf("updated_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// ListDueUnbreached returns tickets with a due date before the cutoff whose
// breach flag is not yet set. Used by the breach sweep.
func (r *ticketRepository) ListDueUnbreached(ctx context.Context, tenant string, before time.Time) ([]domain.Ticket, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM %s
        WHERE sla_breached = FALSE
          AND status NOT IN ($1, $2)
          AND ((response_due_at IS NOT NULL AND response_due_at < $3 AND first_response_at IS NULL)
            OR (resolution_due_at IS NOT NULL AND resolution_due_at < $3 AND resolved_at IS NULL))`,
		ticketColumns, table(tenant, "tickets"))
	rows, err := r.q.Query(ctx, query, domain.StatusResolved, domain.StatusClosed, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.Number,
		&ticket.Kind,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.Category,
		&ticket.Impact,
		&ticket.Urgency,
		&ticket.ProblemType,
		&ticket.ReporterID,
		&ticket.AssigneeID,
		&ticket.AssigneeGroupID,
		&ticket.SLAPolicyID,
		&ticket.ResponseDueAt,
		&ticket.ResolutionDueAt,
		&ticket.SLABreached,
		&ticket.EscalationLevel,
		&ticket.EscalatedAt,
		&ticket.FirstResponseAt,
		&ticket.ResponseTimeMinutes,
		&ticket.Resolution,
		&ticket.ResolvedAt,
		&ticket.ResolvedByID,
		&ticket.ResolutionTimeMinutes,
		&ticket.RootCause,
		&ticket.RootCauseIdentifiedAt,
		&ticket.IsKnownError,
		&ticket.KnownErrorSince,
		&ticket.ClosedAt,
		&ticket.ClosedByID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
