package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/firelater/itsm-service/internal/domain"
	"github.com/firelater/itsm-service/internal/events"
	"github.com/firelater/itsm-service/internal/repository"
)

// fakeStore runs the transaction function directly against the in-memory
// repositories. Rollback is not simulated; tests assert on returned errors.
type fakeStore struct {
	repos repository.Repositories
}

func (s *fakeStore) WithinTx(_ context.Context, fn func(r repository.Repositories) error) error {
	return fn(s.repos)
}

type fakeTicketRepo struct {
	now     func() time.Time
	seq     int
	tickets map[string]*domain.Ticket
}

func newFakeTicketRepo(now func() time.Time) *fakeTicketRepo {
	return &fakeTicketRepo{now: now, tickets: map[string]*domain.Ticket{}}
}

func (r *fakeTicketRepo) Create(_ context.Context, _ string, ticket *domain.Ticket) error {
	r.seq++
	ticket.ID = fmt.Sprintf("ticket-%d", r.seq)
	ticket.CreatedAt = r.now()
	ticket.UpdatedAt = ticket.CreatedAt
	stored := *ticket
	r.tickets[ticket.ID] = &stored
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, _ string, ticket *domain.Ticket) error {
	if _, ok := r.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = r.now()
	stored := *ticket
	r.tickets[ticket.ID] = &stored
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, _ string, id string) (*domain.Ticket, error) {
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (r *fakeTicketRepo) GetByNumber(_ context.Context, _ string, number string) (*domain.Ticket, error) {
	for _, ticket := range r.tickets {
		if ticket.Number == number {
			copied := *ticket
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeTicketRepo) ListWithFilter(_ context.Context, _ string, filter repository.TicketFilter) ([]domain.Ticket, error) {
	var out []domain.Ticket
	for _, ticket := range r.tickets {
		if filter.Kind != nil && ticket.Kind != *filter.Kind {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		out = append(out, *ticket)
	}
	return out, nil
}

func (r *fakeTicketRepo) ListDueUnbreached(_ context.Context, _ string, before time.Time) ([]domain.Ticket, error) {
	var out []domain.Ticket
	for _, ticket := range r.tickets {
		if ticket.SLABreached {
			continue
		}
		responseDue := ticket.ResponseDueAt != nil && ticket.ResponseDueAt.Before(before)
		resolutionDue := ticket.ResolutionDueAt != nil && ticket.ResolutionDueAt.Before(before)
		if responseDue || resolutionDue {
			out = append(out, *ticket)
		}
	}
	return out, nil
}

func containsStatus(statuses []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

type fakeHistoryRepo struct {
	now     func() time.Time
	seq     int
	entries map[string][]domain.StatusHistoryEntry
}

func newFakeHistoryRepo(now func() time.Time) *fakeHistoryRepo {
	return &fakeHistoryRepo{now: now, entries: map[string][]domain.StatusHistoryEntry{}}
}

func (r *fakeHistoryRepo) Append(_ context.Context, _ string, entry *domain.StatusHistoryEntry) error {
	r.seq++
	entry.ID = fmt.Sprintf("history-%d", r.seq)
	entry.CreatedAt = r.now()
	r.entries[entry.TicketID] = append(r.entries[entry.TicketID], *entry)
	return nil
}

func (r *fakeHistoryRepo) ListByTicket(_ context.Context, _ string, ticketID string) ([]domain.StatusHistoryEntry, error) {
	return append([]domain.StatusHistoryEntry(nil), r.entries[ticketID]...), nil
}

type fakeSLARepo struct {
	seq      int
	policies []domain.SLAPolicy
}

func (r *fakeSLARepo) Create(_ context.Context, _ string, policy *domain.SLAPolicy) error {
	r.seq++
	policy.ID = fmt.Sprintf("policy-%d", r.seq)
	for i := range policy.Targets {
		policy.Targets[i].PolicyID = policy.ID
	}
	r.policies = append(r.policies, *policy)
	return nil
}

func (r *fakeSLARepo) GetByID(_ context.Context, _ string, id string) (*domain.SLAPolicy, error) {
	for i := range r.policies {
		if r.policies[i].ID == id {
			copied := r.policies[i]
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeSLARepo) ListByEntityType(_ context.Context, _ string, entityType domain.TicketKind) ([]domain.SLAPolicy, error) {
	var out []domain.SLAPolicy
	for _, policy := range r.policies {
		if policy.EntityType == entityType {
			out = append(out, policy)
		}
	}
	return out, nil
}

func (r *fakeSLARepo) ClearDefault(_ context.Context, _ string, entityType domain.TicketKind) error {
	for i := range r.policies {
		if r.policies[i].EntityType == entityType {
			r.policies[i].IsDefault = false
		}
	}
	return nil
}

type fakeApprovalRepo struct {
	now      func() time.Time
	chainSeq int
	recSeq   int
	chains   map[string]*domain.ApprovalChain
	records  map[string][]domain.ApprovalRecord
}

func newFakeApprovalRepo(now func() time.Time) *fakeApprovalRepo {
	return &fakeApprovalRepo{
		now:     now,
		chains:  map[string]*domain.ApprovalChain{},
		records: map[string][]domain.ApprovalRecord{},
	}
}

func (r *fakeApprovalRepo) CreateChain(_ context.Context, _ string, chain *domain.ApprovalChain) error {
	r.chainSeq++
	chain.ID = fmt.Sprintf("chain-%d", r.chainSeq)
	chain.CreatedAt = r.now()
	chain.UpdatedAt = chain.CreatedAt
	stored := *chain
	stored.Steps = copySteps(chain.Steps)
	r.chains[chain.ID] = &stored
	return nil
}

func (r *fakeApprovalRepo) GetChain(_ context.Context, _ string, chainID string) (*domain.ApprovalChain, error) {
	chain, ok := r.chains[chainID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *chain
	copied.Steps = copySteps(chain.Steps)
	return &copied, nil
}

func (r *fakeApprovalRepo) UpdateStepAssignee(_ context.Context, _ string, chainID, stepID, userID string) error {
	chain, ok := r.chains[chainID]
	if !ok {
		return pgx.ErrNoRows
	}
	for _, step := range chain.Steps {
		if step != nil && step.ID == stepID {
			assignee := userID
			step.AssigneeUserID = &assignee
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakeApprovalRepo) AppendRecord(_ context.Context, _ string, record *domain.ApprovalRecord) error {
	r.recSeq++
	record.ID = fmt.Sprintf("record-%d", r.recSeq)
	record.CreatedAt = r.now()
	r.records[record.ChainID] = append(r.records[record.ChainID], *record)
	return nil
}

func (r *fakeApprovalRepo) ListRecords(_ context.Context, _ string, chainID string) ([]domain.ApprovalRecord, error) {
	return append([]domain.ApprovalRecord(nil), r.records[chainID]...), nil
}

func copySteps(steps []*domain.ApprovalChainStep) []*domain.ApprovalChainStep {
	out := make([]*domain.ApprovalChainStep, 0, len(steps))
	for _, step := range steps {
		if step == nil {
			out = append(out, nil)
			continue
		}
		copied := *step
		out = append(out, &copied)
	}
	return out
}

type fakeUserRepo struct {
	users map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*domain.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, _ string, user *domain.User) error {
	if user.ID == "" {
		user.ID = fmt.Sprintf("user-%d", len(r.users)+1)
	}
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, _ string, id string) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, _ string, email string) (*domain.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type fakeSequenceRepo struct {
	counters map[domain.TicketKind]int
}

func newFakeSequenceRepo() *fakeSequenceRepo {
	return &fakeSequenceRepo{counters: map[domain.TicketKind]int{}}
}

func (r *fakeSequenceRepo) NextNumber(_ context.Context, _ string, kind domain.TicketKind) (string, error) {
	r.counters[kind]++
	return fmt.Sprintf("%s-%06d", kind.NumberPrefix(), r.counters[kind]), nil
}

// recordingDispatcher captures published events for assertions.
type recordingDispatcher struct {
	published []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.published = append(d.published, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) byType(eventType events.EventType) []events.Event {
	var out []events.Event
	for _, event := range d.published {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

// recordingInvalidator captures invalidation signals.
type recordingInvalidator struct {
	calls []string
}

func (i *recordingInvalidator) Invalidate(tenant, resourceKind string) {
	i.calls = append(i.calls, tenant+"/"+resourceKind)
}
