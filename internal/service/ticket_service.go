package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/asset-desk/internal/clock"
	"github.com/spec-kit/asset-desk/internal/domain"
	"github.com/spec-kit/asset-desk/internal/events"
	"github.com/spec-kit/asset-desk/internal/observability"
	"github.com/spec-kit/asset-desk/internal/repository"
	"github.com/spec-kit/asset-desk/internal/sla"
	"github.com/spec-kit/asset-desk/internal/timeline"
	apperrors "github.com/spec-kit/asset-desk/pkg/util/errorutil"
)

// SLAResolver yields the SLA duration for a supplier, falling back to a default.
type SLAResolver interface {
	SLAHoursFor(ctx context.Context, supplierID string) int
}

// TicketPolicy holds the configurable workflow rules.
type TicketPolicy struct {
	MinDescriptionLength  int
	CarryOverDeadline     bool
	ClearResolvedOnReopen bool
}

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets      repository.TicketRepository
	interactions repository.InteractionRepository
	suppliers    SLAResolver
	dispatcher   events.Dispatcher
	clock        clock.Clock
	logger       *zap.Logger
	metrics      *observability.Metrics
	policy       TicketPolicy
}

// TicketDependencies bundles collaborators for ticket service.
type TicketDependencies struct {
	TicketRepo      repository.TicketRepository
	InteractionRepo repository.InteractionRepository
	Suppliers       SLAResolver
	Dispatcher      events.Dispatcher
	Clock           clock.Clock
	Logger          *zap.Logger
	Metrics         *observability.Metrics
	Policy          TicketPolicy
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title            string
	Description      string
	SupplierID       string
	Type             domain.TicketType
	Priority         domain.TicketPriority
	Unit             string
	RelatedAssetID   *string
	ExternalProtocol *string
	SupplierContact  *string
	OwnerID          string
	OwnerName        string
}

// TicketPatch is a partial edit. ID, CreatedAt and SLADeadline are accepted
// so callers can pass whole payloads, but they are always discarded.
type TicketPatch struct {
	ID               *string
	CreatedAt        *time.Time
	SLADeadline      *time.Time
	Title            *string
	Description      *string
	SupplierID       *string
	Type             *domain.TicketType
	Priority         *domain.TicketPriority
	Unit             *string
	RelatedAssetID   *string
	ExternalProtocol *string
	SupplierContact  *string
	OwnerID          *string
	OwnerName        *string
}

// InteractionInput describes a user-authored timeline entry.
type InteractionInput struct {
	Type    domain.InteractionType
	Message string
}

// TicketListFilter describes listing filters.
type TicketListFilter struct {
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	SupplierID *string
	OwnerID    *string
	Ascending  bool
	Limit      int
	Offset     int
}

// TransitionOutcome says whether a status change was applied.
type TransitionOutcome string

const (
	TransitionApplied      TransitionOutcome = "applied"
	TransitionRejectedNoOp TransitionOutcome = "rejected_no_op"
)

// AuditOutcome reports the fate of the status-change interaction.
type AuditOutcome string

const (
	AuditRecorded AuditOutcome = "recorded"
	AuditFailed   AuditOutcome = "failed"
	AuditSkipped  AuditOutcome = "skipped"
)

// StatusChangeResult separates the committed status change from its audit
// append, which may fail independently.
type StatusChangeResult struct {
	Ticket      *domain.Ticket
	Outcome     TransitionOutcome
	Audit       AuditOutcome
	AuditErr    error
	Interaction *domain.Interaction
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:      deps.TicketRepo,
		interactions: deps.InteractionRepo,
		suppliers:    deps.Suppliers,
		dispatcher:   deps.Dispatcher,
		clock:        clk,
		logger:       logger,
		metrics:      deps.Metrics,
		policy:       deps.Policy,
	}
}

// Create opens a new ticket with an SLA deadline fixed from the supplier's hours.
func (s *TicketService) Create(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	ticket := &domain.Ticket{
		Title:            strings.TrimSpace(input.Title),
		Description:      strings.TrimSpace(input.Description),
		SupplierID:       strings.TrimSpace(input.SupplierID),
		Type:             input.Type,
		Priority:         input.Priority,
		Unit:             strings.TrimSpace(input.Unit),
		RelatedAssetID:   trimmedOrNil(input.RelatedAssetID),
		ExternalProtocol: trimmedOrNil(input.ExternalProtocol),
		SupplierContact:  trimmedOrNil(input.SupplierContact),
		OwnerID:          input.OwnerID,
		OwnerName:        input.OwnerName,
		Status:           domain.TicketStatusOpen,
		Interactions:     []domain.Interaction{},
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}
	if ticket.Type == "" {
		ticket.Type = domain.TicketTypeOther
	}
	if ticket.OwnerID == "" {
		ticket.OwnerID = actor.ID
		ticket.OwnerName = actor.Name
	}
	if err := s.validateTicket(ticket); err != nil {
		return nil, err
	}

	hours := s.slaHoursFor(ctx, ticket.SupplierID)
	now := s.clock.Now()
	deadline, err := sla.ComputeDeadline(now, hours)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid sla hours", map[string]any{"sla_hours": hours})
	}

	ticket.ID = uuid.NewString()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	ticket.SLADeadline = &deadline

	if err := s.tickets.Insert(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.EventTicketCreated, ticket.ID, actor, events.TicketCreatedPayload{
		SupplierID:  ticket.SupplierID,
		Priority:    ticket.Priority,
		Title:       ticket.Title,
		SLAHours:    hours,
		SLADeadline: ticket.SLADeadline,
	})
	return ticket, nil
}

// Get returns a fresh snapshot of a ticket with its interactions.
func (s *TicketService) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	return s.load(ctx, id)
}

// List returns tickets ordered by creation time, newest first unless Ascending.
func (s *TicketService) List(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, error) {
	for _, status := range filter.Statuses {
		if !status.Valid() {
			return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": status})
		}
	}
	for _, priority := range filter.Priorities {
		if !priority.Valid() {
			return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
		}
	}
	tickets, err := s.tickets.ListOrderedByCreation(ctx, repository.TicketFilter{
		Statuses:   filter.Statuses,
		Priorities: filter.Priorities,
		SupplierID: filter.SupplierID,
		OwnerID:    filter.OwnerID,
		Ascending:  filter.Ascending,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if tickets == nil {
		tickets = []domain.Ticket{}
	}
	return tickets, nil
}

// ChangeStatus moves a ticket to newStatus. Moving to the current status is
// rejected without writing anything. The audit interaction is appended after
// the status is committed and its failure does not undo the change.
func (s *TicketService) ChangeStatus(ctx context.Context, actor domain.Actor, id string, newStatus domain.TicketStatus) (*StatusChangeResult, error) {
	if !newStatus.Valid() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": newStatus})
	}
	ticket, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if ticket.Status == newStatus {
		return &StatusChangeResult{Ticket: ticket, Outcome: TransitionRejectedNoOp, Audit: AuditSkipped}, nil
	}
	if !domain.CanTransition(ticket.Status, newStatus) {
		return nil, apperrors.NewValidationError("invalid status transition", map[string]any{
			"from": ticket.Status,
			"to":   newStatus,
		})
	}

	oldStatus := ticket.Status
	now := s.clock.Now()
	fields := repository.TicketFields{
		repository.ColumnStatus:    newStatus,
		repository.ColumnUpdatedAt: now,
	}
	resolvedAt := ticket.ResolvedAt
	if newStatus == domain.TicketStatusResolved {
		resolvedAt = &now
		fields[repository.ColumnResolvedAt] = resolvedAt
	} else if s.policy.ClearResolvedOnReopen && !newStatus.Settled() && ticket.ResolvedAt != nil {
		resolvedAt = nil
		fields[repository.ColumnResolvedAt] = resolvedAt
	}
	if err := s.tickets.UpdateByID(ctx, ticket.ID, fields); err != nil {
		return nil, s.mapTicketError(err, id)
	}
	ticket.Status = newStatus
	ticket.UpdatedAt = now
	ticket.ResolvedAt = resolvedAt

	result := &StatusChangeResult{Ticket: ticket, Outcome: TransitionApplied}
	entry := &domain.Interaction{
		ID:         uuid.NewString(),
		TicketID:   ticket.ID,
		AuthorID:   actor.ID,
		AuthorName: actor.Name,
		Message:    statusChangeMessage(oldStatus, newStatus),
		Type:       domain.InteractionStatusChange,
		CreatedAt:  now,
	}
	if err := s.interactions.Insert(ctx, entry); err != nil {
		s.logger.Warn("status change audit append failed",
			zap.String("ticket_id", ticket.ID),
			zap.String("from", string(oldStatus)),
			zap.String("to", string(newStatus)),
			zap.Error(err))
		s.metrics.RecordAuditFailure()
		result.Audit = AuditFailed
		result.AuditErr = err
	} else {
		ticket.Interactions = append(ticket.Interactions, *entry)
		result.Audit = AuditRecorded
		result.Interaction = entry
	}

	s.publishEvent(ctx, events.EventTicketStatusChanged, ticket.ID, actor, events.TicketStatusChangedPayload{
		OldStatus:    oldStatus,
		NewStatus:    newStatus,
		AuditApplied: result.Audit == AuditRecorded,
	})
	return result, nil
}

// Update applies a partial edit. Attempts to set id, creation time or SLA
// deadline are dropped.
func (s *TicketService) Update(ctx context.Context, actor domain.Actor, id string, patch TicketPatch) (*domain.Ticket, error) {
	patch.ID = nil
	patch.CreatedAt = nil
	patch.SLADeadline = nil

	ticket, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := repository.TicketFields{}
	if patch.Title != nil {
		ticket.Title = strings.TrimSpace(*patch.Title)
		fields[repository.ColumnTitle] = ticket.Title
	}
	if patch.Description != nil {
		ticket.Description = strings.TrimSpace(*patch.Description)
		fields[repository.ColumnDescription] = ticket.Description
	}
	if patch.SupplierID != nil {
		ticket.SupplierID = strings.TrimSpace(*patch.SupplierID)
		fields[repository.ColumnSupplierID] = ticket.SupplierID
	}
	if patch.Type != nil {
		ticket.Type = *patch.Type
		fields[repository.ColumnType] = ticket.Type
	}
	if patch.Priority != nil {
		ticket.Priority = *patch.Priority
		fields[repository.ColumnPriority] = ticket.Priority
	}
	if patch.Unit != nil {
		ticket.Unit = strings.TrimSpace(*patch.Unit)
		fields[repository.ColumnUnit] = ticket.Unit
	}
	if patch.RelatedAssetID != nil {
		ticket.RelatedAssetID = trimmedOrNil(patch.RelatedAssetID)
		fields[repository.ColumnRelatedAssetID] = ticket.RelatedAssetID
	}
	if patch.ExternalProtocol != nil {
		ticket.ExternalProtocol = trimmedOrNil(patch.ExternalProtocol)
		fields[repository.ColumnExternalProtocol] = ticket.ExternalProtocol
	}
	if patch.SupplierContact != nil {
		ticket.SupplierContact = trimmedOrNil(patch.SupplierContact)
		fields[repository.ColumnSupplierContact] = ticket.SupplierContact
	}
	if patch.OwnerID != nil {
		ticket.OwnerID = strings.TrimSpace(*patch.OwnerID)
		fields[repository.ColumnOwnerID] = ticket.OwnerID
	}
	if patch.OwnerName != nil {
		ticket.OwnerName = strings.TrimSpace(*patch.OwnerName)
		fields[repository.ColumnOwnerName] = ticket.OwnerName
	}
	if len(fields) == 0 {
		return ticket, nil
	}
	if err := s.validateFields(ticket, fields); err != nil {
		return nil, err
	}

	changed := make([]string, 0, len(fields))
	for column := range fields {
		changed = append(changed, string(column))
	}
	fields[repository.ColumnUpdatedAt] = s.clock.Now()

	if err := s.tickets.UpdateByID(ctx, ticket.ID, fields); err != nil {
		return nil, s.mapTicketError(err, id)
	}
	s.publishEvent(ctx, events.EventTicketUpdated, ticket.ID, actor, events.TicketUpdatedPayload{Fields: changed})
	return s.load(ctx, id)
}

// AddInteraction appends a user-authored entry and returns the reloaded ticket.
func (s *TicketService) AddInteraction(ctx context.Context, actor domain.Actor, id string, input InteractionInput) (*domain.Ticket, *domain.Interaction, error) {
	message := strings.TrimSpace(input.Message)
	if message == "" {
		return nil, nil, apperrors.NewValidationError("message required", map[string]any{"message": "must not be empty"})
	}
	kind := input.Type
	if kind == "" {
		kind = domain.InteractionComment
	}
	if !kind.Authored() {
		return nil, nil, apperrors.NewValidationError("invalid interaction type", map[string]any{"type": kind})
	}
	if _, err := s.tickets.GetByID(ctx, id); err != nil {
		return nil, nil, s.mapTicketError(err, id)
	}

	entry := &domain.Interaction{
		ID:         uuid.NewString(),
		TicketID:   id,
		AuthorID:   actor.ID,
		AuthorName: actor.Name,
		Message:    message,
		Type:       kind,
		CreatedAt:  s.clock.Now(),
	}
	if err := s.interactions.Insert(ctx, entry); err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.EventTicketInteractionAdded, id, actor, events.TicketInteractionAddedPayload{
		InteractionID: entry.ID,
		Type:          entry.Type,
		Preview:       stringPreview(entry.Message, 120),
	})

	ticket, err := s.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return ticket, entry, nil
}

// Timeline returns the ticket's interactions in display order.
func (s *TicketService) Timeline(ctx context.Context, id string) ([]domain.Interaction, error) {
	ticket, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return timeline.OrderForDisplay(ticket.Interactions), nil
}

// Duplicate derives a new open ticket from an existing one. Interactions are
// not copied; the SLA deadline is carried over unless the policy says otherwise.
func (s *TicketService) Duplicate(ctx context.Context, actor domain.Actor, id string) (*domain.Ticket, error) {
	source, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapTicketError(err, id)
	}

	now := s.clock.Now()
	dup := &domain.Ticket{
		ID:               uuid.NewString(),
		Title:            source.Title + " (Copy)",
		Description:      source.Description,
		SupplierID:       source.SupplierID,
		Type:             source.Type,
		Status:           domain.TicketStatusOpen,
		Priority:         source.Priority,
		Unit:             source.Unit,
		RelatedAssetID:   cloneString(source.RelatedAssetID),
		ExternalProtocol: cloneString(source.ExternalProtocol),
		SupplierContact:  cloneString(source.SupplierContact),
		OwnerID:          source.OwnerID,
		OwnerName:        source.OwnerName,
		SLADeadline:      cloneTime(source.SLADeadline),
		CreatedAt:        now,
		UpdatedAt:        now,
		Interactions:     []domain.Interaction{},
	}
	if !s.policy.CarryOverDeadline {
		deadline, err := sla.ComputeDeadline(now, s.slaHoursFor(ctx, dup.SupplierID))
		if err != nil {
			return nil, apperrors.NewValidationError("invalid sla hours", nil)
		}
		dup.SLADeadline = &deadline
	}

	if err := s.tickets.Insert(ctx, dup); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.EventTicketDuplicated, dup.ID, actor, events.TicketDuplicatedPayload{
		SourceTicketID:    source.ID,
		DeadlineCarryOver: s.policy.CarryOverDeadline,
	})
	return dup, nil
}

// Delete removes a ticket.
func (s *TicketService) Delete(ctx context.Context, actor domain.Actor, id string) error {
	if err := s.tickets.DeleteByID(ctx, id); err != nil {
		return s.mapTicketError(err, id)
	}
	s.publishEvent(ctx, events.EventTicketDeleted, id, actor, nil)
	return nil
}

// ClassifyTicket computes the ticket's current SLA state. A missing ticket is
// an error; any other store failure yields the unavailable state.
func (s *TicketService) ClassifyTicket(ctx context.Context, id string) (sla.Classification, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return sla.Classification{}, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
		}
		s.logger.Warn("sla classification unavailable", zap.String("ticket_id", id), zap.Error(err))
		return s.recordClassification(sla.Classification{State: sla.StateUnavailable}), nil
	}
	return s.recordClassification(sla.Classify(ticket.SLADeadline, ticket.Status, s.clock.Now())), nil
}

// ClassifyValue classifies a deadline supplied as text.
func (s *TicketService) ClassifyValue(raw string, status domain.TicketStatus) sla.Classification {
	return s.recordClassification(sla.ClassifyValue(raw, status, s.clock.Now()))
}

func (s *TicketService) recordClassification(result sla.Classification) sla.Classification {
	s.metrics.RecordClassification(string(result.State))
	return result
}

func (s *TicketService) load(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapTicketError(err, id)
	}
	interactions, err := s.interactions.ListByTicket(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if interactions == nil {
		interactions = []domain.Interaction{}
	}
	ticket.Interactions = interactions
	return ticket, nil
}

func (s *TicketService) slaHoursFor(ctx context.Context, supplierID string) int {
	if s.suppliers == nil {
		return defaultSLAHours
	}
	return s.suppliers.SLAHoursFor(ctx, supplierID)
}

func (s *TicketService) validateTicket(ticket *domain.Ticket) error {
	return s.validateFields(ticket, nil)
}

// validateFields checks the ticket's values for the given columns; nil checks
// every column. Stored values outside the patch are left alone.
func (s *TicketService) validateFields(ticket *domain.Ticket, only repository.TicketFields) error {
	checks := func(column repository.TicketColumn) bool {
		if only == nil {
			return true
		}
		_, ok := only[column]
		return ok
	}
	details := map[string]any{}
	if checks(repository.ColumnTitle) && ticket.Title == "" {
		details["title"] = "required"
	}
	if minLen := s.policy.MinDescriptionLength; checks(repository.ColumnDescription) && utf8.RuneCountInString(ticket.Description) < minLen {
		details["description"] = fmt.Sprintf("must be at least %d characters", minLen)
	}
	if checks(repository.ColumnType) && !ticket.Type.Valid() {
		details["type"] = "unknown ticket type"
	}
	if checks(repository.ColumnPriority) && !ticket.Priority.Valid() {
		details["priority"] = "unknown priority"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid ticket", details)
	}
	return nil
}

func (s *TicketService) mapTicketError(err error, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}
	return apperrors.MapError(err)
}

func (s *TicketService) publishEvent(ctx context.Context, eventType events.EventType, ticketID string, actor domain.Actor, payload any) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Actor:     events.Actor{ID: actor.ID, Name: actor.Name, Role: actor.Role},
		Timestamp: s.clock.Now(),
		Payload:   payload,
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}

const defaultSLAHours = 24

func statusChangeMessage(from, to domain.TicketStatus) string {
	return fmt.Sprintf("Status changed from %s to %s", from, to)
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if utf8.RuneCountInString(body) <= max {
		return body
	}
	runes := []rune(body)
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}
