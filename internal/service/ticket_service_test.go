package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/asset-desk/internal/clock"
	"github.com/spec-kit/asset-desk/internal/domain"
	"github.com/spec-kit/asset-desk/internal/events"
	"github.com/spec-kit/asset-desk/internal/observability"
	"github.com/spec-kit/asset-desk/internal/repository"
	"github.com/spec-kit/asset-desk/internal/sla"
	apperrors "github.com/spec-kit/asset-desk/pkg/util/errorutil"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

var editor = domain.Actor{ID: "u-1", Name: "Dana Ops", Role: domain.RoleEditor, Approved: true}

type ticketFixture struct {
	svc          *TicketService
	tickets      *fakeTicketRepo
	interactions *fakeInteractionRepo
	suppliers    *fakeSupplierRepo
	clock        *clock.FixedClock
	metrics      *observability.Metrics

	mu     sync.Mutex
	events []events.Event
}

func newTicketFixture(t *testing.T, policy TicketPolicy, suppliers ...domain.Supplier) *ticketFixture {
	t.Helper()
	f := &ticketFixture{
		tickets:      newFakeTicketRepo(),
		interactions: &fakeInteractionRepo{},
		suppliers:    newFakeSupplierRepo(suppliers...),
		clock:        clock.Fixed(t0),
		metrics:      observability.NewMetrics(),
	}
	dispatcher := events.NewInMemoryDispatcher()
	for _, eventType := range events.AllTicketEvents {
		dispatcher.Subscribe(eventType, func(_ context.Context, event events.Event) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.events = append(f.events, event)
			return nil
		})
	}
	registry := NewSupplierService(SupplierDependencies{SupplierRepo: f.suppliers, DefaultHours: 24})
	f.svc = NewTicketService(TicketDependencies{
		TicketRepo:      f.tickets,
		InteractionRepo: f.interactions,
		Suppliers:       registry,
		Dispatcher:      dispatcher,
		Clock:           f.clock,
		Metrics:         f.metrics,
		Policy:          policy,
	})
	return f
}

func (f *ticketFixture) eventTypes() []events.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]events.EventType, 0, len(f.events))
	for _, event := range f.events {
		out = append(out, event.Type)
	}
	return out
}

func (f *ticketFixture) create(t *testing.T, supplierID string) *domain.Ticket {
	t.Helper()
	ticket, err := f.svc.Create(context.Background(), editor, TicketCreateInput{
		Title:       "Router down at branch 12",
		Description: "No connectivity since the storm",
		SupplierID:  supplierID,
		Type:        domain.TicketTypeNetworkOutage,
	})
	require.NoError(t, err)
	return ticket
}

func (f *ticketFixture) seed(t *testing.T, status domain.TicketStatus) string {
	t.Helper()
	deadline := t0.Add(24 * time.Hour)
	ticket := &domain.Ticket{
		ID:          "tk-" + string(status),
		Title:       "Seeded",
		Type:        domain.TicketTypeOther,
		Status:      status,
		Priority:    domain.TicketPriorityMedium,
		SLADeadline: &deadline,
		CreatedAt:   t0,
		UpdatedAt:   t0,
	}
	require.NoError(t, f.tickets.Insert(context.Background(), ticket))
	return ticket.ID
}

func TestCreateUsesSupplierSLA(t *testing.T) {
	f := newTicketFixture(t, TicketPolicy{}, domain.Supplier{
		ID: "sup-1", Name: "Telco", Category: domain.SupplierCategoryCarrier, SLAHours: 4, Active: true,
	})

	ticket := f.create(t, "sup-1")

	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.Equal(t, editor.ID, ticket.OwnerID)
	require.NotNil(t, ticket.SLADeadline)
	assert.Equal(t, t0.Add(4*time.Hour), *ticket.SLADeadline)
	assert.Nil(t, ticket.ResolvedAt)
	assert.Empty(t, ticket.Interactions)
	assert.Equal(t, []events.EventType{events.EventTicketCreated}, f.eventTypes())
}

func TestCreateFallsBackToDefaultSLA(t *testing.T) {
	f := newTicketFixture(t, TicketPolicy{})

	for _, supplierID := range []string{"", "missing"} {
		ticket := f.create(t, supplierID)
		require.NotNil(t, ticket.SLADeadline)
		assert.Equal(t, t0.Add(24*time.Hour), *ticket.SLADeadline, supplierID)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newTicketFixture(t, TicketPolicy{MinDescriptionLength: 10})

	_, err := f.svc.Create(context.Background(), editor, TicketCreateInput{Title: "  ", Description: "short"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	_, err = f.svc.Create(context.Background(), editor, TicketCreateInput{
		Title: "Printer", Description: "Paper jam in tray two", Priority: "urgent",
	})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestChangeStatusSameStatusIsRejectedWithoutWrites(t *testing.T) {
	for _, status := range domain.TicketStatuses {
		t.Run(string(status), func(t *testing.T) {
			f := newTicketFixture(t, TicketPolicy{})
			id := f.seed(t, status)
			before := f.tickets.stored(id)

			result, err := f.svc.ChangeStatus(context.Background(), editor, id, status)
			require.NoError(t, err)

			assert.Equal(t, TransitionRejectedNoOp, result.Outcome)
			assert.Equal(t, AuditSkipped, result.Audit)
			assert.Equal(t, before, f.tickets.stored(id))
			assert.Empty(t, f.tickets.updates)
			assert.Zero(t, f.interactions.count(id))
			assert.Empty(t, f.eventTypes())
		})
	}
}

func TestChangeStatusToResolved(t *testing.T) {
	f := newTicketFixture(t, TicketPolicy{})
	id := f.seed(t, domain.TicketStatusInProgress)
	f.clock.Advance(90 * time.Minute)

	result, err := f.svc.ChangeStatus(context.Background(), editor, id, domain.TicketStatusResolved)
	require.NoError(t, err)

	assert.Equal(t, TransitionApplied, result.Outcome)
	assert.Equal(t, AuditRecorded, result.Audit)
	require.NotNil(t, result.Ticket.ResolvedAt)
	assert.Equal(t, t0.Add(90*time.Minute), *result.Ticket.ResolvedAt)

	stored := f.tickets.stored(id)
	assert.Equal(t, domain.TicketStatusResolved, stored.Status)
	require.NotNil(t, stored.ResolvedAt)
	assert.Equal(t, t0.Add(90*time.Minute), stored.UpdatedAt)

	require.Len(t, result.Ticket.Interactions, 1)
	entry := result.Ticket.Interactions[0]
	assert.Equal(t, domain.InteractionStatusChange, entry.Type)
	assert.Equal(t, "Status changed from in-progress to resolved", entry.Message)
	assert.Equal(t, editor.ID, entry.AuthorID)
	assert.Equal(t, 1, f.interactions.count(id))
	assert.Equal(t, []events.EventType{events.EventTicketStatusChanged}, f.eventTypes())
}

func TestChangeStatusAllowsEveryDistinctPair(t *testing.T) {
	for _, from := range domain.TicketStatuses {
		for _, to := range domain.TicketStatuses {
			if from == to {
				continue
			}
			f := newTicketFixture(t, TicketPolicy{})
			id := f.seed(t, from)
			result, err := f.svc.ChangeStatus(context.Background(), editor, id, to)
			require.NoError(t, err, "%s -> %s", from, to)
			assert.Equal(t, TransitionApplied, result.Outcome)
			assert.Equal(t, to, f.tickets.stored(id).Status)
		}
	}
}

func TestChangeStatusAuditFailureKeepsStatus(t *testing.T) {
	f := newTicketFixture(t, TicketPolicy{})
	id := f.seed(t, domain.TicketStatusOpen)
	f.interactions.insertErr = errors.New("write timeout")

	result, err := f.svc.ChangeStatus(context.Background(), editor, id, domain.TicketStatusInProgress)
	require.NoError(t, err)

	assert.Equal(t, TransitionApplied, result.Outcome)
	assert.Equal(t, AuditFailed, result.Audit)
	assert.EqualError(t, result.AuditErr, "write timeout")
	assert.Nil(t, result.Interaction)
	assert.Equal(t, domain.TicketStatusInProgress, f.tickets.stored(id).Status)
	assert.Zero(t, f.interactions.count(id))
}

func TestChangeStatusRejectsUnknownStatus(t *testing.T) {
	f := newTicketFixture(t, TicketPolicy{})
	id := f.seed(t, domain.TicketStatusOpen)

	_, err := f.svc.ChangeStatus(context.Background(), editor, id, "paused")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	_, err = f.svc.ChangeStatus(context.Background(), editor, "nope", domain.TicketStatusClosed)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestChangeStatusResolvedAtOnReopen(t *testing.T) {
	cases := []struct {
		name      string
		clear     bool
		wantKept  bool
		transitTo domain.TicketStatus
	}{
		{name: "kept by default", clear: false, wantKept: true, transitTo: domain.TicketStatusOpen},
		{name: "cleared when enabled", clear: true, wantKept: false, transitTo: domain.TicketStatusInProgress},
		{name: "closing keeps it", clear: true, wantKept: true, transitTo: domain.TicketStatusClosed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newTicketFixture(t, TicketPolicy{ClearResolvedOnReopen: tc.clear})
			id := f.seed(t, domain.TicketStatusOpen)
			_, err := f.svc.ChangeStatus(context.Background(), editor, id, domain.TicketStatusResolved)
			require.NoError(t, err)

			f.clock.Advance(time.Hour)
			_, err = f.svc.ChangeStatus(context.Background(), editor, id, tc.transitTo)
			require.NoError(t, err)

			stored := f.tickets.stored(id)
			if tc.wantKept {
				require.NotNil(t, stored.ResolvedAt)
				assert.Equal(t, t0, *stored.ResolvedAt)
			} else {
				assert.Nil(t, stored.ResolvedAt)
			}
		})
	}
}

func TestUpdateIgnoresImmutableFields(t *testing.T) {
	f := newTicketFixture(t, TicketPolicy{})
	created := f.create(t, "")
	f.clock.Advance(time.Hour)

	otherID := "forged"
	forgedCreated := t0.Add(-48 * time.Hour)
	forgedDeadline := t0.Add(999 * time.Hour)
	title := "Router replaced"
	priority := domain.TicketPriorityHigh

	updated, err := f.svc.Update(context.Background(), editor, created.ID, TicketPatch{
		ID:          &otherID,
		CreatedAt:   &forgedCreated,
		SLADeadline: &forgedDeadline,
		Title:       &title,
		Priority:    &priority,
	})
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, *created.SLADeadline, *updated.SLADeadline)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, priority, updated.Priority)
	assert.Equal(t, t0.Add(time.Hour), updated.UpdatedAt)
	assert.Equal(t, domain.TicketStatusOpen, updated.Status)

	require.Len(t, f.tickets.updates, 1)
	for column := range f.tickets.updates[0] {
		assert.NotContains(t, []repository.TicketColumn{"id", "created_at", "sla_deadline", repository.ColumnStatus}, column)
	}
}

func TestUpdateWithOnlyImmutableFieldsWritesNothing(t *testing.T) {
	f := newTicketFixture(t, TicketPolicy{})
	created := f.create(t, "")
	forged := t0.Add(time.Hour)

	updated, err := f.svc.Update(context.Background(), editor, created.ID, TicketPatch{SLADeadline: &forged})
	require.NoError(t, err)
	assert.Equal(t, *created.SLADeadline, *updated.SLADeadline)
	assert.Empty(t, f.tickets.updates)
}

func TestUpdateChecksOnlyPatchedFields(t *testing.T) {
	f := newTicketFixture(t, TicketPolicy{MinDescriptionLength: 10})
	id := f.seed(t, domain.TicketStatusOpen)
	ctx := context.Background()

	title := "Seeded and renamed"
	updated, err := f.svc.Update(ctx, editor, id, TicketPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Empty(t, updated.Description)

	short := "too short"
	_, err = f.svc.Update(ctx, editor, id, TicketPatch{Description: &short})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	blank := "   "
	_, err = f.svc.Update(ctx, editor, id, TicketPatch{Title: &blank})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
	require.Len(t, f.tickets.updates, 1)
}

func TestAddInteraction(t *testing.T) {
	f := newTicketFixture(t, TicketPolicy{})
	id := f.seed(t, domain.TicketStatusOpen)

	ticket, entry, err := f.svc.AddInteraction(context.Background(), editor, id, InteractionInput{
		Type:    domain.InteractionCall,
		Message: "  Called the carrier, technician scheduled  ",
	})
	require.NoError(t, err)

	assert.Equal(t, "Called the carrier, technician scheduled", entry.Message)
	assert.Equal(t, domain.InteractionCall, entry.Type)
	assert.Equal(t, t0, entry.CreatedAt)
	require.Len(t, ticket.Interactions, 1)
	assert.Equal(t, entry.ID, ticket.Interactions[0].ID)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
}

func TestAddInteractionRejectsBlankMessage(t *testing.T) {
	f := newTicketFixture(t, TicketPolicy{})
	id := f.seed(t, domain.TicketStatusOpen)

	for _, message := range []string{"", "   ", "\n\t "} {
		_, _, err := f.svc.AddInteraction(context.Background(), editor, id, InteractionInput{Message: message})
		assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation), "%q", message)
	}
	assert.Zero(t, f.interactions.count(id))
}

func TestAddInteractionRejectsStatusChangeType(t *testing.T) {
	f := newTicketFixture(t, TicketPolicy{})
	id := f.seed(t, domain.TicketStatusOpen)

	_, _, err := f.svc.AddInteraction(context.Background(), editor, id, InteractionInput{
		Type: domain.InteractionStatusChange, Message: "forged audit",
	})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestTimelineOrdersNewestFirst(t *testing.T) {
	f := newTicketFixture(t, TicketPolicy{})
	id := f.seed(t, domain.TicketStatusOpen)

	for _, message := range []string{"first", "second"} {
		_, _, err := f.svc.AddInteraction(context.Background(), editor, id, InteractionInput{Message: message})
		require.NoError(t, err)
	}
	f.clock.Advance(time.Minute)
	_, _, err := f.svc.AddInteraction(context.Background(), editor, id, InteractionInput{Message: "third"})
	require.NoError(t, err)

	items, err := f.svc.Timeline(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "third", items[0].Message)
	assert.Equal(t, "first", items[1].Message)
	assert.Equal(t, "second", items[2].Message)
}

func TestDuplicateCarriesDeadline(t *testing.T) {
	f := newTicketFixture(t, TicketPolicy{CarryOverDeadline: true})
	asset := "asset-77"
	id := f.seed(t, domain.TicketStatusOpen)
	_, err := f.svc.Update(context.Background(), editor, id, TicketPatch{RelatedAssetID: &asset})
	require.NoError(t, err)
	_, err = f.svc.ChangeStatus(context.Background(), editor, id, domain.TicketStatusResolved)
	require.NoError(t, err)
	source := f.tickets.stored(id)
	f.clock.Advance(2 * time.Hour)

	dup, err := f.svc.Duplicate(context.Background(), editor, id)
	require.NoError(t, err)

	assert.NotEqual(t, source.ID, dup.ID)
	assert.Equal(t, "Seeded (Copy)", dup.Title)
	assert.Equal(t, domain.TicketStatusOpen, dup.Status)
	assert.Empty(t, dup.Interactions)
	assert.Nil(t, dup.ResolvedAt)
	assert.Equal(t, t0.Add(2*time.Hour), dup.CreatedAt)
	assert.Equal(t, *source.SLADeadline, *dup.SLADeadline)
	require.NotNil(t, dup.RelatedAssetID)
	assert.Equal(t, asset, *dup.RelatedAssetID)
	assert.NotSame(t, source.RelatedAssetID, dup.RelatedAssetID)
	assert.NotSame(t, source.SLADeadline, dup.SLADeadline)

	after := f.tickets.stored(id)
	assert.Equal(t, source, after)
	assert.Equal(t, 1, f.interactions.count(id))
	assert.Zero(t, f.interactions.count(dup.ID))
}

func TestDuplicateRecomputesDeadlineWhenNotCarried(t *testing.T) {
	f := newTicketFixture(t, TicketPolicy{CarryOverDeadline: false}, domain.Supplier{
		ID: "sup-2", Name: "Billing Co", Category: domain.SupplierCategoryBillingSystem, SLAHours: 8, Active: true,
	})
	source := f.create(t, "sup-2")
	f.clock.Advance(3 * time.Hour)

	dup, err := f.svc.Duplicate(context.Background(), editor, source.ID)
	require.NoError(t, err)
	assert.Equal(t, t0.Add(11*time.Hour), *dup.SLADeadline)
}

func TestDuplicateMissingSource(t *testing.T) {
	f := newTicketFixture(t, TicketPolicy{})
	_, err := f.svc.Duplicate(context.Background(), editor, "nope")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestDeleteTicket(t *testing.T) {
	f := newTicketFixture(t, TicketPolicy{})
	id := f.seed(t, domain.TicketStatusOpen)

	require.NoError(t, f.svc.Delete(context.Background(), editor, id))
	_, err := f.svc.Get(context.Background(), id)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))

	err = f.svc.Delete(context.Background(), editor, id)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestListValidatesFilters(t *testing.T) {
	f := newTicketFixture(t, TicketPolicy{})
	f.seed(t, domain.TicketStatusOpen)
	f.seed(t, domain.TicketStatusClosed)

	tickets, err := f.svc.List(context.Background(), TicketListFilter{Statuses: []domain.TicketStatus{domain.TicketStatusOpen}})
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, domain.TicketStatusOpen, tickets[0].Status)

	_, err = f.svc.List(context.Background(), TicketListFilter{Statuses: []domain.TicketStatus{"paused"}})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestClassifyTicket(t *testing.T) {
	f := newTicketFixture(t, TicketPolicy{}, domain.Supplier{
		ID: "sup-1", Name: "Telco", Category: domain.SupplierCategoryCarrier, SLAHours: 4, Active: true,
	})
	ticket := f.create(t, "sup-1")

	f.clock.Advance(3*time.Hour + 30*time.Minute)
	result, err := f.svc.ClassifyTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, sla.StateCritical, result.State)
	assert.Equal(t, 0, result.HoursRemaining)
	assert.Equal(t, 30, result.MinutesRemaining)

	f.clock.Set(t0.Add(5 * time.Hour))
	result, err = f.svc.ClassifyTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, sla.StateOverdue, result.State)
	assert.Equal(t, 1, result.HoursOverdue)
}

func TestClassifyTicketStoreFailureIsUnavailable(t *testing.T) {
	f := newTicketFixture(t, TicketPolicy{})
	f.tickets.getErr = errors.New("connection reset")

	result, err := f.svc.ClassifyTicket(context.Background(), "any")
	require.NoError(t, err)
	assert.Equal(t, sla.StateUnavailable, result.State)
}

func TestClassifyTicketMissing(t *testing.T) {
	f := newTicketFixture(t, TicketPolicy{})
	_, err := f.svc.ClassifyTicket(context.Background(), "nope")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestClassifyValue(t *testing.T) {
	f := newTicketFixture(t, TicketPolicy{})

	assert.Equal(t, sla.StateUndefined, f.svc.ClassifyValue("  ", domain.TicketStatusOpen).State)
	assert.Equal(t, sla.StateInvalid, f.svc.ClassifyValue("next tuesday", domain.TicketStatusOpen).State)
	assert.Equal(t, sla.StateOnTrack, f.svc.ClassifyValue(t0.Add(48*time.Hour).Format(time.RFC3339), domain.TicketStatusOpen).State)
}

func TestStringPreview(t *testing.T) {
	assert.Equal(t, "short", stringPreview(" short ", 10))
	long := strings.Repeat("é", 20)
	preview := stringPreview(long, 10)
	assert.Equal(t, strings.Repeat("é", 7)+"...", preview)
}
