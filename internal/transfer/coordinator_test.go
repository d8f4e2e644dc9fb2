package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"sales_leads_backend/internal/categories"
	"sales_leads_backend/internal/events"
	apphttp "sales_leads_backend/internal/http"
	"sales_leads_backend/internal/ingest/source"
	"sales_leads_backend/internal/leads/repository"
	"sales_leads_backend/platform/apperr"
	"sales_leads_backend/platform/clock"
	"sales_leads_backend/platform/httpkit"
	"sales_leads_backend/platform/logger"
	"sales_leads_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// memoryStore applies a batch to its tables only when fn succeeds.
type memoryStore struct {
	mu          sync.Mutex
	pending     []source.StagedEntry
	transferred map[int64]string
	leads       []repository.Lead
	failInsert  int // 1-based insert that fails; 0 never
	batches     int
}

type memoryBatch struct {
	store    *memoryStore
	inserted []repository.Lead
	marked   map[int64]string
	inserts  int
}

func (s *memoryStore) WithBatch(ctx context.Context, fn func(Batch) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches++
	b := &memoryBatch{store: s, marked: map[int64]string{}}
	if err := fn(b); err != nil {
		return err
	}
	s.leads = append(s.leads, b.inserted...)
	for id, at := range b.marked {
		s.transferred[id] = at
	}
	return nil
}

func (b *memoryBatch) Pending(context.Context) ([]source.StagedEntry, error) {
	out := make([]source.StagedEntry, 0)
	for _, e := range b.store.pending {
		if _, done := b.store.transferred[e.ID]; !done {
			out = append(out, e)
		}
	}
	return out, nil
}

func (b *memoryBatch) Insert(_ context.Context, p repository.CreateLeadParams) (repository.Lead, error) {
	b.inserts++
	if b.store.failInsert == b.inserts {
		return repository.Lead{}, errors.New("connection reset")
	}
	lead := repository.Lead{
		ID:            int64(len(b.store.leads) + len(b.inserted) + 1),
		Name:          p.Name,
		ServiceTypeID: p.ServiceTypeID,
		AssignedTo:    p.AssignedTo,
		CreatedAt:     p.CreatedAt,
	}
	b.inserted = append(b.inserted, lead)
	return lead, nil
}

func (b *memoryBatch) MarkTransferred(_ context.Context, ids []int64, at string) error {
	for _, id := range ids {
		b.marked[id] = at
	}
	return nil
}

// serviceResolver routes service 2 to user 4 and everything else to 1.
type serviceResolver struct {
	calls atomic.Int32
}

func (r *serviceResolver) Resolve(_ context.Context, serviceTypeID *int64) int64 {
	r.calls.Add(1)
	if serviceTypeID != nil && *serviceTypeID == 2 {
		return 4
	}
	return 1
}

const ecommerceLabel = "E-Commerce Website Development"

func entry(t *testing.T, id int64, name, service string) source.StagedEntry {
	t.Helper()
	fields, err := json.Marshal(map[string]map[string]string{
		"5": {"value": name},
		"6": {"value": "98765 43210"},
		"9": {"value": service},
	})
	if err != nil {
		t.Fatal(err)
	}
	return source.StagedEntry{ID: id, Fields: fields, Date: "2024-05-01 10:00:00"}
}

func newCoordinator(t *testing.T, store Store, resolver Resolver) (*Coordinator, *events.InMemoryBus, *[]events.LeadsTransferred) {
	t.Helper()
	reg, err := categories.Default()
	if err != nil {
		t.Fatal(err)
	}
	staging := source.NewStagingAdapter(source.Deps{Registry: reg, Validator: validator.New(), Log: logger.Discard()})
	bus := events.NewInMemoryBus(logger.Discard())

	var mu sync.Mutex
	got := &[]events.LeadsTransferred{}
	bus.Subscribe(events.LeadsTransferred{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		*got = append(*got, e.(events.LeadsTransferred))
		return nil
	}))

	now := clock.Fixed(time.Date(2024, 5, 2, 4, 30, 0, 0, time.UTC))
	return New(store, staging, resolver, bus, now, logger.Discard(), 2), bus, got
}

func TestTransferPendingMovesEveryEntry(t *testing.T) {
	store := &memoryStore{transferred: map[int64]string{}}
	for i := int64(1); i <= 5; i++ {
		store.pending = append(store.pending, entry(t, i, fmt.Sprintf("Lead %d", i), ecommerceLabel))
	}
	resolver := &serviceResolver{}
	c, bus, got := newCoordinator(t, store, resolver)

	res, err := c.TransferPending(context.Background())
	if err != nil {
		t.Fatalf("TransferPending: %v", err)
	}
	bus.Wait()

	if res.Transferred != 5 || len(store.leads) != 5 || len(store.transferred) != 5 {
		t.Fatalf("result %+v, leads %d, marked %d", res, len(store.leads), len(store.transferred))
	}
	if resolver.calls.Load() != 5 {
		t.Fatalf("resolver calls = %d", resolver.calls.Load())
	}
	for i, lead := range store.leads {
		if lead.Name != fmt.Sprintf("Lead %d", i+1) {
			t.Fatalf("insert order broken at %d: %q", i, lead.Name)
		}
		if lead.ServiceTypeID != 2 || lead.AssignedTo != 4 {
			t.Fatalf("lead %d routed to %d for service %d", lead.ID, lead.AssignedTo, lead.ServiceTypeID)
		}
		if lead.CreatedAt != "2024-05-01 10:30:00" {
			t.Fatalf("createdAt = %q", lead.CreatedAt)
		}
	}
	if store.transferred[1] != "2024-05-02 10:00:00" {
		t.Fatalf("transferred_at = %q", store.transferred[1])
	}
	if len(*got) != 1 || (*got)[0].Transferred != 5 || len((*got)[0].LeadIDs) != 5 {
		t.Fatalf("events = %+v", *got)
	}
}

func TestTransferPendingWithNothingPending(t *testing.T) {
	store := &memoryStore{transferred: map[int64]string{}}
	c, bus, got := newCoordinator(t, store, &serviceResolver{})

	res, err := c.TransferPending(context.Background())
	bus.Wait()
	if err != nil || res.Transferred != 0 {
		t.Fatalf("got %+v, %v", res, err)
	}
	if len(*got) != 0 {
		t.Fatal("no event for an empty batch")
	}
}

func TestTransferPendingRollsBackOnInsertFailure(t *testing.T) {
	store := &memoryStore{transferred: map[int64]string{}, failInsert: 3}
	for i := int64(1); i <= 4; i++ {
		store.pending = append(store.pending, entry(t, i, "x", ""))
	}
	c, bus, got := newCoordinator(t, store, &serviceResolver{})

	_, err := c.TransferPending(context.Background())
	bus.Wait()
	if !apperr.Is(err, apperr.KindTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if len(store.leads) != 0 || len(store.transferred) != 0 {
		t.Fatalf("partial batch survived: leads %d, marked %d", len(store.leads), len(store.transferred))
	}
	if len(*got) != 0 {
		t.Fatal("no event for a rolled back batch")
	}

	store.failInsert = 0
	res, err := c.TransferPending(context.Background())
	if err != nil || res.Transferred != 4 {
		t.Fatalf("retry: %+v, %v", res, err)
	}
}

func TestTransferPendingRejectsMalformedEntry(t *testing.T) {
	store := &memoryStore{transferred: map[int64]string{}}
	store.pending = []source.StagedEntry{
		entry(t, 1, "ok", ""),
		{ID: 2, Fields: json.RawMessage(`[]`), Date: "2024-05-01 10:00:00"},
	}
	c, _, _ := newCoordinator(t, store, &serviceResolver{})

	_, err := c.TransferPending(context.Background())
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(store.leads) != 0 {
		t.Fatal("no lead may be stored")
	}
}

func TestQueriesLockAndMark(t *testing.T) {
	if !strings.Contains(pendingEntriesQuery, "FOR UPDATE SKIP LOCKED") || !strings.Contains(pendingEntriesQuery, "transferred_at IS NULL") {
		t.Fatalf("pending query must lock unclaimed rows: %s", pendingEntriesQuery)
	}
	if !strings.Contains(markTransferredQuery, "entry_id = ANY($1::bigint[])") {
		t.Fatalf("unexpected mark query: %s", markTransferredQuery)
	}
}

type runnerFunc func(ctx context.Context) (Result, error)

func (f runnerFunc) TransferPending(ctx context.Context) (Result, error) { return f(ctx) }

func TestBulkTransferEndpointIsAdminOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	role := httpkit.RoleScoped
	protected := engine.Group("/api/v1", func(c *gin.Context) {
		c.Set(httpkit.ContextUserIDKey, int64(1))
		c.Set(httpkit.ContextRoleKey, role)
	})
	m := NewModule(runnerFunc(func(context.Context) (Result, error) { return Result{Transferred: 3}, nil }))
	m.RegisterRoutes(&apphttp.RouterContext{Engine: engine, Protected: protected})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/bulk-transfer", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("scoped: status = %d", rec.Code)
	}

	role = httpkit.RoleAdmin
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/bulk-transfer", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"transferred":3`) {
		t.Fatalf("admin: %d %s", rec.Code, rec.Body.String())
	}
}
