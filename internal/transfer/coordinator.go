// Package transfer moves staged website form entries into the leads table in
// all-or-nothing batches.
package transfer

import (
	"context"
	"errors"

	"sales_leads_backend/internal/events"
	"sales_leads_backend/internal/ingest/source"
	"sales_leads_backend/internal/leads/domain"
	"sales_leads_backend/internal/leads/repository"
	"sales_leads_backend/platform/apperr"
	"sales_leads_backend/platform/clock"
	"sales_leads_backend/platform/logger"

	"golang.org/x/sync/errgroup"
)

const defaultParallelism = 8

// Resolver picks the owner for a service type. It never fails.
type Resolver interface {
	Resolve(ctx context.Context, serviceTypeID *int64) int64
}

// Result reports how many entries a batch moved.
type Result struct {
	Transferred int `json:"transferred"`
}

// Coordinator runs transfer batches.
type Coordinator struct {
	store       Store
	staging     *source.StagingAdapter
	resolver    Resolver
	eventBus    events.Bus
	clock       clock.Clock
	log         *logger.Logger
	parallelism int
}

// New creates a coordinator. parallelism bounds concurrent parse-and-resolve
// work; values below one use the default.
func New(store Store, staging *source.StagingAdapter, resolver Resolver, eventBus events.Bus, clk clock.Clock, log *logger.Logger, parallelism int) *Coordinator {
	if clk == nil {
		clk = clock.System{}
	}
	if parallelism < 1 {
		parallelism = defaultParallelism
	}
	return &Coordinator{
		store:       store,
		staging:     staging,
		resolver:    resolver,
		eventBus:    eventBus,
		clock:       clk,
		log:         log,
		parallelism: parallelism,
	}
}

type prepared struct {
	entryID int64
	draft   domain.Draft
	owner   int64
}

// TransferPending moves every pending entry in one transaction. Entries are
// parsed and routed concurrently, then inserted in entry order. Any failure
// leaves every entry pending.
func (c *Coordinator) TransferPending(ctx context.Context) (Result, error) {
	var created []repository.Lead

	err := c.store.WithBatch(ctx, func(b Batch) error {
		entries, err := b.Pending(ctx)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		items, err := c.prepare(ctx, entries)
		if err != nil {
			return err
		}

		ids := make([]int64, 0, len(items))
		leads := make([]repository.Lead, 0, len(items))
		for _, it := range items {
			lead, err := b.Insert(ctx, repository.CreateLeadParams{
				LeadFields: repository.FieldsFromDraft(it.draft, it.owner),
				CreatedAt:  it.draft.CreatedAt,
			})
			if err != nil {
				return err
			}
			ids = append(ids, it.entryID)
			leads = append(leads, lead)
		}

		if err := b.MarkTransferred(ctx, ids, clock.Civil(c.clock.Now())); err != nil {
			return err
		}
		created = leads
		return nil
	})
	if err != nil {
		c.log.WithContext(ctx).Error("bulk transfer rolled back", "error", err)
		return Result{}, translate(err)
	}

	result := Result{Transferred: len(created)}
	if result.Transferred == 0 {
		c.log.WithContext(ctx).Info("bulk transfer found no pending entries")
		return result, nil
	}

	c.log.WithContext(ctx).Info("bulk transfer committed", "transferred", result.Transferred)

	evt := events.LeadsTransferred{BaseEvent: events.NewBaseEvent(), Transferred: result.Transferred}
	for _, lead := range created {
		evt.LeadIDs = append(evt.LeadIDs, lead.ID)
		evt.Owners = append(evt.Owners, lead.AssignedTo)
	}
	c.eventBus.Publish(ctx, evt)

	return result, nil
}

// prepare parses and routes entries concurrently and waits for all of them.
func (c *Coordinator) prepare(ctx context.Context, entries []source.StagedEntry) ([]prepared, error) {
	items := make([]prepared, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.parallelism)
	for i, entry := range entries {
		g.Go(func() error {
			draft, err := c.staging.ParseEntry(gctx, entry)
			if err != nil {
				return err
			}
			service := draft.ServiceTypeID
			items[i] = prepared{entryID: entry.ID, draft: draft, owner: c.resolver.Resolve(gctx, &service)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

func translate(err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, repository.ErrInvalidReference) {
		return apperr.Wrap(apperr.KindValidation, "staged entry references an unknown category", err).WithOp("transfer.TransferPending")
	}
	return apperr.Transient("transfer.TransferPending", err)
}
