package access

import (
	"context"
	"errors"
	"math"

	"sales_leads_backend/internal/leads/repository"
	"sales_leads_backend/platform/apperr"
	"sales_leads_backend/platform/clock"
)

// RecentLimit is the number of leads returned by Recent.
const RecentLimit = 5

// StatusCounts lists every status with its count, plus the total.
type StatusCounts struct {
	Statuses []Count
	Total    int64
}

// SourceShare is the percentage of matching leads from one source.
type SourceShare struct {
	ID      int64
	Name    string
	Count   int64
	Percent float64
}

// Engine applies visibility policies. Each operation names its policy;
// none is picked implicitly.
type Engine struct {
	store Store
	users RequesterLoader
	clock clock.Clock
}

func NewEngine(store Store, users RequesterLoader, clk clock.Clock) *Engine {
	if clk == nil {
		clk = clock.System{}
	}
	return &Engine{store: store, users: users, clock: clk}
}

// Requester loads the caller's role and services as stored right now.
func (e *Engine) Requester(ctx context.Context, userID int64) (Requester, error) {
	r, err := e.users.LoadRequester(ctx, userID)
	if errors.Is(err, ErrUnknownRequester) {
		return Requester{}, apperr.Unauthorized("account is not active")
	}
	if err != nil {
		return Requester{}, storeError("access.Requester", err)
	}
	return r, nil
}

// ListAll returns every lead. Admin only.
func (e *Engine) ListAll(ctx context.Context, req Requester, f Filters) ([]repository.Lead, error) {
	return e.list(ctx, req, PolicyAll, f, 0)
}

// ListCurrentPeriod returns leads created in the current civil month. Admin only.
func (e *Engine) ListCurrentPeriod(ctx context.Context, req Requester, f Filters) ([]repository.Lead, error) {
	return e.list(ctx, req, PolicyCurrentPeriod, f, 0)
}

// ListOwnedOnly returns leads assigned to the requester.
func (e *Engine) ListOwnedOnly(ctx context.Context, req Requester, f Filters) ([]repository.Lead, error) {
	return e.list(ctx, req, PolicyOwnedOnly, f, 0)
}

// ListOwnedOrServiceMatched returns leads assigned to the requester or whose
// service type is in the requester's service set.
func (e *Engine) ListOwnedOrServiceMatched(ctx context.Context, req Requester, f Filters) ([]repository.Lead, error) {
	return e.list(ctx, req, PolicyOwnedOrServiceMatched, f, 0)
}

// List dispatches to the named operation for policy.
func (e *Engine) List(ctx context.Context, req Requester, policy Policy, f Filters) ([]repository.Lead, error) {
	switch policy {
	case PolicyAll:
		return e.ListAll(ctx, req, f)
	case PolicyCurrentPeriod:
		return e.ListCurrentPeriod(ctx, req, f)
	case PolicyOwnedOnly:
		return e.ListOwnedOnly(ctx, req, f)
	case PolicyOwnedOrServiceMatched:
		return e.ListOwnedOrServiceMatched(ctx, req, f)
	}
	return nil, apperr.Validation("unknown view")
}

// Recent returns the newest leads visible under policy.
func (e *Engine) Recent(ctx context.Context, req Requester, policy Policy) ([]repository.Lead, error) {
	return e.list(ctx, req, policy, Filters{}, RecentLimit)
}

// CountsByStatus counts visible leads per status. Statuses without leads are listed with zero.
func (e *Engine) CountsByStatus(ctx context.Context, req Requester, policy Policy, f Filters) (StatusCounts, error) {
	scope, err := e.Scope(req, policy, f)
	if err != nil {
		return StatusCounts{}, err
	}
	counts, err := e.store.CountByStatus(ctx, scope, f)
	if err != nil {
		return StatusCounts{}, storeError("access.CountsByStatus", err)
	}
	out := StatusCounts{Statuses: counts}
	for _, c := range counts {
		out.Total += c.Count
	}
	return out, nil
}

// SourceShares returns each source's share of visible leads in percent,
// rounded to two decimals. With no visible leads every share is zero.
func (e *Engine) SourceShares(ctx context.Context, req Requester, policy Policy, f Filters) ([]SourceShare, error) {
	scope, err := e.Scope(req, policy, f)
	if err != nil {
		return nil, err
	}
	counts, err := e.store.CountBySource(ctx, scope, f)
	if err != nil {
		return nil, storeError("access.SourceShares", err)
	}

	var total int64
	for _, c := range counts {
		total += c.Count
	}
	shares := make([]SourceShare, 0, len(counts))
	for _, c := range counts {
		share := SourceShare{ID: c.ID, Name: c.Name, Count: c.Count}
		if total > 0 {
			share.Percent = math.Round(float64(c.Count)*10000/float64(total)) / 100
		}
		shares = append(shares, share)
	}
	return shares, nil
}

// CanView reports whether lead is visible to req under policy.
func (e *Engine) CanView(req Requester, policy Policy, lead repository.Lead) error {
	scope, err := e.Scope(req, policy, Filters{})
	if err != nil {
		return err
	}
	if !scope.Matches(lead) {
		return apperr.Forbidden("lead is outside your scope")
	}
	return nil
}

// Scope binds policy to the requester. Scoped requesters may not use admin policies.
func (e *Engine) Scope(req Requester, policy Policy, f Filters) (Scope, error) {
	if policy.adminOnly() && !req.IsAdmin() {
		return Scope{}, apperr.Forbidden("view requires admin role")
	}
	if err := f.Validate(); err != nil {
		return Scope{}, err
	}
	scope := Scope{Policy: policy, UserID: req.UserID, ServiceIDs: req.AssignedServiceIDs}
	switch policy {
	case PolicyAll, PolicyOwnedOnly, PolicyOwnedOrServiceMatched:
	case PolicyCurrentPeriod:
		scope.PeriodStart, scope.PeriodEnd = clock.MonthBounds(e.clock.Now())
	default:
		return Scope{}, apperr.Validation("unknown view")
	}
	return scope, nil
}

func (e *Engine) list(ctx context.Context, req Requester, policy Policy, f Filters, limit int) ([]repository.Lead, error) {
	scope, err := e.Scope(req, policy, f)
	if err != nil {
		return nil, err
	}
	leads, err := e.store.ListLeads(ctx, scope, f, limit)
	if err != nil {
		return nil, storeError("access.List", err)
	}
	return leads, nil
}

func storeError(op string, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Transient(op, err)
}
