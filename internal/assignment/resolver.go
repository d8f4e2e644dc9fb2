// Package assignment picks the owning user of a new lead from its service type.
package assignment

import (
	"context"
	"errors"
	"time"

	"sales_leads_backend/platform/apperr"
	"sales_leads_backend/platform/logger"
)

// ErrInactiveOwner is returned when an explicitly chosen owner is missing or soft-deleted.
var ErrInactiveOwner = errors.New("owner is not an active user")

// Store answers the two questions owner resolution needs.
type Store interface {
	// FirstActiveOwner returns the lowest-id active user serving serviceTypeID.
	FirstActiveOwner(ctx context.Context, serviceTypeID int64) (int64, bool, error)
	// IsActiveUser reports whether userID exists and is not soft-deleted.
	IsActiveUser(ctx context.Context, userID int64) (bool, error)
}

// Resolver maps a service type to an owner. First match wins; there is no
// round robin or load balancing.
type Resolver struct {
	store        Store
	defaultOwner int64
	timeout      time.Duration
	log          *logger.Logger
}

// New creates a resolver. timeout bounds each store lookup; zero disables it.
func New(store Store, defaultOwner int64, timeout time.Duration, log *logger.Logger) *Resolver {
	return &Resolver{store: store, defaultOwner: defaultOwner, timeout: timeout, log: log}
}

// DefaultOwner returns the configured fallback owner.
func (r *Resolver) DefaultOwner() int64 {
	return r.defaultOwner
}

// Resolve never fails: a nil or unmatched service type, or a store error,
// yields the default owner.
func (r *Resolver) Resolve(ctx context.Context, serviceTypeID *int64) int64 {
	if serviceTypeID == nil || *serviceTypeID <= 0 {
		return r.defaultOwner
	}

	ctx, cancel := r.bound(ctx)
	defer cancel()

	owner, found, err := r.store.FirstActiveOwner(ctx, *serviceTypeID)
	if err != nil {
		r.log.WithContext(ctx).Error("owner lookup failed, using default owner",
			"serviceTypeId", *serviceTypeID, "defaultOwner", r.defaultOwner, "error", err)
		return r.defaultOwner
	}
	if !found {
		return r.defaultOwner
	}
	return owner
}

// Assign returns explicit when given and active, otherwise the resolved owner.
// An explicit owner that is not active is a validation error.
func (r *Resolver) Assign(ctx context.Context, explicit *int64, serviceTypeID int64) (int64, error) {
	if explicit == nil {
		return r.Resolve(ctx, &serviceTypeID), nil
	}

	bounded, cancel := r.bound(ctx)
	defer cancel()

	active, err := r.store.IsActiveUser(bounded, *explicit)
	if err != nil {
		return 0, apperr.Transient("assignment.Assign", err)
	}
	if !active {
		return 0, apperr.Wrap(apperr.KindValidation, "assignedTo must be an active user", ErrInactiveOwner)
	}
	return *explicit, nil
}

// VerifyDefaultOwner checks at startup that the fallback owner can own leads.
func (r *Resolver) VerifyDefaultOwner(ctx context.Context) error {
	active, err := r.store.IsActiveUser(ctx, r.defaultOwner)
	if err != nil {
		return err
	}
	if !active {
		return ErrInactiveOwner
	}
	return nil
}

func (r *Resolver) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}
