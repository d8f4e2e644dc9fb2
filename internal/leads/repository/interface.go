package repository

import (
	"context"

	"sales_leads_backend/platform/db"
)

// =====================================
// Segregated Interfaces
// =====================================

// LeadReader provides read-only access to a single lead.
type LeadReader interface {
	GetByID(ctx context.Context, id int64) (Lead, error)
}

// LeadWriter provides the lead lifecycle writes.
type LeadWriter interface {
	Create(ctx context.Context, params CreateLeadParams) (Lead, error)
	Update(ctx context.Context, id int64, params UpdateLeadParams) (Lead, error)
	Delete(ctx context.Context, id int64) error
}

// LeadPatcher changes one classification of a lead.
type LeadPatcher interface {
	UpdateStatus(ctx context.Context, id int64, statusID int64) (Lead, error)
	UpdateLikelihood(ctx context.Context, id int64, likelihoodID int64) (Lead, error)
}

// BatchInserter writes a lead through a caller-owned transaction.
type BatchInserter interface {
	InsertWith(ctx context.Context, q db.Querier, params CreateLeadParams) (Lead, error)
}

// FollowupStore owns followups of a lead.
type FollowupStore interface {
	CreateFollowup(ctx context.Context, params CreateFollowupParams) (Followup, error)
	ListFollowups(ctx context.Context, leadID int64) ([]Followup, error)
	ListTodayFollowups(ctx context.Context, attendedBy int64, day string) ([]Followup, error)
}

// =====================================
// Composite Interface
// =====================================

// LeadsRepository combines all lead persistence.
type LeadsRepository interface {
	LeadReader
	LeadWriter
	LeadPatcher
	BatchInserter
	FollowupStore
}

var _ LeadsRepository = (*Repository)(nil)
