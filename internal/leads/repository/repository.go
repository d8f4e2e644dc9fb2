package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sales_leads_backend/internal/leads/domain"
	"sales_leads_backend/platform/clock"
	"sales_leads_backend/platform/db"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("lead not found")
	// ErrInvalidReference is returned when a category, owner or lead id does not exist.
	ErrInvalidReference = errors.New("referenced record does not exist")
)

const foreignKeyViolation = "23503"

type Repository struct {
	pool           *pgxpool.Pool
	clock          clock.Clock
	acquireTimeout time.Duration
}

// New creates the lead repository. acquireTimeout bounds every pool acquisition.
func New(pool *pgxpool.Pool, clk clock.Clock, acquireTimeout time.Duration) *Repository {
	if clk == nil {
		clk = clock.System{}
	}
	return &Repository{pool: pool, clock: clk, acquireTimeout: acquireTimeout}
}

// Lead is a stored lead. Timestamps are civil time, "2006-01-02 15:04:05".
type Lead struct {
	ID                  int64
	Name                string
	Mobile              string
	Email               string
	City                string
	ServiceTypeID       int64
	IndustryTypeID      int64
	ContactPreferenceID int64
	PreferredDate       string
	PreferredTime       string
	Requirements        string
	LeadSourceID        int64
	CheckboxIDs         []int64
	StatusID            int64
	LikelihoodID        int64
	AssignedTo          int64
	CreatedAt           string
	UpdatedAt           string
}

// LeadFields are the columns a caller controls on create and on whole-record update.
type LeadFields struct {
	Name                string
	Mobile              string
	Email               string
	City                string
	ServiceTypeID       int64
	IndustryTypeID      int64
	ContactPreferenceID int64
	PreferredDate       string
	PreferredTime       string
	Requirements        string
	LeadSourceID        int64
	CheckboxIDs         []int64
	StatusID            int64
	LikelihoodID        int64
	AssignedTo          int64
}

type CreateLeadParams struct {
	LeadFields
	// CreatedAt is the civil creation time reported by the source. Empty means now.
	CreatedAt string
}

type UpdateLeadParams struct {
	LeadFields
}

// FieldsFromDraft copies a normalized draft onto the stored columns.
func FieldsFromDraft(d domain.Draft, owner int64) LeadFields {
	checkboxes := d.CheckboxIDs
	if checkboxes == nil {
		checkboxes = []int64{}
	}
	return LeadFields{
		Name:                d.Name,
		Mobile:              d.Mobile,
		Email:               d.Email,
		City:                d.City,
		ServiceTypeID:       d.ServiceTypeID,
		IndustryTypeID:      d.IndustryTypeID,
		ContactPreferenceID: d.ContactPreferenceID,
		PreferredDate:       d.PreferredDate,
		PreferredTime:       d.PreferredTime,
		Requirements:        d.Requirements,
		LeadSourceID:        d.LeadSourceID,
		CheckboxIDs:         checkboxes,
		StatusID:            d.StatusID,
		LikelihoodID:        d.LikelihoodID,
		AssignedTo:          owner,
	}
}

// leadColumns renders timestamps back in the civil layout.
const leadColumns = `id, name, mobile, email, city, service_type_id, industry_type_id, contact_preference_id,
	preferred_date, preferred_time, requirements, lead_source_id, checkbox_ids, status_id, likelihood_id,
	assigned_to, to_char(created_at, 'YYYY-MM-DD HH24:MI:SS'), to_char(updated_at, 'YYYY-MM-DD HH24:MI:SS')`

const insertLeadQuery = `
	INSERT INTO leads (
		name, mobile, email, city, service_type_id, industry_type_id, contact_preference_id,
		preferred_date, preferred_time, requirements, lead_source_id, checkbox_ids, status_id, likelihood_id,
		assigned_to, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::integer[], $13, $14, $15, $16::timestamp, $17::timestamp)
	RETURNING ` + leadColumns

const updateLeadQuery = `
	UPDATE leads SET
		name = $2, mobile = $3, email = $4, city = $5, service_type_id = $6, industry_type_id = $7,
		contact_preference_id = $8, preferred_date = $9, preferred_time = $10, requirements = $11,
		lead_source_id = $12, checkbox_ids = $13::integer[], status_id = $14, likelihood_id = $15,
		assigned_to = $16, updated_at = $17::timestamp
	WHERE id = $1
	RETURNING ` + leadColumns

const deleteLeadFollowupsQuery = `DELETE FROM followups WHERE lead_id = $1`

const deleteLeadQuery = `DELETE FROM leads WHERE id = $1`

type rowScanner interface {
	Scan(dest ...any) error
}

// ScanLead reads one row selected with LeadColumns.
func ScanLead(row rowScanner) (Lead, error) {
	var lead Lead
	err := row.Scan(
		&lead.ID, &lead.Name, &lead.Mobile, &lead.Email, &lead.City,
		&lead.ServiceTypeID, &lead.IndustryTypeID, &lead.ContactPreferenceID,
		&lead.PreferredDate, &lead.PreferredTime, &lead.Requirements, &lead.LeadSourceID,
		&lead.CheckboxIDs, &lead.StatusID, &lead.LikelihoodID, &lead.AssignedTo,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
	if lead.CheckboxIDs == nil {
		lead.CheckboxIDs = []int64{}
	}
	return lead, err
}

// LeadColumns returns the select list matching ScanLead, qualified with alias when given.
func LeadColumns(alias string) string {
	if alias == "" {
		return leadColumns
	}
	p := alias + "."
	return fmt.Sprintf(`%[1]sid, %[1]sname, %[1]smobile, %[1]semail, %[1]scity, %[1]sservice_type_id, %[1]sindustry_type_id,
	%[1]scontact_preference_id, %[1]spreferred_date, %[1]spreferred_time, %[1]srequirements, %[1]slead_source_id,
	%[1]scheckbox_ids, %[1]sstatus_id, %[1]slikelihood_id, %[1]sassigned_to,
	to_char(%[1]screated_at, 'YYYY-MM-DD HH24:MI:SS'), to_char(%[1]supdated_at, 'YYYY-MM-DD HH24:MI:SS')`, p)
}

func (r *Repository) now() string {
	return clock.Civil(r.clock.Now())
}

func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	conn, err := db.Acquire(ctx, r.pool, r.acquireTimeout)
	if err != nil {
		return Lead{}, err
	}
	defer conn.Release()

	return r.InsertWith(ctx, conn, params)
}

// InsertWith inserts through q, which may be a transaction owned by the caller.
func (r *Repository) InsertWith(ctx context.Context, q db.Querier, params CreateLeadParams) (Lead, error) {
	updatedAt := r.now()
	createdAt := params.CreatedAt
	if createdAt == "" {
		createdAt = updatedAt
	}
	f := params.LeadFields

	lead, err := ScanLead(q.QueryRow(ctx, insertLeadQuery,
		f.Name, f.Mobile, f.Email, f.City, f.ServiceTypeID, f.IndustryTypeID, f.ContactPreferenceID,
		f.PreferredDate, f.PreferredTime, f.Requirements, f.LeadSourceID, nonNilIDs(f.CheckboxIDs),
		f.StatusID, f.LikelihoodID, f.AssignedTo, createdAt, updatedAt,
	))
	if err != nil {
		return Lead{}, mapWriteError(err)
	}
	return lead, nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (Lead, error) {
	conn, err := db.Acquire(ctx, r.pool, r.acquireTimeout)
	if err != nil {
		return Lead{}, err
	}
	defer conn.Release()

	lead, err := ScanLead(conn.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

// Update replaces every caller-controlled column. Concurrent updates are last write wins.
func (r *Repository) Update(ctx context.Context, id int64, params UpdateLeadParams) (Lead, error) {
	conn, err := db.Acquire(ctx, r.pool, r.acquireTimeout)
	if err != nil {
		return Lead{}, err
	}
	defer conn.Release()

	f := params.LeadFields
	lead, err := ScanLead(conn.QueryRow(ctx, updateLeadQuery, id,
		f.Name, f.Mobile, f.Email, f.City, f.ServiceTypeID, f.IndustryTypeID, f.ContactPreferenceID,
		f.PreferredDate, f.PreferredTime, f.Requirements, f.LeadSourceID, nonNilIDs(f.CheckboxIDs),
		f.StatusID, f.LikelihoodID, f.AssignedTo, r.now(),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	if err != nil {
		return Lead{}, mapWriteError(err)
	}
	return lead, nil
}

// Delete removes the lead and its followups in one transaction.
// A missing lead rolls the followup deletion back.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	return db.InTx(ctx, r.pool, r.acquireTimeout, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, deleteLeadFollowupsQuery, id); err != nil {
			return err
		}
		result, err := tx.Exec(ctx, deleteLeadQuery, id)
		if err != nil {
			return err
		}
		if result.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *Repository) UpdateStatus(ctx context.Context, id int64, statusID int64) (Lead, error) {
	return r.patch(ctx, "status_id", id, statusID)
}

func (r *Repository) UpdateLikelihood(ctx context.Context, id int64, likelihoodID int64) (Lead, error) {
	return r.patch(ctx, "likelihood_id", id, likelihoodID)
}

func (r *Repository) patch(ctx context.Context, column string, id int64, value int64) (Lead, error) {
	conn, err := db.Acquire(ctx, r.pool, r.acquireTimeout)
	if err != nil {
		return Lead{}, err
	}
	defer conn.Release()

	// column comes from UpdateStatus or UpdateLikelihood, never from input
	query := fmt.Sprintf(`UPDATE leads SET %s = $2, updated_at = $3::timestamp WHERE id = $1 RETURNING %s`, column, leadColumns)
	lead, err := ScanLead(conn.QueryRow(ctx, query, id, value, r.now()))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	if err != nil {
		return Lead{}, mapWriteError(err)
	}
	return lead, nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return fmt.Errorf("%w: %s", ErrInvalidReference, pgErr.ConstraintName)
	}
	return err
}

func nonNilIDs(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
