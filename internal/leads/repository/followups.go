package repository

import (
	"context"

	"sales_leads_backend/platform/db"
)

type Followup struct {
	ID             int64
	LeadID         int64
	Description    string
	Medium         string
	AttendedBy     int64
	FollowupDate   string
	DocRef         *string
	DocDescription *string
	CreatedAt      string
	UpdatedAt      string
}

type CreateFollowupParams struct {
	LeadID         int64
	Description    string
	Medium         string
	AttendedBy     int64
	FollowupDate   string
	DocRef         *string
	DocDescription *string
}

const followupColumns = `id, lead_id, description, medium, attended_by,
	to_char(followup_date, 'YYYY-MM-DD HH24:MI:SS'), doc_ref, doc_description,
	to_char(created_at, 'YYYY-MM-DD HH24:MI:SS'), to_char(updated_at, 'YYYY-MM-DD HH24:MI:SS')`

const insertFollowupQuery = `
	INSERT INTO followups (lead_id, description, medium, attended_by, followup_date, doc_ref, doc_description, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5::timestamp, $6, $7, $8::timestamp, $8::timestamp)
	RETURNING ` + followupColumns

const listFollowupsQuery = `SELECT ` + followupColumns + `
	FROM followups
	WHERE lead_id = $1
	ORDER BY followup_date DESC, id DESC`

const listTodayFollowupsQuery = `SELECT ` + followupColumns + `
	FROM followups
	WHERE attended_by = $1 AND followup_date >= $2::date AND followup_date < $2::date + 1
	ORDER BY followup_date ASC, id ASC`

func scanFollowup(row rowScanner) (Followup, error) {
	var f Followup
	err := row.Scan(
		&f.ID, &f.LeadID, &f.Description, &f.Medium, &f.AttendedBy,
		&f.FollowupDate, &f.DocRef, &f.DocDescription, &f.CreatedAt, &f.UpdatedAt,
	)
	return f, err
}

func (r *Repository) CreateFollowup(ctx context.Context, params CreateFollowupParams) (Followup, error) {
	conn, err := db.Acquire(ctx, r.pool, r.acquireTimeout)
	if err != nil {
		return Followup{}, err
	}
	defer conn.Release()

	f, err := scanFollowup(conn.QueryRow(ctx, insertFollowupQuery,
		params.LeadID, params.Description, params.Medium, params.AttendedBy, params.FollowupDate,
		params.DocRef, params.DocDescription, r.now(),
	))
	if err != nil {
		return Followup{}, mapWriteError(err)
	}
	return f, nil
}

// ListFollowups returns a lead's followups, newest followup date first.
func (r *Repository) ListFollowups(ctx context.Context, leadID int64) ([]Followup, error) {
	return r.listFollowups(ctx, listFollowupsQuery, leadID)
}

// ListTodayFollowups returns followups attended by a user on a civil day ("2006-01-02").
func (r *Repository) ListTodayFollowups(ctx context.Context, attendedBy int64, day string) ([]Followup, error) {
	return r.listFollowups(ctx, listTodayFollowupsQuery, attendedBy, day)
}

func (r *Repository) listFollowups(ctx context.Context, query string, args ...any) ([]Followup, error) {
	conn, err := db.Acquire(ctx, r.pool, r.acquireTimeout)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Followup, 0)
	for rows.Next() {
		f, err := scanFollowup(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}
