package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sales_leads_backend/internal/leads/repository"
	"sales_leads_backend/platform/db"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrUnknownRequester is returned when the user is missing or soft-deleted.
var ErrUnknownRequester = errors.New("requester not found")

// Store runs scoped queries.
type Store interface {
	ListLeads(ctx context.Context, scope Scope, f Filters, limit int) ([]repository.Lead, error)
	CountByStatus(ctx context.Context, scope Scope, f Filters) ([]Count, error)
	CountBySource(ctx context.Context, scope Scope, f Filters) ([]Count, error)
}

// RequesterLoader reads the requester's current role and service set.
type RequesterLoader interface {
	LoadRequester(ctx context.Context, userID int64) (Requester, error)
}

// Count is the number of matching leads for one category row.
type Count struct {
	ID    int64
	Name  string
	Count int64
}

// PostgresStore implements Store and RequesterLoader.
type PostgresStore struct {
	pool           *pgxpool.Pool
	acquireTimeout time.Duration
}

func NewPostgresStore(pool *pgxpool.Pool, acquireTimeout time.Duration) *PostgresStore {
	return &PostgresStore{pool: pool, acquireTimeout: acquireTimeout}
}

var (
	_ Store           = (*PostgresStore)(nil)
	_ RequesterLoader = (*PostgresStore)(nil)
)

const loadRequesterQuery = `
	SELECT u.id, u.role_id,
		COALESCE(array_agg(ust.service_type_id ORDER BY ust.service_type_id) FILTER (WHERE ust.service_type_id IS NOT NULL), '{}')::bigint[]
	FROM users u
	LEFT JOIN user_service_types ust ON ust.user_id = u.id
	WHERE u.id = $1 AND u.active
	GROUP BY u.id, u.role_id`

func (s *PostgresStore) LoadRequester(ctx context.Context, userID int64) (Requester, error) {
	conn, err := db.Acquire(ctx, s.pool, s.acquireTimeout)
	if err != nil {
		return Requester{}, err
	}
	defer conn.Release()

	var r Requester
	err = conn.QueryRow(ctx, loadRequesterQuery, userID).Scan(&r.UserID, &r.Role, &r.AssignedServiceIDs)
	if errors.Is(err, pgx.ErrNoRows) {
		return Requester{}, ErrUnknownRequester
	}
	return r, err
}

func listLeadsQuery(scope Scope, f Filters, limit int) (string, []any) {
	where, args, argIdx := buildScopeWhere(scope, f, "l", 1)
	query := fmt.Sprintf(`SELECT %s FROM leads l WHERE %s ORDER BY l.created_at DESC, l.id DESC`,
		repository.LeadColumns("l"), where)
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, limit)
	}
	return query, args
}

// countQuery lists every row of table, with zero counts for rows no lead matches.
// The scope predicate sits in the join so unmatched rows survive.
func countQuery(table, column string, scope Scope, f Filters) (string, []any) {
	where, args, _ := buildScopeWhere(scope, f, "l", 1)
	return fmt.Sprintf(`
		SELECT c.id, c.name, COUNT(l.id)
		FROM %s c
		LEFT JOIN leads l ON l.%s = c.id AND %s
		GROUP BY c.id, c.name
		ORDER BY c.id`, table, column, where), args
}

func (s *PostgresStore) ListLeads(ctx context.Context, scope Scope, f Filters, limit int) ([]repository.Lead, error) {
	conn, err := db.Acquire(ctx, s.pool, s.acquireTimeout)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	query, args := listLeadsQuery(scope, f, limit)
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]repository.Lead, 0)
	for rows.Next() {
		lead, err := repository.ScanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return leads, nil
}

func (s *PostgresStore) CountByStatus(ctx context.Context, scope Scope, f Filters) ([]Count, error) {
	query, args := countQuery("lead_statuses", "status_id", scope, f)
	return s.counts(ctx, query, args)
}

func (s *PostgresStore) CountBySource(ctx context.Context, scope Scope, f Filters) ([]Count, error) {
	query, args := countQuery("lead_sources", "lead_source_id", scope, f)
	return s.counts(ctx, query, args)
}

func (s *PostgresStore) counts(ctx context.Context, query string, args []any) ([]Count, error) {
	conn, err := db.Acquire(ctx, s.pool, s.acquireTimeout)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Count, 0)
	for rows.Next() {
		var c Count
		if err := rows.Scan(&c.ID, &c.Name, &c.Count); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}
