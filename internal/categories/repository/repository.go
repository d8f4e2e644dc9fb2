package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Kind names one category table exposed as an options list.
type Kind string

const (
	KindServices       Kind = "services"
	KindIndustries     Kind = "industries"
	KindContactMethods Kind = "contact-methods"
	KindCheckboxes     Kind = "checkboxes"
	KindSources        Kind = "sources"
	KindStatuses       Kind = "statuses"
	KindLikelihoods    Kind = "likelihoods"
	KindRoles          Kind = "roles"
	KindPermissions    Kind = "permissions"
)

// ErrUnknownKind is returned for a kind with no backing table.
var ErrUnknownKind = errors.New("unknown option kind")

// tables is the closed mapping from kind to table; only these names reach SQL.
var tables = map[Kind]string{
	KindServices:       "service_types",
	KindIndustries:     "industry_types",
	KindContactMethods: "contact_methods",
	KindCheckboxes:     "checkbox_options",
	KindSources:        "lead_sources",
	KindStatuses:       "lead_statuses",
	KindLikelihoods:    "likelihood_levels",
	KindRoles:          "roles",
	KindPermissions:    "permissions",
}

// Option is one id/label row of a category table.
type Option struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Reader lists category rows.
type Reader interface {
	List(ctx context.Context, kind Kind) ([]Option, error)
}

// Repo implements Reader with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new category repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ Reader = (*Repo)(nil)

// ValidKind reports whether kind has a backing table.
func ValidKind(kind Kind) bool {
	_, ok := tables[kind]
	return ok
}

// List returns every row of the kind's table ordered by id.
func (r *Repo) List(ctx context.Context, kind Kind) ([]Option, error) {
	table, ok := tables[kind]
	if !ok {
		return nil, ErrUnknownKind
	}

	rows, err := r.pool.Query(ctx, "SELECT id, name FROM "+table+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	items := make([]Option, 0)
	for rows.Next() {
		var o Option
		if err := rows.Scan(&o.ID, &o.Name); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		items = append(items, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return items, nil
}
