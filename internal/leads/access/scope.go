// Package access decides which leads a requester may see and builds the
// matching list and aggregate queries.
package access

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"sales_leads_backend/internal/leads/repository"
	"sales_leads_backend/platform/apperr"
	"sales_leads_backend/platform/clock"
)

const (
	RoleAdmin  int64 = 1
	RoleScoped int64 = 2
)

// Requester is the caller as currently stored, never as claimed by a token.
type Requester struct {
	UserID             int64
	Role               int64
	AssignedServiceIDs []int64
}

func (r Requester) IsAdmin() bool { return r.Role == RoleAdmin }

// Policy names one visibility strategy.
type Policy string

const (
	PolicyAll                   Policy = "all"
	PolicyCurrentPeriod         Policy = "current_period"
	PolicyOwnedOnly             Policy = "owned"
	PolicyOwnedOrServiceMatched Policy = "owned_or_service"
)

// ParsePolicy maps a view name onto a policy.
func ParsePolicy(view string) (Policy, error) {
	switch p := Policy(strings.TrimSpace(view)); p {
	case PolicyAll, PolicyCurrentPeriod, PolicyOwnedOnly, PolicyOwnedOrServiceMatched:
		return p, nil
	}
	return "", apperr.Validation("unknown view").WithDetails(fmt.Sprintf("view must be one of %s, %s, %s, %s",
		PolicyAll, PolicyCurrentPeriod, PolicyOwnedOnly, PolicyOwnedOrServiceMatched))
}

// DefaultPolicy is used when a request names no view:
//
//	Admin  -> all
//	Scoped -> owned
func DefaultPolicy(r Requester) Policy {
	if r.IsAdmin() {
		return PolicyAll
	}
	return PolicyOwnedOnly
}

func (p Policy) adminOnly() bool {
	return p == PolicyAll || p == PolicyCurrentPeriod
}

// DateRange is an inclusive range of civil dates ("2006-01-02"); either end may be empty.
type DateRange struct {
	From string
	To   string
}

// Filters narrow a listing further. They never widen a policy.
type Filters struct {
	Created DateRange
	Updated DateRange
}

// Validate rejects malformed or inverted ranges.
func (f Filters) Validate() error {
	ranges := []struct {
		name string
		r    DateRange
	}{{"created", f.Created}, {"updated", f.Updated}}
	for _, rg := range ranges {
		name, r := rg.name, rg.r
		var from, to time.Time
		var err error
		if r.From != "" {
			if from, err = time.Parse(clock.DateLayout, r.From); err != nil {
				return apperr.Validation("invalid date filter").WithDetails(name + "From must be YYYY-MM-DD")
			}
		}
		if r.To != "" {
			if to, err = time.Parse(clock.DateLayout, r.To); err != nil {
				return apperr.Validation("invalid date filter").WithDetails(name + "To must be YYYY-MM-DD")
			}
		}
		if r.From != "" && r.To != "" && to.Before(from) {
			return apperr.Validation("invalid date filter").WithDetails(name + "To is before " + name + "From")
		}
	}
	return nil
}

// Scope is a policy bound to a requester and, for the current period, to a month.
type Scope struct {
	Policy      Policy
	UserID      int64
	ServiceIDs  []int64
	PeriodStart string
	PeriodEnd   string
}

// Matches evaluates the scope against one stored lead.
func (s Scope) Matches(lead repository.Lead) bool {
	switch s.Policy {
	case PolicyAll:
		return true
	case PolicyCurrentPeriod:
		return lead.CreatedAt >= s.PeriodStart && lead.CreatedAt < s.PeriodEnd
	case PolicyOwnedOnly:
		return lead.AssignedTo == s.UserID
	case PolicyOwnedOrServiceMatched:
		return lead.AssignedTo == s.UserID || slices.Contains(s.ServiceIDs, lead.ServiceTypeID)
	}
	return false
}

// buildScopeWhere renders the scope and filters as a WHERE predicate over
// alias, numbering placeholders from argIdx.
func buildScopeWhere(scope Scope, f Filters, alias string, argIdx int) (string, []any, int) {
	col := func(name string) string { return alias + "." + name }
	clauses := []string{}
	args := []any{}

	switch scope.Policy {
	case PolicyCurrentPeriod:
		clauses = append(clauses, fmt.Sprintf("%s >= $%d::timestamp AND %s < $%d::timestamp",
			col("created_at"), argIdx, col("created_at"), argIdx+1))
		args = append(args, scope.PeriodStart, scope.PeriodEnd)
		argIdx += 2
	case PolicyOwnedOnly:
		clauses = append(clauses, fmt.Sprintf("%s = $%d", col("assigned_to"), argIdx))
		args = append(args, scope.UserID)
		argIdx++
	case PolicyOwnedOrServiceMatched:
		services := scope.ServiceIDs
		if services == nil {
			services = []int64{}
		}
		clauses = append(clauses, fmt.Sprintf("(%s = $%d OR %s = ANY($%d::bigint[]))",
			col("assigned_to"), argIdx, col("service_type_id"), argIdx+1))
		args = append(args, scope.UserID, services)
		argIdx += 2
	}

	ranges := []struct {
		column string
		r      DateRange
	}{
		{col("created_at"), f.Created},
		{col("updated_at"), f.Updated},
	}
	for _, rg := range ranges {
		if rg.r.From != "" {
			clauses = append(clauses, fmt.Sprintf("%s >= $%d::date", rg.column, argIdx))
			args = append(args, rg.r.From)
			argIdx++
		}
		if rg.r.To != "" {
			clauses = append(clauses, fmt.Sprintf("%s < $%d::date + 1", rg.column, argIdx))
			args = append(args, rg.r.To)
			argIdx++
		}
	}

	if len(clauses) == 0 {
		return "TRUE", args, argIdx
	}
	return strings.Join(clauses, " AND "), args, argIdx
}
