package source

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"sales_leads_backend/internal/leads/domain"
	"sales_leads_backend/platform/apperr"
)

const directSource = "direct"

// ManualLead is the body of a manual lead submission. Category ids are
// already resolved by the caller.
type ManualLead struct {
	Name                string  `json:"name" validate:"required,notblank,max=200"`
	Mobile              string  `json:"mobile" validate:"max=32"`
	Email               string  `json:"email" validate:"max=254"`
	City                string  `json:"city" validate:"max=120"`
	ServiceTypeID       int64   `json:"serviceTypeId" validate:"required,min=1"`
	IndustryTypeID      int64   `json:"industryTypeId" validate:"required,min=1"`
	ContactPreferenceID int64   `json:"contactPreferenceId" validate:"min=0"`
	PreferredDate       string  `json:"preferredDate" validate:"max=32"`
	PreferredTime       string  `json:"preferredTime" validate:"max=64"`
	Requirements        string  `json:"requirements" validate:"max=4000"`
	LeadSourceID        int64   `json:"leadSourceId" validate:"omitempty,min=1"`
	CheckboxIDs         []int64 `json:"checkboxIds" validate:"omitempty,dive,min=1"`
	StatusID            int64   `json:"statusId" validate:"omitempty,min=1"`
	LikelihoodID        int64   `json:"likelihoodId" validate:"omitempty,min=1"`
	AssignedTo          *int64  `json:"assignedTo" validate:"omitempty,min=1"`
}

// DirectAdapter parses manual and API submissions.
type DirectAdapter struct {
	deps Deps
}

// NewDirectAdapter creates the adapter.
func NewDirectAdapter(deps Deps) *DirectAdapter {
	return &DirectAdapter{deps: deps}
}

var _ Adapter = (*DirectAdapter)(nil)

func (a *DirectAdapter) Name() string { return directSource }

// Parse decodes and validates a ManualLead.
func (a *DirectAdapter) Parse(_ context.Context, raw []byte) (domain.Draft, error) {
	var in ManualLead
	if err := json.Unmarshal(raw, &in); err != nil {
		return domain.Draft{}, apperr.BadRequest("invalid request body")
	}
	if err := a.deps.Validator.Struct(in); err != nil {
		return domain.Draft{}, apperr.Validation("validation error").WithDetails(err.Error())
	}
	return a.FromManual(in), nil
}

// FromManual maps an already validated submission.
func (a *DirectAdapter) FromManual(in ManualLead) domain.Draft {
	norm := a.deps.fields(directSource)

	source := in.LeadSourceID
	if source == 0 {
		source = domain.SourceManual
	}

	draft := domain.Draft{
		Name:                text(in.Name),
		Mobile:              norm.phone(in.Mobile),
		Email:               norm.email(in.Email),
		City:                text(in.City),
		ServiceTypeID:       in.ServiceTypeID,
		IndustryTypeID:      in.IndustryTypeID,
		ContactPreferenceID: in.ContactPreferenceID,
		PreferredDate:       text(in.PreferredDate),
		PreferredTime:       text(in.PreferredTime),
		Requirements:        strings.TrimSpace(in.Requirements),
		LeadSourceID:        source,
		CheckboxIDs:         uniqueSorted(in.CheckboxIDs),
		StatusID:            in.StatusID,
		LikelihoodID:        in.LikelihoodID,
		AssignedTo:          in.AssignedTo,
	}
	return draft.WithDefaults()
}

func uniqueSorted(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
