package source

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"sales_leads_backend/internal/categories"
	"sales_leads_backend/internal/leads/domain"
	"sales_leads_backend/platform/clock"
)

const stagingSource = "staging"

// stagingDelay shifts staged entries' creation time; the staging table records
// submission time 30 minutes behind the lead clock.
const stagingDelay = 30 * time.Minute

// Numeric keys of the staged website form.
const (
	keyCheckboxes    = "2"
	keyName          = "5"
	keyMobile        = "6"
	keyEmail         = "7"
	keyCity          = "8"
	keyService       = "9"
	keyIndustry      = "10"
	keyContact       = "11"
	keyPreferredDate = "12"
	keyPreferredTime = "14"
)

// StagedEntry is one row of the form-entry staging table.
type StagedEntry struct {
	ID     int64           `json:"entry_id"`
	Fields json.RawMessage `json:"fields"`
	// Date is the civil submission time, "2006-01-02 15:04:05".
	Date string `json:"date"`
}

type stagedField map[string]any

func (f stagedField) str(key string) string {
	switch v := f[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// StagingAdapter parses entries of the numeric-key staging table.
type StagingAdapter struct {
	deps Deps
}

// NewStagingAdapter creates the adapter.
func NewStagingAdapter(deps Deps) *StagingAdapter {
	return &StagingAdapter{deps: deps}
}

var _ Adapter = (*StagingAdapter)(nil)

func (a *StagingAdapter) Name() string { return stagingSource }

// Parse decodes a JSON-encoded StagedEntry.
func (a *StagingAdapter) Parse(ctx context.Context, raw []byte) (domain.Draft, error) {
	var entry StagedEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return domain.Draft{}, structureError(stagingSource, "body is not an entry object")
	}
	return a.ParseEntry(ctx, entry)
}

// ParseEntry maps one staged entry.
func (a *StagingAdapter) ParseEntry(_ context.Context, entry StagedEntry) (domain.Draft, error) {
	var fields map[string]stagedField
	if len(entry.Fields) == 0 || json.Unmarshal(entry.Fields, &fields) != nil || fields == nil {
		return domain.Draft{}, structureError(stagingSource, fmt.Sprintf("entry %d has no field map", entry.ID))
	}
	submitted, err := time.Parse(clock.Layout, strings.TrimSpace(entry.Date))
	if err != nil {
		return domain.Draft{}, structureError(stagingSource, fmt.Sprintf("entry %d has no valid date", entry.ID))
	}

	get := func(key, attr string) string {
		return strings.TrimSpace(fields[key].str(attr))
	}

	reg := a.deps.Registry
	norm := a.deps.fields(stagingSource)

	var reqs requirementLines
	service := get(keyService, "value")
	if _, ok := reg.Lookup(categories.AxisService, service); !ok && service != "" {
		reqs.add("Service", service)
	}
	industry := get(keyIndustry, "value")
	if _, ok := reg.Lookup(categories.AxisIndustry, industry); !ok && industry != "" {
		reqs.add("Industry", industry)
	}
	contact := get(keyContact, "value")
	if _, ok := reg.Lookup(categories.AxisContact, contact); !ok && contact != "" {
		reqs.add("Contact Preference", contact)
	}

	var needs []string
	if raw := get(keyCheckboxes, "value"); raw != "" {
		needs = strings.Split(raw, "\n")
	}

	draft := domain.Draft{
		Name:                text(transliterate(get(keyName, "value"))),
		Mobile:              norm.phone(get(keyMobile, "value")),
		Email:               norm.email(get(keyEmail, "value")),
		City:                text(transliterate(get(keyCity, "value"))),
		ServiceTypeID:       reg.Resolve(categories.AxisService, service),
		IndustryTypeID:      reg.Resolve(categories.AxisIndustry, industry),
		ContactPreferenceID: reg.Resolve(categories.AxisContact, contact),
		PreferredDate:       get(keyPreferredDate, "date"),
		PreferredTime:       get(keyPreferredTime, "value"),
		Requirements:        reqs.String(),
		LeadSourceID:        domain.SourceWebsite,
		CheckboxIDs:         reg.ResolveSet(categories.AxisCheckbox, needs),
		StatusID:            domain.StatusNew,
		CreatedAt:           submitted.Add(stagingDelay).Format(clock.Layout),
	}
	return draft.WithDefaults(), nil
}
