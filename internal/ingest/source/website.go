package source

import (
	"context"
	"encoding/json"

	"sales_leads_backend/internal/categories"
	"sales_leads_backend/internal/leads/domain"
)

const websiteSource = "website"

// WebsiteForm is the camelCase payload posted by the marketing site.
type WebsiteForm struct {
	FullName               *string  `json:"fullName"`
	MobileNumber           *string  `json:"mobileNumber"`
	Email                  *string  `json:"email"`
	CityName               string   `json:"cityName"`
	SelectedService        string   `json:"selectedService"`
	SelectedIndustry       string   `json:"selectedIndustry"`
	PreferredContactMethod string   `json:"preferredContactMethod"`
	Date                   string   `json:"date"`
	SelectTiming           string   `json:"selectTiming"`
	BusinessNeeds          []string `json:"businessNeeds"`
	Requirements           string   `json:"requirements"`
}

// WebsiteAdapter parses the marketing site's contact form.
type WebsiteAdapter struct {
	deps Deps
}

// NewWebsiteAdapter creates the adapter.
func NewWebsiteAdapter(deps Deps) *WebsiteAdapter {
	return &WebsiteAdapter{deps: deps}
}

var _ Adapter = (*WebsiteAdapter)(nil)

func (a *WebsiteAdapter) Name() string { return websiteSource }

// Parse requires fullName and at least one of mobileNumber or email.
func (a *WebsiteAdapter) Parse(ctx context.Context, raw []byte) (domain.Draft, error) {
	_, draft, err := a.ParseForm(ctx, raw)
	return draft, err
}

// ParseForm is Parse that also returns the decoded form, for callers that
// forward the submitted labels unchanged.
func (a *WebsiteAdapter) ParseForm(_ context.Context, raw []byte) (WebsiteForm, domain.Draft, error) {
	var form WebsiteForm
	if err := json.Unmarshal(raw, &form); err != nil {
		return WebsiteForm{}, domain.Draft{}, structureError(websiteSource, "body is not a form object")
	}
	if form.FullName == nil {
		return WebsiteForm{}, domain.Draft{}, structureError(websiteSource, "fullName is required")
	}
	if form.MobileNumber == nil && form.Email == nil {
		return WebsiteForm{}, domain.Draft{}, structureError(websiteSource, "mobileNumber or email is required")
	}

	reg := a.deps.Registry
	norm := a.deps.fields(websiteSource)

	var reqs requirementLines
	reqs.addRaw(form.Requirements)
	if _, ok := reg.Lookup(categories.AxisService, form.SelectedService); !ok && form.SelectedService != "" {
		reqs.add("Service", form.SelectedService)
	}
	if _, ok := reg.Lookup(categories.AxisIndustry, form.SelectedIndustry); !ok && form.SelectedIndustry != "" {
		reqs.add("Industry", form.SelectedIndustry)
	}
	if _, ok := reg.Lookup(categories.AxisContact, form.PreferredContactMethod); !ok && form.PreferredContactMethod != "" {
		reqs.add("Contact Preference", form.PreferredContactMethod)
	}

	draft := domain.Draft{
		Name:                text(*form.FullName),
		Mobile:              norm.phone(deref(form.MobileNumber)),
		Email:               norm.email(deref(form.Email)),
		City:                text(form.CityName),
		ServiceTypeID:       reg.Resolve(categories.AxisService, form.SelectedService),
		IndustryTypeID:      reg.Resolve(categories.AxisIndustry, form.SelectedIndustry),
		ContactPreferenceID: reg.Resolve(categories.AxisContact, form.PreferredContactMethod),
		PreferredDate:       text(form.Date),
		PreferredTime:       text(form.SelectTiming),
		Requirements:        reqs.String(),
		LeadSourceID:        domain.SourceWebsite,
		CheckboxIDs:         reg.ResolveSet(categories.AxisCheckbox, form.BusinessNeeds),
		StatusID:            domain.StatusNew,
	}
	return form, draft.WithDefaults(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
