package source

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"sales_leads_backend/internal/categories"
	"sales_leads_backend/internal/leads/domain"
	"sales_leads_backend/platform/apperr"
	"sales_leads_backend/platform/clock"
)

const socialSource = "social"

// SocialField is one answered question of a lead-ads form.
type SocialField struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// SocialLead is the lead value delivered by the lead-ads platform, either
// inside a webhook change or posted directly.
type SocialLead struct {
	FormID      FlexibleID      `json:"form_id"`
	LeadgenID   FlexibleID      `json:"leadgen_id"`
	FieldData   []SocialField   `json:"field_data"`
	CreatedTime json.RawMessage `json:"created_time"`
}

// FlexibleID accepts identifiers sent either as JSON strings or numbers.
type FlexibleID string

func (f *FlexibleID) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexibleID(n.String())
	return nil
}

// SocialAdapter parses lead-ads leads using the dialect registered for their form.
type SocialAdapter struct {
	deps  Deps
	forms *FormRegistry
}

// NewSocialAdapter creates the adapter.
func NewSocialAdapter(deps Deps, forms *FormRegistry) *SocialAdapter {
	return &SocialAdapter{deps: deps, forms: forms}
}

var _ Adapter = (*SocialAdapter)(nil)

func (a *SocialAdapter) Name() string { return socialSource }

// Parse decodes a lead value and applies its form's dialect, falling back to
// the default dialect for unknown forms.
func (a *SocialAdapter) Parse(ctx context.Context, raw []byte) (domain.Draft, error) {
	lead, err := decodeSocialLead(raw)
	if err != nil {
		return domain.Draft{}, err
	}
	return a.ParseLead(ctx, lead, a.forms.Resolve(string(lead.FormID)))
}

// ParseRegisteredForm is Parse for callers that only accept registered forms.
func (a *SocialAdapter) ParseRegisteredForm(ctx context.Context, raw []byte) (domain.Draft, error) {
	lead, err := decodeSocialLead(raw)
	if err != nil {
		return domain.Draft{}, err
	}
	dialect, ok := a.forms.Lookup(string(lead.FormID))
	if !ok {
		return domain.Draft{}, apperr.Validation("invalid form_id").WithDetails(map[string]string{"form_id": string(lead.FormID)})
	}
	return a.ParseLead(ctx, lead, dialect)
}

func decodeSocialLead(raw []byte) (SocialLead, error) {
	var lead SocialLead
	if err := json.Unmarshal(raw, &lead); err != nil {
		return SocialLead{}, structureError(socialSource, "body is not a lead object")
	}
	return lead, nil
}

// ParseLead maps a decoded lead with an explicit dialect.
func (a *SocialAdapter) ParseLead(_ context.Context, lead SocialLead, dialect Dialect) (domain.Draft, error) {
	if lead.FieldData == nil {
		return domain.Draft{}, structureError(socialSource, "field_data is required")
	}
	if len(lead.CreatedTime) == 0 || bytes.Equal(lead.CreatedTime, []byte("null")) {
		return domain.Draft{}, structureError(socialSource, "created_time is required")
	}
	createdAt, ok := parseCreatedTime(lead.CreatedTime)
	if !ok {
		return domain.Draft{}, structureError(socialSource, "created_time is not a timestamp")
	}

	reg := a.deps.Registry
	fields := a.deps.fields(socialSource)
	draft := domain.Draft{
		City:                domain.DefaultCity,
		ServiceTypeID:       reg.Fallback(categories.AxisService),
		IndustryTypeID:      reg.Fallback(categories.AxisIndustry),
		ContactPreferenceID: domain.ContactCall,
		LeadSourceID:        domain.SourceSocial,
		StatusID:            domain.StatusNew,
		CreatedAt:           clock.Civil(createdAt),
	}

	var reqs requirementLines
	for _, field := range lead.FieldData {
		if field.Name == "" || len(field.Values) == 0 {
			continue
		}
		value := field.Values[0]

		rule, known := dialect.fields[field.Name]
		if !known {
			reqs.add(humanizeQuestion(field.Name), value)
			continue
		}

		switch rule.Target {
		case targetName:
			draft.Name = text(value)
		case targetMobile:
			draft.Mobile = fields.phone(value)
		case targetEmail:
			draft.Email = fields.email(value)
		case targetCity:
			if city := text(value); city != "" {
				draft.City = city
			}
		case targetService:
			draft.ServiceTypeID = reg.Resolve(categories.AxisService, value)
		case targetIndustry:
			draft.IndustryTypeID = reg.Resolve(categories.AxisIndustry, value)
		case targetContact:
			draft.ContactPreferenceID = reg.Resolve(categories.AxisContact, value)
			if _, ok := reg.Lookup(categories.AxisContact, value); !ok && value != "" && rule.Label == "" {
				reqs.add("Contact Preference", value)
			}
		case targetPreferredDate:
			draft.PreferredDate = text(value)
		case targetPreferredTime:
			draft.PreferredTime = text(value)
		}
		if rule.Label != "" {
			reqs.add(rule.Label, value)
		}
	}
	draft.Requirements = reqs.String()

	return draft.WithDefaults(), nil
}

var createdTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05.000-0700",
}

// parseCreatedTime accepts unix seconds (number or string) and ISO-8601 strings.
func parseCreatedTime(raw json.RawMessage) (time.Time, bool) {
	var seconds int64
	if err := json.Unmarshal(raw, &seconds); err == nil {
		return time.Unix(seconds, 0), true
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, false
	}
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(n, 0), true
	}
	for _, layout := range createdTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// humanizeQuestion turns "what_is_your_role?" into "What is your role".
func humanizeQuestion(key string) string {
	label := strings.TrimSpace(strings.Trim(strings.ReplaceAll(key, "_", " "), "? "))
	if label == "" {
		return "Answer"
	}
	first, size := utf8.DecodeRuneInString(label)
	return string(unicode.ToUpper(first)) + label[size:]
}
