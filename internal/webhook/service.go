package webhook

import (
	"context"
	"encoding/json"

	"sales_leads_backend/internal/events"
	"sales_leads_backend/internal/ingest/source"
	"sales_leads_backend/internal/leads/domain"
	"sales_leads_backend/internal/leads/management"
	"sales_leads_backend/internal/leads/repository"
	"sales_leads_backend/platform/apperr"
	"sales_leads_backend/platform/logger"
)

// LeadIngester stores a parsed draft. Satisfied by management.Service.
type LeadIngester interface {
	Ingest(ctx context.Context, draft domain.Draft, channel management.Channel) (repository.Lead, error)
}

// Envelope is the lead-ads notification body: entry[].changes[].value.
type Envelope struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      source.FlexibleID `json:"id"`
	Changes []Change          `json:"changes"`
}

type Change struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

// Service turns inbound payloads into leads.
type Service struct {
	leads    LeadIngester
	social   *source.SocialAdapter
	website  *source.WebsiteAdapter
	eventBus events.Bus
	log      *logger.Logger
}

func NewService(leads LeadIngester, social *source.SocialAdapter, website *source.WebsiteAdapter, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{leads: leads, social: social, website: website, eventBus: eventBus, log: log}
}

// ProcessEnvelope ingests every lead of a notification. All leads are parsed
// before the first one is stored, so a malformed change stores nothing.
// Storage failures are per lead; see ingestAll.
func (s *Service) ProcessEnvelope(ctx context.Context, raw []byte) ([]repository.Lead, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, apperr.Validation("invalid payload structure")
	}
	if len(env.Entry) == 0 {
		return nil, apperr.Validation("invalid payload structure").WithDetails("entry is required")
	}

	var drafts []domain.Draft
	for _, entry := range env.Entry {
		if len(entry.Changes) == 0 {
			return nil, apperr.Validation("invalid payload structure").WithDetails("entry.changes is required")
		}
		for _, change := range entry.Changes {
			if len(change.Value) == 0 {
				return nil, apperr.Validation("invalid payload structure").WithDetails("changes.value is required")
			}
			draft, err := s.social.Parse(ctx, change.Value)
			if err != nil {
				return nil, err
			}
			drafts = append(drafts, draft)
		}
	}

	return s.ingestAll(ctx, drafts, management.ChannelSocial)
}

// ProcessFormLead ingests one flat lead whose form_id must be registered.
func (s *Service) ProcessFormLead(ctx context.Context, raw []byte) (repository.Lead, error) {
	draft, err := s.social.ParseRegisteredForm(ctx, raw)
	if err != nil {
		return repository.Lead{}, err
	}
	return s.leads.Ingest(ctx, draft, management.ChannelSocial)
}

// ProcessWebsiteForm ingests a website form and announces it for the partner notification.
func (s *Service) ProcessWebsiteForm(ctx context.Context, raw []byte) (repository.Lead, error) {
	form, draft, err := s.website.ParseForm(ctx, raw)
	if err != nil {
		return repository.Lead{}, err
	}
	lead, err := s.leads.Ingest(ctx, draft, management.ChannelWebsite)
	if err != nil {
		return repository.Lead{}, err
	}

	s.eventBus.Publish(ctx, events.WebsiteFormSubmitted{
		BaseEvent:     events.NewBaseEvent(),
		LeadID:        lead.ID,
		FullName:      lead.Name,
		MobileNumber:  lead.Mobile,
		Email:         lead.Email,
		City:          lead.City,
		Service:       form.SelectedService,
		Industry:      form.SelectedIndustry,
		ContactMethod: form.PreferredContactMethod,
		Date:          lead.PreferredDate,
		Timing:        lead.PreferredTime,
		BusinessNeeds: form.BusinessNeeds,
		Requirements:  lead.Requirements,
	})
	return lead, nil
}

// ingestAll stores every draft it can. A failed insert is logged and skipped so
// that a redelivered notification does not duplicate the leads already stored;
// the error is returned only when nothing was stored.
func (s *Service) ingestAll(ctx context.Context, drafts []domain.Draft, channel management.Channel) ([]repository.Lead, error) {
	leads := make([]repository.Lead, 0, len(drafts))
	var firstErr error
	for i, d := range drafts {
		lead, err := s.leads.Ingest(ctx, d, channel)
		if err != nil {
			s.log.WithContext(ctx).Error("webhook lead not stored", "index", i, "total", len(drafts), "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		leads = append(leads, lead)
	}
	if len(leads) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return leads, nil
}
