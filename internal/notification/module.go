// Package notification provides event handlers that tell owners and the
// partner about new leads. Domain modules publish events and never talk to
// SMTP or the partner endpoint themselves. Every failure here is logged and
// never reaches the request that created the lead.
package notification

import (
	"context"
	"errors"
	"sort"

	"sales_leads_backend/internal/categories"
	"sales_leads_backend/internal/email"
	"sales_leads_backend/internal/events"
	"sales_leads_backend/internal/leads/domain"
	leadrepo "sales_leads_backend/internal/leads/repository"
	"sales_leads_backend/internal/notification/partner"
	userrepo "sales_leads_backend/internal/users/repository"
	"sales_leads_backend/platform/logger"
)

// LeadReader loads stored leads.
type LeadReader interface {
	GetByID(ctx context.Context, id int64) (leadrepo.Lead, error)
}

// UserReader loads lead owners.
type UserReader interface {
	GetByID(ctx context.Context, id int64) (userrepo.User, error)
}

// PartnerQueue defers the partner post to a background worker.
type PartnerQueue interface {
	EnqueuePartnerLead(ctx context.Context, leadID int64) error
}

// Module handles all notification-related event subscriptions.
type Module struct {
	leads   LeadReader
	users   UserReader
	sender  email.Sender
	partner *partner.Client
	queue   PartnerQueue
	labels  *categories.Registry
	log     *logger.Logger
}

// New creates a new notification module.
func New(leads LeadReader, users UserReader, sender email.Sender, partnerClient *partner.Client, labels *categories.Registry, log *logger.Logger) *Module {
	if sender == nil {
		sender = email.NoopSender{}
	}
	return &Module{
		leads:   leads,
		users:   users,
		sender:  sender,
		partner: partnerClient,
		labels:  labels,
		log:     log,
	}
}

// SetPartnerQueue routes partner posts through the job queue instead of posting inline.
func (m *Module) SetPartnerQueue(q PartnerQueue) {
	m.queue = q
}

// RegisterHandlers subscribes the module to every event it reacts to.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.LeadCreated{}.EventName(), m)
	bus.Subscribe(events.WebsiteFormSubmitted{}.EventName(), m)
	bus.Subscribe(events.LeadsTransferred{}.EventName(), m)
	bus.Subscribe(events.LeadDeleted{}.EventName(), m)
	bus.Subscribe(events.UserDeactivated{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadCreated:
		return m.handleLeadCreated(ctx, e)
	case events.WebsiteFormSubmitted:
		return m.handleWebsiteFormSubmitted(ctx, e)
	case events.LeadsTransferred:
		return m.handleLeadsTransferred(ctx, e)
	case events.LeadDeleted:
		m.log.WithContext(ctx).Info("audit: lead deleted", "leadId", e.LeadID, "deletedBy", e.DeletedBy)
		return nil
	case events.UserDeactivated:
		m.log.WithContext(ctx).Info("audit: user deactivated", "userId", e.UserID, "by", e.ByID)
		return nil
	}
	return nil
}

func (m *Module) handleLeadCreated(ctx context.Context, e events.LeadCreated) error {
	owner, err := m.users.GetByID(ctx, e.AssignedTo)
	if err != nil {
		m.log.Warn("lead owner not loaded for notification", "leadId", e.LeadID, "ownerId", e.AssignedTo, "error", err)
		return nil
	}
	if !owner.Active || owner.Email == "" {
		return nil
	}

	summary := email.LeadSummary{
		ID:      e.LeadID,
		Name:    e.LeadName,
		Mobile:  e.Mobile,
		Email:   e.Email,
		Service: m.serviceLabel(e.ServiceTypeID),
		Source:  domain.SourceName(e.LeadSourceID),
	}
	if lead, err := m.leads.GetByID(ctx, e.LeadID); err == nil {
		summary.City = lead.City
	}

	if err := m.sender.SendLeadAssignedEmail(ctx, owner.Email, summary); err != nil {
		m.log.Error("owner notification failed", "leadId", e.LeadID, "ownerId", owner.ID, "error", err)
	}
	return nil
}

func (m *Module) handleWebsiteFormSubmitted(ctx context.Context, e events.WebsiteFormSubmitted) error {
	if !m.partner.Enabled() {
		return nil
	}
	if m.queue != nil {
		err := m.queue.EnqueuePartnerLead(ctx, e.LeadID)
		if err == nil {
			return nil
		}
		m.log.Warn("partner notification not queued, posting inline", "leadId", e.LeadID, "error", err)
	}
	if err := m.NotifyPartner(ctx, e.LeadID); err != nil {
		m.log.Error("partner notification failed", "leadId", e.LeadID, "error", err)
	}
	return nil
}

// NotifyPartner posts one stored lead to the partner endpoint.
// Errors are returned so a queued job can retry.
func (m *Module) NotifyPartner(ctx context.Context, leadID int64) error {
	if !m.partner.Enabled() {
		return nil
	}
	lead, err := m.leads.GetByID(ctx, leadID)
	if errors.Is(err, leadrepo.ErrNotFound) {
		m.log.Warn("partner notification skipped, lead is gone", "leadId", leadID)
		return nil
	}
	if err != nil {
		return err
	}
	return m.partner.PostLead(ctx, partnerLead(lead))
}

func (m *Module) handleLeadsTransferred(ctx context.Context, e events.LeadsTransferred) error {
	byOwner := make(map[int64][]int64)
	for i, id := range e.LeadIDs {
		if i < len(e.Owners) {
			byOwner[e.Owners[i]] = append(byOwner[e.Owners[i]], id)
		}
	}
	owners := make([]int64, 0, len(byOwner))
	for owner := range byOwner {
		owners = append(owners, owner)
	}
	sort.Slice(owners, func(i, j int) bool { return owners[i] < owners[j] })

	for _, ownerID := range owners {
		owner, err := m.users.GetByID(ctx, ownerID)
		if err != nil || !owner.Active || owner.Email == "" {
			continue
		}
		summaries := make([]email.LeadSummary, 0, len(byOwner[ownerID]))
		for _, id := range byOwner[ownerID] {
			lead, err := m.leads.GetByID(ctx, id)
			if err != nil {
				continue
			}
			summaries = append(summaries, m.summary(lead))
		}
		if len(summaries) == 0 {
			continue
		}
		if err := m.sender.SendLeadsTransferredEmail(ctx, owner.Email, owner.Username, summaries); err != nil {
			m.log.Error("transfer notification failed", "ownerId", ownerID, "leads", len(summaries), "error", err)
		}
	}
	m.log.Info("bulk transfer notified", "transferred", e.Transferred, "owners", len(owners))
	return nil
}

func (m *Module) summary(lead leadrepo.Lead) email.LeadSummary {
	return email.LeadSummary{
		ID:      lead.ID,
		Name:    lead.Name,
		Mobile:  lead.Mobile,
		Email:   lead.Email,
		City:    lead.City,
		Service: m.serviceLabel(lead.ServiceTypeID),
		Source:  domain.SourceName(lead.LeadSourceID),
	}
}

func (m *Module) serviceLabel(id int64) string {
	if m.labels == nil {
		return ""
	}
	return m.labels.Label(categories.AxisService, id)
}

func partnerLead(lead leadrepo.Lead) partner.Lead {
	return partner.Lead{
		ID:                lead.ID,
		Name:              lead.Name,
		AssignedTo:        lead.AssignedTo,
		MobileNumber:      lead.Mobile,
		Email:             lead.Email,
		City:              lead.City,
		WebsiteType:       lead.ServiceTypeID,
		IndustryType:      lead.IndustryTypeID,
		ContactPreference: lead.ContactPreferenceID,
		PreferredDate:     lead.PreferredDate,
		PreferredTimeSlot: lead.PreferredTime,
		LeadSource:        lead.LeadSourceID,
		CheckboxIDs:       lead.CheckboxIDs,
		Requirements:      lead.Requirements,
		CreatedAt:         lead.CreatedAt,
		UpdatedAt:         lead.UpdatedAt,
	}
}

var _ events.Handler = (*Module)(nil)
