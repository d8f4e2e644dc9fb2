// Package management handles the lead lifecycle: creation through any ingestion
// path, whole-record updates, classification patches and cascading deletes.
package management

import (
	"context"
	"errors"

	"sales_leads_backend/internal/events"
	"sales_leads_backend/internal/ingest/source"
	"sales_leads_backend/internal/leads/domain"
	"sales_leads_backend/internal/leads/repository"
	"sales_leads_backend/internal/leads/transport"
	"sales_leads_backend/platform/apperr"
	"sales_leads_backend/platform/logger"
)

// Repository defines the data access interface needed by the management service.
type Repository interface {
	repository.LeadReader
	repository.LeadWriter
	repository.LeadPatcher
}

// Assigner picks the owner of a new lead.
type Assigner interface {
	Assign(ctx context.Context, explicit *int64, serviceTypeID int64) (int64, error)
}

// Channel names the ingestion path a lead arrived through.
type Channel string

const (
	ChannelDirect  Channel = "direct"
	ChannelSocial  Channel = "social"
	ChannelWebsite Channel = "website"
)

// Service handles lead management operations.
type Service struct {
	repo     Repository
	assigner Assigner
	direct   *source.DirectAdapter
	eventBus events.Bus
	log      *logger.Logger
}

// New creates a new lead management service.
func New(repo Repository, assigner Assigner, direct *source.DirectAdapter, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, assigner: assigner, direct: direct, eventBus: eventBus, log: log}
}

// Create parses a manual or API submission and ingests it.
func (s *Service) Create(ctx context.Context, raw []byte) (repository.Lead, error) {
	draft, err := s.direct.Parse(ctx, raw)
	if err != nil {
		return repository.Lead{}, err
	}
	return s.Ingest(ctx, draft, ChannelDirect)
}

// Ingest resolves the owner of a normalized draft, stores it and publishes
// LeadCreated once the row is committed.
func (s *Service) Ingest(ctx context.Context, draft domain.Draft, channel Channel) (repository.Lead, error) {
	draft = draft.WithDefaults()

	owner, err := s.assigner.Assign(ctx, draft.AssignedTo, draft.ServiceTypeID)
	if err != nil {
		return repository.Lead{}, err
	}

	lead, err := s.repo.Create(ctx, repository.CreateLeadParams{
		LeadFields: repository.FieldsFromDraft(draft, owner),
		CreatedAt:  draft.CreatedAt,
	})
	if err != nil {
		return repository.Lead{}, translate("management.Ingest", err)
	}

	s.log.WithContext(ctx).Info("lead created",
		"leadId", lead.ID, "assignedTo", lead.AssignedTo, "serviceTypeId", lead.ServiceTypeID, "channel", string(channel))

	s.eventBus.Publish(ctx, events.LeadCreated{
		BaseEvent:     events.NewBaseEvent(),
		LeadID:        lead.ID,
		AssignedTo:    lead.AssignedTo,
		ServiceTypeID: lead.ServiceTypeID,
		LeadSourceID:  lead.LeadSourceID,
		LeadName:      lead.Name,
		Mobile:        lead.Mobile,
		Email:         lead.Email,
		Channel:       string(channel),
	})
	return lead, nil
}

// GetByID retrieves a lead by ID.
func (s *Service) GetByID(ctx context.Context, id int64) (repository.Lead, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return repository.Lead{}, translate("management.GetByID", err)
	}
	return lead, nil
}

// Update replaces every editable field. The owner only changes when the
// request names one explicitly.
func (s *Service) Update(ctx context.Context, id int64, req transport.UpdateLeadRequest) (repository.Lead, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return repository.Lead{}, translate("management.Update", err)
	}

	// TODO: decide whether a changed service type should re-route the owner;
	// today the stored owner is kept unless the request names a new one.
	owner := current.AssignedTo
	if req.AssignedTo != nil && *req.AssignedTo != current.AssignedTo {
		owner, err = s.assigner.Assign(ctx, req.AssignedTo, req.ServiceTypeID)
		if err != nil {
			return repository.Lead{}, err
		}
	}

	draft := s.direct.FromManual(source.ManualLead{
		Name:                req.Name,
		Mobile:              req.Mobile,
		Email:               req.Email,
		City:                req.City,
		ServiceTypeID:       req.ServiceTypeID,
		IndustryTypeID:      req.IndustryTypeID,
		ContactPreferenceID: req.ContactPreferenceID,
		PreferredDate:       req.PreferredDate,
		PreferredTime:       req.PreferredTime,
		Requirements:        req.Requirements,
		LeadSourceID:        req.LeadSourceID,
		CheckboxIDs:         req.CheckboxIDs,
		StatusID:            req.StatusID,
		LikelihoodID:        req.LikelihoodID,
	})

	lead, err := s.repo.Update(ctx, id, repository.UpdateLeadParams{LeadFields: repository.FieldsFromDraft(draft, owner)})
	if err != nil {
		return repository.Lead{}, translate("management.Update", err)
	}
	return lead, nil
}

// UpdateStatus patches the status of a lead.
func (s *Service) UpdateStatus(ctx context.Context, id, statusID int64) (repository.Lead, error) {
	lead, err := s.repo.UpdateStatus(ctx, id, statusID)
	if err != nil {
		return repository.Lead{}, translate("management.UpdateStatus", err)
	}
	return lead, nil
}

// UpdateLikelihood patches the likelihood of a lead.
func (s *Service) UpdateLikelihood(ctx context.Context, id, likelihoodID int64) (repository.Lead, error) {
	lead, err := s.repo.UpdateLikelihood(ctx, id, likelihoodID)
	if err != nil {
		return repository.Lead{}, translate("management.UpdateLikelihood", err)
	}
	return lead, nil
}

// Delete removes a lead together with its followups.
func (s *Service) Delete(ctx context.Context, id, actorID int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return translate("management.Delete", err)
	}
	s.eventBus.Publish(ctx, events.LeadDeleted{BaseEvent: events.NewBaseEvent(), LeadID: id, DeletedBy: actorID})
	return nil
}

// translate maps repository sentinels onto typed application errors.
func translate(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound("lead not found").WithOp(op)
	case errors.Is(err, repository.ErrInvalidReference):
		return apperr.Wrap(apperr.KindValidation, "referenced record does not exist", err).WithOp(op)
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Transient(op, err)
}
