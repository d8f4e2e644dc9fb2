package management

import (
	"context"
	"fmt"
	"strings"

	"sales_leads_backend/internal/adapters/storage"
	"sales_leads_backend/internal/leads/repository"
	"sales_leads_backend/internal/leads/transport"
	"sales_leads_backend/platform/apperr"
	"sales_leads_backend/platform/clock"
	"sales_leads_backend/platform/logger"
	"sales_leads_backend/platform/sanitize"
)

// FollowupRepository is what the followup service needs from persistence.
type FollowupRepository interface {
	repository.LeadReader
	repository.FollowupStore
}

// FollowupService records contact attempts on leads.
type FollowupService struct {
	repo  FollowupRepository
	docs  storage.DocumentStore
	clock clock.Clock
	log   *logger.Logger
}

// NewFollowupService creates the service. docs may be nil when object storage
// is not configured; uploads are then rejected.
func NewFollowupService(repo FollowupRepository, docs storage.DocumentStore, clk clock.Clock, log *logger.Logger) *FollowupService {
	if clk == nil {
		clk = clock.System{}
	}
	return &FollowupService{repo: repo, docs: docs, clock: clk, log: log}
}

// Create stores a followup. An attached document is uploaded first and removed
// again if the followup cannot be saved.
func (s *FollowupService) Create(ctx context.Context, actorID int64, form transport.CreateFollowupForm, doc *storage.Document) (repository.Followup, error) {
	if _, err := s.repo.GetByID(ctx, form.LeadID); err != nil {
		return repository.Followup{}, translate("followups.Create", err)
	}

	attendedBy := actorID
	if form.AttendedBy != nil {
		attendedBy = *form.AttendedBy
	}

	params := repository.CreateFollowupParams{
		LeadID:       form.LeadID,
		Description:  sanitize.Text(form.Description),
		Medium:       sanitize.Text(form.Medium),
		AttendedBy:   attendedBy,
		FollowupDate: strings.Replace(form.FollowupDate, "T", " ", 1),
	}
	if d := sanitize.Text(form.DocDescription); d != "" {
		params.DocDescription = &d
	}

	if doc != nil {
		if s.docs == nil {
			return repository.Followup{}, apperr.BadRequest("document uploads are not enabled")
		}
		if err := storage.ValidateContentType(doc.ContentType); err != nil {
			return repository.Followup{}, apperr.Validation("invalid document").WithDetails(err.Error())
		}
		key, err := s.docs.Upload(ctx, fmt.Sprintf("leads/%d", form.LeadID), *doc)
		if err != nil {
			return repository.Followup{}, apperr.Wrap(apperr.KindInternal, "document upload failed", err)
		}
		params.DocRef = &key
	}

	f, err := s.repo.CreateFollowup(ctx, params)
	if err != nil {
		if params.DocRef != nil {
			if delErr := s.docs.Delete(context.WithoutCancel(ctx), *params.DocRef); delErr != nil {
				s.log.WithContext(ctx).Warn("orphaned followup document", "fileKey", *params.DocRef, "error", delErr)
			}
		}
		return repository.Followup{}, translate("followups.Create", err)
	}
	return f, nil
}

// ListForLead returns the lead with its followups, newest first.
func (s *FollowupService) ListForLead(ctx context.Context, leadID int64) (repository.Lead, []transport.FollowupResponse, error) {
	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		return repository.Lead{}, nil, translate("followups.ListForLead", err)
	}
	items, err := s.repo.ListFollowups(ctx, leadID)
	if err != nil {
		return repository.Lead{}, nil, translate("followups.ListForLead", err)
	}
	return lead, s.withLinks(ctx, items), nil
}

// Today returns the followups the user attends on the current civil day.
func (s *FollowupService) Today(ctx context.Context, userID int64) (string, []transport.FollowupResponse, error) {
	day := clock.CivilDate(s.clock.Now())
	items, err := s.repo.ListTodayFollowups(ctx, userID, day)
	if err != nil {
		return "", nil, translate("followups.Today", err)
	}
	return day, s.withLinks(ctx, items), nil
}

// withLinks presigns document links. A failed presign leaves the link empty.
func (s *FollowupService) withLinks(ctx context.Context, items []repository.Followup) []transport.FollowupResponse {
	out := make([]transport.FollowupResponse, 0, len(items))
	for _, f := range items {
		resp := transport.ToFollowupResponse(f)
		if f.DocRef != nil && s.docs != nil {
			link, err := s.docs.DownloadURL(ctx, *f.DocRef)
			if err != nil {
				s.log.WithContext(ctx).Warn("presign followup document failed", "fileKey", *f.DocRef, "error", err)
			} else {
				resp.DocURL = link.URL
			}
		}
		out = append(out, resp)
	}
	return out
}
