package transport

import (
	"sales_leads_backend/internal/leads/access"
	"sales_leads_backend/internal/leads/repository"
)

// UpdateLeadRequest replaces every editable field of a lead.
type UpdateLeadRequest struct {
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
	LeadSourceID        int64   `json:"leadSourceId" validate:"required,min=1"`
	CheckboxIDs         []int64 `json:"checkboxIds" validate:"omitempty,dive,min=1"`
	StatusID            int64   `json:"statusId" validate:"required,min=1"`
	LikelihoodID        int64   `json:"likelihoodId" validate:"required,min=1"`
	// AssignedTo moves the lead to another active user. Nil keeps the current owner.
	AssignedTo *int64 `json:"assignedTo" validate:"omitempty,min=1"`
}

type UpdateStatusRequest struct {
	StatusID int64 `json:"statusId" validate:"required,min=1"`
}

type UpdateLikelihoodRequest struct {
	LikelihoodID int64 `json:"likelihoodId" validate:"required,min=1"`
}

// ListQuery selects a visibility view and optional civil date ranges.
type ListQuery struct {
	View        string `form:"view"`
	CreatedFrom string `form:"createdFrom"`
	CreatedTo   string `form:"createdTo"`
	UpdatedFrom string `form:"updatedFrom"`
	UpdatedTo   string `form:"updatedTo"`
}

func (q ListQuery) Filters() access.Filters {
	return access.Filters{
		Created: access.DateRange{From: q.CreatedFrom, To: q.CreatedTo},
		Updated: access.DateRange{From: q.UpdatedFrom, To: q.UpdatedTo},
	}
}

// CreateFollowupForm is the multipart body of POST /followups.
// The optional document arrives in the "document" file part.
type CreateFollowupForm struct {
	LeadID         int64  `form:"leadId" validate:"required,min=1"`
	Description    string `form:"description" validate:"required,notblank,max=4000"`
	Medium         string `form:"medium" validate:"max=64"`
	FollowupDate   string `form:"followupDate" validate:"required,datetime=2006-01-02T15:04|datetime=2006-01-02 15:04:05"`
	DocDescription string `form:"docDescription" validate:"max=500"`
	AttendedBy     *int64 `form:"attendedBy" validate:"omitempty,min=1"`
}

type LeadResponse struct {
	ID                  int64   `json:"id"`
	Name                string  `json:"name"`
	Mobile              string  `json:"mobile"`
	Email               string  `json:"email"`
	City                string  `json:"city"`
	ServiceTypeID       int64   `json:"serviceTypeId"`
	IndustryTypeID      int64   `json:"industryTypeId"`
	ContactPreferenceID int64   `json:"contactPreferenceId"`
	PreferredDate       string  `json:"preferredDate"`
	PreferredTime       string  `json:"preferredTime"`
	Requirements        string  `json:"requirements"`
	LeadSourceID        int64   `json:"leadSourceId"`
	CheckboxIDs         []int64 `json:"checkboxIds"`
	StatusID            int64   `json:"statusId"`
	LikelihoodID        int64   `json:"likelihoodId"`
	AssignedTo          int64   `json:"assignedTo"`
	CreatedAt           string  `json:"createdAt"`
	UpdatedAt           string  `json:"updatedAt"`
}

type LeadListResponse struct {
	View  string         `json:"view"`
	Items []LeadResponse `json:"items"`
	Total int            `json:"total"`
}

type FollowupResponse struct {
	ID             int64   `json:"id"`
	LeadID         int64   `json:"leadId"`
	Description    string  `json:"description"`
	Medium         string  `json:"medium"`
	AttendedBy     int64   `json:"attendedBy"`
	FollowupDate   string  `json:"followupDate"`
	DocRef         *string `json:"docRef,omitempty"`
	DocURL         string  `json:"docUrl,omitempty"`
	DocDescription *string `json:"docDescription,omitempty"`
	CreatedAt      string  `json:"createdAt"`
	UpdatedAt      string  `json:"updatedAt"`
}

type LeadFollowupsResponse struct {
	Lead      LeadResponse       `json:"lead"`
	Followups []FollowupResponse `json:"followups"`
}

type TodayFollowupsResponse struct {
	Day       string             `json:"day"`
	Total     int                `json:"total"`
	Followups []FollowupResponse `json:"followups"`
}

type StatusCountResponse struct {
	StatusID int64  `json:"statusId"`
	Status   string `json:"status"`
	Count    int64  `json:"count"`
}

type CountsResponse struct {
	View     string                `json:"view"`
	Statuses []StatusCountResponse `json:"statuses"`
	Total    int64                 `json:"total"`
}

type SourceShareResponse struct {
	SourceID int64   `json:"sourceId"`
	Source   string  `json:"source"`
	Count    int64   `json:"count"`
	Percent  float64 `json:"percent"`
}

func ToLeadResponse(l repository.Lead) LeadResponse {
	return LeadResponse{
		ID:                  l.ID,
		Name:                l.Name,
		Mobile:              l.Mobile,
		Email:               l.Email,
		City:                l.City,
		ServiceTypeID:       l.ServiceTypeID,
		IndustryTypeID:      l.IndustryTypeID,
		ContactPreferenceID: l.ContactPreferenceID,
		PreferredDate:       l.PreferredDate,
		PreferredTime:       l.PreferredTime,
		Requirements:        l.Requirements,
		LeadSourceID:        l.LeadSourceID,
		CheckboxIDs:         l.CheckboxIDs,
		StatusID:            l.StatusID,
		LikelihoodID:        l.LikelihoodID,
		AssignedTo:          l.AssignedTo,
		CreatedAt:           l.CreatedAt,
		UpdatedAt:           l.UpdatedAt,
	}
}

func ToLeadResponses(leads []repository.Lead) []LeadResponse {
	out := make([]LeadResponse, 0, len(leads))
	for _, l := range leads {
		out = append(out, ToLeadResponse(l))
	}
	return out
}

func ToFollowupResponse(f repository.Followup) FollowupResponse {
	return FollowupResponse{
		ID:             f.ID,
		LeadID:         f.LeadID,
		Description:    f.Description,
		Medium:         f.Medium,
		AttendedBy:     f.AttendedBy,
		FollowupDate:   f.FollowupDate,
		DocRef:         f.DocRef,
		DocDescription: f.DocDescription,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}
