// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"sales_leads_backend/platform/events"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Lead Domain Events
// =============================================================================

// LeadCreated is published after a lead has been committed by any ingestion path.
type LeadCreated struct {
	BaseEvent
	LeadID        int64  `json:"leadId"`
	AssignedTo    int64  `json:"assignedTo"`
	ServiceTypeID int64  `json:"serviceTypeId"`
	LeadSourceID  int64  `json:"leadSourceId"`
	LeadName      string `json:"leadName"`
	Mobile        string `json:"mobile,omitempty"`
	Email         string `json:"email,omitempty"`
	// Channel names the ingestion path: "direct", "social", "website".
	Channel string `json:"channel"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadsTransferred is published after a bulk transfer batch has committed.
type LeadsTransferred struct {
	BaseEvent
	Transferred int     `json:"transferred"`
	LeadIDs     []int64 `json:"leadIds"`
	Owners      []int64 `json:"owners"`
}

func (e LeadsTransferred) EventName() string { return "leads.bulk.transferred" }

// LeadDeleted is published after a lead and its followups were removed.
type LeadDeleted struct {
	BaseEvent
	LeadID    int64 `json:"leadId"`
	DeletedBy int64 `json:"deletedBy"`
}

func (e LeadDeleted) EventName() string { return "leads.lead.deleted" }

// =============================================================================
// Website Form Events
// =============================================================================

// WebsiteFormSubmitted carries the submitted form so the partner can be notified.
type WebsiteFormSubmitted struct {
	BaseEvent
	LeadID        int64    `json:"leadId"`
	FullName      string   `json:"fullName"`
	MobileNumber  string   `json:"mobileNumber"`
	Email         string   `json:"email"`
	City          string   `json:"cityName"`
	Service       string   `json:"selectedService"`
	Industry      string   `json:"selectedIndustry"`
	ContactMethod string   `json:"preferredContactMethod"`
	Date          string   `json:"date"`
	Timing        string   `json:"selectTiming"`
	BusinessNeeds []string `json:"businessNeeds"`
	Requirements  string   `json:"requirements"`
}

func (e WebsiteFormSubmitted) EventName() string { return "webhook.website_form.submitted" }

// =============================================================================
// User Domain Events
// =============================================================================

// UserDeactivated is published when an admin soft-deletes a user.
type UserDeactivated struct {
	BaseEvent
	UserID int64 `json:"userId"`
	ByID   int64 `json:"byId"`
}

func (e UserDeactivated) EventName() string { return "users.user.deactivated" }
