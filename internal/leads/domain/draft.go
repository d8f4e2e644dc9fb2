// Package domain provides the canonical lead shapes shared by ingestion,
// assignment and persistence.
package domain

import "strings"

// Reference ids seeded by migration.
const (
	SourceWebsite int64 = 1
	SourceManual  int64 = 2
	SourceSocial  int64 = 3
	SourceAPI     int64 = 4

	StatusNew         int64 = 1
	LikelihoodUnknown int64 = 1

	ContactNotSpecified int64 = 0
	ContactCall         int64 = 1
)

var sourceNames = map[int64]string{
	SourceWebsite: "Website",
	SourceManual:  "Manual",
	SourceSocial:  "Social",
	SourceAPI:     "API",
}

// SourceName returns the seeded name of a lead source id.
func SourceName(id int64) string {
	if name, ok := sourceNames[id]; ok {
		return name
	}
	return "Unknown"
}

// Documented defaults for text fields an adapter could not fill.
const (
	DefaultName = "Unknown"
	DefaultCity = "Not mentioned"
)

// Draft is an adapter's output: a complete lead without id, owner or stored timestamps.
type Draft struct {
	Name                string
	Mobile              string
	Email               string
	City                string
	ServiceTypeID       int64
	IndustryTypeID      int64
	ContactPreferenceID int64
	PreferredDate       string
	PreferredTime       string
	Requirements        string
	LeadSourceID        int64
	CheckboxIDs         []int64
	StatusID            int64
	LikelihoodID        int64

	// AssignedTo is an owner chosen explicitly by the caller. Nil means the
	// owner is resolved from ServiceTypeID.
	AssignedTo *int64
	// CreatedAt is the civil creation time reported by the source
	// ("2006-01-02 15:04:05"). Empty means now.
	CreatedAt string
}

// WithDefaults fills every field left empty by an adapter.
// Mobile and email stay empty when they were dropped as invalid.
func (d Draft) WithDefaults() Draft {
	if strings.TrimSpace(d.Name) == "" {
		d.Name = DefaultName
	}
	if strings.TrimSpace(d.City) == "" {
		d.City = DefaultCity
	}
	if d.CheckboxIDs == nil {
		d.CheckboxIDs = []int64{}
	}
	if d.StatusID == 0 {
		d.StatusID = StatusNew
	}
	if d.LikelihoodID == 0 {
		d.LikelihoodID = LikelihoodUnknown
	}
	return d
}
