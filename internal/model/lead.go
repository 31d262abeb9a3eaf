// Package model defines the core domain types shared across the hub:
// leads, users and their quotas, enrichment runs, and notifications.
package model

import "time"

// Category classifies the source of a contract opportunity.
type Category string

const (
	CategoryFederal    Category = "federal"
	CategoryState      Category = "state"
	CategoryCity       Category = "city"
	CategoryEducation  Category = "education"
	CategoryCommercial Category = "commercial"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryFederal, CategoryState, CategoryCity, CategoryEducation, CategoryCommercial:
		return true
	}
	return false
}

// DataSource records the provenance of a lead record.
type DataSource string

const (
	DataSourceAPI    DataSource = "api"
	DataSourceAI     DataSource = "ai-generated"
	DataSourceManual DataSource = "manual"
)

// Lead is a single contract opportunity shown to subscribers.
//
// ID is the internal surrogate key; ExternalID is the feed-assigned
// identifier, unique within a category. ContactEmail and SourceURL are the
// protected fields gated behind the free-tier quota; both are nullable and
// may be backfilled later by the enrichment scheduler.
type Lead struct {
	ID           int64      `json:"id"`
	ExternalID   string     `json:"external_id"`
	Category     Category   `json:"category"`
	Title        string     `json:"title"`
	Agency       string     `json:"agency,omitempty"`
	Location     string     `json:"location,omitempty"`
	Description  string     `json:"description,omitempty"`
	ContactEmail *string    `json:"contact_email,omitempty"`
	SourceURL    *string    `json:"source_url,omitempty"`
	DataSource   DataSource `json:"data_source"`
	PostedAt     *time.Time `json:"posted_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NeedsSourceURL reports whether the lead is a candidate for URL enrichment.
func (l Lead) NeedsSourceURL() bool {
	return l.SourceURL == nil || *l.SourceURL == ""
}

// Redacted returns a copy of the lead with the protected contact fields
// removed, for responses where access was not granted.
func (l Lead) Redacted() Lead {
	l.ContactEmail = nil
	l.SourceURL = nil
	return l
}
