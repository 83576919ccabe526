// Package model defines the canonical listing types shared across the
// discovery, enrichment, and sync stages.
package model

import "time"

// Record lifecycle status, recomputed each run. Records written this run are
// New; records loaded from storage without being re-scraped are Old.
const (
	StatusNew = "New"
	StatusOld = "Old"
)

// EnrichmentResult holds website-derived metadata for one business. It is
// always fully shaped: every field is present, possibly empty, so downstream
// code never null-checks per field.
type EnrichmentResult struct {
	Twitter      string `json:"twitter"`
	Facebook     string `json:"facebook"`
	LinkedIn     string `json:"linkedin"`
	GooglePlus   string `json:"google_plus"`
	YouTube      string `json:"youtube"`
	Instagram    string `json:"instagram"`
	YouTubeVideo string `json:"youtube_video_url"`

	LogoURL   string `json:"logo_url"`
	BannerURL string `json:"banner_url"`

	Description string `json:"description"` // HTML
	Tagline     string `json:"tagline"`
	Email       string `json:"email"`
	Category    string `json:"category"`
	Features    string `json:"features"` // comma-joined
	Tags        string `json:"tags"`     // comma-joined
}

// ListingRecord is the canonical, storage- and export-ready representation of
// one business. PlaceID is the primary key; re-processing the same identifier
// overwrites the record in place.
type ListingRecord struct {
	PlaceID     string  `json:"place_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"` // HTML
	Tagline     string  `json:"tagline"`
	Address     string  `json:"address"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Phone       string  `json:"phone"`
	Email       string  `json:"email"`
	Website     string  `json:"website"`

	Twitter      string `json:"twitter"`
	Facebook     string `json:"facebook"`
	LinkedIn     string `json:"linkedin"`
	GooglePlus   string `json:"google_plus"`
	YouTube      string `json:"youtube"`
	Instagram    string `json:"instagram"`
	YouTubeVideo string `json:"youtube_video_url"`

	LogoImage   string `json:"logo_image"`
	BannerImage string `json:"banner_image"`

	PriceStatus string `json:"price_status"` // "", "Free", "$".."$$$$"
	PriceFrom   string `json:"price_from"`
	PriceTo     string `json:"price_to"`

	ClaimStatus   string `json:"claim_status"`
	FaqQuestions  string `json:"faq_questions"` // pipe-separated
	FaqAnswers    string `json:"faq_answers"`   // pipe-separated
	Gallery       string `json:"gallery"`       // comma-joined media URLs
	PricingPlanID string `json:"pricing_plan_id"`

	// BusinessHours uses the pipe/comma encoding: "Day,Open,Close|Day,Open,Close".
	BusinessHours string `json:"business_hours"`

	Category string `json:"category"`
	Features string `json:"features"`
	Tags     string `json:"tags"`

	// Location is the hierarchical "Country > State > City" path.
	Location string `json:"location"`
	Status   string `json:"status"`
}

// SyncState tracks the remote CMS state of one stored record. Mutated only
// after a confirmed remote outcome.
type SyncState struct {
	Synced     bool       `json:"synced"`
	CMSPostID  *int64     `json:"cms_post_id,omitempty"`
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
}

// StoredRecord is a listing record as held by the persistence store, with its
// location tag, scrape timestamp, and sync state.
type StoredRecord struct {
	Record    ListingRecord `json:"record"`
	Location  string        `json:"location"`
	ScrapedAt time.Time     `json:"scraped_at"`
	Sync      SyncState     `json:"sync"`
}

// SearchKeyword drives which category queries the discovery engine issues.
type SearchKeyword struct {
	ID        int64      `json:"id"`
	Keyword   string     `json:"keyword"`
	Category  string     `json:"category"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"created_at"`
	LastUsed  *time.Time `json:"last_used,omitempty"`
}
