// Package google provides a client for the Google Places API (v1).
package google

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://places.googleapis.com/v1"

// fieldMask selects the wide, fixed field set the pipeline consumes.
const fieldMask = "id,displayName,formattedAddress,location,rating,userRatingCount," +
	"priceLevel,businessStatus,types,websiteUri,nationalPhoneNumber," +
	"internationalPhoneNumber,regularOpeningHours,editorialSummary,photos,reviews,googleMapsUri"

// Client performs Google Places API operations.
type Client interface {
	// SearchText runs one page of a text search query.
	SearchText(ctx context.Context, query string, pageSize int) ([]Place, error)
	// Details fetches the full record for one place.
	Details(ctx context.Context, placeID string) (Place, error)
}

// TextSearchResponse is the response from Places Text Search.
type TextSearchResponse struct {
	Places []Place `json:"places"`
}

// Place represents a place returned by the API.
type Place struct {
	ID                       string         `json:"id"`
	DisplayName              DisplayName    `json:"displayName"`
	FormattedAddress         string         `json:"formattedAddress"`
	Location                 LatLng         `json:"location"`
	Rating                   float64        `json:"rating"`
	UserRatingCount          int            `json:"userRatingCount"`
	PriceLevel               string         `json:"priceLevel"`
	BusinessStatus           string         `json:"businessStatus"`
	Types                    []string       `json:"types"`
	WebsiteURI               string         `json:"websiteUri"`
	NationalPhoneNumber      string         `json:"nationalPhoneNumber"`
	InternationalPhoneNumber string         `json:"internationalPhoneNumber"`
	RegularOpeningHours      *OpeningHours  `json:"regularOpeningHours"`
	EditorialSummary         *LocalizedText `json:"editorialSummary"`
	Photos                   []Photo        `json:"photos"`
	GoogleMapsURI            string         `json:"googleMapsUri"`
}

// DisplayName holds the place's display name.
type DisplayName struct {
	Text string `json:"text"`
}

// LatLng is a geocoordinate pair.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// OpeningHours holds the weekly schedule as human-readable lines.
type OpeningHours struct {
	WeekdayDescriptions []string `json:"weekdayDescriptions"`
}

// LocalizedText is a localized string value.
type LocalizedText struct {
	Text string `json:"text"`
}

// Photo is a photo reference; Name is the resource path used to build a
// media URL.
type Photo struct {
	Name string `json:"name"`
}

// Phone returns the national phone number, falling back to international.
func (p Place) Phone() string {
	if p.NationalPhoneNumber != "" {
		return p.NationalPhoneNumber
	}
	return p.InternationalPhoneNumber
}

// Merge combines a text-search result with its detail-fetch counterpart.
// Detail fields win on overlap; base fields fill anything the detail fetch
// left empty (including when the detail fetch failed and detail is zero).
func Merge(base, detail Place) Place {
	out := detail
	if out.ID == "" {
		out.ID = base.ID
	}
	if out.DisplayName.Text == "" {
		out.DisplayName = base.DisplayName
	}
	if out.FormattedAddress == "" {
		out.FormattedAddress = base.FormattedAddress
	}
	if out.Location == (LatLng{}) {
		out.Location = base.Location
	}
	if out.Rating == 0 {
		out.Rating = base.Rating
	}
	if out.UserRatingCount == 0 {
		out.UserRatingCount = base.UserRatingCount
	}
	if out.PriceLevel == "" {
		out.PriceLevel = base.PriceLevel
	}
	if out.BusinessStatus == "" {
		out.BusinessStatus = base.BusinessStatus
	}
	if len(out.Types) == 0 {
		out.Types = base.Types
	}
	if out.WebsiteURI == "" {
		out.WebsiteURI = base.WebsiteURI
	}
	if out.NationalPhoneNumber == "" {
		out.NationalPhoneNumber = base.NationalPhoneNumber
	}
	if out.InternationalPhoneNumber == "" {
		out.InternationalPhoneNumber = base.InternationalPhoneNumber
	}
	if out.RegularOpeningHours == nil {
		out.RegularOpeningHours = base.RegularOpeningHours
	}
	if out.EditorialSummary == nil {
		out.EditorialSummary = base.EditorialSummary
	}
	if len(out.Photos) == 0 {
		out.Photos = base.Photos
	}
	if out.GoogleMapsURI == "" {
		out.GoogleMapsURI = base.GoogleMapsURI
	}
	return out
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a Google Places API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type textSearchRequest struct {
	TextQuery      string `json:"textQuery"`
	MaxResultCount int    `json:"maxResultCount"`
}

func (c *httpClient) SearchText(ctx context.Context, query string, pageSize int) ([]Place, error) {
	body, err := json.Marshal(textSearchRequest{TextQuery: query, MaxResultCount: pageSize})
	if err != nil {
		return nil, eris.Wrap(err, "google: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/places:searchText", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "google: create request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", prefixMask("places."))

	respBody, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var result TextSearchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "google: unmarshal response")
	}
	return result.Places, nil
}

func (c *httpClient) Details(ctx context.Context, placeID string) (Place, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/places/"+placeID, nil)
	if err != nil {
		return Place{}, eris.Wrap(err, "google: create request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	respBody, err := c.do(req)
	if err != nil {
		return Place{}, err
	}

	var place Place
	if err := json.Unmarshal(respBody, &place); err != nil {
		return Place{}, eris.Wrap(err, "google: unmarshal place")
	}
	return place, nil
}

func (c *httpClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "google: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "google: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("google: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}
