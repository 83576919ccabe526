// Package listingpro is a client for the ListingPro WordPress REST API.
package listingpro

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Listing is a published listing as returned by the list endpoint. Only the
// fields used for existence matching are decoded.
type Listing struct {
	ID       int64  `json:"id"`
	PostID   int64  `json:"post_id"`
	Title    string `json:"title"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	GAddress string `json:"gAddress"`
}

// EffectiveID returns the listing's post ID, falling back to the plain id
// field on older API versions.
func (l Listing) EffectiveID() int64 {
	if l.PostID != 0 {
		return l.PostID
	}
	return l.ID
}

// EffectiveAddress prefers the gAddress field over address.
func (l Listing) EffectiveAddress() string {
	if l.GAddress != "" {
		return l.GAddress
	}
	return l.Address
}

// Payload is the field map sent when creating or updating a listing.
type Payload map[string]any

// Client talks to a ListingPro-powered WordPress site.
type Client interface {
	ListListings(ctx context.Context) ([]Listing, error)
	CreateListing(ctx context.Context, p Payload) (int64, error)
	UpdateListing(ctx context.Context, id int64, p Payload) error
	DeleteListing(ctx context.Context, id int64) error
	BulkCreate(ctx context.Context, ps []Payload) error
}

type httpClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(h *httpClient) { h.client = c }
}

// NewClient creates a ListingPro client for the given WordPress site. The
// base URL may be either the site root ("https://example.com") or the full
// API root ("https://example.com/wp-json/listingpro/v1").
func NewClient(baseURL, apiKey string, opts ...Option) Client {
	base := strings.TrimRight(baseURL, "/")
	if !strings.Contains(base, "/wp-json/") {
		base += "/wp-json/listingpro/v1"
	}
	h := &httpClient{
		baseURL: base,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *httpClient) ListListings(ctx context.Context) ([]Listing, error) {
	body, err := h.do(ctx, http.MethodGet, "/listings", nil)
	if err != nil {
		return nil, eris.Wrap(err, "listingpro: list listings")
	}
	return decodeListings(body)
}

// decodeListings accepts the response shapes seen across ListingPro
// versions: {"listings": [...]}, {"data": [...]}, or a bare array.
func decodeListings(body []byte) ([]Listing, error) {
	var wrapped struct {
		Listings []Listing `json:"listings"`
		Data     []Listing `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil {
		if wrapped.Listings != nil {
			return wrapped.Listings, nil
		}
		if wrapped.Data != nil {
			return wrapped.Data, nil
		}
	}
	var bare []Listing
	if err := json.Unmarshal(body, &bare); err != nil {
		return nil, eris.Wrap(err, "listingpro: decode listings response")
	}
	return bare, nil
}

func (h *httpClient) CreateListing(ctx context.Context, p Payload) (int64, error) {
	body, err := h.do(ctx, http.MethodPost, "/listing", p)
	if err != nil {
		return 0, eris.Wrap(err, "listingpro: create listing")
	}
	var resp struct {
		PostID int64 `json:"post_id"`
		ID     int64 `json:"id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, eris.Wrap(err, "listingpro: decode create response")
	}
	if resp.PostID != 0 {
		return resp.PostID, nil
	}
	return resp.ID, nil
}

func (h *httpClient) UpdateListing(ctx context.Context, id int64, p Payload) error {
	if _, err := h.do(ctx, http.MethodPut, fmt.Sprintf("/listing/%d", id), p); err != nil {
		return eris.Wrapf(err, "listingpro: update listing %d", id)
	}
	return nil
}

func (h *httpClient) DeleteListing(ctx context.Context, id int64) error {
	if _, err := h.do(ctx, http.MethodDelete, fmt.Sprintf("/listing/%d", id), nil); err != nil {
		return eris.Wrapf(err, "listingpro: delete listing %d", id)
	}
	return nil
}

func (h *httpClient) BulkCreate(ctx context.Context, ps []Payload) error {
	payload := map[string]any{"listings": ps}
	if _, err := h.do(ctx, http.MethodPost, "/listings/bulk", payload); err != nil {
		return eris.Wrap(err, "listingpro: bulk create")
	}
	return nil
}

func (h *httpClient) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, eris.Wrap(err, "marshal payload")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, body)
	if err != nil {
		return nil, eris.Wrap(err, "build request")
	}
	req.Header.Set("X-API-Key", h.apiKey)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, eris.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(data), 200))
	}
	return data, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
