// Package cms converts listing records to the ListingPro WordPress format
// and synchronizes them with a remote site.
package cms

import (
	"strconv"
	"strings"

	"github.com/starzmeet/listing-agent/internal/model"
	"github.com/starzmeet/listing-agent/internal/normalize"
	"github.com/starzmeet/listing-agent/pkg/listingpro"
)

const (
	defaultCategory = "Autism Services"
	maxGalleryItems = 10
)

// Convert maps a listing record to the ListingPro field names. Locations are
// attached only when the full Country > State > City path is known; partial
// paths would create broken taxonomy terms.
func Convert(rec model.ListingRecord) listingpro.Payload {
	var locationParts []string
	if strings.Contains(rec.Location, " > ") {
		locationParts = strings.Split(rec.Location, " > ")
	}
	if len(locationParts) < 3 {
		locationParts = []string{}
	}

	gallery := splitList(rec.Gallery)
	if len(gallery) > maxGalleryItems {
		gallery = gallery[:maxGalleryItems]
	}

	category := rec.Category
	if category == "" {
		category = defaultCategory
	}

	return listingpro.Payload{
		"title":           rec.Title,
		"description":     rec.Description,
		"tagline_text":    rec.Tagline,
		"phone":           rec.Phone,
		"email":           rec.Email,
		"website":         rec.Website,
		"gAddress":        rec.Address,
		"latitude":        strconv.FormatFloat(rec.Latitude, 'f', -1, 64),
		"longitude":       strconv.FormatFloat(rec.Longitude, 'f', -1, 64),
		"facebook":        rec.Facebook,
		"twitter":         rec.Twitter,
		"instagram":       rec.Instagram,
		"linkedin":        rec.LinkedIn,
		"youtube":         rec.YouTube,
		"video":           rec.YouTubeVideo,
		"price_status":    rec.PriceStatus,
		"list_price":      rec.PriceFrom,
		"list_price_to":   rec.PriceTo,
		"claimed_section": rec.ClaimStatus,
		"categories":      []string{category},
		"features":        splitList(rec.Features),
		"tags":            splitList(rec.Tags),
		"locations":       locationParts,
		"business_hours":  normalize.ParseHours(rec.BusinessHours),
		"logo_url":        rec.LogoImage,
		"featured_image":  rec.BannerImage,
		"gallery_images":  gallery,
		"status":          "publish",
	}
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
