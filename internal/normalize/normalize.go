// Package normalize assembles the canonical listing record from Places API
// data and website enrichment, including price tiers, business hours, and
// photo media URLs.
package normalize

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/starzmeet/listing-agent/internal/model"
	"github.com/starzmeet/listing-agent/pkg/google"
)

// priceTiers maps Places API price levels to the display tier and the
// indicative price band used by the CMS.
var priceTiers = map[string][3]string{
	"PRICE_LEVEL_FREE":           {"Free", "0", "0"},
	"PRICE_LEVEL_INEXPENSIVE":    {"$", "1", "50"},
	"PRICE_LEVEL_MODERATE":       {"$$", "51", "100"},
	"PRICE_LEVEL_EXPENSIVE":      {"$$$", "101", "200"},
	"PRICE_LEVEL_VERY_EXPENSIVE": {"$$$$", "201", "500"},
}

// PriceInfo maps a Places price level to its display status and price band.
// Unknown levels map to three empty strings.
func PriceInfo(level string) (status, from, to string) {
	tier, ok := priceTiers[level]
	if !ok {
		return "", "", ""
	}
	return tier[0], tier[1], tier[2]
}

var meridiemRe = regexp.MustCompile(`([AP]M)`)

// cleanTime converts a Places clock time like "9:00 AM" (possibly with a
// narrow no-break space before the meridiem) to 24-hour "09:00". Unparseable
// values pass through unchanged.
func cleanTime(t string) string {
	t = meridiemRe.ReplaceAllString(t, " $1")
	t = strings.ReplaceAll(t, " ", "")
	t = strings.TrimSpace(t)
	parsed, err := time.Parse("3:04 PM", t)
	if err != nil {
		return t
	}
	return parsed.Format("15:04")
}

// FormatHours encodes weekly opening hours as
// "Day,Open,Close|Day,Open,Close" with 24-hour times, "Closed,Closed" for
// closed days. Lines that do not parse are logged and dropped.
func FormatHours(hours *google.OpeningHours) string {
	if hours == nil || len(hours.WeekdayDescriptions) == 0 {
		return ""
	}
	var entries []string
	for _, line := range hours.WeekdayDescriptions {
		day, times, ok := strings.Cut(line, ": ")
		if !ok {
			zap.L().Error("normalize: unparseable hours line", zap.String("line", line))
			continue
		}
		if strings.Contains(times, "Closed") {
			entries = append(entries, day+",Closed,Closed")
			continue
		}
		open, close, ok := strings.Cut(times, "–")
		if !ok {
			zap.L().Error("normalize: unparseable hours range", zap.String("line", line))
			continue
		}
		entries = append(entries, fmt.Sprintf("%s,%s,%s",
			day, cleanTime(strings.TrimSpace(open)), cleanTime(strings.TrimSpace(close))))
	}
	return strings.Join(entries, "|")
}

// DayHours is one day's opening span from a decoded hours string.
type DayHours struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// ParseHours decodes the "Day,Open,Close|..." encoding into a per-day map.
// Malformed segments are skipped. The order of days is lost; callers that
// need it should keep the encoded string.
func ParseHours(encoded string) map[string]DayHours {
	out := map[string]DayHours{}
	if encoded == "" {
		return out
	}
	for _, entry := range strings.Split(encoded, "|") {
		parts := strings.Split(entry, ",")
		if len(parts) != 3 {
			continue
		}
		out[parts[0]] = DayHours{Open: parts[1], Close: parts[2]}
	}
	return out
}

// PhotoURLs builds Places media URLs for the given photo references.
func PhotoURLs(photos []google.Photo, apiKey string) []string {
	urls := make([]string, 0, len(photos))
	for _, p := range photos {
		if p.Name == "" {
			continue
		}
		urls = append(urls, fmt.Sprintf(
			"https://places.googleapis.com/v1/%s/media?maxHeightPx=500&key=%s", p.Name, apiKey))
	}
	return urls
}

// FallbackDescription renders the minimal HTML blurb used when website
// enrichment produced no description.
func FallbackDescription(name, location string) string {
	return fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0; padding: 10px;"><p style="color: #555; font-size: 14px; line-height: 1.5;">%s provides autism-related services in %s. Please visit their website for more information.</p></div>`,
		name, location)
}

const defaultCategory = "Autism Services"

// BuildRecord assembles the canonical record for one place from its merged
// Places data, website enrichment, and classified location path. The
// location argument is the human search location used only in the fallback
// description.
func BuildRecord(place google.Place, enrich model.EnrichmentResult, locationPath, searchLocation, apiKey string) model.ListingRecord {
	description := enrich.Description
	if description == "" {
		description = FallbackDescription(place.DisplayName.Text, searchLocation)
	}
	category := enrich.Category
	if category == "" {
		category = defaultCategory
	}
	status, from, to := PriceInfo(place.PriceLevel)

	return model.ListingRecord{
		PlaceID:     place.ID,
		Title:       place.DisplayName.Text,
		Description: description,
		Tagline:     enrich.Tagline,
		Address:     place.FormattedAddress,
		Latitude:    place.Location.Latitude,
		Longitude:   place.Location.Longitude,
		Phone:       place.Phone(),
		Email:       enrich.Email,
		Website:     place.WebsiteURI,

		Twitter:      enrich.Twitter,
		Facebook:     enrich.Facebook,
		LinkedIn:     enrich.LinkedIn,
		GooglePlus:   enrich.GooglePlus,
		YouTube:      enrich.YouTube,
		Instagram:    enrich.Instagram,
		YouTubeVideo: enrich.YouTubeVideo,

		LogoImage:   enrich.LogoURL,
		BannerImage: enrich.BannerURL,

		PriceStatus: status,
		PriceFrom:   from,
		PriceTo:     to,

		ClaimStatus:   place.BusinessStatus,
		Gallery:       strings.Join(PhotoURLs(place.Photos, apiKey), ","),
		BusinessHours: FormatHours(place.RegularOpeningHours),

		Category: category,
		Features: enrich.Features,
		Tags:     enrich.Tags,

		Location: locationPath,
		Status:   model.StatusNew,
	}
}
