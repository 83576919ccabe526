package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starzmeet/listing-agent/internal/model"
	"github.com/starzmeet/listing-agent/pkg/google"
)

func TestPriceInfo(t *testing.T) {
	status, from, to := PriceInfo("PRICE_LEVEL_FREE")
	assert.Equal(t, "Free", status)
	assert.Equal(t, "0", from)
	assert.Equal(t, "0", to)

	status, from, to = PriceInfo("PRICE_LEVEL_MODERATE")
	assert.Equal(t, "$$", status)
	assert.Equal(t, "51", from)
	assert.Equal(t, "100", to)

	status, from, to = PriceInfo("PRICE_LEVEL_UNSPECIFIED")
	assert.Empty(t, status)
	assert.Empty(t, from)
	assert.Empty(t, to)
}

func TestFormatHours(t *testing.T) {
	hours := &google.OpeningHours{
		WeekdayDescriptions: []string{
			"Monday: 9:00 AM – 5:00 PM",
			"Tuesday: Closed",
			"Wednesday: 10:30 AM – 8:00 PM",
		},
	}
	got := FormatHours(hours)
	assert.Equal(t, "Monday,09:00,17:00|Tuesday,Closed,Closed|Wednesday,10:30,20:00", got)
}

func TestFormatHoursDropsBadLines(t *testing.T) {
	hours := &google.OpeningHours{
		WeekdayDescriptions: []string{
			"Monday: 9:00 AM – 5:00 PM",
			"garbage without separator",
		},
	}
	got := FormatHours(hours)
	assert.Equal(t, "Monday,09:00,17:00", got)
}

func TestFormatHoursEmpty(t *testing.T) {
	assert.Empty(t, FormatHours(nil))
	assert.Empty(t, FormatHours(&google.OpeningHours{}))
}

func TestParseHoursRoundTrip(t *testing.T) {
	encoded := "Monday,09:00,17:00|Tuesday,Closed,Closed"
	got := ParseHours(encoded)
	require.Len(t, got, 2)
	assert.Equal(t, DayHours{Open: "09:00", Close: "17:00"}, got["Monday"])
	assert.Equal(t, DayHours{Open: "Closed", Close: "Closed"}, got["Tuesday"])
}

func TestParseHoursSkipsMalformed(t *testing.T) {
	got := ParseHours("Monday,09:00,17:00|broken|Friday,08:00,12:00")
	require.Len(t, got, 2)
	assert.Contains(t, got, "Monday")
	assert.Contains(t, got, "Friday")
}

func TestPhotoURLs(t *testing.T) {
	urls := PhotoURLs([]google.Photo{
		{Name: "places/abc/photos/xyz"},
		{Name: ""},
	}, "key123")
	require.Len(t, urls, 1)
	assert.Equal(t, "https://places.googleapis.com/v1/places/abc/photos/xyz/media?maxHeightPx=500&key=key123", urls[0])
}

func TestBuildRecord(t *testing.T) {
	place := google.Place{
		ID:               "place-1",
		DisplayName:      google.DisplayName{Text: "Bright Steps Therapy"},
		FormattedAddress: "123 Main St, Frisco, TX 75034",
		Location:         google.LatLng{Latitude: 33.15, Longitude: -96.82},
		PriceLevel:       "PRICE_LEVEL_INEXPENSIVE",
		BusinessStatus:   "OPERATIONAL",
		WebsiteURI:       "https://brightsteps.example",
		NationalPhoneNumber: "(555) 010-0100",
		RegularOpeningHours: &google.OpeningHours{
			WeekdayDescriptions: []string{"Monday: 9:00 AM – 5:00 PM"},
		},
		Photos: []google.Photo{{Name: "places/place-1/photos/p1"}},
	}
	enrich := model.EnrichmentResult{
		Description: "<p>About us</p>",
		Tagline:     "Every step counts",
		Email:       "hello@brightsteps.example",
		Facebook:    "https://facebook.com/brightsteps",
		Category:    "ABA Therapy",
		Features:    "Home visits, Teletherapy",
	}

	rec := BuildRecord(place, enrich, "United States > TX > Frisco", "Frisco, TX", "key123")

	assert.Equal(t, "place-1", rec.PlaceID)
	assert.Equal(t, "Bright Steps Therapy", rec.Title)
	assert.Equal(t, "<p>About us</p>", rec.Description)
	assert.Equal(t, "(555) 010-0100", rec.Phone)
	assert.Equal(t, "$", rec.PriceStatus)
	assert.Equal(t, "1", rec.PriceFrom)
	assert.Equal(t, "50", rec.PriceTo)
	assert.Equal(t, "OPERATIONAL", rec.ClaimStatus)
	assert.Equal(t, "Monday,09:00,17:00", rec.BusinessHours)
	assert.Equal(t, "ABA Therapy", rec.Category)
	assert.Equal(t, "United States > TX > Frisco", rec.Location)
	assert.Equal(t, model.StatusNew, rec.Status)
	assert.Contains(t, rec.Gallery, "places/place-1/photos/p1/media")
}

func TestBuildRecordFallbacks(t *testing.T) {
	place := google.Place{
		ID:          "place-2",
		DisplayName: google.DisplayName{Text: "Quiet Minds Center"},
	}

	rec := BuildRecord(place, model.EnrichmentResult{}, "", "Austin, TX", "key123")

	assert.True(t, strings.Contains(rec.Description, "Quiet Minds Center provides autism-related services in Austin, TX"))
	assert.Equal(t, "Autism Services", rec.Category)
	assert.Empty(t, rec.PriceStatus)
	assert.Empty(t, rec.BusinessHours)
}
