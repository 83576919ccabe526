// Package export writes listing records as the CSV layout the ListingPro
// importer consumes.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/starzmeet/listing-agent/internal/model"
)

// Header is the fixed column order of the export. The importer matches
// columns by these exact names.
var Header = []string{
	"Status", "Title", "Description", "Tagline", "Google Address", "Latitude", "Longitude",
	"Phone", "Email", "Website", "Twitter", "Facebook", "Linkedin", "Google_plus",
	"Youtube", "Instagram", "Youtube Video URL",
	"Logo Image", "Banner Image",
	"Price Status ($-moderate)", "Price From", "Price To",
	"Claim Status", "Faq Question (sep. by pipe sign | )", "Faq Answer (sep. by pipe sign | )",
	"Gallery", "Pricing Plan ID", "Business Hours (Day,OpenTime,CloseTime)",
	"Category", "Features", "Tags (Keywords)", "Location",
}

// Row flattens one record into the Header column order.
func Row(rec model.ListingRecord) []string {
	return []string{
		rec.Status,
		rec.Title,
		rec.Description,
		rec.Tagline,
		rec.Address,
		formatCoord(rec.Latitude),
		formatCoord(rec.Longitude),
		rec.Phone,
		rec.Email,
		rec.Website,
		rec.Twitter,
		rec.Facebook,
		rec.LinkedIn,
		rec.GooglePlus,
		rec.YouTube,
		rec.Instagram,
		rec.YouTubeVideo,
		rec.LogoImage,
		rec.BannerImage,
		rec.PriceStatus,
		rec.PriceFrom,
		rec.PriceTo,
		rec.ClaimStatus,
		rec.FaqQuestions,
		rec.FaqAnswers,
		rec.Gallery,
		rec.PricingPlanID,
		rec.BusinessHours,
		rec.Category,
		rec.Features,
		rec.Tags,
		rec.Location,
	}
}

// WriteCSV writes the records, header first, to w.
func WriteCSV(w io.Writer, records []model.ListingRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return eris.Wrap(err, "export: write header")
	}
	for _, rec := range records {
		if err := cw.Write(Row(rec)); err != nil {
			return eris.Wrapf(err, "export: write row %s", rec.PlaceID)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush")
}

func formatCoord(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
