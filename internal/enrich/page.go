package enrich

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/starzmeet/listing-agent/internal/model"
)

// extractSocialLinks scans all anchors and fills the social profile fields.
// Each field keeps the first match in document order, and each anchor feeds
// at most one field.
func extractSocialLinks(doc *goquery.Document, result *model.EnrichmentResult) {
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		raw, _ := a.Attr("href")
		raw = strings.TrimSpace(raw)
		href := strings.ToLower(raw)

		switch {
		case result.Twitter == "" && strings.Contains(href, "twitter.com"):
			result.Twitter = raw
		case result.Facebook == "" && strings.Contains(href, "facebook.com"):
			result.Facebook = raw
		case result.LinkedIn == "" && strings.Contains(href, "linkedin.com"):
			result.LinkedIn = raw
		case result.GooglePlus == "" && strings.Contains(href, "plus.google.com"):
			result.GooglePlus = raw
		case result.YouTube == "" && (strings.Contains(href, "youtube.com/channel") || strings.Contains(href, "youtube.com/user")):
			result.YouTube = raw
		case result.YouTubeVideo == "" && (strings.Contains(href, "youtube.com/watch") || strings.Contains(href, "youtu.be")):
			result.YouTubeVideo = raw
		case result.Instagram == "" && strings.Contains(href, "instagram.com"):
			result.Instagram = raw
		}
	})
}

var bgImageRe = regexp.MustCompile(`url\((.*?)\)`)

// extractLogoAndBanner finds the site logo and a hero/banner image, both
// resolved against baseURL. The banner falls back from CSS background images
// to hero-section <img> tags to the largest-by-declared-area image on the
// page.
func extractLogoAndBanner(doc *goquery.Document, baseURL string) (logo, banner string) {
	doc.Find("header img, nav img, .logo img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src, _ := img.Attr("src")
		if src != "" && strings.Contains(strings.ToLower(src), "logo") {
			logo = resolveURL(baseURL, src)
			return false
		}
		return true
	})

	doc.Find(`[class*="hero"], [class*="banner"], [class*="slider"]`).EachWithBreak(func(_ int, sec *goquery.Selection) bool {
		style, _ := sec.Attr("style")
		if !strings.Contains(style, "background-image") {
			return true
		}
		if m := bgImageRe.FindStringSubmatch(style); m != nil {
			banner = resolveURL(baseURL, strings.Trim(m[1], `"'`))
			return false
		}
		return true
	})

	if banner == "" {
		doc.Find(`[class*="hero"] img, [class*="banner"] img, [class*="slider"] img`).EachWithBreak(func(_ int, img *goquery.Selection) bool {
			src, _ := img.Attr("src")
			if src != "" && src != logo {
				banner = resolveURL(baseURL, src)
				return false
			}
			return true
		})
	}

	if banner == "" {
		var bestArea int
		doc.Find("img").Each(func(_ int, img *goquery.Selection) {
			src, _ := img.Attr("src")
			if src == "" || src == logo {
				return
			}
			area := attrInt(img, "width") * attrInt(img, "height")
			if banner == "" || area > bestArea {
				bestArea = area
				banner = resolveURL(baseURL, src)
			}
		})
	}
	return logo, banner
}

func attrInt(s *goquery.Selection, name string) int {
	v, _ := s.Attr(name)
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0
	}
	return n
}

func resolveURL(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

// pageText renders the document as newline-separated trimmed text, skipping
// script and style content.
func pageText(doc *goquery.Document) string {
	var lines []string
	for _, root := range doc.Nodes {
		collectText(root, &lines)
	}
	return strings.Join(lines, "\n")
}

func collectText(n *html.Node, lines *[]string) {
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style" || n.Data == "noscript") {
		return
	}
	if n.Type == html.TextNode {
		if t := strings.TrimSpace(n.Data); t != "" {
			*lines = append(*lines, t)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, lines)
	}
}
