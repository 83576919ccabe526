package enrich

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/starzmeet/listing-agent/internal/model"
	"github.com/starzmeet/listing-agent/internal/resilience"
	"github.com/starzmeet/listing-agent/pkg/anthropic"
)

func fastRetry(attempts int) resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		Multiplier:     2.0,
	}
}

type mockLLM struct {
	mock.Mock
}

func (m *mockLLM) Complete(ctx context.Context, req anthropic.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func resolveAll(string) error { return nil }

const samplePage = `<!DOCTYPE html>
<html><head><title>Bright Steps</title></head>
<body>
<header><img src="/img/site-logo.png"></header>
<div class="hero-section" style="background-image: url('/img/hero.jpg')"></div>
<a href="https://facebook.com/brightsteps">fb</a>
<a href="https://twitter.com/brightsteps">tw</a>
<a href="https://www.youtube.com/watch?v=abc123">video</a>
<p>We provide ABA therapy in Frisco.</p>
</body></html>`

func TestEnrichFullPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla/5.0")
		w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	llm := &mockLLM{}
	llm.On("Complete", mock.Anything, mock.MatchedBy(func(req anthropic.Request) bool {
		return strings.Contains(req.Prompt, "ABA therapy in Frisco")
	})).Return(`{
		"Description": {"About": "Bright Steps helps children thrive.", "Services": ["ABA therapy", "Parent training"], "Contact Info": {"Phone": "555-0100", "Email": "hi@brightsteps.example"}},
		"Tagline": "Every step counts",
		"Email": "hi@brightsteps.example",
		"Category": "ABA Therapy",
		"Features": "In-home service, Teletherapy",
		"Tags": "autism, ABA"
	}`, nil).Once()

	e := NewEnricher(llm, "test-model", WithLookup(resolveAll))
	got := e.Enrich(context.Background(), srv.URL)

	assert.Equal(t, "https://facebook.com/brightsteps", got.Facebook)
	assert.Equal(t, "https://twitter.com/brightsteps", got.Twitter)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc123", got.YouTubeVideo)
	assert.Equal(t, srv.URL+"/img/site-logo.png", got.LogoURL)
	assert.Equal(t, srv.URL+"/img/hero.jpg", got.BannerURL)

	assert.Contains(t, got.Description, "About the business")
	assert.Contains(t, got.Description, "Bright Steps helps children thrive.")
	assert.Contains(t, got.Description, "<li>ABA therapy</li>")
	assert.Contains(t, got.Description, "<strong>Phone:</strong> 555-0100")
	assert.Equal(t, "Every step counts", got.Tagline)
	assert.Equal(t, "ABA Therapy", got.Category)
	assert.Equal(t, "In-home service, Teletherapy", got.Features)
	llm.AssertExpectations(t)
}

func TestEnrichUnresolvableDomain(t *testing.T) {
	llm := &mockLLM{}
	e := NewEnricher(llm, "test-model", WithLookup(func(string) error {
		return errors.New("no such host")
	}))

	got := e.Enrich(context.Background(), "https://gone.example")
	assert.Equal(t, model.EnrichmentResult{}, got)
	llm.AssertNotCalled(t, "Complete")
}

func TestEnrichEmptyURL(t *testing.T) {
	llm := &mockLLM{}
	e := NewEnricher(llm, "test-model", WithLookup(resolveAll))

	got := e.Enrich(context.Background(), "")
	assert.Equal(t, model.EnrichmentResult{}, got)
	llm.AssertNotCalled(t, "Complete")
}

func TestEnrichLLMGarbageKeepsScrapedFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	llm := &mockLLM{}
	llm.On("Complete", mock.Anything, mock.Anything).
		Return("Sorry, I cannot help with that.", nil).Once()

	e := NewEnricher(llm, "test-model", WithLookup(resolveAll))
	got := e.Enrich(context.Background(), srv.URL)

	assert.Equal(t, "https://facebook.com/brightsteps", got.Facebook)
	assert.NotEmpty(t, got.LogoURL)
	assert.Empty(t, got.Description)
	assert.Empty(t, got.Tagline)
}

func TestEnrichFetchRecoversAfterTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	llm := &mockLLM{}
	llm.On("Complete", mock.Anything, mock.Anything).Return("{}", nil).Once()

	e := NewEnricher(llm, "test-model", WithLookup(resolveAll), WithRetryConfig(fastRetry(3)))
	got := e.Enrich(context.Background(), srv.URL)

	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, "https://facebook.com/brightsteps", got.Facebook)
}

func TestEnrichFetchGivesUpAfterThreeAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	llm := &mockLLM{}
	e := NewEnricher(llm, "test-model", WithLookup(resolveAll), WithRetryConfig(fastRetry(3)))

	got := e.Enrich(context.Background(), srv.URL)
	assert.Equal(t, model.EnrichmentResult{}, got)
	assert.Equal(t, int32(3), calls.Load())
	llm.AssertNotCalled(t, "Complete")
}

func TestEnrichFetchDoesNotRetryPermanentErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	llm := &mockLLM{}
	e := NewEnricher(llm, "test-model", WithLookup(resolveAll), WithRetryConfig(fastRetry(3)))

	got := e.Enrich(context.Background(), srv.URL)
	assert.Equal(t, model.EnrichmentResult{}, got)
	assert.Equal(t, int32(1), calls.Load())
	llm.AssertNotCalled(t, "Complete")
}

func TestEnrichTruncatesPageTextOnRuneBoundary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>" + strings.Repeat("é", 100) + "</p></body></html>"))
	}))
	defer srv.Close()

	llm := &mockLLM{}
	llm.On("Complete", mock.Anything, mock.MatchedBy(func(req anthropic.Request) bool {
		return utf8.ValidString(req.Prompt) && strings.Contains(req.Prompt, "ééé")
	})).Return("{}", nil).Once()

	// An odd byte limit lands mid-rune; the cut must back up to a boundary.
	e := NewEnricher(llm, "test-model", WithLookup(resolveAll), WithMaxPageText(7))
	e.Enrich(context.Background(), srv.URL)

	llm.AssertExpectations(t)
}

func mustDoc(t *testing.T, markup string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	require.NoError(t, err)
	return doc
}

func TestSocialLinksFirstWins(t *testing.T) {
	doc := mustDoc(t, `
		<a href="https://facebook.com/first">a</a>
		<a href="https://facebook.com/second">b</a>
		<a href="https://instagram.com/acct">c</a>`)

	var result model.EnrichmentResult
	extractSocialLinks(doc, &result)

	assert.Equal(t, "https://facebook.com/first", result.Facebook)
	assert.Equal(t, "https://instagram.com/acct", result.Instagram)
	assert.Empty(t, result.Twitter)
}

func TestYouTubeChannelVsVideo(t *testing.T) {
	doc := mustDoc(t, `
		<a href="https://youtube.com/channel/UC123">channel</a>
		<a href="https://youtu.be/xyz">clip</a>`)

	var result model.EnrichmentResult
	extractSocialLinks(doc, &result)

	assert.Equal(t, "https://youtube.com/channel/UC123", result.YouTube)
	assert.Equal(t, "https://youtu.be/xyz", result.YouTubeVideo)
}

func TestBannerFallsBackToHeroImg(t *testing.T) {
	doc := mustDoc(t, `
		<header><img src="http://site.example/logo.png"></header>
		<div class="banner-wrap"><img src="/banner.jpg"></div>`)

	logo, banner := extractLogoAndBanner(doc, "http://site.example/")
	assert.Equal(t, "http://site.example/logo.png", logo)
	assert.Equal(t, "http://site.example/banner.jpg", banner)
}

func TestBannerFallsBackToLargestImage(t *testing.T) {
	doc := mustDoc(t, `
		<img src="/small.jpg" width="100" height="100">
		<img src="/large.jpg" width="1200" height="400">`)

	_, banner := extractLogoAndBanner(doc, "http://site.example/")
	assert.Equal(t, "http://site.example/large.jpg", banner)
}

func TestRenderDescriptionPlainString(t *testing.T) {
	got := renderDescription([]byte(`"already formatted text"`))
	assert.Equal(t, "already formatted text", got)
}

func TestPageTextSkipsScripts(t *testing.T) {
	doc := mustDoc(t, `<body><script>var x = 1;</script><p>Visible text</p></body>`)
	text := pageText(doc)
	assert.Contains(t, text, "Visible text")
	assert.NotContains(t, text, "var x")
}
