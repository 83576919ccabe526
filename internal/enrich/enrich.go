// Package enrich derives listing metadata from a business website: social
// profiles, logo and banner images, and LLM-extracted description fields.
package enrich

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/starzmeet/listing-agent/internal/model"
	"github.com/starzmeet/listing-agent/internal/notify"
	"github.com/starzmeet/listing-agent/internal/resilience"
	"github.com/starzmeet/listing-agent/pkg/anthropic"
)

const (
	defaultFetchTimeout = 30 * time.Second
	defaultMaxPageText  = 4000

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"
)

// Enricher fetches a business website and extracts listing metadata from it.
// Every failure degrades to a partial or empty result; Enrich never fails the
// surrounding pipeline.
type Enricher struct {
	llm         anthropic.Client
	model       string
	http        *http.Client
	maxPageText int
	notifier    notify.Notifier
	lookupHost  func(host string) error
	retry       resilience.RetryConfig
}

// Option configures the Enricher.
type Option func(*Enricher)

// WithHTTPClient overrides the page-fetch HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Enricher) { e.http = c }
}

// WithMaxPageText caps how much page text is sent to the LLM.
func WithMaxPageText(n int) Option {
	return func(e *Enricher) { e.maxPageText = n }
}

// WithNotifier sets the progress/error notifier.
func WithNotifier(n notify.Notifier) Option {
	return func(e *Enricher) { e.notifier = n }
}

// WithLookup overrides the DNS preflight check.
func WithLookup(fn func(host string) error) Option {
	return func(e *Enricher) { e.lookupHost = fn }
}

// WithRetryConfig overrides the page-fetch retry policy.
func WithRetryConfig(rc resilience.RetryConfig) Option {
	return func(e *Enricher) { e.retry = rc }
}

// NewEnricher creates an Enricher using the given LLM client and model.
func NewEnricher(llm anthropic.Client, model string, opts ...Option) *Enricher {
	e := &Enricher{
		llm:         llm,
		model:       model,
		http:        &http.Client{Timeout: defaultFetchTimeout},
		maxPageText: defaultMaxPageText,
		notifier:    notify.Nop{},
		lookupHost: func(host string) error {
			_, err := net.LookupHost(host)
			return err
		},
		retry: resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enrich extracts metadata from the website at websiteURL. The result is
// always fully shaped: on any failure the affected fields are empty and the
// rest carry whatever was extracted before the failure.
func (e *Enricher) Enrich(ctx context.Context, websiteURL string) model.EnrichmentResult {
	var result model.EnrichmentResult

	if websiteURL == "" || !e.resolvable(websiteURL) {
		zap.L().Warn("enrich: skipping, domain not resolvable", zap.String("url", websiteURL))
		e.notifier.OnError(fmt.Sprintf("DNS resolution failed for %s. Skipping enrichment.", websiteURL))
		return result
	}

	zap.L().Info("enrich: fetching website", zap.String("url", websiteURL))
	doc, err := e.fetchPage(ctx, websiteURL)
	if err != nil {
		zap.L().Error("enrich: page fetch failed", zap.String("url", websiteURL), zap.Error(err))
		e.notifier.OnError(fmt.Sprintf("Enrichment failed for %s: %v", websiteURL, err))
		return result
	}

	extractSocialLinks(doc, &result)
	result.LogoURL, result.BannerURL = extractLogoAndBanner(doc, websiteURL)

	text := pageText(doc)
	if len(text) > e.maxPageText {
		// Cut on a rune boundary so the LLM never sees a torn multi-byte
		// character.
		cut := e.maxPageText
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}

	if err := e.extractWithLLM(ctx, text, &result); err != nil {
		zap.L().Error("enrich: llm extraction failed", zap.String("url", websiteURL), zap.Error(err))
		e.notifier.OnError(fmt.Sprintf("Enrichment failed for %s: %v", websiteURL, err))
	}
	return result
}

func (e *Enricher) resolvable(websiteURL string) bool {
	host := hostOf(websiteURL)
	if host == "" {
		return false
	}
	return e.lookupHost(host) == nil
}

func hostOf(websiteURL string) string {
	if u, err := url.Parse(websiteURL); err == nil && u.Host != "" {
		return u.Hostname()
	}
	// Tolerate bare "example.com/path" values.
	rest := websiteURL
	if i := strings.Index(rest, "//"); i >= 0 {
		rest = rest[i+2:]
	}
	host, _, _ := strings.Cut(rest, "/")
	return host
}

// fetchPage downloads and parses the page. A TLS handshake failure on an
// https URL is retried once over plain http, matching how many small-business
// sites are misconfigured.
func (e *Enricher) fetchPage(ctx context.Context, pageURL string) (*goquery.Document, error) {
	body, err := e.fetch(ctx, pageURL)
	if err != nil {
		if resilience.IsTLSHandshakeError(err) && strings.HasPrefix(pageURL, "https://") {
			fallback := "http://" + strings.TrimPrefix(pageURL, "https://")
			zap.L().Warn("enrich: tls failure, retrying over http", zap.String("url", fallback))
			body, err = e.fetch(ctx, fallback)
		}
		if err != nil {
			return nil, err
		}
	}
	defer body.Close() //nolint:errcheck
	return goquery.NewDocumentFromReader(body)
}

// fetch downloads pageURL, retrying transient connection, timeout, and
// server errors with backoff.
func (e *Enricher) fetch(ctx context.Context, pageURL string) (io.ReadCloser, error) {
	cfg := e.retry
	cfg.OnRetry = resilience.RetryLogger("enrich", "page fetch")
	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (io.ReadCloser, error) {
		return e.get(ctx, pageURL)
	})
}

func (e *Enricher) get(ctx context.Context, pageURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := e.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close() //nolint:errcheck
		statusErr := fmt.Errorf("unexpected status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		return nil, statusErr
	}
	return resp.Body, nil
}
