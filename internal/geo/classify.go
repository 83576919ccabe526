// Package geo maps free-text postal addresses to the hierarchical
// "Country > State > City" path used for filtering and CMS location tagging.
package geo

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/starzmeet/listing-agent/internal/llmjson"
	"github.com/starzmeet/listing-agent/pkg/anthropic"
)

// Fixed paths for city-states that deterministic rules resolve without an
// LLM call.
const (
	pathSingapore = "Singapore > Singapore > Singapore"
	pathDubai     = "United Arab Emirates > Dubai > Dubai"
)

var (
	singaporeRe = regexp.MustCompile(`(?i)^(?:.*?, )?Singapore\s*(\d{6})?$`)
	// usRe matches "City, ST" and "City, ST ZIP" endings.
	usRe = regexp.MustCompile(`^(?:.*?, )?([A-Za-z\s]+),\s*([A-Z]{2})(?:\s*\d{5})?$`)
)

const systemPrompt = "You are a location classifier that extracts country, state, and city from addresses."

const promptTemplate = `You are a location classifier that extracts country, state/province, and city from addresses.
Address: %s
Rules:
- For city-states like Singapore, return {"country": "Singapore", "state": "Singapore", "city": "Singapore"}.
- For UAE addresses containing 'Dubai', return {"country": "United Arab Emirates", "state": "Dubai", "city": "Dubai"}.
- For US addresses, extract state (e.g., TX) and city.
- If country is not specified, assume 'United States' unless the address suggests otherwise (e.g., Dubai, Singapore).
- Return a JSON object with 'country', 'state', and 'city' fields.
- Ensure valid JSON format (e.g., {"country": "value", "state": "value", "city": "value"}).
- Do not include markdown fences.
Examples:
- "123 Main St, Frisco, TX 75034" -> {"country": "United States", "state": "Texas", "city": "Frisco"}
- "Al Barsha 1, Dubai" -> {"country": "United Arab Emirates", "state": "Dubai", "city": "Dubai"}`

// Classifier resolves addresses with deterministic rules first and an LLM
// fallback for everything else.
type Classifier struct {
	llm   anthropic.Client
	model string
	title cases.Caser
}

// NewClassifier creates a Classifier using the given LLM client and model.
func NewClassifier(llm anthropic.Client, model string) *Classifier {
	return &Classifier{
		llm:   llm,
		model: model,
		title: cases.Title(language.English),
	}
}

// Classify maps address to "Country > State > City". It never returns an
// error: on any failure it degrades to a city-only guess, then to the last
// comma-separated address segment, then to an empty string.
func (c *Classifier) Classify(ctx context.Context, address string) string {
	if strings.TrimSpace(address) == "" {
		return ""
	}

	lower := strings.ToLower(address)

	if strings.Contains(lower, "singapore") && singaporeRe.MatchString(address) {
		return pathSingapore
	}
	if strings.Contains(lower, "dubai") {
		return pathDubai
	}
	if m := usRe.FindStringSubmatch(address); m != nil {
		city, state := strings.TrimSpace(m[1]), m[2]
		return fmt.Sprintf("United States > %s > %s", state, city)
	}

	return c.classifyLLM(ctx, address)
}

type llmLocation struct {
	Country string `json:"country"`
	State   string `json:"state"`
	City    string `json:"city"`
}

func (c *Classifier) classifyLLM(ctx context.Context, address string) string {
	raw, err := c.llm.Complete(ctx, anthropic.Request{
		Model:       c.model,
		MaxTokens:   50,
		System:      systemPrompt,
		Prompt:      fmt.Sprintf(promptTemplate, address),
		Temperature: anthropic.Float(0.3),
	})
	if err != nil {
		zap.L().Warn("geo: llm classification failed", zap.Error(err))
		return c.lastSegment(address)
	}

	loc := llmjson.ParseOrDefault(raw, llmLocation{})
	if loc.Country != "" && loc.State != "" && loc.City != "" {
		return fmt.Sprintf("%s > %s > %s", loc.Country, loc.State, loc.City)
	}
	if loc.City != "" {
		zap.L().Warn("geo: incomplete location from llm", zap.String("city", loc.City))
		return loc.City
	}

	zap.L().Warn("geo: unusable llm response, falling back to address segment",
		zap.Int("raw_len", len(raw)),
	)
	return c.lastSegment(address)
}

// lastSegment returns the final comma-separated segment of the address,
// title-cased, as a best-effort city guess.
func (c *Classifier) lastSegment(address string) string {
	parts := strings.Split(address, ",")
	seg := strings.TrimSpace(parts[len(parts)-1])
	if seg == "" {
		return ""
	}
	return c.title.String(strings.ToLower(seg))
}
