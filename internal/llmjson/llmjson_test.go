package llmjson

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean_FencedJSON(t *testing.T) {
	raw := "```json\n{\"country\": \"United States\"}\n```"
	assert.Equal(t, `{"country": "United States"}`, Clean(raw))
}

func TestClean_BareFence(t *testing.T) {
	raw := "```\n{\"a\":1}\n```"
	assert.Equal(t, `{"a":1}`, Clean(raw))
}

func TestClean_ProseAroundObject(t *testing.T) {
	raw := `Here is the JSON you asked for: {"city":"Frisco"} Hope that helps!`
	assert.Equal(t, `{"city":"Frisco"}`, Clean(raw))
}

func TestClean_NoObject(t *testing.T) {
	assert.Equal(t, "not json at all", Clean("not json at all"))
}

func TestParseOrDefault_Valid(t *testing.T) {
	type loc struct {
		Country string `json:"country"`
		City    string `json:"city"`
	}
	got := ParseOrDefault("```json\n{\"country\":\"Singapore\",\"city\":\"Singapore\"}\n```", loc{})
	assert.Equal(t, "Singapore", got.Country)
	assert.Equal(t, "Singapore", got.City)
}

func TestParseOrDefault_InvalidReturnsFallback(t *testing.T) {
	type loc struct {
		Country string `json:"country"`
	}
	fallback := loc{Country: "United States"}
	got := ParseOrDefault("the model refused to answer", fallback)
	assert.Equal(t, fallback, got)
}

func TestParseOrDefault_Empty(t *testing.T) {
	got := ParseOrDefault("", map[string]string{"k": "v"})
	assert.Equal(t, "v", got["k"])
}

func TestParse(t *testing.T) {
	var m map[string]int
	assert.True(t, Parse(`{"n": 3}`, &m))
	assert.Equal(t, 3, m["n"])

	assert.False(t, Parse("nope", &m))
}
