// Package keywords ships the default search keyword battery used to seed a
// fresh installation.
package keywords

import (
	_ "embed"

	"gopkg.in/yaml.v3"

	"github.com/starzmeet/listing-agent/internal/model"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type seedFile struct {
	Keywords []struct {
		Keyword  string `yaml:"keyword"`
		Category string `yaml:"category"`
	} `yaml:"keywords"`
}

// Defaults returns the built-in keyword set, all active. The embedded seed is
// validated at package init; Defaults never fails at runtime.
func Defaults() []model.SearchKeyword {
	out := make([]model.SearchKeyword, 0, len(seed.Keywords))
	for _, k := range seed.Keywords {
		out = append(out, model.SearchKeyword{
			Keyword:  k.Keyword,
			Category: k.Category,
			Active:   true,
		})
	}
	return out
}

var seed seedFile

func init() {
	if err := yaml.Unmarshal(defaultsYAML, &seed); err != nil {
		panic("keywords: invalid embedded seed: " + err.Error())
	}
}
