// Package catalog holds the static vocabulary tables used to interpret model replies:
// known applications, trouble words, keyword vocabulary, self-window names and reserved
// profile names.
package catalog

import (
	_ "embed"
	"os"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type Catalog struct {
	Apps              []string `yaml:"apps"`
	TroubleWords      []string `yaml:"trouble_words"`
	KeywordExtensions []string `yaml:"keyword_extensions"`
	KeywordActions    []string `yaml:"keyword_actions"`
	SelfNames         []string `yaml:"self_names"`
	SelfMarkers       []string `yaml:"self_markers"`
	ReservedNames     []string `yaml:"reserved_names"`
}

// Default returns the embedded catalog. It panics only if the embedded file is broken.
func Default() *Catalog {
	var c Catalog
	if err := yaml.Unmarshal(defaultCatalog, &c); err != nil {
		panic("embedded catalog.yaml is invalid: " + err.Error())
	}
	return &c
}

// Load returns the embedded catalog overlaid with the YAML file at path. Every non-empty
// list in the file replaces the built-in list. An empty path returns the defaults.
func Load(path string) (*Catalog, error) {
	base := Default()
	if path == "" {
		return base, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read catalog file", goerr.V("file", path))
	}

	var overlay Catalog
	if err := yaml.Unmarshal(content, &overlay); err != nil {
		return nil, goerr.Wrap(err, "failed to parse catalog file", goerr.V("file", path))
	}

	base.merge(&overlay)
	return base, nil
}

func (c *Catalog) merge(o *Catalog) {
	pick := func(dst *[]string, src []string) {
		if len(src) > 0 {
			*dst = src
		}
	}
	pick(&c.Apps, o.Apps)
	pick(&c.TroubleWords, o.TroubleWords)
	pick(&c.KeywordExtensions, o.KeywordExtensions)
	pick(&c.KeywordActions, o.KeywordActions)
	pick(&c.SelfNames, o.SelfNames)
	pick(&c.SelfMarkers, o.SelfMarkers)
	pick(&c.ReservedNames, o.ReservedNames)
}

// FindApp returns the first known application named in text, or "" when none is found.
func (c *Catalog) FindApp(text string) string {
	for _, app := range c.Apps {
		if strings.Contains(text, app) {
			return app
		}
	}
	return ""
}

// HasTroubleWord reports whether text contains any trouble word. ASCII words are matched
// case-insensitively.
func (c *Catalog) HasTroubleWord(text string) bool {
	lower := strings.ToLower(text)
	for _, w := range c.TroubleWords {
		if strings.Contains(lower, strings.ToLower(w)) {
			return true
		}
	}
	return false
}

// IsSelfApp reports whether app names this tool's own window.
func (c *Catalog) IsSelfApp(app string) bool {
	lower := strings.ToLower(app)
	for _, name := range c.SelfNames {
		if strings.Contains(lower, strings.ToLower(name)) {
			return true
		}
	}
	return false
}

// MentionsSelf reports whether free text mentions this tool's own window.
func (c *Catalog) MentionsSelf(text string) bool {
	return c.IsSelfApp(text)
}

// HasSelfMarker reports whether text contains any self-window marker.
func (c *Catalog) HasSelfMarker(text string) bool {
	lower := strings.ToLower(text)
	for _, m := range c.SelfMarkers {
		if strings.Contains(lower, strings.ToLower(m)) {
			return true
		}
	}
	return false
}

// IsReservedName reports whether name is a reserved device name, ignoring case.
func (c *Catalog) IsReservedName(name string) bool {
	for _, r := range c.ReservedNames {
		if strings.EqualFold(name, r) {
			return true
		}
	}
	return false
}
