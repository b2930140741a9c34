package analysis

import (
	"strings"

	"github.com/m-mizutani/glimpse/pkg/catalog"
)

// ExtractKeywords scans text for the fixed vocabulary: file extensions first, then action
// words, each in catalog order. A vocabulary entry is reported at most once.
func ExtractKeywords(c *catalog.Catalog, text string) []string {
	if c == nil {
		c = catalog.Default()
	}

	keywords := []string{}
	for _, ext := range c.KeywordExtensions {
		if strings.Contains(text, ext) {
			keywords = append(keywords, ext)
		}
	}
	for _, action := range c.KeywordActions {
		if strings.Contains(text, action) {
			keywords = append(keywords, action)
		}
	}
	return keywords
}
