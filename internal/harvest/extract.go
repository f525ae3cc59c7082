package harvest

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Extractor finds the player key inside an episode page.
type Extractor struct {
	prefix  string
	pattern *regexp.Regexp
}

// NewExtractor builds an extractor for embed URLs starting with prefix, e.g.
// https://short.icu/. The key is the path that follows the prefix.
func NewExtractor(prefix string) *Extractor {
	return &Extractor{
		prefix:  prefix,
		pattern: regexp.MustCompile(`src="` + regexp.QuoteMeta(prefix) + `([^"]+)"`),
	}
}

// Extract returns the key and true when the page embeds the player. Parsed
// src attributes are checked first; the raw text pattern covers markup the
// HTML parser does not expose as an attribute (inline scripts, broken tags).
func (e *Extractor) Extract(body []byte) (string, bool) {
	if key, ok := e.fromDocument(body); ok {
		return key, true
	}
	match := e.pattern.FindSubmatch(body)
	if match == nil {
		return "", false
	}
	key := strings.TrimSpace(string(match[1]))
	return key, key != ""
}

func (e *Extractor) fromDocument(body []byte) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", false
	}
	var key string
	doc.Find("[src]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		src, _ := sel.Attr("src")
		src = strings.TrimSpace(src)
		if !strings.HasPrefix(src, e.prefix) {
			return true
		}
		candidate := strings.TrimSpace(strings.TrimPrefix(src, e.prefix))
		if candidate == "" {
			return true
		}
		key = candidate
		return false
	})
	return key, key != ""
}
