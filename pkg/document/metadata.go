package document

import (
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"
)

// Metadata is what a page says about itself. Any field may be empty.
type Metadata struct {
	Title   string `json:"title,omitempty"`
	Version string `json:"version,omitempty"`
	Date    string `json:"date,omitempty"`
	URL     string `json:"url,omitempty"`
}

var (
	// The publisher's JSON-LD omits the comma between the author array
	// and the publisher key.
	missingComma = regexp.MustCompile(`(\])\s*("publisher")`)

	versionPattern = regexp.MustCompile(`\b(\d+\.\d+(?:\.\d+)?)\b`)

	// Page slugs spell versions with dashes or underscores: "5-0-12".
	slugVersionPattern = regexp.MustCompile(`(?:^|[^\d])(\d+)[-_](\d+)[-_](\d+)(?:[^\d]|$)`)
)

// ExtractMetadata reads the NewsArticle JSON-LD block, og:url and title of
// a page.
func ExtractMetadata(root *goquery.Selection) Metadata {
	return extractMetadata(root)
}

func extractMetadata(root *goquery.Selection) Metadata {
	var meta Metadata

	root.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		article, ok := newsArticle(s.Text())
		if !ok {
			return true
		}
		meta.Title = CleanText(article.Get("headline").String())
		meta.Date = isoDate(article.Get("datePublished").String())
		if meta.URL == "" {
			meta.URL = strings.TrimSpace(article.Get("url").String())
		}
		return false
	})

	if ogURL, ok := root.Find(`meta[property="og:url"]`).First().Attr("content"); ok && strings.TrimSpace(ogURL) != "" {
		meta.URL = strings.TrimSpace(ogURL)
	}
	if meta.Title == "" {
		meta.Title = Text(root.Find("title").First())
	}
	if meta.Date == "" {
		if datetime, ok := root.Find("time[datetime]").First().Attr("datetime"); ok {
			meta.Date = isoDate(datetime)
		}
	}
	meta.Version = ParseVersion(meta.Title)
	return meta
}

// newsArticle finds the NewsArticle object in a JSON-LD payload, which may
// be a single object, an array or an @graph container.
func newsArticle(payload string) (gjson.Result, bool) {
	payload = missingComma.ReplaceAllString(strings.TrimSpace(payload), "$1,$2")
	if !gjson.Valid(payload) {
		return gjson.Result{}, false
	}

	var found gjson.Result
	var visit func(v gjson.Result) bool
	visit = func(v gjson.Result) bool {
		switch {
		case v.IsArray():
			v.ForEach(func(_, item gjson.Result) bool { return !visit(item) })
		case v.IsObject():
			if isNewsArticle(v) {
				found = v
				return true
			}
			if graph := jsonLDKey(v, "@graph"); graph.Exists() {
				return visit(graph)
			}
		}
		return found.Exists()
	}
	visit(gjson.Parse(payload))
	return found, found.Exists()
}

func isNewsArticle(v gjson.Result) bool {
	kind := jsonLDKey(v, "@type")
	if kind.IsArray() {
		for _, k := range kind.Array() {
			if k.String() == "NewsArticle" {
				return true
			}
		}
		return false
	}
	return kind.String() == "NewsArticle"
}

// jsonLDKey reads a key that gjson would otherwise treat as a modifier.
func jsonLDKey(obj gjson.Result, key string) gjson.Result {
	var value gjson.Result
	obj.ForEach(func(k, v gjson.Result) bool {
		if k.String() == key {
			value = v
			return false
		}
		return true
	})
	return value
}

// isoDate reduces an ISO 8601 timestamp to YYYY-MM-DD.
func isoDate(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("2006-01-02")
		}
	}
	if len(value) >= 10 {
		if t, err := time.Parse("2006-01-02", value[:10]); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

// ParseVersion returns the first dotted version number in title, such as
// "5.0.12" in "StarCraft II Patch 5.0.12 Patch Notes".
func ParseVersion(title string) string {
	if m := versionPattern.FindStringSubmatch(title); m != nil {
		return m[1]
	}
	return ""
}

var slugSeparators = strings.NewReplacer("_", " ", "-", " ")

// VersionFromSlug reads a dash- or underscore-separated version such as
// "5-0-12" from a URL or file name.
func VersionFromSlug(s string) string {
	if v := ParseVersion(slugSeparators.Replace(path.Base(s))); v != "" {
		return v
	}
	if m := slugVersionPattern.FindStringSubmatch(s); m != nil {
		return m[1] + "." + m[2] + "." + m[3]
	}
	return ""
}

// URLToFilename derives a file stem from the last path segment of a page
// URL, dropping the "-patch-notes" suffix both layouts use.
func URLToFilename(rawURL string) string {
	stem := ""
	if u, err := url.Parse(strings.TrimSpace(rawURL)); err == nil {
		stem = path.Base(strings.Trim(u.Path, "/"))
	}
	if stem == "" || stem == "." || stem == "/" {
		return "index"
	}
	stem = strings.ReplaceAll(stem, "-patch-notes", "")
	stem = strings.ReplaceAll(stem, "_patch_notes", "")
	if stem == "" {
		return "index"
	}
	return stem
}
