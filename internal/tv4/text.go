package tv4

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	viewXMLSuffix = regexp.MustCompile(`^(.+?)\?view=xml`)
	ajaxHref      = regexp.MustCompile(`^/(.+?)\?ajax`)
	browserID     = regexp.MustCompile(`browser=([0-9.]+)`)
	pageOf        = regexp.MustCompile(`Page ([0-9]+) of ([0-9]+)`)

	titler = cases.Title(language.Swedish)
)

// DateLayout renders published dates as DD/MM/YYYY.
const DateLayout = "02/01/2006"

var publishedLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"20060102150405",
	"20060102",
	time.RFC1123Z,
	time.RFC1123,
	"2 Jan 2006",
	"2 January 2006",
	"02/01/2006",
}

// TitleCase upper-cases the first letter of each word and lower-cases the rest.
func TitleCase(s string) string { return titler.String(s) }

// IsUpper reports whether s has at least one cased letter and no lower-case ones.
func IsUpper(s string) bool {
	return strings.ToUpper(s) == s && strings.ToLower(s) != s
}

// normalizeViewName title-cases shouting keyword views ("KEYWORDS" → "Keywords").
func normalizeViewName(name, viewURL string) string {
	if IsUpper(name) && strings.Contains(viewURL, "keywords") {
		return TitleCase(name)
	}
	return name
}

// FormatDate renders raw as DD/MM/YYYY. Values in no known layout are
// returned unchanged.
func FormatDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(DateLayout)
		}
	}
	return raw
}

// ParsePagination extracts "Page X of Y". ok is false when the attribute
// is absent or malformed.
func ParsePagination(attr string) (p Pagination, ok bool) {
	m := pageOf.FindStringSubmatch(attr)
	if m == nil {
		return Pagination{}, false
	}
	cur, err1 := strconv.Atoi(m[1])
	total, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil {
		return Pagination{}, false
	}
	return Pagination{Current: cur, Total: total}, true
}

// PageURL appends the page parameter to a content list URL.
func PageURL(listURL string, page int) string {
	if page < 1 {
		page = 1
	}
	sep := "&"
	if !strings.Contains(listURL, "?") {
		sep = "?"
	}
	return listURL + sep + "page=" + strconv.Itoa(page)
}

// HomeURL strips the "?view=xml" suffix from a program view URL.
func HomeURL(viewURL string) (string, bool) {
	m := viewXMLSuffix.FindStringSubmatch(viewURL)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ProgramIDFromURL returns the first path segment of a program URL such as
// http://www.tv4play.se/1.1234567?view=xml.
func ProgramIDFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	p := strings.Trim(u.Path, "/")
	if i := strings.IndexByte(p, '/'); i >= 0 {
		p = p[:i]
	}
	return p
}
