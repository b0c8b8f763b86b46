// Package feedurl builds per-country provider feed URLs from topic templates.
package feedurl

import (
	"strings"

	"maptimes/internal/domain"
)

// Locale holds the provider parameters derived from an ISO 3166-1 code.
type Locale struct {
	HL   string
	GL   string
	CEID string
}

func LocaleFor(isoCode string) Locale {
	code := strings.TrimSpace(isoCode)
	hl := strings.ToLower(code)
	gl := strings.ToUpper(code)
	return Locale{HL: hl, GL: gl, CEID: gl + ":" + hl}
}

// TopicTemplate returns the URL template stored for a new topic.
func TopicTemplate(base, topicCode string) string {
	return base + topicCode + "?hl={hl}&gl={gl}&ceid={ceid}"
}

// Resolve fills the {hl}, {gl} and {ceid} placeholders of template.
func Resolve(template, isoCode string) string {
	l := LocaleFor(isoCode)
	r := strings.NewReplacer("{hl}", l.HL, "{gl}", l.GL, "{ceid}", l.CEID)
	return r.Replace(template)
}

// FeedURL rebuilds the provider URL of a stored feed from its topic
// template and the query string captured from the feed's own link.
func FeedURL(template, queryParams string) string {
	base, _, _ := strings.Cut(template, "?")
	if queryParams == "" {
		return base
	}
	return base + "?" + queryParams
}

// QueryParams returns the raw query string of link, or "" when it has none.
func QueryParams(link string) string {
	_, query, found := strings.Cut(strings.TrimSpace(link), "?")
	if !found {
		return ""
	}
	return query
}

// Prioritize moves countries whose ISO code is in priority to the front.
// Relative order inside both groups is preserved.
func Prioritize(countries []domain.Country, priority []string) []domain.Country {
	set := make(map[string]struct{}, len(priority))
	for _, code := range priority {
		set[strings.ToUpper(code)] = struct{}{}
	}

	ordered := make([]domain.Country, 0, len(countries))
	rest := make([]domain.Country, 0, len(countries))
	for _, c := range countries {
		if _, ok := set[strings.ToUpper(c.ISOCode)]; ok {
			ordered = append(ordered, c)
		} else {
			rest = append(rest, c)
		}
	}
	return append(ordered, rest...)
}
