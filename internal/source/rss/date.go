package rss

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ParseDate parses a free-form date. It returns nil for empty or
// unparsable input and never logs.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	t, err := dateparse.ParseAny(s)
	if err != nil {
		return nil
	}
	return &t
}
