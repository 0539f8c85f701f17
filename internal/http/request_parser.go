package http

import (
	"net/url"
	"strings"

	"aulas/internal/core"
)

// ParseFilter builds a FilterSelection from the type, start and end query
// parameters. Missing bounds fall back to defaults; an empty or "all" type
// selects every type. Unparseable bounds are an error.
func ParseFilter(query url.Values, defaults core.FilterSelection) (core.FilterSelection, error) {
	sel := defaults

	if v, ok := lookup(query, "type"); ok {
		if strings.EqualFold(v, "all") || strings.EqualFold(v, "todos") {
			v = ""
		}
		sel.Type = v
	}
	if v, ok := lookup(query, "start"); ok && v != "" {
		sel.Start = v
	}
	if v, ok := lookup(query, "end"); ok && v != "" {
		sel.End = v
	}

	if err := sel.Validate(); err != nil {
		return core.FilterSelection{}, err
	}
	return sel, nil
}

func lookup(query url.Values, key string) (string, bool) {
	if _, ok := query[key]; !ok {
		return "", false
	}
	return sanitizeInput(query.Get(key)), true
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 {
			return -1
		}
		return r
	}, s)
}
