package extract

import (
	"net/url"
	"regexp"
	"strings"
)

var urlPattern = regexp.MustCompile(`https?://[^\s<>"'\]]+`)

// CitedLinks returns the http(s) URLs cited in text, normalized and
// deduplicated in order of first appearance
func CitedLinks(text string) []string {
	seen := make(map[string]bool)
	var links []string
	for _, raw := range urlPattern.FindAllString(text, -1) {
		u, err := url.Parse(trimURL(raw))
		if err != nil || u.Host == "" {
			continue
		}
		u.Fragment, u.RawFragment = "", ""
		link := u.String()
		if !seen[link] {
			seen[link] = true
			links = append(links, link)
		}
	}
	return links
}

// trimURL drops sentence punctuation and closing parentheses that are not
// part of the URL itself, so "(see https://x.org/Foo_(bar))." keeps "Foo_(bar)"
func trimURL(raw string) string {
	for {
		trimmed := strings.TrimRight(raw, ".,;:!?")
		if strings.HasSuffix(trimmed, ")") && strings.Count(trimmed, "(") < strings.Count(trimmed, ")") {
			trimmed = trimmed[:len(trimmed)-1]
		}
		if trimmed == raw {
			return raw
		}
		raw = trimmed
	}
}
