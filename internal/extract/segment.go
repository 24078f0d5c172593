package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Segment is a sentence with its byte offsets in the source text
type Segment struct {
	Text  string
	Start int // inclusive
	End   int // exclusive
	Index int
}

// abbreviations never end a sentence
var abbreviations = map[string]bool{
	"v.": true, "vs.": true, "mr.": true, "mrs.": true, "ms.": true, "dr.": true,
	"prof.": true, "st.": true, "jr.": true, "sr.": true, "inc.": true, "ltd.": true,
	"co.": true, "corp.": true, "no.": true, "art.": true, "sec.": true, "cf.": true,
	"etc.": true, "al.": true, "approx.": true, "ca.": true, "fig.": true, "gen.": true,
	"gov.": true, "jan.": true, "feb.": true, "mar.": true, "apr.": true, "aug.": true,
	"sept.": true, "oct.": true, "nov.": true, "dec.": true,
}

// SplitSentences splits text into sentences, keeping byte offsets
func SplitSentences(text string) []Segment {
	var segments []Segment
	start := 0

	emit := func(end int) {
		seg := trimSegment(text, start, end)
		if seg.End > seg.Start {
			seg.Index = len(segments)
			segments = append(segments, seg)
		}
		start = end
	}

	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		next := i + size

		switch {
		case r == '\n':
			emit(next)
		case r == '.' || r == '!' || r == '?':
			// Absorb closing quotes/brackets and repeated terminators
			end := next
			for end < len(text) && strings.IndexByte(`.!?"')]`, text[end]) >= 0 {
				end++
			}
			if end >= len(text) {
				break
			}
			if !isSpace(text[end]) {
				break
			}
			if r == '.' && isAbbreviation(text, start, i) {
				break
			}
			if startsLowercase(text[end:]) {
				break
			}
			emit(end)
			next = end
		}

		i = next
	}

	if start < len(text) {
		emit(len(text))
	}

	return segments
}

// isAbbreviation checks the token ending at the period at dot
func isAbbreviation(text string, segStart, dot int) bool {
	tokStart := dot
	for tokStart > segStart && !isSpace(text[tokStart-1]) {
		tokStart--
	}
	token := strings.ToLower(strings.TrimLeft(text[tokStart:dot+1], `"'(“‘`))

	if abbreviations[token] {
		return true
	}

	body := strings.TrimSuffix(token, ".")
	// Initials such as "J." and dotted acronyms such as "U.S." or "e.g."
	if utf8.RuneCountInString(body) == 1 {
		r, _ := utf8.DecodeRuneInString(body)
		return unicode.IsLetter(r)
	}
	return strings.Contains(body, ".")
}

func startsLowercase(s string) bool {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	if s == "" {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsLower(r)
}

func trimSegment(text string, start, end int) Segment {
	for start < end && isSpace(text[start]) {
		start++
	}
	for end > start && isSpace(text[end-1]) {
		end--
	}
	return Segment{Text: text[start:end], Start: start, End: end}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == '\v'
}
