package extract

import "testing"

func TestCitedLinks_DedupesAndTrims(t *testing.T) {
	text := "See https://example.com/a. Also https://example.com/a, and (https://law.cornell.edu/x) plus ftp://files.example.com/y."

	links := CitedLinks(text)

	if len(links) != 2 {
		t.Fatalf("Expected 2 links, got %d: %v", len(links), links)
	}
	if links[0] != "https://example.com/a" {
		t.Errorf("Expected trailing punctuation trimmed, got %s", links[0])
	}
	if links[1] != "https://law.cornell.edu/x" {
		t.Errorf("Expected closing parenthesis excluded, got %s", links[1])
	}
}

func TestCitedLinks_None(t *testing.T) {
	if links := CitedLinks("No links in this sentence at all."); len(links) != 0 {
		t.Errorf("Expected no links, got %v", links)
	}
}

func TestCitedLinks_BalancedParentheses(t *testing.T) {
	text := "Per the article (see https://en.wikipedia.org/wiki/Mercury_(planet)). Details at https://example.com/page#section."

	links := CitedLinks(text)
	if len(links) != 2 {
		t.Fatalf("Expected 2 links, got %d: %v", len(links), links)
	}
	if links[0] != "https://en.wikipedia.org/wiki/Mercury_(planet)" {
		t.Errorf("Expected balanced parenthesis kept, got %s", links[0])
	}
	if links[1] != "https://example.com/page" {
		t.Errorf("Expected fragment dropped, got %s", links[1])
	}
}
