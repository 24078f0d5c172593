package extract

import "testing"

func TestSplitSentences_BasicSplitting(t *testing.T) {
	text := "This is the first sentence. This is the second one! And is this the third?"

	sentences := SplitSentences(text)

	if len(sentences) != 3 {
		t.Fatalf("Expected 3 sentences, got %d: %+v", len(sentences), sentences)
	}

	for i, s := range sentences {
		if s.Index != i {
			t.Errorf("Expected index %d, got %d", i, s.Index)
		}
		if text[s.Start:s.End] != s.Text {
			t.Errorf("Offsets [%d,%d) do not match text %q", s.Start, s.End, s.Text)
		}
	}
}

func TestSplitSentences_Abbreviations(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"Dr. Smith arrived late. He left at noon.", 2},
		{"The U.S. Supreme Court heard Marbury v. Madison in 1803.", 1},
		{"J. R. R. Tolkien wrote many books. They sold well.", 2},
		{"Use a tool, e.g. a hammer, for this. Then stop.", 2},
	}

	for _, c := range cases {
		got := SplitSentences(c.text)
		if len(got) != c.want {
			t.Errorf("%q: expected %d sentences, got %d: %+v", c.text, c.want, len(got), got)
		}
	}
}

func TestSplitSentences_Newlines(t *testing.T) {
	text := "First line without a period\nSecond line also without one"

	sentences := SplitSentences(text)
	if len(sentences) != 2 {
		t.Fatalf("Expected newline to end a sentence, got %d", len(sentences))
	}
	if sentences[1].Text != "Second line also without one" {
		t.Errorf("Unexpected second sentence %q", sentences[1].Text)
	}
}

func TestSplitSentences_LowercaseContinuation(t *testing.T) {
	sentences := SplitSentences("The value is approx. three times larger. and then some more.")
	if len(sentences) != 1 {
		t.Errorf("Expected lowercase continuation to stay in one sentence, got %d", len(sentences))
	}
}

func TestSplitSentences_ClosingQuotes(t *testing.T) {
	text := `He said "it is done." Then he left the room.`
	sentences := SplitSentences(text)
	if len(sentences) != 2 {
		t.Fatalf("Expected 2 sentences, got %d", len(sentences))
	}
	if sentences[0].Text != `He said "it is done."` {
		t.Errorf("Expected closing quote to stay with the first sentence, got %q", sentences[0].Text)
	}
}

func TestSplitSentences_Empty(t *testing.T) {
	if got := SplitSentences(""); len(got) != 0 {
		t.Errorf("Expected no sentences, got %d", len(got))
	}
	if got := SplitSentences("  \n \n "); len(got) != 0 {
		t.Errorf("Expected no sentences from whitespace, got %d", len(got))
	}
}
