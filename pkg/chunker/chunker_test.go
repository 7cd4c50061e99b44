package chunker

import (
	"strings"
	"testing"
)

func TestFeedSplitsSentences(t *testing.T) {
	c := New()

	chunks := c.Feed("Hello there. How are you?")
	want := []string{"Hello there. ", "How are you?"}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d: %q", len(want), len(chunks), chunks)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, chunks[i], want[i])
		}
	}
	if final := c.Flush(); final != "" {
		t.Errorf("flush = %q, want empty", final)
	}
}

func TestFeedTwoSentencesBothTerminated(t *testing.T) {
	c := New()

	chunks := c.Feed("Hello there. How are you? ")
	want := []string{"Hello there. ", "How are you? "}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d: %q", len(want), len(chunks), chunks)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, chunks[i], want[i])
		}
	}
	if c.Pending() != 0 {
		t.Errorf("expected empty buffer, %d bytes pending", c.Pending())
	}
}

func TestFeedIncrementalFragments(t *testing.T) {
	c := New()

	var got []string
	for _, frag := range []string{"You ha", "ve three meet", "ings today. The fir", "st one"} {
		got = append(got, c.Feed(frag)...)
	}

	if len(got) != 1 {
		t.Fatalf("expected 1 chunk mid-stream, got %d: %q", len(got), got)
	}
	if got[0] != "You have three meetings today. " {
		t.Errorf("chunk = %q", got[0])
	}
	if final := c.Flush(); final != "The first one" {
		t.Errorf("flush = %q, want %q", final, "The first one")
	}
}

func TestRunOnTextCutsAtWordBoundary(t *testing.T) {
	c := New()

	// 200 characters of unpunctuated words.
	word := "tick "
	text := strings.Repeat(word, 40) // 200 chars, no terminal marks

	chunks := c.Feed(text)
	if len(chunks) == 0 {
		t.Fatal("expected a forced cut on long unpunctuated text")
	}

	first := chunks[0]
	if len(first) > DefaultMaxBuffer {
		t.Errorf("first chunk length %d exceeds %d", len(first), DefaultMaxBuffer)
	}
	if len(first) <= DefaultMinCut {
		t.Errorf("first chunk length %d not past minimum cut %d", len(first), DefaultMinCut)
	}
	if !strings.HasSuffix(first, " ") {
		t.Errorf("forced cut should land after a space, got %q", first[len(first)-10:])
	}

	rest := c.Flush()
	if first+rest != text {
		t.Error("chunks plus flush should reconstruct the input")
	}
}

func TestNoCutWithoutWordBoundary(t *testing.T) {
	c := New()

	// Long run with no spaces past the minimum offset: nothing to cut.
	text := strings.Repeat("x", 200)
	if chunks := c.Feed(text); len(chunks) != 0 {
		t.Errorf("expected no chunks for unbroken text, got %q", chunks)
	}
	if final := c.Flush(); final != text {
		t.Error("flush should return the whole buffer")
	}
}

func TestFlushEmptyAndWhitespace(t *testing.T) {
	c := New()
	if got := c.Flush(); got != "" {
		t.Errorf("flush of empty chunker = %q", got)
	}

	c.Feed("   ")
	if got := c.Flush(); got != "" {
		t.Errorf("whitespace-only buffer should flush empty, got %q", got)
	}
}

func TestResetBetweenRuns(t *testing.T) {
	c := New()
	c.Feed("Leftover text without punctuation")
	c.Reset()

	chunks := c.Feed("Fresh run. ")
	if len(chunks) != 1 || chunks[0] != "Fresh run. " {
		t.Errorf("after reset got %q", chunks)
	}
}

func TestNewlineIsTerminal(t *testing.T) {
	c := New()
	chunks := c.Feed("First line\nsecond part")
	if len(chunks) != 1 || chunks[0] != "First line\n" {
		t.Errorf("newline should terminate a chunk, got %q", chunks)
	}
}
