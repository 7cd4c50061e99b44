// Package chunker segments a live stream of text fragments into
// speakable chunks, emitting each chunk as early as safely possible so
// speech synthesis can start before the full response is known.
package chunker

import "strings"

// Default segmentation bounds. A chunk is cut at sentence-ending
// punctuation when present; otherwise a run-on buffer is cut at the
// last space before MaxBuffer, provided the cut lands past MinCut.
const (
	DefaultMaxBuffer = 150
	DefaultMinCut    = 50
)

// terminal marks that end a speakable chunk.
func isTerminal(c byte) bool {
	return c == '.' || c == '!' || c == '?' || c == '\n'
}

// Chunker accumulates streamed text and yields complete chunks.
// It is restartable: call Reset between runs. Not goroutine-safe;
// a single turn feeds it sequentially.
type Chunker struct {
	buf       strings.Builder
	maxBuffer int
	minCut    int
}

// New creates a Chunker with the default bounds.
func New() *Chunker {
	return &Chunker{maxBuffer: DefaultMaxBuffer, minCut: DefaultMinCut}
}

// NewWithBounds creates a Chunker with custom bounds.
func NewWithBounds(maxBuffer, minCut int) *Chunker {
	if maxBuffer <= 0 {
		maxBuffer = DefaultMaxBuffer
	}
	if minCut <= 0 {
		minCut = DefaultMinCut
	}
	return &Chunker{maxBuffer: maxBuffer, minCut: minCut}
}

// Feed appends a fragment and returns any chunks that became complete.
// Chunks whose content is only whitespace are dropped.
func (c *Chunker) Feed(fragment string) []string {
	if fragment == "" {
		return nil
	}
	c.buf.WriteString(fragment)

	var chunks []string
	for {
		chunk, rest, ok := c.cut(c.buf.String())
		if !ok {
			break
		}
		c.buf.Reset()
		c.buf.WriteString(rest)
		if strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

// Flush returns whatever remains buffered as a final chunk, or ""
// if the buffer holds nothing speakable. The chunker is left empty.
func (c *Chunker) Flush() string {
	rest := c.buf.String()
	c.buf.Reset()
	if strings.TrimSpace(rest) == "" {
		return ""
	}
	return rest
}

// Reset discards buffered text so the chunker can serve a new run.
func (c *Chunker) Reset() {
	c.buf.Reset()
}

// Pending returns the number of buffered bytes not yet emitted.
func (c *Chunker) Pending() int {
	return c.buf.Len()
}

// cut finds the next chunk boundary in buffered text.
func (c *Chunker) cut(text string) (chunk, rest string, ok bool) {
	// Sentence-ending punctuation: include the mark and any
	// immediately following whitespace.
	for i := 0; i < len(text); i++ {
		if !isTerminal(text[i]) {
			continue
		}
		end := i + 1
		for end < len(text) && (text[end] == ' ' || text[end] == '\n') {
			end++
		}
		return text[:end], text[end:], true
	}

	// Run-on text: cut at the last space before the length bound,
	// but never produce a pathologically short chunk.
	if len(text) > c.maxBuffer {
		if sp := strings.LastIndex(text[:c.maxBuffer], " "); sp > c.minCut {
			return text[:sp+1], text[sp+1:], true
		}
	}

	return "", text, false
}
