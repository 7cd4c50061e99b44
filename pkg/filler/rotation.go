// Package filler masks perceived latency with short spoken phrases.
// Two delayed timers inject an acknowledgment and, later, a filler
// phrase while the remote response is still pending; both are
// suppressed the instant the first response fragment arrives.
package filler

import "math/rand"

// Acknowledgment phrases spoken shortly after a slow turn begins.
var AcknowledgmentPhrases = []string{
	"Let me check on that.",
	"Looking into that now.",
	"On it.",
	"Let me see.",
	"Checking now.",
}

// Filler phrases for longer waits.
var FillerPhrases = []string{
	"Still working on that...",
	"One moment...",
	"Just a sec...",
	"Give me a moment...",
	"Hang on...",
	"Almost there...",
	"Still on it...",
}

// Rotation picks phrases while avoiding immediate repetition. It
// remembers the last maxRecent picks; when every phrase is recent,
// the memory is cleared and the full set becomes available again.
// Not goroutine-safe; the Scheduler serializes access.
type Rotation struct {
	phrases   []string
	recent    []string
	maxRecent int
}

// NewRotation creates a Rotation over the given phrase set.
func NewRotation(phrases []string, maxRecent int) *Rotation {
	return &Rotation{
		phrases:   phrases,
		maxRecent: maxRecent,
	}
}

// Next returns a phrase that was not recently spoken.
func (r *Rotation) Next() string {
	if len(r.phrases) == 0 {
		return ""
	}

	available := r.available()
	if len(available) == 0 {
		r.recent = r.recent[:0]
		available = r.phrases
	}

	phrase := available[rand.Intn(len(available))]
	r.recent = append(r.recent, phrase)
	if len(r.recent) > r.maxRecent {
		r.recent = r.recent[1:]
	}
	return phrase
}

func (r *Rotation) available() []string {
	out := make([]string, 0, len(r.phrases))
	for _, p := range r.phrases {
		if !r.isRecent(p) {
			out = append(out, p)
		}
	}
	return out
}

func (r *Rotation) isRecent(phrase string) bool {
	for _, p := range r.recent {
		if p == phrase {
			return true
		}
	}
	return false
}
