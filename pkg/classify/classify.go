// Package classify provides lexical heuristics over transcribed
// utterances: farewell detection, simple-chat detection, and echo
// scoring against recent bot output.
//
// All functions are pure and total; any string input, including the
// empty string, yields a result without error.
package classify

import "strings"

// farewellPatterns end the call when matched exactly or as a prefix/suffix.
var farewellPatterns = []string{
	"bye", "goodbye", "see you", "later", "take care", "night", "good night",
	"gotta go", "talk to you later", "catch you later", "i'm done", "end call",
	"hang up", "disconnect", "that's all", "thanks bye", "thank you bye",
}

// farewellKeywords catch farewells buried in longer phrases,
// e.g. "okay goodbye" or "goodbye rosie".
var farewellKeywords = map[string]bool{
	"bye":        true,
	"goodbye":    true,
	"goodnight":  true,
	"later":      true,
	"disconnect": true,
	"hang up":    true,
	"end call":   true,
}

// simpleChatPatterns are conversational utterances that get a reply
// without masking latency with acknowledgment phrases.
var simpleChatPatterns = map[string]bool{
	// Greetings
	"hi": true, "hello": true, "hey": true, "howdy": true, "hiya": true, "yo": true,
	"good morning": true, "good afternoon": true, "good evening": true, "good night": true,
	// Farewells
	"bye": true, "goodbye": true, "see you": true, "later": true, "take care": true, "night": true,
	// Thanks
	"thanks": true, "thank you": true, "appreciate it": true, "thx": true,
	// Affirmations
	"yes": true, "no": true, "yeah": true, "yep": true, "nope": true, "sure": true,
	"okay": true, "ok": true, "yup": true,
	"right": true, "correct": true, "got it": true, "understood": true, "alright": true, "fine": true,
	// Acknowledgments
	"cool": true, "nice": true, "great": true, "awesome": true, "perfect": true, "sounds good": true,
}

// questionWords mark short utterances as requests rather than chat.
var questionWords = map[string]bool{
	"what": true, "where": true, "when": true, "who": true, "why": true,
	"how": true, "which": true, "check": true, "find": true, "get": true,
	"show": true, "tell": true,
}

// meaninglessWords are excluded from echo-overlap scoring.
var meaninglessWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true, "was": true,
	"were": true, "to": true, "and": true, "or": true, "i": true, "you": true,
	"it": true,
}

// normalize lowercases and strips trailing punctuation.
func normalize(text string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(text)), "!?.,:;")
}

// IsFarewell reports whether an utterance should end the call.
func IsFarewell(text string) bool {
	msg := normalize(text)
	if msg == "" {
		return false
	}

	for _, pattern := range farewellPatterns {
		if msg == pattern || strings.HasPrefix(msg, pattern) || strings.HasSuffix(msg, pattern) {
			return true
		}
	}

	for _, word := range strings.Fields(msg) {
		if farewellKeywords[word] {
			return true
		}
	}

	return false
}

// IsSimpleChat reports whether an utterance is simple conversational
// chat that needs no acknowledgment phrase while the reply is produced.
// It never decides whether the remote agent is consulted.
func IsSimpleChat(text string) bool {
	msg := normalize(text)
	if msg == "" {
		return false
	}

	if simpleChatPatterns[msg] {
		return true
	}

	// "hello there" style openers count, unless the rest is a request.
	for pattern := range simpleChatPatterns {
		if strings.HasPrefix(msg, pattern+" ") || strings.HasPrefix(msg, pattern+",") {
			if strings.Contains(msg, " can ") || strings.Contains(msg, " could ") ||
				strings.Contains(msg, " would ") || strings.Contains(text, "?") {
				return false
			}
			return true
		}
	}

	// Very short utterances without question words are likely chat.
	words := strings.Fields(msg)
	if len(words) <= 2 && !strings.Contains(text, "?") {
		for _, w := range words {
			if questionWords[w] {
				return false
			}
		}
		return true
	}

	return false
}

// EchoScore returns the highest meaningful word-overlap ratio between
// the candidate utterance and any recent bot response. Candidates with
// fewer than two distinct words score 0: too short to judge.
func EchoScore(candidate string, recentResponses []string) float64 {
	if len(recentResponses) == 0 {
		return 0
	}

	candidateWords := wordSet(candidate)
	if len(candidateWords) < 2 {
		return 0
	}

	meaningful := make(map[string]bool, len(candidateWords))
	for w := range candidateWords {
		if !meaninglessWords[w] {
			meaningful[w] = true
		}
	}
	if len(meaningful) == 0 {
		return 0
	}

	var best float64
	for _, response := range recentResponses {
		responseWords := wordSet(response)
		if len(responseWords) == 0 {
			continue
		}

		common := 0
		for w := range meaningful {
			if responseWords[w] {
				common++
			}
		}

		ratio := float64(common) / float64(len(meaningful))
		if ratio > best {
			best = ratio
		}
	}

	return best
}

// IsEcho reports whether the candidate looks like microphone pickup of
// the bot's own speech, at the given overlap threshold.
func IsEcho(candidate string, recentResponses []string, threshold float64) bool {
	return EchoScore(candidate, recentResponses) >= threshold
}

func wordSet(text string) map[string]bool {
	words := strings.Fields(strings.ToLower(text))
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
