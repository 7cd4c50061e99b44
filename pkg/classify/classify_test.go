package classify

import "testing"

func TestIsFarewell(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"exact match", "goodbye", true},
		{"exact with punctuation", "goodbye!", true},
		{"prefix", "bye for now", true},
		{"suffix", "okay then goodbye", true},
		{"keyword in phrase", "goodbye rosie", true},
		{"hang up request", "please hang up", true},
		{"end call", "end call", true},
		{"question", "what's on my calendar", false},
		{"greeting", "hello there", false},
		{"empty", "", false},
		{"whitespace", "   ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFarewell(tt.text); got != tt.want {
				t.Errorf("IsFarewell(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestIsFarewellIgnoresTrailingPunctuation(t *testing.T) {
	inputs := []string{
		"goodbye", "see you", "that's all", "hello", "check my email",
		"later", "thanks bye", "what time is it",
	}
	for _, text := range inputs {
		if IsFarewell(text) != IsFarewell(text+"!") {
			t.Errorf("IsFarewell(%q) != IsFarewell(%q)", text, text+"!")
		}
		if IsFarewell(text) != IsFarewell(text+"?.,") {
			t.Errorf("IsFarewell(%q) != IsFarewell(%q)", text, text+"?.,")
		}
	}
}

func TestIsSimpleChat(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"exact greeting", "hello", true},
		{"exact with punctuation", "thanks!", true},
		{"greeting with tail", "hello there", true},
		{"greeting then request", "hey can you check my email", false},
		{"greeting then question mark", "hey, what time is it?", false},
		{"two words no question", "sounds good", true},
		{"short but question word", "check email", false},
		{"short with question mark", "really?", false},
		{"long sentence", "please summarize my unread messages from today", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSimpleChat(tt.text); got != tt.want {
				t.Errorf("IsSimpleChat(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestEchoScoreNoHistory(t *testing.T) {
	for _, threshold := range []float64{0.1, 0.3, 0.4, 0.9} {
		if IsEcho("you have three meetings today", nil, threshold) {
			t.Errorf("IsEcho with no recent responses should be false at threshold %v", threshold)
		}
	}
}

func TestEchoScoreShortCandidate(t *testing.T) {
	recent := []string{"ok ok ok"}
	if IsEcho("ok", recent, 0.3) {
		t.Error("single-word candidate should never be echo")
	}
	if got := EchoScore("ok", recent); got != 0 {
		t.Errorf("EchoScore for one-word candidate = %v, want 0", got)
	}
}

func TestEchoScoreOverlap(t *testing.T) {
	recent := []string{"you have three meetings on your calendar today"}

	// Full overlap of meaningful words.
	if got := EchoScore("three meetings today", recent); got < 0.99 {
		t.Errorf("EchoScore full overlap = %v, want 1.0", got)
	}

	// Disjoint content.
	if got := EchoScore("play some jazz music", recent); got != 0 {
		t.Errorf("EchoScore disjoint = %v, want 0", got)
	}

	// Meaningless words don't count toward overlap.
	if got := EchoScore("you are it and", recent); got != 0 {
		t.Errorf("EchoScore meaningless-only candidate = %v, want 0", got)
	}
}

func TestEchoScoreTakesMaxAcrossResponses(t *testing.T) {
	recent := []string{
		"the weather is sunny",
		"you have three meetings today",
	}
	got := EchoScore("three meetings today", recent)
	if got < 0.99 {
		t.Errorf("EchoScore should take max across responses, got %v", got)
	}
}

func TestIsEchoThresholds(t *testing.T) {
	recent := []string{"you have three meetings on your calendar today"}
	// 2 of 6 meaningful words overlap.
	candidate := "three meetings dragons breathing fire soar"

	if IsEcho(candidate, recent, 0.4) {
		t.Errorf("overlap 2/6 should not trip 0.4 threshold")
	}
	if !IsEcho(candidate, recent, 0.3) {
		t.Errorf("overlap 2/6 should trip 0.3 threshold")
	}
}
