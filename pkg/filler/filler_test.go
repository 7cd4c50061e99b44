package filler

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestRotationAvoidsRecentPhrases(t *testing.T) {
	phrases := []string{"a", "b", "c", "d", "e"}
	r := NewRotation(phrases, 3)

	var last3 []string
	for i := 0; i < 50; i++ {
		p := r.Next()
		for _, prev := range last3 {
			if p == prev {
				t.Fatalf("pick %d repeated recent phrase %q", i, p)
			}
		}
		last3 = append(last3, p)
		if len(last3) > 3 {
			last3 = last3[1:]
		}
	}
}

func TestRotationRefillsWhenExhausted(t *testing.T) {
	r := NewRotation([]string{"only"}, 3)
	for i := 0; i < 5; i++ {
		if got := r.Next(); got != "only" {
			t.Fatalf("pick %d = %q, want %q", i, got, "only")
		}
	}
}

func TestRotationEmptySet(t *testing.T) {
	r := NewRotation(nil, 3)
	if got := r.Next(); got != "" {
		t.Errorf("Next on empty set = %q, want empty", got)
	}
}

func collectSpeaks() (func(string), func() []string) {
	var mu sync.Mutex
	var spoken []string
	speak := func(text string) {
		mu.Lock()
		spoken = append(spoken, text)
		mu.Unlock()
	}
	snapshot := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), spoken...)
	}
	return speak, snapshot
}

func TestSchedulerFiresBothWhenSlow(t *testing.T) {
	s := NewScheduler(Config{AckDelay: 10 * time.Millisecond, FillerDelay: 10 * time.Millisecond})
	speak, spoken := collectSpeaks()

	turn := s.Start(context.Background(), speak)
	time.Sleep(60 * time.Millisecond)
	turn.Stop()

	got := spoken()
	if len(got) != 2 {
		t.Fatalf("expected acknowledgment and filler, got %q", got)
	}
	if !contains(AcknowledgmentPhrases, got[0]) {
		t.Errorf("first phrase %q not an acknowledgment", got[0])
	}
	if !contains(FillerPhrases, got[1]) {
		t.Errorf("second phrase %q not a filler", got[1])
	}
}

func TestSchedulerSuppressedByFirstChunk(t *testing.T) {
	s := NewScheduler(Config{AckDelay: 30 * time.Millisecond, FillerDelay: 30 * time.Millisecond})
	speak, spoken := collectSpeaks()

	turn := s.Start(context.Background(), speak)
	turn.NoteFirstChunk() // arrives before either timer
	time.Sleep(100 * time.Millisecond)
	turn.Stop()

	if got := spoken(); len(got) != 0 {
		t.Errorf("no phrases expected after first chunk, got %q", got)
	}
}

func TestSchedulerStopCancelsAndJoins(t *testing.T) {
	s := NewScheduler(Config{AckDelay: 50 * time.Millisecond, FillerDelay: 50 * time.Millisecond})
	speak, spoken := collectSpeaks()

	turn := s.Start(context.Background(), speak)
	turn.Stop() // immediately; Stop must wait for both goroutines

	// Nothing may be spoken after Stop returns.
	before := len(spoken())
	time.Sleep(120 * time.Millisecond)
	if after := len(spoken()); after != before || after != 0 {
		t.Errorf("phrase spoken after Stop: %q", spoken())
	}
}

func TestSchedulerAckFiresAtMostOnce(t *testing.T) {
	s := NewScheduler(Config{AckDelay: 5 * time.Millisecond, FillerDelay: time.Hour})
	speak, spoken := collectSpeaks()

	turn := s.Start(context.Background(), speak)
	time.Sleep(40 * time.Millisecond)
	turn.Stop()

	if got := spoken(); len(got) != 1 {
		t.Errorf("acknowledgment should fire exactly once, got %q", got)
	}
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
