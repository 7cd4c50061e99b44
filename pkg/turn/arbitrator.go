package turn

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chiefvoice/go-chief/pkg/chunker"
	"github.com/chiefvoice/go-chief/pkg/classify"
	"github.com/chiefvoice/go-chief/pkg/filler"
)

// Arbitrator runs the turn state machine for one call. States are
// evaluated lazily from three fields: a processing flag (one turn in
// flight), a speaking flag (response chunks queued and playing), and
// the estimated time queued speech finishes (cooldown start).
type Arbitrator struct {
	cfg    Config
	logger *slog.Logger
	sched  *filler.Scheduler

	mu              sync.Mutex
	processing      bool
	speaking        bool
	speechEnd       time.Time
	lastProcessed   string
	recentResponses []string

	endOnce        sync.Once
	endSessionOnce sync.Once
}

// New creates an Arbitrator for one call session.
func New(cfg Config) (*Arbitrator, error) {
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &Arbitrator{
		cfg:    cfg,
		logger: cfg.Logger.With("component", "turn"),
		sched:  filler.NewScheduler(cfg.Filler),
	}, nil
}

// HandleUtterance runs the gate checks on one transcribed utterance
// and, if it passes, processes the full turn. It blocks until the
// turn finishes; dispatch each utterance on its own goroutine. The
// processing guard ensures overlapping calls cannot double-process.
func (a *Arbitrator) HandleUtterance(ctx context.Context, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	if !a.admit(text) {
		return
	}
	a.processTurn(ctx, text)
}

// admit applies the gate checks in order. Each is a hard drop. On
// admission the processing flag is set and the text recorded as the
// last processed utterance.
func (a *Arbitrator) admit(text string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if text == a.lastProcessed {
		a.logger.Info("dropping duplicate utterance", "text", truncate(text))
		return false
	}
	if a.processing {
		a.logger.Info("dropping utterance, turn in flight", "text", truncate(text))
		return false
	}
	if a.speaking {
		if classify.IsEcho(text, a.recentResponses, a.cfg.EchoSpeakingThreshold) {
			a.logger.Info("dropping echo while speaking", "text", truncate(text))
			return false
		}
		// Different content mid-speech is a barge-in.
		a.logger.Info("barge-in detected", "text", truncate(text))
		a.speaking = false
		a.cfg.Output.StopSpeaking()
	}
	if since := time.Since(a.speechEnd); since < a.cfg.PostSpeechCooldown {
		a.logger.Info("dropping utterance during cooldown",
			"text", truncate(text), "since_speech_end", since)
		return false
	}
	if classify.IsEcho(text, a.recentResponses, a.cfg.EchoIdleThreshold) {
		a.logger.Info("dropping echo", "text", truncate(text))
		return false
	}

	a.processing = true
	a.lastProcessed = text
	return true
}

// processTurn streams the reply for an admitted utterance, feeding
// chunks straight to the output as they complete.
func (a *Arbitrator) processTurn(ctx context.Context, text string) {
	a.logger.Info("processing utterance", "text", text)
	a.postTranscript(ctx, "user", text)

	// release returns the session to Idle/Cooldown exactly once. It
	// must run before any post-turn waiting so a follow-up utterance
	// is gated by cooldown, not by a stale processing flag.
	released := false
	release := func() {
		if released {
			return
		}
		released = true
		a.mu.Lock()
		a.processing = false
		a.speaking = false
		a.mu.Unlock()
	}
	defer release()

	// Simple chat reads fast enough that an acknowledgment would only
	// add noise.
	var timers *filler.Turn
	if classify.IsSimpleChat(text) {
		a.logger.Info("simple chat, skipping acknowledgment timers")
	} else {
		timers = a.sched.Start(ctx, a.cfg.Output.SpeakChunk)
	}
	stopTimers := func() {
		if timers != nil {
			timers.Stop()
			timers = nil
		}
	}
	defer stopTimers()

	stream, err := a.cfg.Gateway.StreamMessage(ctx, text)
	if err != nil {
		a.logger.Error("gateway request failed", "error", err)
		stopTimers()
		a.fallback(ctx, text)
		return
	}
	defer stream.Close()

	var full strings.Builder
	ch := chunker.New()
	chunksSent := 0
	start := time.Now()

	for {
		delta, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			a.logger.Error("gateway stream failed", "error", err)
			stopTimers()
			a.fallback(ctx, text)
			return
		}

		if full.Len() == 0 && delta != "" {
			// First content: no filler may speak after this point.
			stopTimers()
			a.mu.Lock()
			a.speaking = true
			a.mu.Unlock()
			a.logger.Info("first chunk received", "latency", time.Since(start))
		}
		full.WriteString(delta)

		for _, chunk := range ch.Feed(delta) {
			chunksSent++
			a.cfg.Output.SpeakChunk(chunk)
		}
	}
	if tail := ch.Flush(); tail != "" {
		chunksSent++
		a.cfg.Output.SpeakChunk(tail)
	}

	response := full.String()
	if chunksSent == 0 || strings.TrimSpace(response) == "" {
		a.logger.Warn("gateway returned empty response")
		stopTimers()
		a.fallback(ctx, text)
		return
	}

	a.logger.Info("streaming complete",
		"chunks", chunksSent, "chars", len(response), "elapsed", time.Since(start))
	a.finishTurn(ctx, response)
	release()

	if classify.IsFarewell(text) {
		a.logger.Info("farewell detected, ending call after grace period")
		select {
		case <-ctx.Done():
		case <-time.After(a.cfg.FarewellGrace):
		}
		a.endOnce.Do(a.cfg.Output.EndCall)
	}
}

// finishTurn records a successful response: echo history, the cooldown
// window covering estimated playback, and transcript persistence.
func (a *Arbitrator) finishTurn(ctx context.Context, response string) {
	playback := time.Duration(float64(len(response)) / a.cfg.CharsPerSecond * float64(time.Second))

	a.mu.Lock()
	a.recentResponses = append(a.recentResponses, response)
	if len(a.recentResponses) > recentResponsesMax {
		a.recentResponses = a.recentResponses[1:]
	}
	a.speechEnd = time.Now().Add(playback)
	a.mu.Unlock()

	a.logger.Info("response queued", "estimated_playback", playback)
	a.postTranscript(ctx, "assistant", response)
}

// fallback produces a local reply when the gateway could not. The
// reply is chunked and spoken but deliberately kept out of the echo
// history and cooldown accounting, since it never reached the agent.
func (a *Arbitrator) fallback(ctx context.Context, text string) {
	if a.cfg.Fallback == nil {
		a.logger.Warn("no fallback generator configured, turn ends silently")
		return
	}

	reply, err := a.cfg.Fallback.Generate(ctx, text)
	if err != nil {
		a.logger.Error("fallback generation failed", "error", err)
		return
	}
	if strings.TrimSpace(reply) == "" {
		a.logger.Warn("fallback produced empty reply")
		return
	}

	a.logger.Info("speaking fallback reply", "chars", len(reply))
	ch := chunker.New()
	for _, chunk := range ch.Feed(reply) {
		a.cfg.Output.SpeakChunk(chunk)
	}
	if tail := ch.Flush(); tail != "" {
		a.cfg.Output.SpeakChunk(tail)
	}
	a.postTranscript(ctx, "assistant", reply)
}

// postTranscript persists one transcript line, best effort.
func (a *Arbitrator) postTranscript(ctx context.Context, role, text string) {
	if a.cfg.Transcripts == nil {
		return
	}
	if err := a.cfg.Transcripts.Post(ctx, role, text); err != nil {
		a.logger.Error("transcript post failed", "role", role, "error", err)
	}
}

// RecentResponses returns a copy of the echo-detection history.
func (a *Arbitrator) RecentResponses() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.recentResponses...)
}

func truncate(s string) string {
	if len(s) > 50 {
		return s[:50] + "..."
	}
	return s
}
