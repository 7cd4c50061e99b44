// Package turn arbitrates one live spoken conversation: it decides
// which transcribed utterances are worth forwarding to the remote
// agent, streams the reply back out as speakable chunks, and guards
// the whole exchange against echo, duplicates, and overlapping turns.
package turn

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/chiefvoice/go-chief/pkg/filler"
)

// Echo thresholds and timing defaults. The speaking threshold is loose
// because anything heard mid-speech is most likely the microphone
// picking up the bot's own voice.
const (
	DefaultEchoSpeakingThreshold = 0.3
	DefaultEchoIdleThreshold     = 0.4

	DefaultPostSpeechCooldown = time.Second
	DefaultFarewellGrace      = 3 * time.Second

	// Approximate spoken rate used to estimate how long queued
	// speech will take to play out.
	DefaultCharsPerSecond = 15

	recentResponsesMax = 3
)

// Output is the media-pipeline side of a call: everything the
// arbitrator says or signals goes through it.
type Output interface {
	// SpeakChunk queues one chunk of text for speech synthesis.
	SpeakChunk(text string)

	// StopSpeaking aborts any speech currently playing out.
	StopSpeaking()

	// EndCall terminates the call.
	EndCall()
}

// Stream yields assistant text deltas for one in-flight request.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// Gateway is the remote conversational agent.
type Gateway interface {
	StreamMessage(ctx context.Context, message string) (Stream, error)
	SendAndCollect(ctx context.Context, message string) (string, error)
	Close() error
}

// Generator produces a complete local reply when the gateway fails or
// returns nothing.
type Generator interface {
	Generate(ctx context.Context, userMessage string) (string, error)
}

// TranscriptSink persists call transcripts. Failures are logged and
// never abort a turn.
type TranscriptSink interface {
	Post(ctx context.Context, role, text string) error
}

// Outbound describes an AI-initiated call.
type Outbound struct {
	Enabled bool
	Reason  string
	Urgency string
	Context string
}

// Config wires an Arbitrator. Output and Gateway are required; the
// rest default sensibly.
type Config struct {
	Output      Output
	Gateway     Gateway
	Fallback    Generator
	Transcripts TranscriptSink

	// UserName is spoken in greetings.
	UserName string

	// Outbound switches the greeting and primes call context.
	Outbound Outbound

	// Filler tunes the acknowledgment and filler timers.
	Filler filler.Config

	EchoSpeakingThreshold float64
	EchoIdleThreshold     float64
	PostSpeechCooldown    time.Duration
	FarewellGrace         time.Duration
	CharsPerSecond        float64

	Logger *slog.Logger
}

// Errors returned by New.
var (
	ErrNoOutput  = errors.New("turn: output is required")
	ErrNoGateway = errors.New("turn: gateway is required")
)

func (c *Config) applyDefaults() error {
	if c.Output == nil {
		return ErrNoOutput
	}
	if c.Gateway == nil {
		return ErrNoGateway
	}
	if c.UserName == "" {
		c.UserName = "Dave"
	}
	if c.EchoSpeakingThreshold == 0 {
		c.EchoSpeakingThreshold = DefaultEchoSpeakingThreshold
	}
	if c.EchoIdleThreshold == 0 {
		c.EchoIdleThreshold = DefaultEchoIdleThreshold
	}
	if c.PostSpeechCooldown == 0 {
		c.PostSpeechCooldown = DefaultPostSpeechCooldown
	}
	if c.FarewellGrace == 0 {
		c.FarewellGrace = DefaultFarewellGrace
	}
	if c.CharsPerSecond == 0 {
		c.CharsPerSecond = DefaultCharsPerSecond
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Filler.Logger == nil {
		c.Filler.Logger = c.Logger
	}
	return nil
}
