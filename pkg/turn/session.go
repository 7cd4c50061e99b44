package turn

import (
	"context"
	"fmt"
)

// memorySavePrompt asks the agent to persist a session summary before
// the connection closes.
const memorySavePrompt = "[SYSTEM: The voice call has ended. Please briefly summarize this conversation " +
	"(2-3 sentences max) and save anything important to memory/voice-sessions.md. " +
	"Include: date, key topics discussed, any action items or decisions made. " +
	"Do not respond with speech - just save to file silently.]"

// HandleParticipantJoined greets the caller. Outbound calls announce
// why the call was placed, with urgency setting the tone; inbound
// calls get the standing greeting. Outbound calls with extra context
// also prime the agent in the background.
func (a *Arbitrator) HandleParticipantJoined(ctx context.Context, participantID string) {
	a.logger.Info("participant joined", "participant_id", participantID)

	greeting := a.greeting()
	a.logger.Info("sending greeting", "greeting", greeting)
	a.cfg.Output.SpeakChunk(greeting)
	a.postTranscript(ctx, "assistant", greeting)

	if a.cfg.Outbound.Enabled && a.cfg.Outbound.Context != "" {
		go a.PrimeOutboundContext(ctx)
	}
}

// greeting composes the opening line for this call.
func (a *Arbitrator) greeting() string {
	if !a.cfg.Outbound.Enabled {
		return fmt.Sprintf("Hey %s! I'm here. What can I help you with?", a.cfg.UserName)
	}

	var prefix string
	switch a.cfg.Outbound.Urgency {
	case "high":
		prefix = fmt.Sprintf("%s,", a.cfg.UserName)
	case "critical":
		prefix = fmt.Sprintf("%s, this is urgent.", a.cfg.UserName)
	default: // low, medium
		prefix = fmt.Sprintf("Hey %s,", a.cfg.UserName)
	}
	return fmt.Sprintf("%s I'm calling because %s.", prefix, a.cfg.Outbound.Reason)
}

// PrimeOutboundContext tells the agent why this outbound call exists
// so its first real answer already has the situation loaded. The
// response text is discarded.
func (a *Arbitrator) PrimeOutboundContext(ctx context.Context) {
	msg := fmt.Sprintf(
		"[SYSTEM: This is an outbound call. Reason: %s. Urgency: %s. Context: %s. "+
			"Explain the situation clearly and recommend actions.]",
		a.cfg.Outbound.Reason, a.cfg.Outbound.Urgency, a.cfg.Outbound.Context)

	if _, err := a.cfg.Gateway.SendAndCollect(ctx, msg); err != nil {
		a.logger.Error("outbound context priming failed", "error", err)
		return
	}
	a.logger.Info("outbound context primed")
}

// HandleInterrupt stops current playback when the media pipeline
// reports the user started speaking over the bot.
func (a *Arbitrator) HandleInterrupt() {
	a.mu.Lock()
	wasSpeaking := a.speaking
	a.speaking = false
	a.mu.Unlock()

	if wasSpeaking {
		a.logger.Info("user interrupt, stopping playback")
	}
	a.cfg.Output.StopSpeaking()
}

// HandleParticipantLeft ends the session when the caller hangs up.
func (a *Arbitrator) HandleParticipantLeft(ctx context.Context, participantID, reason string) {
	a.logger.Info("participant left", "participant_id", participantID, "reason", reason)
	a.EndSession(ctx)
}

// EndSession asks the agent to save its session memory, then closes
// the gateway connection. Idempotent: both the hang-up event and
// process shutdown reach it, and the memory save must run once.
func (a *Arbitrator) EndSession(ctx context.Context) {
	a.endSessionOnce.Do(func() {
		a.logger.Info("requesting session memory save")
		if _, err := a.cfg.Gateway.SendAndCollect(ctx, memorySavePrompt); err != nil {
			a.logger.Error("session memory save failed", "error", err)
		}
		if err := a.cfg.Gateway.Close(); err != nil {
			a.logger.Error("gateway close failed", "error", err)
		}
	})
}
