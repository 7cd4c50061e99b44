package bridge

import "encoding/json"

// Envelope is the bridge wire format: a type tag, a millisecond
// timestamp, and a type-specific data object.
type Envelope struct {
	Type string          `json:"type"`
	TS   int64           `json:"ts"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Inbound envelope types (media pipeline to core).
const (
	TypeTranscript        = "transcript"
	TypeInterrupt         = "interrupt"
	TypeParticipantJoined = "participant_joined"
	TypeParticipantLeft   = "participant_left"
)

// Outbound envelope types (core to media pipeline).
const (
	TypeSpeak   = "speak"
	TypeStop    = "stop"
	TypeEndCall = "end_call"
)

// TranscriptData carries one transcribed utterance.
type TranscriptData struct {
	Text  string `json:"text"`
	Role  string `json:"role"`
	Final bool   `json:"final"`
}

// ParticipantData identifies a joining or leaving participant.
type ParticipantData struct {
	ID     string `json:"id"`
	Reason string `json:"reason,omitempty"`
}

// SpeakData carries one chunk of text to synthesize.
type SpeakData struct {
	Text string `json:"text"`
}
