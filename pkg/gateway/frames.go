package gateway

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Protocol v3 wire format: three frame shapes over one websocket.
//
//	event {type:"event", event:<name>, payload:{...}}   server-initiated
//	req   {type:"req", id, method, params}              client-initiated
//	res   {type:"res", id, ok, payload|error}           reply to a req
//
// Raw frames are decoded once, at this boundary, into a closed set of
// typed variants; everything downstream switches over Frame instead of
// re-inspecting string fields.

// Frame is one decoded gateway frame.
type Frame interface {
	frame()
}

// Challenge is the server's connect.challenge event; the client must
// answer with an authenticated connect request.
type Challenge struct{}

// ConnectAck is the response to a connect request.
type ConnectAck struct {
	ID      string
	OK      bool
	Message string
}

// ChatAck is the response to a chat.send request. On success it
// carries the run identifier assigned by the gateway.
type ChatAck struct {
	ID      string
	OK      bool
	RunID   string
	Message string
}

// AgentDelta is one streamed assistant text fragment.
type AgentDelta struct {
	RunID string
	Delta string
}

// AgentLifecycleEnd signals the agent run ended. Informational only:
// the authoritative completion signal is the chat event.
type AgentLifecycleEnd struct {
	RunID string
}

// ChatFinal is the authoritative end of a run's response stream.
type ChatFinal struct {
	RunID string
}

// ChatFailed reports a run that ended in an aborted or error state.
type ChatFailed struct {
	RunID   string
	State   string
	Message string
}

// Unknown is any frame the client does not handle. Ignored.
type Unknown struct {
	Type  string
	Event string
}

func (Challenge) frame()         {}
func (ConnectAck) frame()        {}
func (ChatAck) frame()           {}
func (AgentDelta) frame()        {}
func (AgentLifecycleEnd) frame() {}
func (ChatFinal) frame()         {}
func (ChatFailed) frame()        {}
func (Unknown) frame()           {}

// rawFrame is the undecoded wire envelope.
type rawFrame struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Event   string          `json:"event,omitempty"`
	OK      bool            `json:"ok,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   *wireError      `json:"error,omitempty"`
}

type wireError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

type agentPayload struct {
	RunID  string     `json:"runId"`
	Stream string     `json:"stream"`
	Data   *agentData `json:"data,omitempty"`
}

type agentData struct {
	Delta *string `json:"delta,omitempty"`
	Phase string  `json:"phase,omitempty"`
}

type chatPayload struct {
	RunID        string `json:"runId"`
	State        string `json:"state"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

type resPayload struct {
	RunID string `json:"runId,omitempty"`
}

// DecodeFrame parses raw wire bytes into a Frame. Frames the client
// does not recognize decode to Unknown rather than failing; only
// malformed JSON is an error.
func DecodeFrame(data []byte) (Frame, error) {
	var raw rawFrame
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("gateway: malformed frame: %w", err)
	}

	switch raw.Type {
	case "event":
		return decodeEvent(raw)
	case "res":
		return decodeRes(raw)
	default:
		return Unknown{Type: raw.Type}, nil
	}
}

func decodeEvent(raw rawFrame) (Frame, error) {
	switch raw.Event {
	case "connect.challenge":
		return Challenge{}, nil

	case "agent":
		var p agentPayload
		if err := json.Unmarshal(raw.Payload, &p); err != nil {
			return nil, fmt.Errorf("gateway: malformed agent payload: %w", err)
		}
		if p.Stream == "assistant" && p.Data != nil && p.Data.Delta != nil {
			return AgentDelta{RunID: p.RunID, Delta: *p.Data.Delta}, nil
		}
		if p.Stream == "lifecycle" && p.Data != nil && p.Data.Phase == "end" {
			return AgentLifecycleEnd{RunID: p.RunID}, nil
		}
		return Unknown{Type: raw.Type, Event: raw.Event}, nil

	case "chat":
		var p chatPayload
		if err := json.Unmarshal(raw.Payload, &p); err != nil {
			return nil, fmt.Errorf("gateway: malformed chat payload: %w", err)
		}
		switch p.State {
		case "final":
			return ChatFinal{RunID: p.RunID}, nil
		case "aborted", "error":
			return ChatFailed{RunID: p.RunID, State: p.State, Message: p.ErrorMessage}, nil
		}
		return Unknown{Type: raw.Type, Event: raw.Event}, nil

	default:
		return Unknown{Type: raw.Type, Event: raw.Event}, nil
	}
}

// decodeRes tells connect acks from chat acks by the client's own
// request-id scheme ("connect-N" / "chat-N").
func decodeRes(raw rawFrame) (Frame, error) {
	var message string
	if raw.Error != nil {
		message = raw.Error.Message
	}

	if strings.HasPrefix(raw.ID, "connect") {
		return ConnectAck{ID: raw.ID, OK: raw.OK, Message: message}, nil
	}

	var p resPayload
	if len(raw.Payload) > 0 {
		if err := json.Unmarshal(raw.Payload, &p); err != nil {
			return nil, fmt.Errorf("gateway: malformed res payload: %w", err)
		}
	}
	return ChatAck{ID: raw.ID, OK: raw.OK, RunID: p.RunID, Message: message}, nil
}

// Client-initiated request shapes.

type request struct {
	Type   string `json:"type"`
	ID     string `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params"`
}

type connectParams struct {
	MinProtocol int         `json:"minProtocol"`
	MaxProtocol int         `json:"maxProtocol"`
	Client      clientInfo  `json:"client"`
	Auth        connectAuth `json:"auth"`
}

type clientInfo struct {
	ID       string `json:"id"`
	Version  string `json:"version"`
	Platform string `json:"platform"`
	Mode     string `json:"mode"`
}

type connectAuth struct {
	Token string `json:"token"`
}

type chatSendParams struct {
	SessionKey     string `json:"sessionKey"`
	Message        string `json:"message"`
	Thinking       string `json:"thinking"`
	IdempotencyKey string `json:"idempotencyKey"`
	TimeoutMs      int    `json:"timeoutMs"`
}
