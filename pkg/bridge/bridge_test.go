package bridge

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
)

type recordingHandler struct {
	mu         sync.Mutex
	utterances []string
	interrupts int
	joined     []string
	left       []string

	events chan string
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{events: make(chan string, 16)}
}

func (h *recordingHandler) HandleUtterance(_ context.Context, text string) {
	h.mu.Lock()
	h.utterances = append(h.utterances, text)
	h.mu.Unlock()
	h.events <- "utterance"
}

func (h *recordingHandler) HandleInterrupt() {
	h.mu.Lock()
	h.interrupts++
	h.mu.Unlock()
	h.events <- "interrupt"
}

func (h *recordingHandler) HandleParticipantJoined(_ context.Context, id string) {
	h.mu.Lock()
	h.joined = append(h.joined, id)
	h.mu.Unlock()
	h.events <- "joined"
}

func (h *recordingHandler) HandleParticipantLeft(_ context.Context, id, reason string) {
	h.mu.Lock()
	h.left = append(h.left, id+"/"+reason)
	h.mu.Unlock()
	h.events <- "left"
}

func (h *recordingHandler) wait(t *testing.T, event string) {
	t.Helper()
	select {
	case got := <-h.events:
		if got != event {
			t.Fatalf("event = %q, want %q", got, event)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %q", event)
	}
}

func startBridge(t *testing.T, h Handler) (*Server, *gws.Conn) {
	t.Helper()
	s := New(context.Background(), "0", h, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go s.app.Listener(ln)
	t.Cleanup(func() { s.Shutdown(context.Background()) })

	url := "ws://" + ln.Addr().String() + "/ws/pipeline"
	var conn *gws.Conn
	deadline := time.Now().Add(2 * time.Second)
	for {
		conn, _, err = gws.DefaultDialer.Dial(url, nil)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("dial bridge: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Cleanup(func() { conn.Close() })

	for !s.connected() {
		if time.Now().After(deadline) {
			t.Fatal("bridge never registered the pipeline peer")
		}
		time.Sleep(time.Millisecond)
	}
	return s, conn
}

func sendEnvelope(t *testing.T, conn *gws.Conn, msgType string, data any) {
	t.Helper()
	env := map[string]any{"type": msgType, "ts": time.Now().UnixMilli()}
	if data != nil {
		env["data"] = data
	}
	if err := conn.WriteJSON(env); err != nil {
		t.Fatalf("send %s: %v", msgType, err)
	}
}

func TestTranscriptDispatch(t *testing.T) {
	h := newRecordingHandler()
	_, conn := startBridge(t, h)

	// Non-final and assistant transcripts must be ignored.
	sendEnvelope(t, conn, TypeTranscript, map[string]any{"text": "wha", "role": "user", "final": false})
	sendEnvelope(t, conn, TypeTranscript, map[string]any{"text": "echo of me", "role": "assistant", "final": true})
	sendEnvelope(t, conn, TypeTranscript, map[string]any{"text": "what's the weather", "role": "user", "final": true})

	h.wait(t, "utterance")
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.utterances) != 1 || h.utterances[0] != "what's the weather" {
		t.Errorf("utterances = %q", h.utterances)
	}
}

func TestLifecycleDispatch(t *testing.T) {
	h := newRecordingHandler()
	_, conn := startBridge(t, h)

	sendEnvelope(t, conn, TypeParticipantJoined, map[string]any{"id": "p-1"})
	h.wait(t, "joined")
	sendEnvelope(t, conn, TypeInterrupt, nil)
	h.wait(t, "interrupt")
	sendEnvelope(t, conn, TypeParticipantLeft, map[string]any{"id": "p-1", "reason": "hangup"})
	h.wait(t, "left")

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.joined) != 1 || h.joined[0] != "p-1" {
		t.Errorf("joined = %q", h.joined)
	}
	if h.interrupts != 1 {
		t.Errorf("interrupts = %d, want 1", h.interrupts)
	}
	if len(h.left) != 1 || h.left[0] != "p-1/hangup" {
		t.Errorf("left = %q", h.left)
	}
}

func TestOutboundCommands(t *testing.T) {
	h := newRecordingHandler()
	s, conn := startBridge(t, h)

	s.SpeakChunk("Hello there. ")
	s.StopSpeaking()
	s.EndCall()

	readEnv := func() Envelope {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			t.Fatalf("read envelope: %v", err)
		}
		return env
	}

	env := readEnv()
	if env.Type != TypeSpeak {
		t.Fatalf("first envelope type = %q, want %q", env.Type, TypeSpeak)
	}
	var speak SpeakData
	if err := json.Unmarshal(env.Data, &speak); err != nil {
		t.Fatal(err)
	}
	if speak.Text != "Hello there. " {
		t.Errorf("speak text = %q", speak.Text)
	}
	if env.TS == 0 {
		t.Error("envelope missing timestamp")
	}

	if env := readEnv(); env.Type != TypeStop {
		t.Errorf("second envelope type = %q, want %q", env.Type, TypeStop)
	}
	if env := readEnv(); env.Type != TypeEndCall {
		t.Errorf("third envelope type = %q, want %q", env.Type, TypeEndCall)
	}
}

func TestCommandsDroppedWithoutPeer(t *testing.T) {
	h := newRecordingHandler()
	s := New(context.Background(), "0", h, nil)

	// Must not panic or block with no pipeline connected.
	s.SpeakChunk("nobody listening")
	s.StopSpeaking()
	s.EndCall()
}
