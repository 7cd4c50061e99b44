// Package gateway implements the client side of the ChiefVoice Gateway
// streaming protocol: one persistent websocket per session, an
// authenticated connect handshake, and chat requests whose responses
// arrive as a live sequence of assistant text deltas.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client owns exactly one gateway connection per session and is safe
// for concurrent use. The connection carries a single run at a time,
// so request/response cycles are serialized: StreamMessage blocks
// until the in-flight stream reaches a terminal state, which keeps
// background system messages from interleaving with a live turn.
type Client struct {
	cfg    *Config
	logger *slog.Logger

	// connMu spans the whole dial/handshake/assign sequence so two
	// concurrent Connect calls cannot each open a connection.
	connMu sync.Mutex

	// reqMu is held from the chat request write until the stream's
	// terminal state. An interleaved reader would consume the other
	// request's frames.
	reqMu sync.Mutex

	mu         sync.Mutex
	conn       *websocket.Conn
	connected  bool
	reqCounter int
}

// New creates a gateway client. The connection is opened lazily by
// Connect or the first StreamMessage.
func New(opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.CallID == "" {
		cfg.CallID = fmt.Sprintf("call-%d", time.Now().Unix())
	}

	return &Client{
		cfg:    cfg,
		logger: cfg.Logger.With("component", "gateway"),
	}, nil
}

// SessionKey returns the key the gateway uses to route this call to
// the correct conversational agent instance.
func (c *Client) SessionKey() string {
	return sessionKeyPrefix + c.cfg.CallID
}

// IsConnected returns true if the handshake has completed.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Connect dials the gateway and performs the protocol v3 handshake:
// wait for connect.challenge, send an authenticated connect request,
// wait for the correlated response. Idempotent; a no-op if connected.
func (c *Client) Connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	c.mu.Lock()
	if c.connected && c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: c.cfg.HandshakeTimeout,
	}

	c.logger.Info("connecting to gateway", "url", c.cfg.URL)

	conn, resp, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		if resp != nil {
			return NewConnectionError(fmt.Sprintf("dial failed with status %d", resp.StatusCode), err)
		}
		return NewConnectionError("dial failed", err)
	}

	if err := c.handshake(conn); err != nil {
		conn.Close()
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	c.logger.Info("authenticated to gateway", "session_key", c.SessionKey())
	return nil
}

// handshake runs the challenge/auth exchange on a fresh connection.
func (c *Client) handshake(conn *websocket.Conn) error {
	// Wait for connect.challenge, ignoring anything else.
	for {
		frame, err := readFrame(conn, c.cfg.HandshakeTimeout)
		if err != nil {
			return wrapHandshakeErr("waiting for challenge", err)
		}
		if _, ok := frame.(Challenge); ok {
			break
		}
	}

	req := request{
		Type:   "req",
		ID:     "connect-1",
		Method: "connect",
		Params: connectParams{
			MinProtocol: ProtocolMin,
			MaxProtocol: ProtocolMax,
			Client: clientInfo{
				ID:       clientID,
				Version:  clientVersion,
				Platform: c.cfg.Platform,
				Mode:     clientMode,
			},
			Auth: connectAuth{Token: c.cfg.Token},
		},
	}
	if err := conn.WriteJSON(req); err != nil {
		return NewConnectionError("send connect request", err)
	}

	// Wait for the correlated connect response.
	for {
		frame, err := readFrame(conn, c.cfg.HandshakeTimeout)
		if err != nil {
			return wrapHandshakeErr("waiting for connect response", err)
		}
		ack, ok := frame.(ConnectAck)
		if !ok || ack.ID != "connect-1" {
			continue
		}
		if !ack.OK {
			if ack.Message != "" {
				return fmt.Errorf("%w: %s", ErrAuthFailed, ack.Message)
			}
			return ErrAuthFailed
		}
		return nil
	}
}

// StreamMessage sends a chat request and returns a Stream of assistant
// text deltas. Connects lazily if needed. The connection is handed to
// one request at a time; a concurrent StreamMessage blocks until the
// previous stream is drained or closed.
func (c *Client) StreamMessage(ctx context.Context, message string) (*Stream, error) {
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}

	c.reqMu.Lock()

	c.mu.Lock()
	c.reqCounter++
	n := c.reqCounter
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		c.reqMu.Unlock()
		return nil, ErrNotConnected
	}

	requestID := fmt.Sprintf("chat-%d", n)
	idempotencyKey := fmt.Sprintf("voice-%d-%s", time.Now().Unix(), uuid.NewString()[:8])

	req := request{
		Type:   "req",
		ID:     requestID,
		Method: "chat.send",
		Params: chatSendParams{
			SessionKey:     c.SessionKey(),
			Message:        message,
			Thinking:       "off",
			IdempotencyKey: idempotencyKey,
			TimeoutMs:      int(c.cfg.ReadTimeout / time.Millisecond),
		},
	}

	c.logger.Info("sending chat request", "request_id", requestID, "chars", len(message))

	if err := conn.WriteJSON(req); err != nil {
		c.dropConnection()
		c.reqMu.Unlock()
		return nil, NewConnectionError("send chat request", err)
	}

	return &Stream{client: c, requestID: requestID}, nil
}

// SendAndCollect streams a message and concatenates the full response.
// Used for fire-and-forget system messages where streaming is not
// needed (context priming, session-memory-save requests).
func (c *Client) SendAndCollect(ctx context.Context, message string) (string, error) {
	stream, err := c.StreamMessage(ctx, message)
	if err != nil {
		return "", err
	}

	var full strings.Builder
	for {
		delta, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return full.String(), nil
		}
		if err != nil {
			return full.String(), err
		}
		full.WriteString(delta)
	}
}

// Close closes the transport if open. Idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		deadline := time.Now().Add(time.Second)
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			deadline,
		)
		c.conn.Close()
		c.conn = nil
	}
	c.connected = false
	c.logger.Info("gateway connection closed")
	return nil
}

// dropConnection tears down a broken connection so the next turn
// re-establishes it.
func (c *Client) dropConnection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connected = false
}

// Stream is one in-flight chat run. Recv reads frames synchronously
// and yields each assistant delta as it arrives; the run ends when the
// gateway sends the authoritative chat event. While live, the stream
// owns the connection; reaching a terminal state or calling Close
// hands it to the next request.
type Stream struct {
	client    *Client
	requestID string
	runID     string
	done      bool
	release   sync.Once
}

// finish marks the stream terminal and releases the connection.
func (s *Stream) finish() {
	s.done = true
	s.release.Do(s.client.reqMu.Unlock)
}

// Recv returns the next text delta. It returns io.EOF when the run
// reaches its final state, a *RemoteError on an aborted or errored
// run, ErrTimeout when no terminal condition arrives within the read
// bound, and a *ConnectionError on transport failure.
func (s *Stream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}

	s.client.mu.Lock()
	conn := s.client.conn
	s.client.mu.Unlock()
	if conn == nil {
		s.finish()
		return "", ErrNotConnected
	}

	for {
		frame, err := readFrame(conn, s.client.cfg.ReadTimeout)
		if err != nil {
			s.client.dropConnection()
			s.finish()
			if isTimeout(err) {
				s.client.logger.Error("timeout waiting for gateway response", "request_id", s.requestID)
				return "", ErrTimeout
			}
			return "", NewConnectionError("read stream frame", err)
		}

		switch f := frame.(type) {
		case ChatAck:
			if f.ID != s.requestID {
				continue
			}
			if !f.OK {
				s.finish()
				return "", &RemoteError{State: "rejected", Message: f.Message}
			}
			s.runID = f.RunID
			s.client.logger.Debug("chat request accepted", "run_id", s.runID)

		case AgentDelta:
			if s.runID == "" || f.RunID != s.runID {
				continue
			}
			return f.Delta, nil

		case AgentLifecycleEnd:
			// Generation ended, but the response is only complete
			// when the chat event arrives. Keep reading.
			if f.RunID == s.runID {
				s.client.logger.Debug("agent lifecycle ended, waiting for chat event")
			}

		case ChatFinal:
			if s.runID == "" || f.RunID != s.runID {
				continue
			}
			s.finish()
			s.client.logger.Info("gateway response complete", "run_id", s.runID)
			return "", io.EOF

		case ChatFailed:
			if s.runID == "" || f.RunID != s.runID {
				continue
			}
			s.finish()
			return "", &RemoteError{State: f.State, Message: f.Message}

		default:
			// Challenge, ConnectAck, Unknown: not ours.
		}
	}
}

// Close marks the stream finished and releases the connection to the
// next request. It does not close the connection; the client owns that.
func (s *Stream) Close() error {
	s.finish()
	return nil
}

// readFrame reads and decodes one frame with a per-read deadline.
func readFrame(conn *websocket.Conn, timeout time.Duration) (Frame, error) {
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return DecodeFrame(data)
}

func wrapHandshakeErr(reason string, err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%w: %s", ErrTimeout, reason)
	}
	return NewConnectionError(reason, err)
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
