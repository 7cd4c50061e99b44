// Package bridge connects the media pipeline to the turn arbitrator
// over a local websocket. It is a thin event conduit: transcribed
// utterances and call lifecycle events flow in, speak/stop/end-call
// commands flow out. No audio ever crosses this boundary.
package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// Handler receives the events the media pipeline reports.
type Handler interface {
	HandleUtterance(ctx context.Context, text string)
	HandleInterrupt()
	HandleParticipantJoined(ctx context.Context, participantID string)
	HandleParticipantLeft(ctx context.Context, participantID, reason string)
}

// Server hosts the pipeline websocket and implements the arbitrator's
// output side. At most one pipeline peer is active; a new connection
// replaces the old one.
type Server struct {
	app     *fiber.App
	port    string
	handler Handler
	logger  *slog.Logger
	ctx     context.Context

	mu   sync.Mutex
	peer *peer
}

// New creates a bridge server listening for one media pipeline.
func New(ctx context.Context, port string, handler Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		port:    port,
		handler: handler,
		logger:  logger.With("component", "bridge"),
		ctx:     ctx,
	}

	app := fiber.New(fiber.Config{
		AppName:               "Chief Bridge",
		DisableStartupMessage: true,
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "pipeline_connected": s.connected()})
	})

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/pipeline", websocket.New(s.handlePipeline))

	s.app = app
	return s
}

// Start blocks serving the bridge until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("bridge listening", "port", s.port)
	return s.app.Listen(":" + s.port)
}

// Shutdown stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peer != nil
}

// handlePipeline runs one pipeline connection to completion.
func (s *Server) handlePipeline(conn *websocket.Conn) {
	p := newPeer(conn)

	s.mu.Lock()
	old := s.peer
	s.peer = p
	s.mu.Unlock()
	if old != nil {
		s.logger.Warn("replacing existing pipeline connection")
		old.close()
	}

	s.logger.Info("pipeline connected")
	go p.writePump()
	s.readPump(p) // blocks until the connection drops

	s.mu.Lock()
	if s.peer == p {
		s.peer = nil
	}
	s.mu.Unlock()
	s.logger.Info("pipeline disconnected")
}

// readPump dispatches inbound envelopes. Utterance handling can block
// for a whole turn, so each event runs on its own goroutine; the
// arbitrator's own gates serialize what must be serialized.
func (s *Server) readPump(p *peer) {
	defer p.close()

	p.conn.SetReadLimit(maxMessageSize)
	p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		p.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.logger.Warn("malformed envelope from pipeline", "error", err)
			continue
		}
		s.dispatch(env)
	}
}

func (s *Server) dispatch(env Envelope) {
	switch env.Type {
	case TypeTranscript:
		var d TranscriptData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			s.logger.Warn("malformed transcript data", "error", err)
			return
		}
		// Only finalized user speech drives turns.
		if d.Role != "user" || !d.Final {
			return
		}
		go s.handler.HandleUtterance(s.ctx, d.Text)

	case TypeInterrupt:
		s.handler.HandleInterrupt()

	case TypeParticipantJoined:
		var d ParticipantData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			s.logger.Warn("malformed participant data", "error", err)
			return
		}
		go s.handler.HandleParticipantJoined(s.ctx, d.ID)

	case TypeParticipantLeft:
		var d ParticipantData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			s.logger.Warn("malformed participant data", "error", err)
			return
		}
		go s.handler.HandleParticipantLeft(s.ctx, d.ID, d.Reason)

	default:
		s.logger.Debug("ignoring envelope", "type", env.Type)
	}
}

// send queues one outbound envelope for the connected pipeline.
func (s *Server) send(msgType string, data any) {
	env := Envelope{Type: msgType, TS: time.Now().UnixMilli()}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			s.logger.Error("marshal envelope data", "type", msgType, "error", err)
			return
		}
		env.Data = raw
	}
	payload, err := json.Marshal(env)
	if err != nil {
		s.logger.Error("marshal envelope", "type", msgType, "error", err)
		return
	}

	s.mu.Lock()
	p := s.peer
	s.mu.Unlock()
	if p == nil {
		s.logger.Warn("no pipeline connected, dropping command", "type", msgType)
		return
	}

	select {
	case p.send <- payload:
	default:
		s.logger.Warn("pipeline send buffer full, dropping command", "type", msgType)
	}
}

// SpeakChunk queues text for speech synthesis.
func (s *Server) SpeakChunk(text string) {
	s.send(TypeSpeak, SpeakData{Text: text})
}

// StopSpeaking aborts current playback.
func (s *Server) StopSpeaking() {
	s.send(TypeStop, nil)
}

// EndCall terminates the call.
func (s *Server) EndCall() {
	s.send(TypeEndCall, nil)
}
