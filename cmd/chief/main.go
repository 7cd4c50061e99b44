// chief: voice-bot turn orchestrator
// Bridges a media pipeline to the ChiefVoice Gateway agent: gates
// transcribed utterances, streams replies back as speakable chunks,
// and manages the call lifecycle.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/chiefvoice/go-chief/internal/config"
	"github.com/chiefvoice/go-chief/internal/log"
	"github.com/chiefvoice/go-chief/pkg/bridge"
	"github.com/chiefvoice/go-chief/pkg/fallback"
	"github.com/chiefvoice/go-chief/pkg/gateway"
	"github.com/chiefvoice/go-chief/pkg/transcript"
	"github.com/chiefvoice/go-chief/pkg/turn"
)

var (
	logLevel = flag.String("log-level", "info", "log level: debug, info, warn, error")
	callID   = flag.String("call-id", "", "call identifier (default: random)")
	userName = flag.String("user", "Dave", "name used in greetings")
)

func main() {
	flag.Parse()
	config.LoadDotenv()
	log.Init(*logLevel)
	logger := log.L()

	id := *callID
	if id == "" {
		id = uuid.NewString()
	}
	logger.Info("starting chief", "call_id", id)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := gateway.New(
		gateway.WithURL(config.GatewayURL()),
		gateway.WithToken(config.GatewayToken()),
		gateway.WithCallID(id),
		gateway.WithLogger(logger),
	)
	if err != nil {
		logger.Error("gateway client setup failed", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	var gen turn.Generator
	if key := config.OpenAIKey(); key != "" {
		g, err := fallback.New(key, fallback.WithLogger(logger))
		if err != nil {
			logger.Error("fallback setup failed", "error", err)
			os.Exit(1)
		}
		gen = g
	} else {
		logger.Warn("OPENAI_API_KEY not set, fallback replies disabled")
	}

	outbound := config.OutboundCall()
	store := transcript.New(config.APIURL(), id, logger)

	// The arbitrator's output side is wired after the bridge exists;
	// the bridge needs the arbitrator as its inbound handler and the
	// arbitrator needs the bridge as its output, so build in two steps.
	var srv *bridge.Server
	arb, err := turn.New(turn.Config{
		Output:      outputProxy{&srv},
		Gateway:     agentClient{client},
		Fallback:    gen,
		Transcripts: store,
		UserName:    *userName,
		Outbound: turn.Outbound{
			Enabled: outbound.Enabled,
			Reason:  outbound.Reason,
			Urgency: outbound.Urgency,
			Context: outbound.Context,
		},
		Logger: logger,
	})
	if err != nil {
		logger.Error("arbitrator setup failed", "error", err)
		os.Exit(1)
	}
	srv = bridge.New(ctx, config.BridgePort(), arb, logger)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("bridge server stopped", "error", err)
			cancel()
		}
	}()

	// Connect eagerly so the first utterance does not pay the
	// handshake latency. A failure here is not fatal; the client
	// reconnects lazily on the first turn.
	if err := client.Connect(ctx); err != nil {
		logger.Warn("initial gateway connect failed, will retry on first turn", "error", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	arb.EndSession(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("bridge shutdown failed", "error", err)
	}
	logger.Info("goodbye")
}

// agentClient adapts the gateway client to the arbitrator's interface;
// the concrete stream type satisfies turn.Stream.
type agentClient struct {
	*gateway.Client
}

func (a agentClient) StreamMessage(ctx context.Context, message string) (turn.Stream, error) {
	s, err := a.Client.StreamMessage(ctx, message)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// outputProxy defers output calls to the bridge server assigned after
// arbitrator construction. No event can arrive before the bridge
// starts, so the pointer is always set by first use.
type outputProxy struct {
	srv **bridge.Server
}

func (o outputProxy) SpeakChunk(text string) { (*o.srv).SpeakChunk(text) }
func (o outputProxy) StopSpeaking()          { (*o.srv).StopSpeaking() }
func (o outputProxy) EndCall()               { (*o.srv).EndCall() }
