// gateway-chat: one-shot gateway chat client for debugging
// Sends a single message to the ChiefVoice Gateway and prints the
// streamed reply as it arrives.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/chiefvoice/go-chief/internal/config"
	"github.com/chiefvoice/go-chief/internal/log"
	"github.com/chiefvoice/go-chief/pkg/gateway"
)

var (
	message  = flag.String("message", "", "message to send (or pass as args)")
	callID   = flag.String("call-id", "debug", "call identifier for the session key")
	timeout  = flag.Duration("timeout", 2*time.Minute, "per-read stream timeout")
	logLevel = flag.String("log-level", "warn", "log level: debug, info, warn, error")
)

func main() {
	flag.Parse()
	config.LoadDotenv()
	log.Init(*logLevel)

	text := *message
	if text == "" {
		text = strings.Join(flag.Args(), " ")
	}
	if text == "" {
		fmt.Fprintln(os.Stderr, "usage: gateway-chat [-message] <text>")
		os.Exit(2)
	}

	client, err := gateway.New(
		gateway.WithURL(config.GatewayURL()),
		gateway.WithToken(config.GatewayToken()),
		gateway.WithCallID(*callID),
		gateway.WithReadTimeout(*timeout),
		gateway.WithLogger(log.L()),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx := context.Background()
	stream, err := client.StreamMessage(ctx, text)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	for {
		delta, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			fmt.Println()
			return
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, "\nstream error:", err)
			os.Exit(1)
		}
		fmt.Print(delta)
	}
}
