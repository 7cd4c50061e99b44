// Package transcript persists call transcripts to the Chief API.
// Posting is best effort: a failed post is logged by the caller and
// never affects the call.
package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/chiefvoice/go-chief/internal/httpc"
)

// Entry is one transcript line as the API expects it.
type Entry struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
	IsFinal   bool   `json:"isFinal"`
}

// Store posts transcript entries for one call.
type Store struct {
	apiURL string
	callID string
	client *http.Client
	logger *slog.Logger
}

// New creates a Store for the given API base URL and call.
func New(apiURL, callID string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		apiURL: apiURL,
		callID: callID,
		client: httpc.Client,
		logger: logger.With("component", "transcript"),
	}
}

// Post sends one finalized transcript line.
func (s *Store) Post(ctx context.Context, role, text string) error {
	entry := Entry{
		Role:      role,
		Text:      text,
		Timestamp: time.Now().UnixMilli(),
		IsFinal:   true,
	}

	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("transcript: marshal entry: %w", err)
	}

	url := fmt.Sprintf("%s/api/pipecat/transcripts/%s", s.apiURL, s.callID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("transcript: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("transcript: post: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("transcript: post returned status %d", resp.StatusCode)
	}

	s.logger.Debug("posted transcript", "role", role, "chars", len(text))
	return nil
}
