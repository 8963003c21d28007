// Package transcript obtains consultation transcripts for the CLI.  The HTTP
// source stands in for a real transcript-retrieval integration.
package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// SessionPlaceholder is replaced with the path-escaped session id in
// HTTPSource.URL.
const SessionPlaceholder = "{session_id}"

// ErrEmptyTranscript is returned when a source yields only whitespace.
var ErrEmptyTranscript = errors.New("transcript is empty")

// Source fetches the transcript for a consultation session.
type Source interface {
	Fetch(ctx context.Context, sessionID string) (string, error)
}

// HTTPSource reads {"transcript": "..."} from a URL.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

// NewHTTPSource returns an HTTPSource whose client gives up after timeout.
func NewHTTPSource(rawURL string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{URL: rawURL, Client: &http.Client{Timeout: timeout}}
}

type payload struct {
	Transcript string `json:"transcript"`
}

func (s *HTTPSource) Fetch(ctx context.Context, sessionID string) (string, error) {
	target := strings.ReplaceAll(s.URL, SessionPlaceholder, url.PathEscape(sessionID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("building transcript request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching transcript: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("fetching transcript: unexpected status %s", resp.Status)
	}

	var p payload
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return "", fmt.Errorf("decoding transcript: %w", err)
	}
	if strings.TrimSpace(p.Transcript) == "" {
		return "", ErrEmptyTranscript
	}
	return p.Transcript, nil
}

// FileSource reads a plain-text transcript from Path.  The session id is
// ignored.  A Path of "-" reads standard input.
type FileSource struct {
	Path  string
	Stdin io.Reader
}

func (s FileSource) Fetch(ctx context.Context, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var (
		data []byte
		err  error
	)
	if s.Path == "-" {
		in := s.Stdin
		if in == nil {
			in = os.Stdin
		}
		data, err = io.ReadAll(in)
	} else {
		data, err = os.ReadFile(s.Path)
	}
	if err != nil {
		return "", fmt.Errorf("reading transcript: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", ErrEmptyTranscript
	}
	return string(data), nil
}
