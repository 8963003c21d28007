package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"visit-summary/internal/llm"
	"visit-summary/internal/schema"
	"visit-summary/pkg"
)

// Summarizer turns a consultation transcript into a validated VisitSummary
// with a single model round trip.  It holds no per-request state and is safe
// for concurrent use.
type Summarizer struct {
	LLM    llm.Client
	Schema *schema.Schema
	Log    zerolog.Logger
}

// NewSummarizer constructs a summariser whose prompt and validator are both
// derived from the VisitSummary schema.
func NewSummarizer(client llm.Client, log zerolog.Logger) (*Summarizer, error) {
	s, err := schema.New(&pkg.VisitSummary{})
	if err != nil {
		return nil, err
	}
	return &Summarizer{
		LLM:    client,
		Schema: s,
		Log:    log.With().Str("component", "summarizer").Logger(),
	}, nil
}

// Summarize runs prompt build, model call, and parse/validate.  Every failure
// is an *Error; a blank transcript fails before any upstream call.  No
// partial summary is returned on error.
func (s *Summarizer) Summarize(ctx context.Context, transcript string) (*pkg.VisitSummary, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, &Error{Kind: KindInvalidInput, Err: ErrEmptyTranscript}
	}

	prompt, err := renderPrompt(s.Schema.FormatInstructions(), transcript)
	if err != nil {
		return nil, &Error{Kind: KindInternal, Err: fmt.Errorf("rendering prompt: %w", err)}
	}

	start := time.Now()
	reply, err := s.LLM.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: SystemInstruction},
		{Role: llm.RoleUser, Content: prompt},
	})
	if err != nil {
		return nil, &Error{Kind: KindUpstream, Err: err}
	}
	s.Log.Debug().
		Dur("duration", time.Since(start)).
		Int("transcript_chars", len(transcript)).
		Int("reply_chars", len(reply)).
		Msg("model replied")

	var summary pkg.VisitSummary
	if err := s.Schema.Decode(reply, &summary); err != nil {
		var fe *schema.FieldError
		switch {
		case errors.As(err, &fe):
			return nil, &Error{Kind: KindSchema, Field: fe.Field, Err: err}
		case errors.Is(err, schema.ErrMalformed):
			return nil, &Error{Kind: KindParse, Err: err}
		default:
			return nil, &Error{Kind: KindInternal, Err: err}
		}
	}
	return &summary, nil
}
