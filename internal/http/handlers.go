package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"visit-summary/internal/core"
	"visit-summary/pkg"
)

// RequestIDHeader carries the per-request id in both directions.  A caller
// supplied id is kept; otherwise a UUID is generated.
const RequestIDHeader = "X-Request-ID"

const (
	defaultMaxBodyBytes = 1 << 20
	recordTimeout       = 5 * time.Second
)

// Summarizer runs the extraction pipeline.  *core.Summarizer satisfies it.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (*pkg.VisitSummary, error)
}

// RunRecorder stores audit metadata about a pipeline run.  *db.Recorder
// satisfies it.
type RunRecorder interface {
	RecordRun(ctx context.Context, run pkg.ExtractionRun) error
}

// Options tunes the HTTP layer.
type Options struct {
	MaxBodyBytes int64
	Compress     bool
	// Model is copied into every ExtractionRun.
	Model string
}

// Server bundles together the dependencies required by HTTP handlers.  It
// implements http.Handler; Handler wraps it with logging, request ids, and
// compression.
type Server struct {
	summarizer Summarizer
	runs       RunRecorder
	log        zerolog.Logger
	opts       Options
}

// NewServer constructs a Server.  runs may be nil, in which case no audit
// record is written.
func NewServer(summarizer Summarizer, runs RunRecorder, log zerolog.Logger, opts Options) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &Server{
		summarizer: summarizer,
		runs:       runs,
		log:        log,
		opts:       opts,
	}
}

// Handler returns the server wrapped in its middleware chain.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s
	h = hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", d).
			Msg("request")
	})(h)
	h = requestID(h)
	h = hlog.NewHandler(s.log)(h)
	if s.opts.Compress {
		h = gzhttp.GzipHandler(h)
	}
	return h
}

// ServeHTTP dispatches incoming requests based on the URL path.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/summary" && r.Method == http.MethodPost:
		s.handleSummary(w, r)
	case r.URL.Path == "/summary":
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, pkg.ErrorBody{
			Kind:    string(core.KindInvalidInput),
			Message: fmt.Sprintf("method %s not allowed", r.Method),
		})
	default:
		http.NotFound(w, r)
	}
}

// handleSummary decodes {"transcript": ...}, runs the pipeline, and returns
// the VisitSummary.  On failure only an ErrorResponse is written.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	start := time.Now()

	req, err := decodeRequest(w, r, s.opts.MaxBodyBytes)
	if err != nil {
		log.Debug().Err(err).Msg("rejected summary request")
		writeError(w, http.StatusBadRequest, pkg.ErrorBody{
			Kind:    string(core.KindInvalidInput),
			Message: err.Error(),
		})
		return
	}

	summary, err := s.summarizer.Summarize(r.Context(), req.Transcript)
	s.recordRun(r, len([]rune(req.Transcript)), time.Since(start), err)
	if err != nil {
		status := statusFor(err)
		body := pkg.ErrorBody{Kind: string(core.KindOf(err)), Message: clientMessage(err, status)}
		var pe *core.Error
		if errors.As(err, &pe) {
			body.Field = pe.Field
		}
		log.Warn().Err(err).Int("status", status).Str("kind", body.Kind).Msg("summary failed")
		writeError(w, status, body)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func decodeRequest(w http.ResponseWriter, r *http.Request, limit int64) (pkg.SummaryRequest, error) {
	var req pkg.SummaryRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return req, fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
		}
		return req, fmt.Errorf("invalid request body: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return req, errors.New("invalid request body: trailing data after JSON object")
	}
	return req, nil
}

// statusFor maps a pipeline error kind to an HTTP status.
func statusFor(err error) int {
	switch core.KindOf(err) {
	case core.KindInvalidInput:
		return http.StatusBadRequest
	case core.KindUpstream:
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	case core.KindParse, core.KindSchema:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// clientMessage is the error text returned to callers.  Upstream and
// internal failures get a fixed message; their detail stays in the log.
func clientMessage(err error, status int) string {
	switch core.KindOf(err) {
	case core.KindUpstream:
		if status == http.StatusGatewayTimeout {
			return "the language model did not respond in time"
		}
		return "the language model request failed"
	case core.KindInternal:
		return "internal error"
	default:
		return err.Error()
	}
}

// recordRun writes an ExtractionRun if a recorder is configured.  It runs
// detached from the request context so a cancelled client still leaves an
// audit trail.  Failures are logged only.
func (s *Server) recordRun(r *http.Request, chars int, d time.Duration, runErr error) {
	if s.runs == nil {
		return
	}
	run := pkg.ExtractionRun{
		ID:              uuid.NewString(),
		Model:           s.opts.Model,
		TranscriptChars: chars,
		Status:          pkg.RunStatusOK,
		Duration:        d,
		CreatedAt:       time.Now().UTC(),
	}
	if runErr != nil {
		run.Status = string(core.KindOf(runErr))
		var pe *core.Error
		if errors.As(runErr, &pe) {
			run.Field = pe.Field
		}
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), recordTimeout)
	defer cancel()
	if err := s.runs.RecordRun(ctx, run); err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("run_id", run.ID).Msg("failed to record extraction run")
	}
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		zerolog.Ctx(r.Context()).UpdateContext(func(c zerolog.Context) zerolog.Context {
			return c.Str("request_id", id)
		})
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, body pkg.ErrorBody) {
	writeJSON(w, status, pkg.ErrorResponse{Error: body})
}
