package core

import (
	"context"

	"github.com/rs/zerolog"

	"visit-summary/pkg"
)

// Sender delivers a rendered summary to the patient.  Email, SMS, and
// calendar channels are not implemented yet; LogSender is the only Sender.
type Sender interface {
	Send(ctx context.Context, summary *pkg.VisitSummary, message string) (pkg.SendSummaryResponse, error)
}

// LogSender records the message it would have sent and reports that no
// channel accepted it.
type LogSender struct {
	Log zerolog.Logger
}

// NoChannelsMessage is the SendSummaryResponse message from LogSender.
const NoChannelsMessage = "no delivery channels configured; summary was rendered but not sent"

func (s LogSender) Send(ctx context.Context, summary *pkg.VisitSummary, message string) (pkg.SendSummaryResponse, error) {
	if err := ctx.Err(); err != nil {
		return pkg.SendSummaryResponse{}, err
	}
	s.Log.Info().
		Bool("has_email", summary.ContactEmail != "").
		Bool("has_phone", summary.ContactPhone != "").
		Int("message_chars", len(message)).
		Msg("summary delivery skipped")
	return pkg.SendSummaryResponse{Message: NoChannelsMessage}, nil
}
