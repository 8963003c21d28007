package db

import (
	"context"
	"database/sql"
	"fmt"

	"visit-summary/pkg"
)

// Notifier publishes run ids on a PostgreSQL NOTIFY channel so dashboards
// can follow extraction activity without polling.
type Notifier struct {
	DB      *sql.DB
	Channel string
}

// NewNotifier constructs a new Notifier.  The channel should match the
// POSTGRES_NOTIFY_CHANNEL environment variable.
func NewNotifier(db *sql.DB, channel string) *Notifier {
	return &Notifier{DB: db, Channel: channel}
}

// Notify sends payload on the channel.  pg_notify takes the channel as a
// value, so no identifier quoting is needed.
func (n *Notifier) Notify(ctx context.Context, payload string) error {
	if _, err := n.DB.ExecContext(ctx, "SELECT pg_notify($1, $2)", n.Channel, payload); err != nil {
		return fmt.Errorf("notifying %s: %w", n.Channel, err)
	}
	return nil
}

// Recorder stores each run and then announces its id.  It satisfies the
// HTTP layer's RunRecorder.
type Recorder struct {
	Repo *Repository
	// Notifier is optional; nil or an empty channel skips NOTIFY.
	Notifier *Notifier
}

// NewRecorder wires a Repository and, when channel is set, a Notifier on db.
func NewRecorder(db *sql.DB, channel string) *Recorder {
	rec := &Recorder{Repo: NewRepository(db)}
	if channel != "" {
		rec.Notifier = NewNotifier(db, channel)
	}
	return rec
}

func (r *Recorder) RecordRun(ctx context.Context, run pkg.ExtractionRun) error {
	if err := r.Repo.InsertRun(ctx, run); err != nil {
		return err
	}
	if r.Notifier == nil || r.Notifier.Channel == "" {
		return nil
	}
	return r.Notifier.Notify(ctx, run.ID)
}
