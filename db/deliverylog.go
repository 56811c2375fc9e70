package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gist4u/notifications/model"
	"github.com/pkg/errors"

	sq "github.com/Masterminds/squirrel"
)

// RecordQueued inserts a pending delivery log entry for a dispatch attempt. The entry is
// created synchronously when the dispatch is queued; the background send moves it to a
// terminal status afterwards.
func (s *Store) RecordQueued(ctx context.Context, entry *model.DeliveryLogEntry) error {
	wrapMsg := "unable to record the queued notification"

	// Marshal the context payload.
	contextJSON, err := json.Marshal(entry.Context)
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	// Build the insert statement.
	statement, args, err := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Insert("delivery_log").
		Columns("id", "notification_type", "channel", "recipient", "language", "context", "status").
		Values(
			entry.ID,
			entry.NotificationType,
			entry.Channel,
			entry.Recipient,
			entry.Language,
			contextJSON,
			model.StatusPending).
		ToSql()
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	// Execute the statement.
	_, err = s.db.ExecContext(ctx, statement, args...)
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}
	entry.Status = model.StatusPending

	return nil
}

// MarkSent moves a pending delivery log entry to the sent status. Entries that have
// already reached a terminal status are never rewritten.
func (s *Store) MarkSent(ctx context.Context, id string) error {
	wrapMsg := "unable to mark the notification as sent"

	// Build the update statement.
	statement, args, err := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Update("delivery_log").
		Set("status", model.StatusSent).
		Set("sent_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id}).
		Where(sq.Eq{"status": model.StatusPending}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	// Execute the statement and verify that the entry was still pending.
	result, err := s.db.ExecContext(ctx, statement, args...)
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}
	if rowsAffected != 1 {
		return fmt.Errorf("%s: entry %s is not pending", wrapMsg, id)
	}

	return nil
}

// MarkFailed moves a pending delivery log entry to the failed status, recording the
// error detail. Entries that have already reached a terminal status are never rewritten.
func (s *Store) MarkFailed(ctx context.Context, id, errorMessage string) error {
	wrapMsg := "unable to mark the notification as failed"

	// Build the update statement.
	statement, args, err := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Update("delivery_log").
		Set("status", model.StatusFailed).
		Set("error_message", errorMessage).
		Where(sq.Eq{"id": id}).
		Where(sq.Eq{"status": model.StatusPending}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	// Execute the statement and verify that the entry was still pending.
	result, err := s.db.ExecContext(ctx, statement, args...)
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}
	if rowsAffected != 1 {
		return fmt.Errorf("%s: entry %s is not pending", wrapMsg, id)
	}

	return nil
}
