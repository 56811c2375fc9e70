package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/gist4u/notifications/model"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	sq "github.com/Masterminds/squirrel"
)

// UpsertSubscriber registers a push subscriber. Re-registering an existing token updates
// the language, email, and category preferences in place rather than creating a duplicate.
func (s *Store) UpsertSubscriber(ctx context.Context, subscriber *model.Subscriber) error {
	wrapMsg := "unable to register the push subscriber"

	// Build the statement to insert or update the subscriber.
	statement, args, err := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Insert("subscribers").
		Columns("token", "email", "preferred_language", "category_preferences").
		Values(
			subscriber.Token,
			subscriber.Email,
			subscriber.Language,
			pq.Array(subscriber.CategoryPreferences)).
		Suffix(`ON CONFLICT (token) DO UPDATE
			SET email = EXCLUDED.email,
			    preferred_language = EXCLUDED.preferred_language,
			    category_preferences = EXCLUDED.category_preferences,
			    last_used_at = now()
			RETURNING id`).
		ToSql()
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	// Execute the statement, scanning the ID into the subscriber structure.
	row := s.db.QueryRowContext(ctx, statement, args...)
	err = row.Scan(&subscriber.ID)
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	return nil
}

// ListSubscribers returns every push subscriber in the directory.
func (s *Store) ListSubscribers(ctx context.Context) ([]model.Subscriber, error) {
	wrapMsg := "unable to list the push subscribers"

	// Build the query.
	query, args, err := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Select(
			"id",
			"token",
			"coalesce(email, '')",
			"preferred_language",
			"category_preferences",
			"sent_today",
			"last_count_reset").
		From("subscribers").
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	// Query the database.
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}
	defer rows.Close()

	// Build the result set.
	var subscribers []model.Subscriber
	for rows.Next() {
		var subscriber model.Subscriber
		var lastCountReset sql.NullTime
		err = rows.Scan(
			&subscriber.ID,
			&subscriber.Token,
			&subscriber.Email,
			&subscriber.Language,
			pq.Array(&subscriber.CategoryPreferences),
			&subscriber.SentToday,
			&lastCountReset)
		if err != nil {
			return nil, errors.Wrap(err, wrapMsg)
		}
		if lastCountReset.Valid {
			subscriber.LastCountReset = lastCountReset.Time
		}
		subscribers = append(subscribers, subscriber)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	return subscribers, nil
}

// ClaimDailySlot attempts to claim one of a subscriber's daily notification slots. The
// counter is reset when the last reset date precedes today, and the claim succeeds only
// while the counter is below the quota. The reset and the increment happen in a single
// conditional update so that two overlapping dispatch passes can never both claim a
// subscriber's last slot.
func (s *Store) ClaimDailySlot(ctx context.Context, token string, quota int, today time.Time) (bool, error) {
	wrapMsg := "unable to claim a daily notification slot"

	// Build the conditional update statement.
	statement, args, err := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Update("subscribers").
		Set("sent_today", sq.Expr(
			"CASE WHEN last_count_reset IS DISTINCT FROM ?::date THEN 1 ELSE sent_today + 1 END",
			today)).
		Set("last_count_reset", today).
		Where(sq.Eq{"token": token}).
		Where(sq.Expr("(last_count_reset IS DISTINCT FROM ?::date OR sent_today < ?)", today, quota)).
		ToSql()
	if err != nil {
		return false, errors.Wrap(err, wrapMsg)
	}

	// Execute the statement. The slot was claimed if the row was updated.
	result, err := s.db.ExecContext(ctx, statement, args...)
	if err != nil {
		return false, errors.Wrap(err, wrapMsg)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, wrapMsg)
	}

	return rowsAffected > 0, nil
}

// TokensForEmails returns the push registrations linked to any of the given email
// addresses, so that Pro content can be pushed in addition to being emailed.
func (s *Store) TokensForEmails(ctx context.Context, emails []string) ([]model.Subscriber, error) {
	wrapMsg := "unable to look up push registrations by email"

	if len(emails) == 0 {
		return nil, nil
	}

	// Build the query.
	query, args, err := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Select("id", "token", "coalesce(email, '')", "preferred_language").
		From("subscribers").
		Where(sq.Eq{"email": emails}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	// Query the database.
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}
	defer rows.Close()

	// Build the result set.
	var subscribers []model.Subscriber
	for rows.Next() {
		var subscriber model.Subscriber
		err = rows.Scan(&subscriber.ID, &subscriber.Token, &subscriber.Email, &subscriber.Language)
		if err != nil {
			return nil, errors.Wrap(err, wrapMsg)
		}
		subscribers = append(subscribers, subscriber)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	return subscribers, nil
}

// DeleteSubscribersByToken removes subscribers whose tokens the push provider reported
// as permanently invalid. The removal happens in one bulk statement per batch.
func (s *Store) DeleteSubscribersByToken(ctx context.Context, tokens []string) (int64, error) {
	wrapMsg := "unable to delete invalid push subscribers"

	if len(tokens) == 0 {
		return 0, nil
	}

	// Build the delete statement.
	statement, args, err := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Delete("subscribers").
		Where(sq.Eq{"token": tokens}).
		ToSql()
	if err != nil {
		return 0, errors.Wrap(err, wrapMsg)
	}

	// Execute the statement.
	result, err := s.db.ExecContext(ctx, statement, args...)
	if err != nil {
		return 0, errors.Wrap(err, wrapMsg)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, wrapMsg)
	}

	return rowsAffected, nil
}
