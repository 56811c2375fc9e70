package db

import (
	"context"

	"github.com/gist4u/notifications/model"
	"github.com/pkg/errors"

	sq "github.com/Masterminds/squirrel"
)

// ActivateSubscription creates a Pro subscription on the first successful payment or
// renews an existing one. A renewal resets the activation timestamp, reactivates the
// record, and clears the expiry-notified flag.
func (s *Store) ActivateSubscription(ctx context.Context, subscription *model.Subscription) error {
	wrapMsg := "unable to activate the Pro subscription"

	// Build the statement to insert or renew the subscription.
	statement, args, err := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Insert("subscriptions").
		Columns("email", "name", "phone", "gist_preferences", "subscribed_at", "is_active", "notified_of_expiry").
		Values(
			subscription.Email,
			subscription.Name,
			subscription.Phone,
			subscription.Preferences,
			sq.Expr("now()"),
			true,
			false).
		Suffix(`ON CONFLICT (email) DO UPDATE
			SET name = EXCLUDED.name,
			    phone = EXCLUDED.phone,
			    gist_preferences = EXCLUDED.gist_preferences,
			    subscribed_at = now(),
			    is_active = true,
			    notified_of_expiry = false`).
		ToSql()
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	// Execute the statement.
	_, err = s.db.ExecContext(ctx, statement, args...)
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	return nil
}

// ListSubscriptions returns every Pro subscription record. Validity isn't stored, so
// callers compute it from the activation timestamp.
func (s *Store) ListSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	wrapMsg := "unable to list the Pro subscriptions"

	// Build the query.
	query, args, err := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Select("email", "name", "coalesce(phone, '')", "gist_preferences", "subscribed_at", "is_active", "notified_of_expiry").
		From("subscriptions").
		OrderBy("subscribed_at DESC").
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
	var subscriptions []model.Subscription
	for rows.Next() {
		var subscription model.Subscription
		err = rows.Scan(
			&subscription.Email,
			&subscription.Name,
			&subscription.Phone,
			&subscription.Preferences,
			&subscription.SubscribedAt,
			&subscription.Active,
			&subscription.NotifiedOfExpiry)
		if err != nil {
			return nil, errors.Wrap(err, wrapMsg)
		}
		subscriptions = append(subscriptions, subscription)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	return subscriptions, nil
}

// ClaimExpiryNotice flips the expiry-notified flag for a subscription, returning true
// only for the pass that actually flipped it. The flag is only cleared again on renewal,
// so the expiry notice goes out at most once per expiry even if two dispatch passes
// encounter the same expired subscription at the same time.
func (s *Store) ClaimExpiryNotice(ctx context.Context, email string) (bool, error) {
	wrapMsg := "unable to claim the expiry notice"

	// Build the conditional update statement.
	statement, args, err := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Update("subscriptions").
		Set("notified_of_expiry", true).
		Where(sq.Eq{"email": email}).
		Where(sq.Eq{"notified_of_expiry": false}).
		ToSql()
	if err != nil {
		return false, errors.Wrap(err, wrapMsg)
	}

	// Execute the statement. The notice was claimed if the row was updated.
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
