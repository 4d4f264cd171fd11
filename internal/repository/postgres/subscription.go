// Package postgres implements the subscription store against PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/ignite/seatwatch/internal/domain"
	"github.com/ignite/seatwatch/internal/pkg/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS notifications (
	section_code  TEXT PRIMARY KEY,
	course_title  TEXT NOT NULL DEFAULT '',
	phone_numbers TEXT[] NOT NULL DEFAULT '{}',
	emails        TEXT[] NOT NULL DEFAULT '{}',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// SubscriptionRepo stores one row per section with its recipient arrays.
type SubscriptionRepo struct{ db *sql.DB }

// NewSubscriptionRepo creates a Postgres-backed subscription store.
func NewSubscriptionRepo(db *sql.DB) *SubscriptionRepo { return &SubscriptionRepo{db: db} }

// Migrate creates the notifications table if it does not exist.
func (r *SubscriptionRepo) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate notifications: %w", err)
	}
	return nil
}

// FetchActive returns sections with at least one recipient.
func (r *SubscriptionRepo) FetchActive(ctx context.Context) (map[domain.Code]domain.Subscription, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT section_code, course_title, COALESCE(phone_numbers, '{}'), COALESCE(emails, '{}')
		FROM notifications
		WHERE cardinality(phone_numbers) > 0 OR cardinality(emails) > 0
	`)
	if err != nil {
		return nil, fmt.Errorf("fetch subscriptions: %w", err)
	}
	defer rows.Close()

	subs := make(map[domain.Code]domain.Subscription)
	for rows.Next() {
		var (
			raw, title     string
			phones, emails []string
		)
		if err := rows.Scan(&raw, &title, pq.Array(&phones), pq.Array(&emails)); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		code, err := domain.ParseCode(raw)
		if err != nil {
			logger.Warn("postgres: skipping subscription with invalid code", "code", raw, "error", err)
			continue
		}
		recipients := domain.JoinRecipients(phones, emails)
		if len(recipients) == 0 {
			continue
		}
		if existing, ok := subs[code]; ok {
			recipients = append(existing.Recipients, recipients...)
		}
		subs[code] = domain.Subscription{Code: code, Title: title, Recipients: recipients}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}
	return subs, nil
}

// Prune removes recipients from the section's arrays. Rows stored with an
// unpadded code are matched too.
func (r *SubscriptionRepo) Prune(ctx context.Context, code domain.Code, recipients []domain.Recipient) error {
	phones, emails := domain.SplitRecipients(recipients)
	if len(phones) == 0 && len(emails) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET
			phone_numbers = ARRAY(SELECT unnest(phone_numbers) EXCEPT SELECT unnest($2::text[])),
			emails        = ARRAY(SELECT unnest(emails) EXCEPT SELECT unnest($3::text[])),
			updated_at    = NOW()
		WHERE lpad(section_code, 5, '0') = $1
	`, code.String(), pq.Array(orEmpty(phones)), pq.Array(orEmpty(emails)))
	if err != nil {
		return fmt.Errorf("prune %s: %w", code, err)
	}
	return nil
}

// Close is a no-op; the caller owns the *sql.DB.
func (r *SubscriptionRepo) Close() error { return nil }

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
