// Package storage holds the subscription stores and the Redis catalog
// cache.
package storage

import (
	"context"
	"fmt"

	"github.com/ignite/seatwatch/internal/config"
	"github.com/ignite/seatwatch/internal/domain"
	"github.com/ignite/seatwatch/internal/pkg/logger"
)

// SubscriptionStore is implemented by every backend.
type SubscriptionStore interface {
	FetchActive(ctx context.Context) (map[domain.Code]domain.Subscription, error)
	Prune(ctx context.Context, code domain.Code, recipients []domain.Recipient) error
	Close() error
}

// New opens the store selected by cfg.Type. Postgres stores are opened by
// the caller, which owns the *sql.DB.
func New(ctx context.Context, cfg config.StorageConfig) (SubscriptionStore, error) {
	switch cfg.Type {
	case "aws":
		store, err := NewDynamoStore(ctx, cfg.DynamoDBTable, cfg.AWSRegion, cfg.GetAWSProfile())
		if err != nil {
			return nil, fmt.Errorf("initializing DynamoDB storage: %w", err)
		}
		return store, nil
	case "local":
		return NewLocalStore(cfg.LocalPath)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", cfg.Type)
	}
}

// addSubscription canonicalizes a stored row and adds it to subs when it has
// recipients. Rows with invalid codes are logged and skipped.
func addSubscription(subs map[domain.Code]domain.Subscription, rawCode, title string, phones, emails []string) (domain.Code, bool) {
	code, err := domain.ParseCode(rawCode)
	if err != nil {
		logger.Warn("storage: skipping subscription with invalid code", "code", rawCode, "error", err)
		return "", false
	}
	recipients := domain.JoinRecipients(phones, emails)
	if len(recipients) == 0 {
		return "", false
	}
	if existing, ok := subs[code]; ok {
		recipients = append(existing.Recipients, recipients...)
		if title == "" {
			title = existing.Title
		}
	}
	subs[code] = domain.Subscription{Code: code, Title: title, Recipients: recipients}
	return code, true
}
