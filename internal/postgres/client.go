package postgres

import (
	"context"

	"github.com/condohub/billing/internal/logger"
	sentryService "github.com/condohub/billing/internal/sentry"
	"github.com/condohub/billing/internal/types"
	"go.uber.org/fx"
)

// IClient is the unit-of-work boundary services depend on. Repositories built
// on the same DB pick the transaction up from the context.
type IClient interface {
	WithTx(ctx context.Context, fn func(context.Context) error) error
}

// SentryClient traces every unit of work as a db span
type SentryClient struct {
	db     *DB
	sentry *sentryService.Service
	logger *logger.Logger
}

func NewSentryClient(db *DB, sentry *sentryService.Service, logger *logger.Logger) IClient {
	return &SentryClient{db: db, sentry: sentry, logger: logger}
}

func (c *SentryClient) WithTx(ctx context.Context, fn func(context.Context) error) error {
	span, spanCtx := c.sentry.StartDBSpan(ctx, "postgres.transaction", map[string]interface{}{
		"request_id": types.GetRequestID(ctx),
		"user_id":    types.GetUserID(ctx),
	})
	if span != nil {
		defer span.Finish()
	}
	return c.db.WithTx(spanCtx, fn)
}

// Module provides the pool and the transaction client
func Module() fx.Option {
	return fx.Options(
		fx.Provide(
			NewDB,
			NewSentryClient,
		),
	)
}
