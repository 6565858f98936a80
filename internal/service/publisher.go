// Package service implements the engine's operations: request submission and
// dedup, the vote commit protocol, the queue state machine, and the set-list
// activation guard. Services validate, call the store, and announce committed
// writes on the change feed; they never hold locks across store round trips.
package service

import (
	"context"

	"github.com/encore-live/server/internal/domain"
	"github.com/encore-live/server/pkg/logger"
)

// ChangePublisher announces committed writes on the change feed.
// feed.Publisher is the production implementation.
type ChangePublisher interface {
	Publish(ctx context.Context, table string, op domain.ChangeOp, row interface{}) error
	PublishDelete(ctx context.Context, table, id string) error
}

// publish announces an event, logging failures instead of failing the
// caller: the write already committed, and consumers close feed gaps with a
// snapshot re-fetch on reconnect.
func publish(ctx context.Context, pub ChangePublisher, log logger.Logger, table string, op domain.ChangeOp, row interface{}) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, table, op, row); err != nil {
		log.Warn("change feed publish failed",
			logger.Error(err),
			logger.String("table", table),
			logger.String("op", string(op)),
		)
	}
}

func publishDelete(ctx context.Context, pub ChangePublisher, log logger.Logger, table, id string) {
	if pub == nil {
		return
	}
	if err := pub.PublishDelete(ctx, table, id); err != nil {
		log.Warn("change feed publish failed",
			logger.Error(err),
			logger.String("table", table),
			logger.String("op", string(domain.OpDelete)),
		)
	}
}
