package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/encore-live/server/internal/domain"
	"github.com/encore-live/server/internal/feed"
	"github.com/encore-live/server/pkg/logger"
	"github.com/encore-live/server/pkg/retry"
)

// FetchFunc loads a full authoritative snapshot of one table.
type FetchFunc[T any] func(ctx context.Context) ([]T, error)

// Reconciler keeps one Mirror converged with its store table: an initial
// snapshot fetch, then change-feed events applied in delivery order, and a
// fresh snapshot whenever the subscription had to be re-established — the
// feed is never trusted to redeliver events missed during an outage.
type Reconciler[T any] struct {
	table  string
	mirror *Mirror[T]
	fetch  FetchFunc[T]
	log    logger.Logger
	rcfg   *retry.Config

	closed atomic.Bool
}

// NewReconciler wires a mirror to a table on the given subscriber. The
// subscriber owns the transport lifecycle; the reconciler owns convergence.
func NewReconciler[T any](table string, mirror *Mirror[T], fetch FetchFunc[T], sub *feed.Subscriber, log logger.Logger) *Reconciler[T] {
	if log == nil {
		log = logger.Global()
	}
	r := &Reconciler[T]{
		table:  table,
		mirror: mirror,
		fetch:  fetch,
		log:    log,
		rcfg:   retry.DefaultConfig(),
	}
	sub.On(table, r.handleEvent)
	sub.OnReconnect(r.resync)
	return r
}

// Start performs the initial snapshot fetch, retrying transient failures
// with bounded backoff. The subscriber must be started separately (it is
// shared across tables).
func (r *Reconciler[T]) Start(ctx context.Context) error {
	return r.loadSnapshot(ctx)
}

func (r *Reconciler[T]) loadSnapshot(ctx context.Context) error {
	var items []T
	err := retry.Do(ctx, r.rcfg, func() error {
		var ferr error
		items, ferr = r.fetch(ctx)
		return ferr
	})
	if err != nil {
		return fmt.Errorf("snapshot fetch for %s failed: %w", r.table, err)
	}
	r.mirror.Replace(items)
	r.log.Info("snapshot loaded", logger.String("table", r.table), logger.Int("entities", len(items)))
	return nil
}

// resync closes the gap after a subscription loss: full re-fetch before the
// already re-established stream is trusted again.
func (r *Reconciler[T]) resync(ctx context.Context) {
	if r.closed.Load() {
		return
	}
	if err := r.loadSnapshot(ctx); err != nil {
		r.log.Error("resync failed", logger.String("table", r.table), logger.Error(err))
	}
}

// handleEvent applies one feed event to the mirror.
func (r *Reconciler[T]) handleEvent(event *domain.ChangeEvent) error {
	if r.closed.Load() {
		return nil
	}

	if event.Op == domain.OpDelete {
		id, err := event.RowID()
		if err != nil {
			return fmt.Errorf("delete event without id: %w", err)
		}
		r.mirror.ApplyDelete(id)
		return nil
	}

	var v T
	if err := json.Unmarshal(event.Row, &v); err != nil {
		return fmt.Errorf("failed to decode %s row: %w", r.table, err)
	}
	switch event.Op {
	case domain.OpInsert:
		r.mirror.ApplyInsert(v)
	case domain.OpUpdate:
		r.mirror.ApplyUpdate(v)
	default:
		return fmt.Errorf("unknown change op %q", event.Op)
	}
	return nil
}

// Close detaches the reconciler from the stream. Safe before Start, safe
// twice; events arriving afterwards are ignored.
func (r *Reconciler[T]) Close() {
	r.closed.Store(true)
}

// Mirror returns the reconciler's local collection.
func (r *Reconciler[T]) Mirror() *Mirror[T] {
	return r.mirror
}
