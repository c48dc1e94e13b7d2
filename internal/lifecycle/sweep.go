package lifecycle

import (
	"context"
	"time"

	"github.com/redbco/redb-catalog/internal/catalogbackend"
	"github.com/redbco/redb-catalog/internal/catalogerr"
	"github.com/redbco/redb-catalog/internal/events"
	"github.com/redbco/redb-catalog/internal/ident"
)

// ListExpiredTabulars passes through to the backend so the sweeper process
// can discover soft-deleted rows past their grace window without importing
// catalogbackend directly.
func (e *Engine[B, A, S]) ListExpiredTabulars(ctx context.Context, before time.Time, limit int) ([]catalogbackend.ExpiredTabular, error) {
	out, err := e.Backend.ListExpiredTabulars(ctx, before, limit)
	if err != nil {
		return nil, catalogerr.As(err)
	}
	return out, nil
}

// PurgeExpiredTabular hard-deletes one expired tabular row. It is a
// system-internal operation invoked by the sweeper, not a user-facing
// endpoint, so it bypasses the Authorizer: the decision to purge was already
// made when the row was soft-deleted with an expiration (spec §4.F.4).
func (e *Engine[B, A, S]) PurgeExpiredTabular(ctx context.Context, t catalogbackend.ExpiredTabular) (err error) {
	defer e.record(ctx, "purge_expired_tabular", time.Now(), &err)

	txn, err := e.Backend.BeginWrite(ctx)
	if err != nil {
		return catalogerr.As(err)
	}
	defer func() { _ = txn.Rollback(ctx) }()

	switch t.TabularID.Kind {
	case ident.KindTable:
		tableID, aerr := t.TabularID.AsTable()
		if aerr != nil {
			return catalogerr.Internal("expired tabular has malformed table id", aerr)
		}
		if err = e.Backend.DropTable(ctx, txn, tableID, catalogbackend.DropFlags{HardDelete: true, Purge: true}); err != nil {
			return catalogerr.As(err)
		}
	case ident.KindView:
		viewID, aerr := t.TabularID.AsView()
		if aerr != nil {
			return catalogerr.Internal("expired tabular has malformed view id", aerr)
		}
		if err = e.Backend.DropView(ctx, txn, viewID, catalogbackend.DropFlags{HardDelete: true, Purge: true}); err != nil {
			return catalogerr.As(err)
		}
	}

	if err = txn.Commit(ctx); err != nil {
		return catalogerr.As(err)
	}

	e.publish(ctx, events.Event{Type: events.TableDropped, WarehouseID: t.WarehouseID, TabularID: t.TabularID, Timestamp: time.Now()})
	return nil
}
