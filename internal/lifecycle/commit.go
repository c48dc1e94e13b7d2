package lifecycle

import (
	"context"
	"time"

	"github.com/apache/iceberg-go"
	"github.com/google/uuid"

	"github.com/redbco/redb-catalog/internal/authz"
	"github.com/redbco/redb-catalog/internal/catalogbackend"
	"github.com/redbco/redb-catalog/internal/catalogerr"
	"github.com/redbco/redb-catalog/internal/events"
	"github.com/redbco/redb-catalog/internal/ident"
	"github.com/redbco/redb-catalog/internal/icebergmeta"
)

// TableRef identifies the table a commit applies to, plus the caller's view
// of its current state: the metadata JSON and metadata_location it last
// saw. CreateTable returns both; LoadTable returns the row with its
// metadata_location but not the metadata JSON. CurrentLocation doubles as
// the optimistic-
// concurrency token (spec §4.F.2): the backend rejects the update if the
// row has moved since.
type TableRef struct {
	ID              ident.TableID
	CurrentMetadata string
	CurrentLocation string
}

// TableCommitRequest describes one table's proposed change within a commit
// batch. A nil NewSchema leaves the schema unchanged.
type TableCommitRequest struct {
	Table      TableRef
	NewSchema  *iceberg.Schema
	Properties map[string]string
}

// CommitResult reports the newly committed metadata for each table in the
// batch, in request order.
type CommitResult struct {
	Metadata []string
}

// CommitTable commits a single table's metadata update under optimistic
// concurrency.
func (e *Engine[B, A, S]) CommitTable(ctx context.Context, rm authz.RequestMetadata, warehouseID ident.WarehouseID, tableIdent ident.TableIdent, req TableCommitRequest) (result CommitResult, err error) {
	defer e.record(ctx, "commit_table", time.Now(), &err)
	return e.commitTransaction(ctx, rm, warehouseID, tableIdent, []TableCommitRequest{req})
}

// CommitTransaction commits a batch of table updates atomically: every
// proposal must still match its CurrentLocation or the whole batch rolls
// back with Conflict (spec §4.F.2, "all-or-nothing").
func (e *Engine[B, A, S]) CommitTransaction(ctx context.Context, rm authz.RequestMetadata, warehouseID ident.WarehouseID, primary ident.TableIdent, reqs []TableCommitRequest) (result CommitResult, err error) {
	defer e.record(ctx, "commit_transaction", time.Now(), &err)
	return e.commitTransaction(ctx, rm, warehouseID, primary, reqs)
}

func (e *Engine[B, A, S]) commitTransaction(ctx context.Context, rm authz.RequestMetadata, warehouseID ident.WarehouseID, primary ident.TableIdent, reqs []TableCommitRequest) (CommitResult, error) {
	if len(reqs) == 0 {
		return CommitResult{}, catalogerr.BadRequest("commit batch must not be empty", nil)
	}
	if err := e.Authz.CheckCommitTable(ctx, rm, warehouseID, primary); err != nil {
		return CommitResult{}, catalogerr.As(err)
	}

	warehouse, err := e.resolveWarehouse(ctx, warehouseID)
	if err != nil {
		return CommitResult{}, err
	}
	profile, err := e.loadProfile(warehouse)
	if err != nil {
		return CommitResult{}, err
	}

	txn, err := e.Backend.BeginWrite(ctx)
	if err != nil {
		return CommitResult{}, catalogerr.As(err)
	}
	defer func() { _ = txn.Rollback(ctx) }()

	proposals := make([]catalogbackend.CommitProposal, 0, len(reqs))
	metadataJSONs := make([]string, 0, len(reqs))
	tabularIDs := make([]ident.TabularID, 0, len(reqs))

	for _, r := range reqs {
		current, perr := icebergmeta.ParseTableMetadata([]byte(r.Table.CurrentMetadata))
		if perr != nil {
			return CommitResult{}, perr
		}
		next, aerr := icebergmeta.ApplyCommit(current, r.NewSchema, r.Properties)
		if aerr != nil {
			return CommitResult{}, aerr
		}
		nextJSON, merr := icebergmeta.MarshalTableMetadata(next)
		if merr != nil {
			return CommitResult{}, merr
		}

		tabular, gerr := e.Backend.GetTableByID(ctx, r.Table.ID)
		if gerr != nil {
			return CommitResult{}, catalogerr.As(gerr)
		}
		if tabular == nil {
			return CommitResult{}, catalogerr.NotFound("table not found")
		}

		tableLocation, lerr := ident.ParseLocation(tabular.StorageLocation)
		if lerr != nil {
			return CommitResult{}, catalogerr.Internal("corrupt table storage location", lerr)
		}
		newMetadataLocation, merr2 := profile.DefaultMetadataLocation(tableLocation, e.Defaults.DefaultCodec, uuid.UUID(r.Table.ID))
		if merr2 != nil {
			return CommitResult{}, catalogerr.As(merr2)
		}

		sec, serr := e.fetchSecret(ctx, warehouse)
		if serr != nil {
			return CommitResult{}, serr
		}
		if err := profile.WriteObject(ctx, newMetadataLocation, []byte(nextJSON), sec); err != nil {
			return CommitResult{}, catalogerr.As(err)
		}

		proposals = append(proposals, catalogbackend.CommitProposal{
			TableID: r.Table.ID, NewMetadataJSON: nextJSON, NewMetadataLocation: newMetadataLocation.String(),
			PreviousMetadataLocation: r.Table.CurrentLocation,
		})
		metadataJSONs = append(metadataJSONs, nextJSON)
		tabularIDs = append(tabularIDs, ident.TableTabularID(r.Table.ID))
	}

	if err := e.Backend.CommitTableTransaction(ctx, txn, proposals); err != nil {
		return CommitResult{}, catalogerr.As(err)
	}

	if err := txn.Commit(ctx); err != nil {
		return CommitResult{}, catalogerr.As(err)
	}

	for _, id := range tabularIDs {
		e.publish(ctx, events.Event{Type: events.TableCommitted, WarehouseID: warehouseID, TabularID: id, Timestamp: time.Now()})
	}

	return CommitResult{Metadata: metadataJSONs}, nil
}
