package lifecycle

import (
	"context"
	"time"

	"github.com/apache/iceberg-go"

	"github.com/redbco/redb-catalog/internal/authz"
	"github.com/redbco/redb-catalog/internal/catalogbackend"
	"github.com/redbco/redb-catalog/internal/catalogerr"
	"github.com/redbco/redb-catalog/internal/events"
	"github.com/redbco/redb-catalog/internal/ident"
	"github.com/redbco/redb-catalog/internal/icebergmeta"
	"github.com/redbco/redb-catalog/internal/storage"
)

// CreateTableRequest is the input to CreateTable. StageOnly corresponds to
// the Iceberg REST "stage-create" flow: the row is inserted with no
// metadata location, no metadata blob is written, and the tabular stays
// Staged.
type CreateTableRequest struct {
	WarehouseID ident.WarehouseID
	Namespace   ident.NamespaceIdent
	Name        string
	Schema      *iceberg.Schema
	Properties  map[string]string
	StageOnly   bool
}

// CreateTableResult is returned to the REST layer: the tabular row plus the
// metadata JSON and any vended client storage config.
type CreateTableResult struct {
	Tabular      catalogbackend.Tabular
	MetadataJSON string
	Config       storage.TableConfig
}

// CreateTable implements the 16-step flow of spec §4.F.1:
// validate → authorize → resolve namespace → begin tx → load namespace/
// warehouse → mint id → compute location → compute metadata location →
// build metadata → insert row → fetch secret → write metadata blob →
// compute client config → commit → publish event.
func (e *Engine[B, A, S]) CreateTable(ctx context.Context, rm authz.RequestMetadata, req CreateTableRequest, access storage.DataAccess) (result CreateTableResult, err error) {
	defer e.record(ctx, "create_table", time.Now(), &err)

	tableIdent, verr := ident.NewTableIdent(req.Namespace, req.Name)
	if verr != nil {
		return CreateTableResult{}, catalogerr.BadRequest("invalid table identifier", verr)
	}
	if req.Schema == nil {
		return CreateTableResult{}, catalogerr.BadRequest("table schema is required", nil)
	}

	if err = e.Authz.CheckCreateTable(ctx, rm, req.WarehouseID, req.Namespace); err != nil {
		return CreateTableResult{}, catalogerr.As(err)
	}

	namespaceID, err := e.resolveNamespaceID(ctx, req.WarehouseID, req.Namespace)
	if err != nil {
		return CreateTableResult{}, err
	}

	txn, err := e.Backend.BeginWrite(ctx)
	if err != nil {
		return CreateTableResult{}, catalogerr.As(err)
	}
	defer func() { _ = txn.Rollback(ctx) }()

	warehouse, err := e.resolveWarehouse(ctx, req.WarehouseID)
	if err != nil {
		return CreateTableResult{}, err
	}

	profile, err := e.loadProfile(warehouse)
	if err != nil {
		return CreateTableResult{}, err
	}

	tableUUID, uerr := ident.NewV7()
	if uerr != nil {
		return CreateTableResult{}, catalogerr.Internal("failed to mint table id", uerr)
	}
	tableID := ident.TableID(tableUUID)
	tabularID := ident.TableTabularID(tableID)

	tableLocation := profile.BaseLocation(req.WarehouseID).Push(namespaceID.String()).Push(tabularID.UUID.String())

	metadataLocation, lerr := profile.DefaultMetadataLocation(tableLocation, e.Defaults.DefaultCodec, tableUUID)
	if lerr != nil {
		return CreateTableResult{}, catalogerr.As(lerr)
	}

	meta, merr := icebergmeta.NewTableMetadata(req.Schema, tableLocation.String(), req.Properties)
	if merr != nil {
		return CreateTableResult{}, merr
	}
	metadataJSON, merr := icebergmeta.MarshalTableMetadata(meta)
	if merr != nil {
		return CreateTableResult{}, merr
	}

	var metadataLocPtr *string
	if !req.StageOnly {
		loc := metadataLocation.String()
		metadataLocPtr = &loc
	}

	if err = e.Backend.CreateTable(ctx, txn, catalogbackend.TableCreate{
		TabularID:        tableID,
		NamespaceID:      namespaceID,
		Name:             req.Name,
		MetadataLocation: metadataLocPtr,
		StorageLocation:  tableLocation.String(),
		MetadataJSON:     metadataJSON,
	}); err != nil {
		return CreateTableResult{}, catalogerr.As(err)
	}

	sec, serr := e.fetchSecret(ctx, warehouse)
	if serr != nil {
		return CreateTableResult{}, serr
	}

	if !req.StageOnly {
		if err = profile.WriteObject(ctx, metadataLocation, []byte(metadataJSON), sec); err != nil {
			return CreateTableResult{}, catalogerr.As(err)
		}
	}

	config, cerr := profile.GenerateTableConfig(ctx, access, sec, tableLocation, storage.PermissionReadWrite)
	if cerr != nil {
		return CreateTableResult{}, catalogerr.As(cerr)
	}

	if err = txn.Commit(ctx); err != nil {
		return CreateTableResult{}, catalogerr.As(err)
	}

	e.publish(ctx, events.Event{
		Type: events.TableCreated, WarehouseID: req.WarehouseID, NamespaceID: namespaceID,
		TabularID: tabularID, Timestamp: time.Now(),
	})

	status := catalogbackend.StatusActive
	if req.StageOnly {
		status = catalogbackend.StatusStaged
	}
	return CreateTableResult{
		Tabular: catalogbackend.Tabular{
			TabularID: tabularID, NamespaceID: namespaceID, Identifier: req.Name,
			MetadataLocation: metadataLocPtr, StorageLocation: tableLocation.String(), Status: status,
		},
		MetadataJSON: metadataJSON,
		Config:       config,
	}, nil
}

// CreateViewRequest is the input to CreateView, grounded directly on
// original_source/.../catalog/views/create.rs's ViewCreation fields.
type CreateViewRequest struct {
	WarehouseID      ident.WarehouseID
	Namespace        ident.NamespaceIdent
	Name             string
	Schema           *iceberg.Schema
	Representations  []icebergmeta.ViewRepresentation
	DefaultNamespace ident.NamespaceIdent
	Properties       map[string]string
}

type CreateViewResult struct {
	Tabular      catalogbackend.Tabular
	MetadataJSON string
}

// CreateView mirrors CreateTable's flow; views have no stage-create variant
// and no vended credentials (views carry no data of their own).
func (e *Engine[B, A, S]) CreateView(ctx context.Context, rm authz.RequestMetadata, req CreateViewRequest) (result CreateViewResult, err error) {
	defer e.record(ctx, "create_view", time.Now(), &err)

	if _, verr := ident.NewViewIdent(req.Namespace, req.Name); verr != nil {
		return CreateViewResult{}, catalogerr.BadRequest("invalid view identifier", verr)
	}
	if len(req.Representations) == 0 {
		return CreateViewResult{}, catalogerr.BadRequest("view must have at least one query representation", nil)
	}
	if req.Schema == nil {
		return CreateViewResult{}, catalogerr.BadRequest("view schema is required", nil)
	}

	if err = e.Authz.CheckCreateView(ctx, rm, req.WarehouseID, req.Namespace); err != nil {
		return CreateViewResult{}, catalogerr.As(err)
	}

	namespaceID, err := e.resolveNamespaceID(ctx, req.WarehouseID, req.Namespace)
	if err != nil {
		return CreateViewResult{}, err
	}

	txn, err := e.Backend.BeginWrite(ctx)
	if err != nil {
		return CreateViewResult{}, catalogerr.As(err)
	}
	defer func() { _ = txn.Rollback(ctx) }()

	warehouse, err := e.resolveWarehouse(ctx, req.WarehouseID)
	if err != nil {
		return CreateViewResult{}, err
	}

	profile, err := e.loadProfile(warehouse)
	if err != nil {
		return CreateViewResult{}, err
	}

	viewUUID, uerr := ident.NewV7()
	if uerr != nil {
		return CreateViewResult{}, catalogerr.Internal("failed to mint view id", uerr)
	}
	viewID := ident.ViewID(viewUUID)
	tabularID := ident.ViewTabularID(viewID)

	viewLocation := profile.BaseLocation(req.WarehouseID).Push(namespaceID.String()).Push(tabularID.UUID.String())
	metadataLocation, lerr := profile.DefaultMetadataLocation(viewLocation, e.Defaults.DefaultCodec, viewUUID)
	if lerr != nil {
		return CreateViewResult{}, catalogerr.As(lerr)
	}

	meta := icebergmeta.NewViewMetadata(viewUUID, viewLocation.String(), req.Schema, req.Representations, req.DefaultNamespace, req.Properties)
	metadataJSON, merr := icebergmeta.MarshalViewMetadata(meta)
	if merr != nil {
		return CreateViewResult{}, merr
	}

	if err = e.Backend.CreateView(ctx, txn, catalogbackend.ViewCreate{
		TabularID: viewID, NamespaceID: namespaceID, Name: req.Name,
		MetadataLocation: metadataLocation.String(), StorageLocation: viewLocation.String(), MetadataJSON: metadataJSON,
	}); err != nil {
		return CreateViewResult{}, catalogerr.As(err)
	}

	sec, serr := e.fetchSecret(ctx, warehouse)
	if serr != nil {
		return CreateViewResult{}, serr
	}
	if err = profile.WriteObject(ctx, metadataLocation, []byte(metadataJSON), sec); err != nil {
		return CreateViewResult{}, catalogerr.As(err)
	}

	if err = txn.Commit(ctx); err != nil {
		return CreateViewResult{}, catalogerr.As(err)
	}

	e.publish(ctx, events.Event{
		Type: events.ViewCreated, WarehouseID: req.WarehouseID, NamespaceID: namespaceID,
		TabularID: tabularID, Timestamp: time.Now(),
	})

	return CreateViewResult{
		Tabular: catalogbackend.Tabular{
			TabularID: tabularID, NamespaceID: namespaceID, Identifier: req.Name,
			MetadataLocation: ptr(metadataLocation.String()), StorageLocation: viewLocation.String(), Status: catalogbackend.StatusActive,
		},
		MetadataJSON: metadataJSON,
	}, nil
}

func ptr[T any](v T) *T { return &v }
