// Package lifecycle implements the Tabular Lifecycle Engine: the orchestration
// of validation, authorization, backend transaction, storage writes and
// event publication behind every table/view operation (spec §4.F). It is
// grounded step-by-step on
// original_source/crates/iceberg-catalog/src/catalog/views/create.rs and the
// trait shape of service/catalog.rs.
package lifecycle

import (
	"context"
	"time"

	"github.com/redbco/redb-catalog/internal/authz"
	"github.com/redbco/redb-catalog/internal/catalogbackend"
	"github.com/redbco/redb-catalog/internal/catalogconfig"
	"github.com/redbco/redb-catalog/internal/catalogerr"
	"github.com/redbco/redb-catalog/internal/events"
	"github.com/redbco/redb-catalog/internal/ident"
	"github.com/redbco/redb-catalog/internal/metrics"
	"github.com/redbco/redb-catalog/internal/secret"
	"github.com/redbco/redb-catalog/internal/storage"
	"github.com/redbco/redb-catalog/pkg/logger"
)

// Engine bundles cloneable handles to the three collaborator ports (Backend,
// Authorizer, SecretStore) plus the process-wide Defaults, mirroring the
// Rust State<A, C, S> trait-parameterized struct (spec §9) with Go
// generics.
type Engine[B catalogbackend.Backend, A authz.Authorizer, S secret.Store] struct {
	Backend  B
	Authz    A
	Secrets  S
	Events   events.Publisher
	Metrics  metrics.Sink
	Defaults catalogconfig.Defaults
	Log      *logger.Logger
}

func New[B catalogbackend.Backend, A authz.Authorizer, S secret.Store](
	backend B, authorizer A, secrets S, pub events.Publisher, sink metrics.Sink, defaults catalogconfig.Defaults, log *logger.Logger,
) *Engine[B, A, S] {
	if pub == nil {
		pub = events.NoopPublisher{}
	}
	if sink == nil {
		sink = metrics.Discard{}
	}
	if log == nil {
		log = logger.New("catalog-engine", "internal")
	}
	return &Engine[B, A, S]{
		Backend: backend, Authz: authorizer, Secrets: secrets,
		Events: pub, Metrics: sink, Defaults: defaults, Log: log,
	}
}

func (e *Engine[B, A, S]) record(ctx context.Context, op string, start time.Time, err *error) {
	outcome := metrics.OutcomeSuccess
	if *err != nil {
		outcome = metrics.OutcomeError
	}
	e.Metrics.RecordOperation(ctx, op, outcome, time.Since(start))
}

// publish fires an event in the background without waiting for it or
// letting a publish failure affect the caller; spec §4.F.1 step 16 is
// explicitly best-effort.
func (e *Engine[B, A, S]) publish(ctx context.Context, ev events.Event) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := e.Events.Publish(ctx, ev); err != nil {
			e.Log.WithFields(map[string]string{"event_type": string(ev.Type)}).Warn("failed to publish lifecycle event: " + err.Error())
		}
	}()
}

// resolveWarehouse loads the warehouse and fails with WarehouseInactive if
// it is not active (spec §4.F "require_active_warehouse").
func (e *Engine[B, A, S]) resolveWarehouse(ctx context.Context, id ident.WarehouseID) (*catalogbackend.Warehouse, error) {
	w, err := e.Backend.GetWarehouse(ctx, id)
	if err != nil {
		return nil, catalogerr.As(err)
	}
	if w == nil {
		return nil, catalogerr.NotFound("warehouse not found")
	}
	if w.Status != catalogbackend.WarehouseActive {
		return nil, catalogerr.WarehouseInactive(w.Name)
	}
	return w, nil
}

func (e *Engine[B, A, S]) resolveNamespaceID(ctx context.Context, warehouseID ident.WarehouseID, nsIdent ident.NamespaceIdent) (ident.NamespaceID, error) {
	id, err := e.Backend.NamespaceIdentToID(ctx, warehouseID, nsIdent)
	if err != nil {
		return ident.NamespaceID{}, catalogerr.As(err)
	}
	if id == nil {
		return ident.NamespaceID{}, catalogerr.NotFound("namespace does not exist")
	}
	return *id, nil
}

func (e *Engine[B, A, S]) loadProfile(w *catalogbackend.Warehouse) (storage.Profile, error) {
	profile, err := storage.DecodeProfile(w.StorageProfileJSON)
	if err != nil {
		return nil, catalogerr.As(err)
	}
	return profile, nil
}

func (e *Engine[B, A, S]) fetchSecret(ctx context.Context, w *catalogbackend.Warehouse) (*secret.Secret, error) {
	if w.StorageSecretID == nil {
		return nil, nil
	}
	sec, err := e.Secrets.Get(ctx, *w.StorageSecretID)
	if err != nil {
		return nil, catalogerr.SecretError("failed to fetch storage secret", err)
	}
	return sec, nil
}
