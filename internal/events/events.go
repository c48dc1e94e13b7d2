// Package events publishes lifecycle events (table/view created, committed,
// renamed, dropped) for downstream consumers — change-data-capture,
// audit logs, cache invalidation. Publication is fire-and-forget: a publish
// failure never fails the lifecycle operation it describes (spec §4.F.1,
// last step "publish event", is explicitly non-blocking).
package events

import (
	"context"
	"time"

	"github.com/redbco/redb-catalog/internal/ident"
)

type EventType string

const (
	TableCreated  EventType = "table.created"
	TableCommitted EventType = "table.committed"
	TableRenamed  EventType = "table.renamed"
	TableDropped  EventType = "table.dropped"
	ViewCreated   EventType = "view.created"
	ViewCommitted EventType = "view.committed"
	ViewRenamed   EventType = "view.renamed"
	ViewDropped   EventType = "view.dropped"
)

type Event struct {
	Type        EventType
	WarehouseID ident.WarehouseID
	NamespaceID ident.NamespaceID
	TabularID   ident.TabularID
	Timestamp   time.Time
	Metadata    map[string]string
}

// Publisher is the event-sink port. Implementations must not block the
// caller for longer than their own internal timeout.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}
