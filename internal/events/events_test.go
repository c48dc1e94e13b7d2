package events

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/redbco/redb-catalog/internal/ident"
)

func TestNoopPublisherDiscardsEveryEvent(t *testing.T) {
	p := NoopPublisher{}
	ev := Event{
		Type:        TableCreated,
		WarehouseID: ident.WarehouseID(uuid.Must(uuid.NewRandom())),
		TabularID:   ident.TableTabularID(ident.TableID(uuid.Must(uuid.NewRandom()))),
		Timestamp:   time.Now(),
	}
	assert.NoError(t, p.Publish(context.Background(), ev))
}

func TestEventTypeConstantsAreDistinct(t *testing.T) {
	types := []EventType{
		TableCreated, TableCommitted, TableRenamed, TableDropped,
		ViewCreated, ViewCommitted, ViewRenamed, ViewDropped,
	}
	seen := make(map[EventType]bool)
	for _, typ := range types {
		assert.False(t, seen[typ], "duplicate event type %s", typ)
		seen[typ] = true
	}
}
