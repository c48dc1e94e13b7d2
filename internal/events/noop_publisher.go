package events

import "context"

// NoopPublisher discards every event. Used in single-node deployments that
// have no Redis configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
