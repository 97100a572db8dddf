package bus

import (
	"context"
)

type Kind string

const (
	// KindKeySet is emitted once when a wallet key set finishes registration.
	KindKeySet Kind = "keyset"
	// KindOpStatus reports an operation status transition (old -> new).
	KindOpStatus Kind = "op_status"
	// KindStatusMismatch reports a verify attempt against an operation whose
	// status does not admit verification; no state change accompanies it.
	KindStatusMismatch Kind = "status_mismatch"
)

type Event struct {
	Kind    Kind
	OpHash  string
	Old     string
	New     string
	Body    any
	TraceID string
}

type Subscriber chan Event

type Bus struct {
	pub chan Event
}

func New(size int) *Bus {
	if size <= 0 {
		size = 128
	}
	return &Bus{pub: make(chan Event, size)}
}

func (b *Bus) Publish(_ context.Context, ev Event) {
	select {
	case b.pub <- ev:
	default: // drop on backpressure
	}
}

func (b *Bus) Subscribe() Subscriber { return b.pub }
