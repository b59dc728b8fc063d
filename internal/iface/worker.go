package iface

import "context"

// Worker is the transport boundary of an Interface: it realizes the shared
// channel to the external peer. Implementations live in the transport
// subpackages; the Interface never retries transport failures itself.
type Worker interface {
	// Open establishes the underlying channel. It is called once, before
	// the worker goroutines start.
	Open(ctx context.Context) error

	// Close releases the channel. It is called after both worker
	// goroutines have exited.
	Close() error

	// WriteValues delivers one batch of packets to the peer. Batching
	// amortizes per-write overhead; the caller never delays the first
	// packet to grow a batch.
	WriteValues(ctx context.Context, batch []Packet) error

	// ReadValues blocks until at least one packet is available from the
	// peer. Implementations should honor ctx cancellation where their
	// read primitive allows it; the Interface cancels ctx on Close but
	// treats prompt reader shutdown as best-effort.
	ReadValues(ctx context.Context) ([]Packet, error)
}
