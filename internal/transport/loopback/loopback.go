// Package loopback provides an in-memory transport connecting two
// interface endpoints through channels. It is the reference transport for
// tests and for co-simulating two simulation instances in one process.
package loopback

import (
	"context"

	"github.com/vk/gridsim/internal/iface"
)

// Endpoint is one side of an in-memory channel pair. It implements
// iface.Worker; reads are cancellable through the context.
type Endpoint struct {
	out chan<- iface.Packet
	in  <-chan iface.Packet
}

// NewPair returns two connected endpoints. Each side's writes become the
// other side's reads. The capacity bounds the in-flight packets per
// direction; zero means 64.
func NewPair(capacity int) (*Endpoint, *Endpoint) {
	if capacity == 0 {
		capacity = 64
	}
	ab := make(chan iface.Packet, capacity)
	ba := make(chan iface.Packet, capacity)
	return &Endpoint{out: ab, in: ba}, &Endpoint{out: ba, in: ab}
}

// Open implements iface.Worker. The channel pair needs no setup.
func (e *Endpoint) Open(context.Context) error { return nil }

// Close implements iface.Worker. The channels are left open so the peer
// endpoint can still drain packets in flight.
func (e *Endpoint) Close() error { return nil }

// WriteValues implements iface.Worker.
func (e *Endpoint) WriteValues(ctx context.Context, batch []iface.Packet) error {
	for _, p := range batch {
		select {
		case e.out <- p:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// ReadValues implements iface.Worker: it blocks for at least one packet,
// then drains whatever else is immediately available.
func (e *Endpoint) ReadValues(ctx context.Context) ([]iface.Packet, error) {
	var pkts []iface.Packet
	select {
	case p := <-e.in:
		pkts = append(pkts, p)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	for {
		select {
		case p := <-e.in:
			pkts = append(pkts, p)
		default:
			return pkts, nil
		}
	}
}
