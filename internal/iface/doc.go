// Package iface synchronizes simulation attributes with an external
// real-time peer over a shared channel. An Interface owns two bounded
// queues (simulation to external, external to simulation), a writer and a
// reader goroutine, and a sequence-numbered packet format. It exposes
// itself to the scheduler as exactly two tasks: a pre-step import and a
// post-step export, each gated by a downsampling factor.
//
// The transport realizing the channel is pluggable behind the Worker
// contract; see the transport subpackages.
package iface
