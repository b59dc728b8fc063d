package iface

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/vk/gridsim/internal/attribute"
	"github.com/vk/gridsim/internal/task"
)

var (
	// ErrAlreadyOpen is returned by Open on an interface that is open.
	ErrAlreadyOpen = errors.New("interface is already open")
	// ErrNotOpen is returned by Close on an interface that is not open.
	ErrNotOpen = errors.New("interface is not open")
	// ErrOpenRegistration is returned when attributes are registered after Open.
	ErrOpenRegistration = errors.New("attributes must be registered before the interface is opened")
)

// Config carries the tunables of an Interface.
type Config struct {
	// Downsampling restricts import/export to every Nth step. Zero means 1
	// (every step).
	Downsampling uint64
	// QueueCapacity bounds both packet queues. Zero means 64.
	QueueCapacity int
	// Logger overrides the default logger.
	Logger *slog.Logger
}

type importEntry struct {
	attr attribute.Base
	// applied is the sequence number of the last packet applied to this
	// attribute, -1 before any.
	applied int64
	block   bool
}

type exportEntry struct {
	attr attribute.Base
	seq  uint64
}

// Interface keeps a set of simulation attributes consistent with an
// external peer. Registration order defines the wire slot indices in both
// directions. The state machine is closed -> open -> closed; Open must not
// be called twice without an intervening Close.
type Interface struct {
	name   string
	worker Worker
	logger *slog.Logger

	downsampling uint64

	toWorker   chan Packet // simulation -> external
	fromWorker chan Packet // external -> simulation

	imports []importEntry
	exports []exportEntry

	// nextImportSeq is one past the inbound sequence number last applied;
	// only the simulation goroutine touches it.
	nextImportSeq int64
	nextExportSeq uint64

	opened     atomic.Bool
	cancelRead context.CancelFunc
	wg         sync.WaitGroup
}

// New wraps a transport worker into an Interface. The name identifies the
// interface in logs and derives the channel endpoint identity where the
// transport needs one.
func New(name string, worker Worker, cfg Config) *Interface {
	if cfg.Downsampling == 0 {
		cfg.Downsampling = 1
	}
	if cfg.QueueCapacity == 0 {
		cfg.QueueCapacity = 64
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Interface{
		name:         name,
		worker:       worker,
		logger:       logger.With("interface", name),
		downsampling: cfg.Downsampling,
		toWorker:     make(chan Packet, cfg.QueueCapacity),
		fromWorker:   make(chan Packet, cfg.QueueCapacity),
	}
}

// Name returns the interface identifier.
func (i *Interface) Name() string { return i.name }

// ImportAttribute registers an attribute the peer updates. With
// blockOnRead the pre-step task will not return until the attribute has
// been updated for the current step.
func (i *Interface) ImportAttribute(attr attribute.Base, blockOnRead bool) error {
	if i.opened.Load() {
		return ErrOpenRegistration
	}
	i.imports = append(i.imports, importEntry{attr: attr, applied: -1, block: blockOnRead})
	return nil
}

// ExportAttribute registers an attribute to snapshot to the peer each
// export step.
func (i *Interface) ExportAttribute(attr attribute.Base) error {
	if i.opened.Load() {
		return ErrOpenRegistration
	}
	i.exports = append(i.exports, exportEntry{attr: attr})
	return nil
}

// Open starts the transport and both worker goroutines.
func (i *Interface) Open(ctx context.Context) error {
	if i.opened.Load() {
		return ErrAlreadyOpen
	}
	if err := i.worker.Open(ctx); err != nil {
		return fmt.Errorf("open interface %s: %w", i.name, err)
	}
	i.opened.Store(true)

	readCtx, cancel := context.WithCancel(ctx)
	i.cancelRead = cancel

	i.wg.Add(2)
	go i.writerLoop(ctx)
	go i.readerLoop(readCtx)
	i.logger.Info("Interface opened.", "imports", len(i.imports), "exports", len(i.exports))
	return nil
}

// Close transitions to closed, enqueues the close sentinel so the writer
// drains every pending packet before exiting, joins both goroutines, then
// releases the transport. The reader's exit is best-effort: its blocking
// read may only return once the read context cancellation reaches the
// transport.
func (i *Interface) Close() error {
	if !i.opened.Load() {
		return ErrNotOpen
	}
	i.opened.Store(false)
	i.toWorker <- Packet{Flags: FlagClose}
	i.cancelRead()
	i.wg.Wait()
	if err := i.worker.Close(); err != nil {
		return fmt.Errorf("close interface %s: %w", i.name, err)
	}
	i.logger.Info("Interface closed.")
	return nil
}

// Tasks returns the {import, export} task pair, in that order. The
// scheduler must run the import task before pre-step consumers of imported
// values and the export task after post-step producers of exported values.
func (i *Interface) Tasks() []task.Task {
	importAttrs := make([]attribute.Base, len(i.imports))
	for idx, e := range i.imports {
		importAttrs[idx] = e.attr
	}
	exportAttrs := make([]attribute.Base, len(i.exports))
	for idx, e := range i.exports {
		exportAttrs[idx] = e.attr
	}
	return []task.Task{
		&preStep{intf: i, Decl: task.Decl{
			TaskName: i.name + ".PreStep",
			Mods:     importAttrs,
		}},
		&postStep{intf: i, Decl: task.Decl{
			TaskName: i.name + ".PostStep",
			Deps:     exportAttrs,
		}},
	}
}

type preStep struct {
	task.Decl
	intf *Interface
}

func (t *preStep) Execute(_ float64, step uint64) error {
	if len(t.intf.imports) == 0 {
		return nil
	}
	if step%t.intf.downsampling == 0 {
		t.intf.readAttributes()
	}
	return nil
}

type postStep struct {
	task.Decl
	intf *Interface
}

func (t *postStep) Execute(_ float64, step uint64) error {
	if len(t.intf.exports) == 0 {
		return nil
	}
	if step%t.intf.downsampling == 0 {
		t.intf.writeAttributes()
	}
	return nil
}

// blockingPending reports whether any blocking import attribute has not
// yet been updated up to the expected sequence number.
func (i *Interface) blockingPending(expected int64) bool {
	for idx := range i.imports {
		if i.imports[idx].block && i.imports[idx].applied < expected {
			return true
		}
	}
	return false
}

// readAttributes enforces the bounded staleness barrier: it dequeues
// (blocking as needed) until every blocking import attribute has been
// updated for the current step, then drains whatever else is already
// queued so state is as fresh as possible without waiting further.
func (i *Interface) readAttributes() {
	expected := i.nextImportSeq
	for i.blockingPending(expected) {
		i.applyPacket(<-i.fromWorker)
	}
	for {
		select {
		case p := <-i.fromWorker:
			i.applyPacket(p)
		default:
			return
		}
	}
}

// applyPacket writes an inbound packet onto its target attribute. A packet
// that cannot be applied is logged and dropped; sequence bookkeeping still
// advances so a malformed value cannot stall the barrier.
func (i *Interface) applyPacket(p Packet) {
	if p.AttributeID < 0 || p.AttributeID >= len(i.imports) {
		i.logger.Warn("Dropping packet for unknown import slot.",
			"slot", p.AttributeID, "sequence", p.SequenceID)
		return
	}
	entry := &i.imports[p.AttributeID]
	if err := entry.attr.UnpackValue(p.Value); err != nil {
		i.logger.Warn("Failed to apply received value onto attribute, dropping packet.",
			"slot", p.AttributeID, "sequence", p.SequenceID, "error", err)
	}
	entry.applied = int64(p.SequenceID)
	i.nextImportSeq = int64(p.SequenceID) + 1
}

// writeAttributes snapshots every export attribute into the outbound queue
// with the next per-direction sequence number.
func (i *Interface) writeAttributes() {
	for idx := range i.exports {
		entry := &i.exports[idx]
		v, err := entry.attr.PackValue()
		if err != nil {
			i.logger.Warn("Failed to snapshot export attribute, skipping.",
				"slot", idx, "error", err)
			continue
		}
		entry.seq = i.nextExportSeq
		i.toWorker <- Packet{
			Value:       v,
			AttributeID: idx,
			SequenceID:  i.nextExportSeq,
		}
		i.nextExportSeq++
	}
}

// writerLoop blocks on the outbound queue for at least one packet, drains
// any further already-available packets, then performs one batched write.
// It exits after observing the close sentinel, still flushing the batch
// collected alongside it.
func (i *Interface) writerLoop(ctx context.Context) {
	defer i.wg.Done()
	closed := false
	for !closed {
		batch := make([]Packet, 0, len(i.exports)+1)
		p := <-i.toWorker
		if p.Flags&FlagClose != 0 {
			closed = true
		} else {
			batch = append(batch, p)
		}
	drain:
		for {
			select {
			case p := <-i.toWorker:
				if p.Flags&FlagClose != 0 {
					closed = true
				} else {
					batch = append(batch, p)
				}
			default:
				break drain
			}
		}
		if len(batch) == 0 {
			continue
		}
		if err := i.worker.WriteValues(ctx, batch); err != nil {
			i.logger.Error("Writing attribute batch to the channel failed.", "error", err)
			return
		}
	}
}

// readerLoop blocks on the transport for available packets, stamps each
// with the next inbound sequence number and enqueues it. A failed read
// ends the loop; recovery is the transport's concern.
func (i *Interface) readerLoop(ctx context.Context) {
	defer i.wg.Done()
	var seq uint64
	for i.opened.Load() {
		pkts, err := i.worker.ReadValues(ctx)
		if err != nil {
			if ctx.Err() != nil || !i.opened.Load() {
				return
			}
			i.logger.Error("Reading values from the channel failed.", "error", err)
			return
		}
		for _, p := range pkts {
			p.SequenceID = seq
			seq++
			select {
			case i.fromWorker <- p:
			case <-ctx.Done():
				return
			}
		}
	}
}
