// Package socketio implements the interface transport over a socket.io
// websocket connection. Packet batches travel as JSON payloads on a single
// event name derived from the interface identity, so the peer can be
// another gridsim instance or any socket.io endpoint that speaks the
// packet format.
package socketio

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/vk/gridsim/internal/iface"
)

// connectTimeout bounds the initial websocket handshake.
const connectTimeout = 15 * time.Second

// Config describes the socket.io endpoint to connect to.
type Config struct {
	// URL of the socket.io server, e.g. "wss://host:port/socket.io".
	URL string
	// Namespace to join; empty means the root namespace.
	Namespace string
	// EventName carries the packet batches; empty means "attributes".
	EventName string
	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool
	// Logger overrides the default logger.
	Logger *slog.Logger
}

// Worker is the socket.io implementation of iface.Worker.
type Worker struct {
	cfg    Config
	logger *slog.Logger

	io      *socket.Socket
	inbound chan []iface.Packet
}

// NewWorker returns an unconnected worker; Open establishes the connection.
func NewWorker(cfg Config) *Worker {
	if cfg.EventName == "" {
		cfg.EventName = "attributes"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		cfg:     cfg,
		logger:  logger.With("transport", "socketio", "url", cfg.URL),
		inbound: make(chan []iface.Packet, 64),
	}
}

// Open implements iface.Worker: it connects the client and subscribes to
// the packet event.
func (w *Worker) Open(ctx context.Context) error {
	w.logger.Info("Connecting to socket.io endpoint...")

	parsedURL, err := url.Parse(w.cfg.URL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}

	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if w.cfg.InsecureSkipVerify {
		w.logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(w.cfg.Namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		w.logger.Info("Connected.", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err, _ := errs[0].(error)
		connectChan <- err
	})

	io.On(types.EventName(w.cfg.EventName), func(data ...any) {
		if len(data) == 0 {
			return
		}
		pkts, err := decodeBatch(data[0])
		if err != nil {
			w.logger.Warn("Dropping undecodable packet batch.", "error", err)
			return
		}
		w.inbound <- pkts
	})

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return fmt.Errorf("socket.io connection failed: %w", err)
		}
	case <-ctx.Done():
		io.Disconnect()
		return fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(connectTimeout):
		io.Disconnect()
		return fmt.Errorf("timed out after %v waiting for socket.io connection", connectTimeout)
	}

	w.io = io
	return nil
}

// Close implements iface.Worker.
func (w *Worker) Close() error {
	if w.io != nil {
		w.io.Disconnect()
		w.io = nil
	}
	return nil
}

// WriteValues implements iface.Worker: the batch is emitted as one JSON
// payload.
func (w *Worker) WriteValues(_ context.Context, batch []iface.Packet) error {
	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("encode packet batch: %w", err)
	}
	if err := w.io.Emit(w.cfg.EventName, string(data)); err != nil {
		return fmt.Errorf("emit packet batch: %w", err)
	}
	return nil
}

// ReadValues implements iface.Worker: it blocks until the event handler
// buffered a batch or the context is cancelled.
func (w *Worker) ReadValues(ctx context.Context) ([]iface.Packet, error) {
	select {
	case pkts := <-w.inbound:
		return pkts, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// decodeBatch accepts the raw event payload as either a JSON string/bytes
// or an already-decoded value and converts it into packets.
func decodeBatch(payload any) ([]iface.Packet, error) {
	var raw []byte
	switch v := payload.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		// The socket.io parser may hand decoded JSON structures; re-encode
		// so one path handles every shape.
		enc, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("re-encode event payload: %w", err)
		}
		raw = enc
	}
	var pkts []iface.Packet
	if err := json.Unmarshal(raw, &pkts); err != nil {
		return nil, fmt.Errorf("decode packet batch: %w", err)
	}
	return pkts, nil
}
