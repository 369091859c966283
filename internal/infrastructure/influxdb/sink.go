package influxdb

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/mqtt-cli/internal/infrastructure/config"
)

// pingTimeout bounds the health check in Open.
const pingTimeout = 5 * time.Second

// pointWriter is the part of api.WriteAPI the sink uses.
type pointWriter interface {
	WritePoint(point *write.Point)
	Flush()
	Errors() <-chan error
}

// Sink writes received MQTT messages to InfluxDB, one point per message.
//
// Writes are non-blocking: points are batched by the client library and
// sent in the background, so a slow server never stalls a subscription.
// Failed batches are reported through the SetOnError callback.
//
// Thread Safety:
//   - All methods are safe for concurrent use; one Sink serves every
//     subscription of a sub command.
type Sink struct {
	writer      pointWriter
	release     func()
	measurement string
	maxPayload  int
	now         func() time.Time

	mu      sync.RWMutex
	closed  bool
	onError func(err error)

	written atomic.Int64
}

// Open connects to InfluxDB and returns a sink writing to cfg.Bucket.
//
// The batch size, flush interval and retry count come from cfg; the
// server must answer a ping before any message is accepted.
//
// Parameters:
//   - ctx: Bounds the ping
//   - cfg: InfluxDB settings; Enabled is not consulted
//
// Returns:
//   - *Sink: Ready for WriteMessage
//   - error: ErrMissingSetting or ErrUnreachable
func Open(ctx context.Context, cfg config.InfluxDBConfig) (*Sink, error) {
	if err := checkSettings(cfg); err != nil {
		return nil, err
	}

	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, clientOptions(cfg))

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	healthy, err := client.Ping(pingCtx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreachable, cfg.URL, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: %s reports unhealthy", ErrUnreachable, cfg.URL)
	}

	return newSink(client.WriteAPI(cfg.Org, cfg.Bucket), client.Close, cfg), nil
}

// checkSettings reports the first empty setting the sink needs.
func checkSettings(cfg config.InfluxDBConfig) error {
	for _, s := range []struct{ name, value string }{
		{"url", cfg.URL},
		{"org", cfg.Org},
		{"bucket", cfg.Bucket},
		{"measurement", cfg.Measurement},
	} {
		if s.value == "" {
			return fmt.Errorf("%w: influxdb.%s", ErrMissingSetting, s.name)
		}
	}
	return nil
}

// clientOptions maps the sink settings onto the library's write options.
func clientOptions(cfg config.InfluxDBConfig) *influxdb2.Options {
	opts := influxdb2.DefaultOptions()
	if cfg.BatchSize > 0 {
		opts.SetBatchSize(uint(cfg.BatchSize))
	}
	if cfg.FlushInterval > 0 {
		opts.SetFlushInterval(uint(cfg.FlushInterval))
	}
	if cfg.MaxRetries >= 0 {
		opts.SetMaxRetries(uint(cfg.MaxRetries))
	}
	return opts
}

func newSink(w pointWriter, release func(), cfg config.InfluxDBConfig) *Sink {
	s := &Sink{
		writer:      w,
		release:     release,
		measurement: cfg.Measurement,
		maxPayload:  cfg.MaxPayload,
		now:         time.Now,
	}
	go s.forwardErrors(w.Errors())
	return s
}

// forwardErrors hands asynchronous batch failures to the callback until the
// library closes the channel.
func (s *Sink) forwardErrors(errs <-chan error) {
	for err := range errs {
		s.mu.RLock()
		callback := s.onError
		s.mu.RUnlock()

		if callback != nil {
			callback(fmt.Errorf("%w: %w", ErrBatchRejected, err))
		}
	}
}

// SetOnError sets the callback for batches the server rejected.
func (s *Sink) SetOnError(callback func(err error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onError = callback
}

// Written returns how many messages were handed to the writer.
func (s *Sink) Written() int64 {
	return s.written.Load()
}

// Close flushes pending points and releases the client.
// Calling Close more than once is a no-op.
func (s *Sink) Close() error {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.writer.Flush()
	if s.release != nil {
		s.release()
	}
	return nil
}
