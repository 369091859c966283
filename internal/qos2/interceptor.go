package qos2

import (
	"context"
	"log/slog"

	"github.com/nerrad567/mqtt-cli/internal/infrastructure/logging"
)

// Observer receives the two steps of an inbound QoS 2 handshake.
// Implementations must not block; they run on the connection's read path.
type Observer interface {
	OnPublish(client ClientInfo, publish Publish, pubrec Ack)
	OnRelease(client ClientInfo, release Release, pubcomp Ack)
}

// Interceptor logs the inbound QoS 2 handshake at debug level.
//
// It is safe for concurrent use. A nil *Interceptor ignores every call.
type Interceptor struct {
	logger *slog.Logger
}

// New creates an Interceptor that logs through logger.
// A nil logger falls back to slog.Default().
func New(logger *slog.Logger) *Interceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Interceptor{logger: logger}
}

// OnPublish is called when an inbound QoS 2 PUBLISH arrives, before the
// PUBREC described by pubrec is written.
func (i *Interceptor) OnPublish(client ClientInfo, publish Publish, pubrec Ack) {
	if i == nil {
		return
	}
	defer i.recoverPanic("PUBREC")

	prefix := client.Prefix()
	i.logger.Log(context.Background(), logging.LevelTrace, prefix+" received PUBLISH", "packet", publish.String())
	i.logger.Debug(prefix+" sending PUBREC", "packet", pubrec.String())
}

// OnRelease is called when an inbound PUBREL arrives, before the PUBCOMP
// described by pubcomp is written.
func (i *Interceptor) OnRelease(client ClientInfo, release Release, pubcomp Ack) {
	if i == nil {
		return
	}
	defer i.recoverPanic("PUBCOMP")

	prefix := client.Prefix()
	i.logger.Debug(prefix+" received PUBREL", "packet", release.String())
	i.logger.Debug(prefix+" sending PUBCOMP", "packet", pubcomp.String())
}

func (i *Interceptor) recoverPanic(step string) {
	if r := recover(); r != nil {
		// The logger itself may be what panicked; fall back to the default.
		defer func() { _ = recover() }()
		slog.Default().Error("qos2 interceptor panic recovered", "step", step, "panic", r)
	}
}
