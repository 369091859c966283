// Package executor turns connect, subscribe and publish intents into
// asynchronous MQTT operations and reports their outcomes.
//
// # Subscriptions
//
// Each subscription owns a bounded queue and a single writer goroutine:
//
//	paho delivery → Subscription.deliver → queue → writer → file, stdout, sinks, log
//
// The writer is the only goroutine touching the subscription's sinks, so
// writes stay in arrival order without a lock. A full queue blocks the
// delivery callback, which pushes back on paho rather than dropping
// messages.
//
// Closing a subscription stops intake, drains what is queued, and closes
// every sink exactly once. The close hook is registered with the
// lifecycle.Registry passed in Options, so the command layer releases all
// sinks on every exit path.
//
// # Logging
//
// Outside debug mode a received message is logged as a preview of at most
// ten characters, with "..." appended when the payload is longer. In debug
// mode the full payload and topic are logged.
package executor
