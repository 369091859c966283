// mqtt-cli - MQTT command line client and HiveMQ Data Hub administration tool.
//
// Commands:
//   - pub: connect, publish one message to one or more topics, disconnect
//   - sub: connect, subscribe to topic filters and print or store messages until interrupted
//   - hivemq: create, get, list and delete Data Hub policies, schemas and scripts
//
// Exit codes: 0 success, 1 operation failure, 2 usage error.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	// sub blocks on it; every registered cleanup hook runs before exit.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	code := newApp(os.Stdout, os.Stderr).execute(ctx, os.Args[1:])
	cancel()
	os.Exit(code)
}
