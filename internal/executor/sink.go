package executor

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/nerrad567/mqtt-cli/internal/infrastructure/mqtt"
)

// File sink constants.
const (
	dirPermissions  = 0750
	filePermissions = 0644
)

// Sink receives every message of a subscription.
// The InfluxDB client is the production implementation.
type Sink interface {
	WriteMessage(msg mqtt.Message) error
	Close() error
}

// fileSink appends received messages to a file, one line per message.
// The zero of *fileSink (nil) ignores writes and closes cleanly.
type fileSink struct {
	path string
	file *os.File
	w    *bufio.Writer

	once     sync.Once
	closeErr error
}

// openFileSink opens path for appending, creating it and its directory.
func openFileSink(path string) (*fileSink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, dirPermissions); err != nil {
			return nil, fmt.Errorf("creating output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, filePermissions)
	if err != nil {
		return nil, fmt.Errorf("opening output file: %w", err)
	}

	return &fileSink{path: path, file: f, w: bufio.NewWriter(f)}, nil
}

// WriteLine writes "<filter>/: <payload>" and flushes.
func (s *fileSink) WriteLine(filter, payload string) error {
	if s == nil {
		return nil
	}
	if _, err := fmt.Fprintf(s.w, "%s/: %s\n", filter, payload); err != nil {
		return err
	}
	return s.w.Flush()
}

// Close flushes and closes the file. Later calls return the first result.
func (s *fileSink) Close() error {
	if s == nil {
		return nil
	}
	s.once.Do(func() {
		flushErr := s.w.Flush()
		closeErr := s.file.Close()
		if flushErr != nil {
			s.closeErr = flushErr
		} else {
			s.closeErr = closeErr
		}
	})
	return s.closeErr
}

// syncWriter serialises writes from several subscription writers.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// NopCloser returns s with a Close that does nothing. Use it when one sink
// is shared by several subscriptions and closed by its owner.
func NopCloser(s Sink) Sink {
	return nopCloser{s}
}

type nopCloser struct {
	Sink
}

func (nopCloser) Close() error { return nil }
