package executor

import (
	"bytes"
	"context"
	"sync"

	"github.com/nerrad567/mqtt-cli/internal/infrastructure/logging"
	"github.com/nerrad567/mqtt-cli/internal/infrastructure/mqtt"
	"github.com/nerrad567/mqtt-cli/internal/qos2"
)

// syncBuffer is a bytes.Buffer safe for concurrent use.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestLogger(level string) (*logging.Logger, *syncBuffer) {
	buf := &syncBuffer{}
	return logging.NewWithWriter(buf, "text", level, "test"), buf
}

// fakeToken is completed by the test.
type fakeToken struct {
	done chan struct{}
	err  error
}

func newFakeToken() *fakeToken {
	return &fakeToken{done: make(chan struct{})}
}

func (t *fakeToken) complete(err error) {
	t.err = err
	close(t.done)
}

func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error          { return t.err }

// fakeSession records calls and lets tests inject messages.
type fakeSession struct {
	mu sync.Mutex

	connectAck   mqtt.ConnAck
	connectErr   error
	connectState bool
	connected    bool
	params       mqtt.ConnectParams

	subscribeCalls int
	handlers       map[string]mqtt.MessageHandler
	subToken       *fakeToken

	published  []mqtt.Message
	publishErr error

	disconnects int
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		connectState: true,
		handlers:     make(map[string]mqtt.MessageHandler),
	}
}

func (f *fakeSession) Connect(_ context.Context, params mqtt.ConnectParams) (mqtt.ConnAck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.params = params
	if f.connectErr == nil {
		f.connected = f.connectState
	}
	return f.connectAck, f.connectErr
}

func (f *fakeSession) Subscribe(filter string, _ byte, handler mqtt.MessageHandler) mqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribeCalls++
	f.handlers[filter] = handler
	if f.subToken != nil {
		return f.subToken
	}
	tok := newFakeToken()
	tok.complete(nil)
	return tok
}

func (f *fakeSession) Publish(msg mqtt.Message) mqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, msg)
	tok := newFakeToken()
	tok.complete(f.publishErr)
	return tok
}

func (f *fakeSession) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeSession) Info() qos2.ClientInfo {
	return qos2.ClientInfo{ClientID: "fake", ServerURI: "tcp://localhost:1883"}
}

func (f *fakeSession) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return mqtt.ErrNotConnected
	}
	f.connected = false
	f.disconnects++
	return nil
}

// deliver pushes a message through the handler registered for filter.
func (f *fakeSession) deliver(filter, topic, payload string) {
	f.mu.Lock()
	h := f.handlers[filter]
	f.mu.Unlock()
	h(mqtt.Message{Topic: topic, Payload: []byte(payload), QoS: 1})
}

// recordingSink captures messages written to an extra sink.
type recordingSink struct {
	mu       sync.Mutex
	messages []mqtt.Message
	closes   int
}

func (r *recordingSink) WriteMessage(msg mqtt.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return nil
}

func (r *recordingSink) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closes++
	return nil
}

// stalledSink blocks every write until release is closed.
type stalledSink struct {
	recordingSink
	entered chan struct{}
	release chan struct{}
}

func newStalledSink() *stalledSink {
	return &stalledSink{entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (s *stalledSink) WriteMessage(msg mqtt.Message) error {
	select {
	case s.entered <- struct{}{}:
	default:
	}
	<-s.release
	return s.recordingSink.WriteMessage(msg)
}
