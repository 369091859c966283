package store

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/eclipse/paho.mqtt.golang/packets"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Store configuration constants.
const (
	// dirPermissions is the permission mode for the database directory.
	dirPermissions = 0750

	// filePermissions is the permission mode for the database file.
	filePermissions = 0600

	// msPerSecond converts seconds to milliseconds.
	msPerSecond = 1000

	// opTimeout bounds every statement; paho's Store interface has no context.
	opTimeout = 5 * time.Second
)

// ErrNotOpen is recorded when the store is used before Init or after Close.
var ErrNotOpen = errors.New("store: not open")

// schema creates the single table the store needs.
const schema = `
CREATE TABLE IF NOT EXISTS inflight (
	client_id  TEXT NOT NULL,
	key        TEXT NOT NULL,
	packet     BLOB NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (client_id, key)
)`

// Config contains store configuration options.
// These map to the mqtt.store section of config.yaml.
type Config struct {
	// Path is the filesystem path to the SQLite database file.
	// The directory will be created if it doesn't exist.
	Path string

	// BusyTimeout is the maximum time to wait for a database lock (seconds).
	BusyTimeout int

	// ClientID scopes the stored packets.
	ClientID string
}

// Logger interface for optional logging support.
type Logger interface {
	Warn(msg string, args ...any)
}

// SQLiteStore is a paho Store backed by SQLite.
//
// paho's Store methods return no errors. Failures are logged when a
// logger is set and the most recent one is available from Err.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type SQLiteStore struct {
	mu      sync.Mutex
	cfg     Config
	db      *sql.DB
	lastErr error
	logger  Logger
}

// New creates a store. Call Init before handing it to paho.
func New(cfg Config) *SQLiteStore {
	return &SQLiteStore{cfg: cfg}
}

// SetLogger sets a logger for store failures.
func (s *SQLiteStore) SetLogger(logger Logger) {
	s.mu.Lock()
	s.logger = logger
	s.mu.Unlock()
}

// Init opens the database and creates the schema.
//
// It performs the following setup:
//  1. Creates the database directory if it doesn't exist
//  2. Opens the database file in WAL mode with the configured busy timeout
//  3. Creates the inflight table
//  4. Sets file permissions (0600)
//
// Returns:
//   - error: If the database cannot be opened or initialised
func (s *SQLiteStore) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openLocked()
}

func (s *SQLiteStore) openLocked() error {
	if s.db != nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.cfg.Path), dirPermissions); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}

	// See: https://github.com/mattn/go-sqlite3#connection-string
	connStr := fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_synchronous=NORMAL",
		s.cfg.Path,
		s.cfg.BusyTimeout*msPerSecond,
	)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return fmt.Errorf("creating store schema: %w", err)
	}

	_ = os.Chmod(s.cfg.Path, filePermissions) //nolint:errcheck // Best effort

	s.db = db
	return nil
}

// Open implements pahomqtt.Store. It opens the database if Init was not called.
func (s *SQLiteStore) Open() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.openLocked(); err != nil {
		s.fail("open", err)
	}
}

// Put implements pahomqtt.Store.
func (s *SQLiteStore) Put(key string, message packets.ControlPacket) {
	var buf bytes.Buffer
	if err := message.Write(&buf); err != nil {
		s.mu.Lock()
		s.fail("encode", err)
		s.mu.Unlock()
		return
	}

	s.exec("put", `INSERT OR REPLACE INTO inflight (client_id, key, packet, updated_at) VALUES (?, ?, ?, ?)`,
		s.cfg.ClientID, key, buf.Bytes(), time.Now().UTC().Format(time.RFC3339Nano))
}

// Get implements pahomqtt.Store. It returns nil when key is absent.
func (s *SQLiteStore) Get(key string) packets.ControlPacket {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		s.fail("get", ErrNotOpen)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT packet FROM inflight WHERE client_id = ? AND key = ?`,
		s.cfg.ClientID, key,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		s.fail("get", err)
		return nil
	}

	pkt, err := packets.ReadPacket(bytes.NewReader(raw))
	if err != nil {
		s.fail("decode", err)
		return nil
	}
	return pkt
}

// All implements pahomqtt.Store. Keys are returned in insertion order.
func (s *SQLiteStore) All() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		s.fail("all", ErrNotOpen)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM inflight WHERE client_id = ? ORDER BY rowid`,
		s.cfg.ClientID,
	)
	if err != nil {
		s.fail("all", err)
		return nil
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			s.fail("all", err)
			return nil
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		s.fail("all", err)
		return nil
	}
	return keys
}

// Del implements pahomqtt.Store.
func (s *SQLiteStore) Del(key string) {
	s.exec("del", `DELETE FROM inflight WHERE client_id = ? AND key = ?`, s.cfg.ClientID, key)
}

// Reset implements pahomqtt.Store. It removes every packet for the client.
func (s *SQLiteStore) Reset() {
	s.exec("reset", `DELETE FROM inflight WHERE client_id = ?`, s.cfg.ClientID)
}

// Close implements pahomqtt.Store. It is safe to call more than once.
func (s *SQLiteStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return
	}
	if err := s.db.Close(); err != nil {
		s.fail("close", err)
	}
	s.db = nil
}

// Err returns the most recent failure, or nil.
func (s *SQLiteStore) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *SQLiteStore) exec(op, query string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		s.fail(op, ErrNotOpen)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		s.fail(op, err)
	}
}

// fail records err. Callers hold s.mu.
func (s *SQLiteStore) fail(op string, err error) {
	s.lastErr = fmt.Errorf("store %s: %w", op, err)
	if s.logger != nil {
		s.logger.Warn("in-flight store operation failed", "op", op, "error", err)
	}
}

// compile-time check
var _ pahomqtt.Store = (*SQLiteStore)(nil)
