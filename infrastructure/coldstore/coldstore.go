// Package coldstore is the typed facade over the ScyllaDB wide-column
// tier, the source of truth for all persistent state. The keyspace is
// fixed at startup and every operation runs one of a fixed set of
// statements with a per-statement timeout.
//
// Counter-column updates on accuracy_counters are commutative and
// increment-only; they stay correct under any number of concurrent
// writers. Engagements are written to two mirror tables with no
// cross-table transactionality; a failed mirror write is logged and
// left to the background reconciler.
package coldstore

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"

	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/logging"
)

// ErrorKind classifies a cold-tier failure.
type ErrorKind string

const (
	KindSession       ErrorKind = "session"
	KindQuery         ErrorKind = "query"
	KindTimeout       ErrorKind = "timeout"
	KindSerialization ErrorKind = "serialization"
	KindNotFound      ErrorKind = "not_found"
)

// Error is a cold-tier failure tagged with its kind.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("cold store %s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a cold-tier not-found.
func IsNotFound(err error) bool {
	if ce, ok := err.(*Error); ok {
		return ce.Kind == KindNotFound
	}
	return false
}

func wrapQuery(op string, err error) error {
	if err == nil {
		return nil
	}
	kind := KindQuery
	switch err {
	case gocql.ErrNotFound:
		kind = KindNotFound
	case gocql.ErrTimeoutNoResponse, context.DeadlineExceeded:
		kind = KindTimeout
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Config configures the cold store session.
type Config struct {
	Hosts    []string
	Keyspace string
	Username string
	Password string
	Timeout  time.Duration
	PageSize int
}

// DefaultConfig returns the standard cold store configuration.
func DefaultConfig() Config {
	return Config{
		Hosts:    []string{"127.0.0.1:9042"},
		Keyspace: "drone_ops",
		Timeout:  5 * time.Second,
		PageSize: 100,
	}
}

// Store owns the session. The session and its internally prepared
// statements are immutable after startup and shared by reference.
type Store struct {
	session  *gocql.Session
	log      *logging.Logger
	pageSize int
}

// New connects to the cluster and ensures the schema exists.
func New(cfg Config, log *logging.Logger) (*Store, error) {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = gocql.Quorum
	if cfg.Timeout > 0 {
		cluster.Timeout = cfg.Timeout
	}
	if cfg.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, &Error{Kind: KindSession, Op: "create session", Err: err}
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	store := &Store{session: session, log: log, pageSize: pageSize}
	if err := store.EnsureSchema(context.Background()); err != nil {
		session.Close()
		return nil, err
	}
	return store, nil
}

// Close tears down the session.
func (s *Store) Close() {
	s.session.Close()
}

// pageLimit caps a caller-supplied limit at the configured default.
func (s *Store) pageLimit(limit int) int {
	if limit <= 0 || limit > s.pageSize {
		return s.pageSize
	}
	return limit
}

// exec runs a statement and logs its duration.
func (s *Store) exec(ctx context.Context, op, stmt string, args ...interface{}) error {
	start := time.Now()
	err := s.session.Query(stmt, args...).WithContext(ctx).Exec()
	if s.log != nil {
		s.log.LogColdQuery(ctx, op, time.Since(start), err)
	}
	return wrapQuery(op, err)
}
