package storage

import (
	"context"
	"errors"
)

var (
	// ErrSessionNotFound is returned when a session id does not exist
	ErrSessionNotFound = errors.New("session not found")
	// ErrStoreClosed is returned by operations on a closed store
	ErrStoreClosed = errors.New("store is closed")
)

// Store persists logging sessions and their frames.
// All operations that write to the database should be considered atomic.
type Store interface {
	// CreateSession registers a new logging session and returns its unique identifier.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - robot: Robot name from the robot map
	//   - logPath: TSV log the frames belong to
	//   - header: Tab separated header line the frames follow
	//   - config: Optional robot layout. Can be string, []byte, or JSON-serializable object
	CreateSession(ctx context.Context, robot, logPath, header string, config any) (sessionID int64, err error)

	// Session retrieves a session by its ID, ErrSessionNotFound if it does not exist.
	Session(ctx context.Context, id int64) (*Session, error)

	// Sessions returns all sessions ordered by start time.
	Sessions(ctx context.Context) ([]*Session, error)

	// StoreFrames saves data lines for a session in a single transaction.
	StoreFrames(ctx context.Context, sessionID int64, frames []FrameRecord) error

	// ReadFrames iterates over a session's frames in sequence order.
	// The iterator must be closed after use.
	ReadFrames(ctx context.Context, sessionID int64) (*FrameIterator, error)

	// Close releases all database connections. It is safe to call Close multiple times.
	Close() error
}

var _ Store = (*SqliteStore)(nil)
