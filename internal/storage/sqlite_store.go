package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// frames are inserted in chunks to stay below SQLite's bound parameter limit
const maxFramesPerInsert = 200

// SqliteStore handles database operations
type SqliteStore struct {
	dbPath string

	db     *sql.DB
	dbOnce sync.Once
	dbErr  error

	closeOnce sync.Once
	closeErr  error
}

// NewSqliteStore creates a store backed by the SQLite database at dbPath. The
// database is created and the schema initialized on first use.
func NewSqliteStore(dbPath string) *SqliteStore {
	return &SqliteStore{dbPath: dbPath}
}

func runSQLCommand(db *sql.DB, sql string) error {
	_, err := db.Exec(sql)
	return err
}

func (s *SqliteStore) getDB() (*sql.DB, error) {
	s.dbOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on"))
		if err != nil {
			s.dbErr = fmt.Errorf("opening connection: %w", err)
			return
		}

		if err = runSQLCommand(db, initSchemaSQL); err != nil {
			_ = db.Close()
			s.dbErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.db = db
	})

	return s.db, s.dbErr
}

func (s *SqliteStore) CreateSession(ctx context.Context, robot, logPath, header string, config any) (sessionID int64, err error) {
	configData, err := toNullString(config)
	if err != nil {
		return
	}

	db, err := s.getDB()
	if err != nil {
		err = fmt.Errorf("getting connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, insertSessionSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	result, err := stmt.ExecContext(ctx, robot, logPath, strings.TrimRight(header, "\r\n"), configData)
	if err != nil {
		err = fmt.Errorf("inserting session: %w", err)
		return
	}

	sessionID, err = result.LastInsertId()
	if err != nil {
		err = fmt.Errorf("getting session ID: %w", err)
	}
	return
}

func (s *SqliteStore) Session(ctx context.Context, id int64) (session *Session, err error) {
	db, err := s.getDB()
	if err != nil {
		err = fmt.Errorf("getting connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, selectSessionSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	session, err = scanSession(stmt.QueryRowContext(ctx, id))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		err = fmt.Errorf("%w: %d", ErrSessionNotFound, id)
	case err != nil:
		err = fmt.Errorf("scanning session: %w", err)
	}
	return
}

func (s *SqliteStore) Sessions(ctx context.Context) (sessions []*Session, err error) {
	db, err := s.getDB()
	if err != nil {
		err = fmt.Errorf("getting connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectSessionsSQL)
	if err != nil {
		err = fmt.Errorf("querying sessions: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var sess *Session
		if sess, err = scanSession(rows); err != nil {
			err = fmt.Errorf("scanning session: %w", err)
			return
		}
		sessions = append(sessions, sess)
	}
	err = rows.Err()
	return
}

func (s *SqliteStore) StoreFrames(ctx context.Context, sessionID int64, frames []FrameRecord) (err error) {
	if len(frames) == 0 {
		return
	}

	db, err := s.getDB()
	if err != nil {
		return fmt.Errorf("getting connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	for start := 0; start < len(frames); start += maxFramesPerInsert {
		chunk := frames[start:min(start+maxFramesPerInsert, len(frames))]

		// Prepare values array
		values := make([]any, 0, len(chunk)*4)

		// Build batch insert query
		valuesPlaceholder := "(?, ?, ?, ?)"

		var sb strings.Builder
		sb.WriteString(insertFrameSQL)

		for i, frame := range chunk {
			values = append(values, sessionID, frame.Seq, frame.FPGATimeMicroSecs, frame.Data)

			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(valuesPlaceholder)
		}

		if _, err = tx.ExecContext(ctx, sb.String(), values...); err != nil {
			return fmt.Errorf("batch inserting frames: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// ReadFrames returns an iterator over the session's frames in sequence order.
// The iterator must be closed after use to release database resources; it
// should only be used from a single goroutine.
func (s *SqliteStore) ReadFrames(ctx context.Context, sessionID int64) (*FrameIterator, error) {
	if _, err := s.Session(ctx, sessionID); err != nil {
		return nil, err
	}

	db, err := s.getDB()
	if err != nil {
		return nil, fmt.Errorf("getting connection: %w", err)
	}

	rows, err := db.QueryContext(ctx, selectFramesSQL, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying frames: %w", err)
	}

	return &FrameIterator{rows: rows}, nil
}

func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		// a store closed before first use never opens the database
		s.dbOnce.Do(func() {})

		db := s.db
		s.db, s.dbErr = nil, ErrStoreClosed
		if db == nil {
			return
		}

		indexErr := runSQLCommand(db, initIndexesSQL)
		closeErr := db.Close()

		s.closeErr = errors.Join(indexErr, closeErr)
	})

	return s.closeErr
}
