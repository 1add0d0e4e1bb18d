package storage

import (
	"database/sql"
	"fmt"
)

// FrameIterator walks over stored frames
type FrameIterator struct {
	rows    *sql.Rows
	current FrameRecord
	err     error
}

// Next advances to the next frame
func (fi *FrameIterator) Next() bool {
	if fi.err != nil || !fi.rows.Next() {
		return false
	}

	var rec FrameRecord
	if err := fi.rows.Scan(&rec.Seq, &rec.FPGATimeMicroSecs, &rec.Data); err != nil {
		fi.err = fmt.Errorf("scanning frame: %w", err)
		return false
	}

	fi.current = rec
	return true
}

// Current returns the frame Next advanced to
func (fi *FrameIterator) Current() FrameRecord {
	return fi.current
}

// Error returns the error that stopped iteration, if any
func (fi *FrameIterator) Error() error {
	if fi.err != nil {
		return fi.err
	}
	return fi.rows.Err()
}

// Close releases the underlying result set
func (fi *FrameIterator) Close() error {
	return fi.rows.Close()
}
