package tsvlog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/team4028/robot-telemetry/internal/telemetry"
)

// maxLineSize bounds a single log line. Data lines stay far below it as free
// text columns are cut to telemetry.MaxTextLength.
const maxLineSize = 1 << 20

var (
	// ErrNoHeader is returned when the log does not start with a header line
	ErrNoHeader = errors.New("missing header line")

	// ErrColumnMismatch is returned when a data line has a different number of
	// columns than the header
	ErrColumnMismatch = errors.New("column count does not match header")

	// ErrUnknownColumn is returned when a record is asked for a column the log
	// does not have
	ErrUnknownColumn = errors.New("unknown column")
)

// Reader iterates over the data lines of a TSV log
type Reader struct {
	scanner *bufio.Scanner
	columns []string
	index   map[string]int

	line    int
	current Record
	err     error
}

// NewReader reads the header line from r
func NewReader(r io.Reader) (*Reader, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading header: %w", err)
		}
		return nil, ErrNoHeader
	}

	header := strings.TrimRight(scanner.Text(), "\r")
	if header == "" {
		return nil, ErrNoHeader
	}

	columns := strings.Split(header, telemetry.Separator)
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c] = i
	}

	return &Reader{
		scanner: scanner,
		columns: columns,
		index:   index,
		line:    1,
	}, nil
}

// Columns returns the header's column names
func (r *Reader) Columns() []string {
	return r.columns
}

// HasColumn reports whether the log has the named column
func (r *Reader) HasColumn(name string) bool {
	_, ok := r.index[name]
	return ok
}

// Next advances to the next data line. Blank lines are skipped.
func (r *Reader) Next() bool {
	if r.err != nil {
		return false
	}

	for r.scanner.Scan() {
		r.line++

		text := strings.TrimRight(r.scanner.Text(), "\r")
		if text == "" {
			continue
		}

		values := strings.Split(text, telemetry.Separator)
		if len(values) != len(r.columns) {
			r.err = fmt.Errorf("line %d: %w: %d columns, header has %d", r.line, ErrColumnMismatch, len(values), len(r.columns))
			return false
		}

		r.current = Record{line: r.line, values: values, index: r.index}
		return true
	}

	if err := r.scanner.Err(); err != nil {
		r.err = fmt.Errorf("reading line %d: %w", r.line+1, err)
	}
	return false
}

// Record returns the current data line
func (r *Reader) Record() Record {
	return r.current
}

// Err returns the error that stopped iteration, if any
func (r *Reader) Err() error {
	return r.err
}

// Record is one data line of a log
type Record struct {
	line   int
	values []string
	index  map[string]int
}

// Line returns the 1-based line number in the log file
func (rec Record) Line() int {
	return rec.line
}

// Values returns the raw column values
func (rec Record) Values() []string {
	return rec.values
}

// String returns the raw value of a column
func (rec Record) String(name string) (string, error) {
	i, ok := rec.index[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownColumn, name)
	}
	return rec.values[i], nil
}

// Float parses a column as a float
func (rec Record) Float(name string) (float64, error) {
	s, err := rec.String(name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("line %d: parsing %s: %w", rec.line, name, err)
	}
	return v, nil
}

// Int parses a column as an integer
func (rec Record) Int(name string) (int64, error) {
	s, err := rec.String(name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("line %d: parsing %s: %w", rec.line, name, err)
	}
	return v, nil
}

// Bool parses a column as a boolean
func (rec Record) Bool(name string) (bool, error) {
	s, err := rec.String(name)
	if err != nil {
		return false, err
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("line %d: parsing %s: %w", rec.line, name, err)
	}
	return v, nil
}
