package storage

import (
	"strings"
	"time"

	"github.com/team4028/robot-telemetry/internal/telemetry"
)

// Session is one logging session: a TSV log and the header its rows follow
type Session struct {
	ID        int64     `json:"id"`
	StartTime time.Time `json:"startTime"`        // When the session was created
	Robot     string    `json:"robot"`            // Robot name from the robot map
	LogPath   string    `json:"logPath"`          // TSV log the frames were written to or imported from
	Header    string    `json:"header"`           // Tab separated header line, without line end
	Config    *string   `json:"config,omitempty"` // Optional robot layout in JSON format
	Frames    int64     `json:"frames"`           // Number of stored frames
}

// Columns splits the session header into column names
func (s *Session) Columns() []string {
	return strings.Split(s.Header, telemetry.Separator)
}

// FrameRecord is one stored data line
type FrameRecord struct {
	Seq               int64  // Position of the frame within the session, from 1
	FPGATimeMicroSecs int64  // roboRIO clock of the frame
	Data              string // Tab separated data line, without line end
}

// Values splits the data line into column values
func (r *FrameRecord) Values() []string {
	return strings.Split(r.Data, telemetry.Separator)
}

// NewFrameRecord renders a frame for storage
func NewFrameRecord(seq int64, f *telemetry.Frame) FrameRecord {
	return FrameRecord{
		Seq:               seq,
		FPGATimeMicroSecs: f.Input.FPGATimeMicroSecs,
		Data:              strings.TrimSuffix(f.Data(), telemetry.LineEnd),
	}
}
