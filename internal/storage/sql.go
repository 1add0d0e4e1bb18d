package storage

import (
	_ "embed"
)

const (
	initIndexesSQL = `
CREATE INDEX IF NOT EXISTS idx_frames_session_seq ON frames (session_id, seq)`

	insertSessionSQL = `
INSERT INTO sessions (
                      start_time,
                      robot,
                      log_path,
                      header,
                      config)
VALUES (CURRENT_TIMESTAMP, ?, ?, ?, ?)`

	selectSessionSQL = `
SELECT 
    s.id,
    s.start_time,
    s.robot,
    s.log_path,
    s.header,
    s.config,
    (SELECT COUNT(*) FROM frames f WHERE f.session_id = s.id)
FROM sessions s
WHERE 
    s.id = ?`

	selectSessionsSQL = `
SELECT 
    s.id,
    s.start_time,
    s.robot,
    s.log_path,
    s.header,
    s.config,
    (SELECT COUNT(*) FROM frames f WHERE f.session_id = s.id)
FROM sessions s
ORDER BY s.start_time, s.id`

	insertFrameSQL = `
INSERT INTO frames (session_id,
                    seq,
                    fpga_time_us,
                    data)
VALUES `

	selectFramesSQL = `
SELECT 
    seq,
    fpga_time_us,
    data
FROM frames
WHERE 
    session_id = ?
ORDER BY seq`
)

//go:embed schema.sql
var initSchemaSQL string
