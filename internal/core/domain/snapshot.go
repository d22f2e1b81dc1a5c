package domain

import "time"

// Snapshot is a persisted point-in-time copy of the daemon's health and metrics.
type Snapshot struct {
	SessionID string         `json:"session_id"`
	TakenAt   time.Time      `json:"taken_at"`
	Health    HealthSnapshot `json:"health"`
	Metrics   MetricsReport  `json:"metrics"`
}

// Transcript is the text track of an external video.
type Transcript struct {
	VideoID  string
	Title    string
	URL      string
	Language string
	Segments []TranscriptSegment
}

// TranscriptSegment is one timed line of a transcript.
type TranscriptSegment struct {
	Start time.Duration
	Text  string
}
