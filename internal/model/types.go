// Package model defines shared data structures.
package model

import "time"

// WinSteps is the number of correct answers needed to finish a run.
const WinSteps = 5

// Config defines race settings.
type Config struct {
	APIBase string
	Timeout time.Duration
	Offline bool
}

// HistoryConfig defines filters for the run history report.
type HistoryConfig struct {
	Last        int
	TrendWindow int
}

// Question is a two-operand addition problem.
type Question struct {
	A      int
	B      int
	Answer int
}

// Stats is the server-owned streak and best-time record.
type Stats struct {
	CurrentStreak int    `json:"currentStreak"`
	BestStreak    int    `json:"bestStreak"`
	BestTimeMs    *int64 `json:"bestTimeMs"`
}

// LastRun describes the most recently completed run.
type LastRun struct {
	TimeMs    int64
	IsNewBest bool
}

// RunRecord captures a completed run in the local history.
type RunRecord struct {
	ID         string
	StartedAt  time.Time
	EndedAt    time.Time
	UserID     string
	TimeMs     int64
	WrongCount int
	IsNewBest  bool
	Reported   bool
}
