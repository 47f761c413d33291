package race

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/verte-zerg/mathrace/internal/model"
	"github.com/verte-zerg/mathrace/internal/statsclient"
)

var errNoClient = errors.New("no stats client")

// StatsFetch is an outstanding request for the player's current stats.
type StatsFetch struct {
	token  uint64
	userID string
	client StatsClient
}

// StatsResult is the completion of a StatsFetch.
type StatsResult struct {
	token uint64
	Stats model.Stats
	Err   error
}

// Do performs the request. It does not touch the session.
func (f StatsFetch) Do(ctx context.Context) StatsResult {
	if f.client == nil {
		return StatsResult{token: f.token, Err: fmt.Errorf("%w: %w", statsclient.ErrUnavailable, errNoClient)}
	}
	stats, err := f.client.FetchStats(ctx, f.userID)
	return StatsResult{token: f.token, Stats: stats, Err: err}
}

// FinishReport is an outstanding report of a completed run.
type FinishReport struct {
	run    uint64
	client StatsClient

	Request   statsclient.FinishRequest
	StartedAt time.Time
	EndedAt   time.Time
	IsNewBest bool
}

// FinishResult is the completion of a FinishReport.
type FinishResult struct {
	run      uint64
	Report   FinishReport
	Response statsclient.FinishResponse
	Err      error
}

// Do performs the report. It does not touch the session.
func (f FinishReport) Do(ctx context.Context) FinishResult {
	if f.client == nil {
		return FinishResult{run: f.run, Report: f, Err: fmt.Errorf("%w: %w", statsclient.ErrReportFailed, errNoClient)}
	}
	resp, err := f.client.ReportFinish(ctx, f.Request)
	return FinishResult{run: f.run, Report: f, Response: resp, Err: err}
}
