package stats

import (
	"context"
	"io"

	"github.com/verte-zerg/mathrace/internal/model"
)

// RunLister lists locally recorded runs. *store.Store satisfies it.
type RunLister interface {
	ListRuns(ctx context.Context, last int) ([]model.RunRecord, error)
}

// Report contains precomputed data for history rendering.
type Report struct {
	Runs    []model.RunRecord
	Summary Summary
	Window  int
}

// BuildReport loads and prepares data for history rendering.
func BuildReport(ctx context.Context, st RunLister, cfg model.HistoryConfig) (Report, error) {
	runs, err := st.ListRuns(ctx, cfg.Last)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Runs:    runs,
		Summary: Summarize(runs),
		Window:  cfg.TrendWindow,
	}, nil
}

// Render writes the summary, trend and run table sized to width columns.
func (r Report) Render(w io.Writer, width int) error {
	if err := RenderSummary(w, r.Runs); err != nil {
		return err
	}
	if err := RenderTrend(w, r.Runs, r.Window, width); err != nil {
		return err
	}
	return RenderRunTable(w, r.Runs)
}
