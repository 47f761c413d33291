// Package stats contains run history calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/verte-zerg/mathrace/internal/model"
)

const sparkChars = " .:-=+*#%@"

// Summary aggregates a set of completed runs.
type Summary struct {
	Runs        int
	BestTimeMs  int64
	AvgTimeMs   float64
	AvgWrong    float64
	NewBests    int
	Unreported  int
	PerfectRuns int
}

// Summarize computes aggregate numbers for runs ordered oldest first.
func Summarize(runs []model.RunRecord) Summary {
	var sum Summary
	if len(runs) == 0 {
		return sum
	}
	sum.Runs = len(runs)
	sum.BestTimeMs = runs[0].TimeMs
	var totalTime, totalWrong int64
	for _, r := range runs {
		totalTime += r.TimeMs
		totalWrong += int64(r.WrongCount)
		if r.TimeMs < sum.BestTimeMs {
			sum.BestTimeMs = r.TimeMs
		}
		if r.IsNewBest {
			sum.NewBests++
		}
		if !r.Reported {
			sum.Unreported++
		}
		if r.WrongCount == 0 {
			sum.PerfectRuns++
		}
	}
	count := float64(len(runs))
	sum.AvgTimeMs = float64(totalTime) / count
	sum.AvgWrong = float64(totalWrong) / count
	return sum
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 || len(values) == 0 {
		copy(out, values)
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSummary prints the summary block for runs.
func RenderSummary(w io.Writer, runs []model.RunRecord) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs found.")
		return err
	}
	sum := Summarize(runs)
	lines := []string{
		"Summary",
		fmt.Sprintf("Runs: %d", sum.Runs),
		fmt.Sprintf("Best time: %s", FormatSeconds(&sum.BestTimeMs)),
		fmt.Sprintf("Avg time: %.1fs", sum.AvgTimeMs/1000),
		fmt.Sprintf("Avg wrong answers: %.2f", sum.AvgWrong),
		fmt.Sprintf("Perfect runs: %d", sum.PerfectRuns),
		fmt.Sprintf("New bests: %d", sum.NewBests),
	}
	if sum.Unreported > 0 {
		lines = append(lines, fmt.Sprintf("Not synced: %d", sum.Unreported))
	}
	lines = append(lines, "")
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderTrend prints a moving-average sparkline of run times, newest on the
// right, trimmed to width columns.
func RenderTrend(w io.Writer, runs []model.RunRecord, window, width int) error {
	if len(runs) < 2 {
		return nil
	}
	times := make([]float64, len(runs))
	for i, r := range runs {
		times[i] = float64(r.TimeMs)
	}
	times = MovingAverage(times, window)
	const label = "Time trend: "
	if avail := width - len(label); width > 0 && avail > 0 && len(times) > avail {
		times = times[len(times)-avail:]
	}
	if _, err := fmt.Fprintln(w, label+Sparkline(times)); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderRunTable prints one row per run, newest first.
func RenderRunTable(w io.Writer, runs []model.RunRecord) error {
	if len(runs) == 0 {
		return nil
	}
	headers := []string{"Finished", "Time", "Wrong", "Best", "Synced"}
	rows := make([][]string, 0, len(runs))
	for i := len(runs) - 1; i >= 0; i-- {
		r := runs[i]
		best := ""
		if r.IsNewBest {
			best = "★"
		}
		synced := "yes"
		if !r.Reported {
			synced = "no"
		}
		rows = append(rows, []string{
			r.EndedAt.Local().Format("2006-01-02 15:04"),
			FormatClock(&r.TimeMs),
			fmt.Sprintf("%d", r.WrongCount),
			best,
			synced,
		})
	}
	rightAlign := map[int]bool{1: true, 2: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
