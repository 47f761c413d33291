package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/mathrace/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "mathrace.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func TestSettingsRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if _, ok, err := st.GetSetting(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}
	if err := st.PutSetting(ctx, "k", "one"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := st.PutSetting(ctx, "k", "two"); err != nil {
		t.Fatalf("put overwrite: %v", err)
	}
	got, ok, err := st.GetSetting(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got != "two" {
		t.Fatalf("expected two, got %q", got)
	}
}

func TestListRunsLast(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		start := time.Unix(0, 0).UTC().Add(time.Duration(i) * time.Minute)
		run := model.RunRecord{
			ID:         fmt.Sprintf("run-%d", i),
			StartedAt:  start,
			EndedAt:    start.Add(10 * time.Second),
			UserID:     "user_abc",
			TimeMs:     int64(10000 - i*1000),
			WrongCount: i,
			IsNewBest:  i%2 == 0,
			Reported:   i != 3,
		}
		if err := st.InsertRun(ctx, run); err != nil {
			t.Fatalf("insert run: %v", err)
		}
	}

	all, err := st.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 runs, got %d", len(all))
	}

	last, err := st.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("list last runs: %v", err)
	}
	if len(last) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(last))
	}
	if last[0].ID != "run-2" || last[1].ID != "run-3" {
		t.Fatalf("unexpected order: %s, %s", last[0].ID, last[1].ID)
	}
	if !last[0].IsNewBest || last[1].Reported {
		t.Fatalf("flags not round-tripped: %+v", last)
	}
	if last[1].WrongCount != 3 || last[1].TimeMs != 7000 {
		t.Fatalf("unexpected run values: %+v", last[1])
	}
}
