package stats

import "testing"

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Finished", "Time", "Best"}
	rows := [][]string{
		{"today", "0:12", "new"},
		{"yesterday", "1:05", ""},
	}
	rightAlign := map[int]bool{1: true}

	lines := formatTable(headers, rows, rightAlign)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Finished  Time Best" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "today     0:12 new " {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "yesterday 1:05     " {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestFormatTableEmpty(t *testing.T) {
	if lines := formatTable(nil, nil, nil); lines != nil {
		t.Fatalf("expected no lines, got %v", lines)
	}
}
