package recurrence

import (
	"testing"

	"spendtrack/internal/core"
)

func mustDate(t *testing.T, s string) core.Date {
	t.Helper()
	d, err := core.ParseDate(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestNext(t *testing.T) {
	tests := []struct {
		name string
		from string
		kind core.RecurrenceKind
		want string
	}{
		{"daily", "2025-06-30", core.Daily, "2025-07-01"},
		{"daily year end", "2025-12-31", core.Daily, "2026-01-01"},
		{"weekly", "2025-06-28", core.Weekly, "2025-07-05"},
		{"monthly plain", "2025-06-15", core.Monthly, "2025-07-15"},
		{"monthly clamps to february", "2025-01-31", core.Monthly, "2025-02-28"},
		{"monthly clamps to leap february", "2024-01-31", core.Monthly, "2024-02-29"},
		{"monthly clamps to 30 day month", "2025-03-31", core.Monthly, "2025-04-30"},
		{"monthly december rollover", "2025-12-31", core.Monthly, "2026-01-31"},
		{"yearly plain", "2025-06-15", core.Yearly, "2026-06-15"},
		{"yearly leap day clamps", "2024-02-29", core.Yearly, "2025-02-28"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Next(mustDate(t, tt.from), tt.kind)
			if !ok {
				t.Fatalf("Next(%s, %s) returned no occurrence", tt.from, tt.kind)
			}
			if got.String() != tt.want {
				t.Errorf("Next(%s, %s) = %s, want %s", tt.from, tt.kind, got, tt.want)
			}
		})
	}
}

func TestNextNoOccurrence(t *testing.T) {
	for _, kind := range []core.RecurrenceKind{core.RecurrenceNone, "hourly", ""} {
		if got, ok := Next(core.NewDate(2025, 1, 1), kind); ok {
			t.Errorf("kind %q: expected no occurrence, got %s", kind, got)
		}
	}
	if _, ok := Next(core.Date{}, core.Daily); ok {
		t.Error("zero date must not produce an occurrence")
	}
}

func TestNextAnchoredKeepsDay(t *testing.T) {
	d := mustDate(t, "2025-01-31")
	want := []string{"2025-02-28", "2025-03-31", "2025-04-30", "2025-05-31"}
	for _, w := range want {
		next, ok := NextAnchored(d, core.Monthly, 31)
		if !ok {
			t.Fatal("expected occurrence")
		}
		if next.String() != w {
			t.Fatalf("after %s got %s, want %s", d, next, w)
		}
		d = next
	}
}

func TestDueDates(t *testing.T) {
	first := mustDate(t, "2025-06-01")
	until := mustDate(t, "2025-06-22")

	dates, cursor := DueDates(first, core.Weekly, 1, until, 10)
	if len(dates) != 4 {
		t.Fatalf("expected 4 dates, got %d", len(dates))
	}
	if dates[3].String() != "2025-06-22" {
		t.Errorf("last due date = %s", dates[3])
	}
	if cursor.String() != "2025-06-29" {
		t.Errorf("cursor = %s, want 2025-06-29", cursor)
	}

	dates, cursor = DueDates(first, core.Daily, 1, until, 3)
	if len(dates) != 3 || cursor.String() != "2025-06-04" {
		t.Errorf("limit not honored: %d dates, cursor %s", len(dates), cursor)
	}

	dates, cursor = DueDates(mustDate(t, "2025-07-01"), core.Daily, 1, until, 10)
	if len(dates) != 0 || cursor.String() != "2025-07-01" {
		t.Errorf("future cursor must not move: %d dates, cursor %s", len(dates), cursor)
	}
}
