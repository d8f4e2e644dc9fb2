package clock

import (
	"testing"
	"time"
)

func TestCivilRendersKolkataTime(t *testing.T) {
	instant := time.Date(2024, 3, 31, 20, 15, 0, 0, time.UTC)

	if got := Civil(instant); got != "2024-04-01 01:45:00" {
		t.Fatalf("Civil() = %q, want 2024-04-01 01:45:00", got)
	}
	if got := CivilDate(instant); got != "2024-04-01" {
		t.Fatalf("CivilDate() = %q, want 2024-04-01", got)
	}
}

func TestMonthBoundsUseCivilMonth(t *testing.T) {
	instant := time.Date(2024, 12, 31, 19, 0, 0, 0, time.UTC) // 2025-01-01 00:30 IST

	start, end := MonthBounds(instant)
	if start != "2025-01-01 00:00:00" || end != "2025-02-01 00:00:00" {
		t.Fatalf("MonthBounds() = (%q, %q)", start, end)
	}
}
