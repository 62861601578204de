package dateutil

import (
	"testing"
	"time"
)

func TestYearWindow(t *testing.T) {
	tests := []struct {
		name      string
		asOf      string
		wantStart string
		wantEnd   string
	}{
		{
			name:      "Mid year",
			asOf:      "2025-07-15",
			wantStart: "2025-01-01",
			wantEnd:   "2025-12-31",
		},
		{
			name:      "Year boundary",
			asOf:      "2025-01-01",
			wantStart: "2025-01-01",
			wantEnd:   "2025-12-31",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := YearWindow(MustParse(tt.asOf))
			if w.Start.Format(DateLayout) != tt.wantStart {
				t.Errorf("YearWindow().Start = %s, expected %s", w.Start.Format(DateLayout), tt.wantStart)
			}
			if w.End.Format(DateLayout) != tt.wantEnd {
				t.Errorf("YearWindow().End = %s, expected %s", w.End.Format(DateLayout), tt.wantEnd)
			}
		})
	}
}

func TestMonthWindow(t *testing.T) {
	tests := []struct {
		name      string
		asOf      string
		wantStart string
		wantEnd   string
	}{
		{
			name:      "Thirty-one day month",
			asOf:      "2025-07-15",
			wantStart: "2025-07-01",
			wantEnd:   "2025-07-31",
		},
		{
			name:      "February non-leap",
			asOf:      "2025-02-10",
			wantStart: "2025-02-01",
			wantEnd:   "2025-02-28",
		},
		{
			name:      "February leap",
			asOf:      "2024-02-10",
			wantStart: "2024-02-01",
			wantEnd:   "2024-02-29",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := MonthWindow(MustParse(tt.asOf))
			if w.Start.Format(DateLayout) != tt.wantStart {
				t.Errorf("MonthWindow().Start = %s, expected %s", w.Start.Format(DateLayout), tt.wantStart)
			}
			if w.End.Format(DateLayout) != tt.wantEnd {
				t.Errorf("MonthWindow().End = %s, expected %s", w.End.Format(DateLayout), tt.wantEnd)
			}
		})
	}
}

func TestWindowContains(t *testing.T) {
	w := YearWindow(MustParse("2025-06-30"))

	tests := []struct {
		name     string
		date     time.Time
		expected bool
	}{
		{name: "Inside window", date: MustParse("2025-06-15"), expected: true},
		{name: "Start boundary inclusive", date: MustParse("2025-01-01"), expected: true},
		{name: "End boundary inclusive", date: MustParse("2025-12-31"), expected: true},
		{name: "Before window", date: MustParse("2024-12-31"), expected: false},
		{name: "After window", date: MustParse("2026-01-01"), expected: false},
		{name: "Never sentinel excluded", date: Never, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.Contains(tt.date); got != tt.expected {
				t.Errorf("Contains(%v) = %v, expected %v", tt.date, got, tt.expected)
			}
		})
	}
}

func TestPriorWindows(t *testing.T) {
	asOf := MustParse("2025-07-15")

	py := PriorYearWindow(asOf)
	if py.Start.Format(DateLayout) != "2024-01-01" || py.End.Format(DateLayout) != "2024-12-31" {
		t.Errorf("PriorYearWindow() = [%s, %s], expected [2024-01-01, 2024-12-31]",
			py.Start.Format(DateLayout), py.End.Format(DateLayout))
	}

	pm := PriorMonthWindow(asOf)
	if pm.Start.Format(DateLayout) != "2024-07-01" || pm.End.Format(DateLayout) != "2024-07-31" {
		t.Errorf("PriorMonthWindow() = [%s, %s], expected [2024-07-01, 2024-07-31]",
			pm.Start.Format(DateLayout), pm.End.Format(DateLayout))
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		never    bool
	}{
		{name: "Canonical layout", input: "2025-03-31", expected: "2025-03-31"},
		{name: "Slash layout", input: "2025/03/31", expected: "2025-03-31"},
		{name: "Timestamp layout", input: "2025-03-31 14:30:00", expected: "2025-03-31"},
		{name: "Whitespace trimmed", input: "  2025-03-31  ", expected: "2025-03-31"},
		{name: "Empty cell", input: "", never: true},
		{name: "Textual placeholder", input: "until released", never: true},
		{name: "Garbage", input: "31-31-31x", never: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.input)
			if tt.never {
				if !IsNever(got) {
					t.Errorf("Parse(%q) = %v, expected Never sentinel", tt.input, got)
				}
				return
			}
			if got.Format(DateLayout) != tt.expected {
				t.Errorf("Parse(%q) = %s, expected %s", tt.input, got.Format(DateLayout), tt.expected)
			}
		})
	}
}

func TestMidnight(t *testing.T) {
	ts := time.Date(2025, time.March, 31, 23, 59, 58, 0, time.UTC)
	got := Midnight(ts)
	if got.Hour() != 0 || got.Minute() != 0 || got.Second() != 0 {
		t.Errorf("Midnight() = %v, expected time components zeroed", got)
	}
	if got.Year() != 2025 || got.Month() != time.March || got.Day() != 31 {
		t.Errorf("Midnight() = %v, expected date preserved", got)
	}
}

func TestMustParsePanic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Expected MustParse to panic with invalid date")
		}
	}()

	MustParse("invalid-date")
}
