package ingest

import "testing"

func TestNormalizeDate(t *testing.T) {
	cases := []struct {
		in       string
		expected string
		ok       bool
	}{
		{"2024-01-15", "2024-01-15", true},
		{"2024-01-15T10:30:00Z", "2024-01-15", true},
		{"2024-01-15 10:30:00", "2024-01-15", true},
		{"15-01-2024", "2024-01-15", true},
		{"01/15/2024", "2024-01-15", true},
		{"1/5/24", "2024-01-05", true},
		{"01-15-24", "2024-01-15", true},
		{"15-Jan-2024", "2024-01-15", true},
		{"Jan 15, 2024", "2024-01-15", true},
		{"20240115", "2024-01-15", true},
		{"45306", "2024-01-15", true},
		{"45306.75", "2024-01-15", true},
		{"not a date", "", false},
		{"", "", false},
		{"0", "", false},
	}
	for _, tc := range cases {
		got, ok := NormalizeDate(tc.in)
		if ok != tc.ok || got != tc.expected {
			t.Fatalf("NormalizeDate(%q) expected (%q, %v), got (%q, %v)", tc.in, tc.expected, tc.ok, got, ok)
		}
	}
}
