package utils

import (
	"testing"
	"time"
)

func TestParseNSEDate(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"09/10/2026", "2026-10-09", false},
		{"9/1/2026", "2026-01-09", false},
		{" 31/12/2025 ", "2025-12-31", false},
		{"31/02/2026", "", true},
		{"2026-10-09", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseNSEDate(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseNSEDate(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseNSEDate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTodayKE(t *testing.T) {
	// 22:30 UTC is already the next day in Nairobi.
	ts := time.Date(2026, 10, 16, 22, 30, 0, 0, time.UTC)
	if got := TodayKE(ts); got != "2026-10-17" {
		t.Errorf("TodayKE = %s, want 2026-10-17", got)
	}
	if !IsWeekendKE(ts) {
		t.Error("Saturday in Nairobi should be a weekend")
	}
	if IsWeekendKE(time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)) {
		t.Error("Thursday should not be a weekend")
	}
}
