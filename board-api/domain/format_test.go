package domain

import (
	"testing"
	"time"
)

func TestFormatDate(t *testing.T) {
	tests := []struct {
		in   time.Time
		want string
	}{
		{in: time.Date(2026, 10, 18, 19, 14, 0, 0, time.UTC), want: "18/10/2026 - 07.14 PM"},
		{in: time.Date(2025, 1, 2, 0, 5, 0, 0, time.UTC), want: "02/01/2025 - 12.05 AM"},
		{in: time.Date(2025, 1, 2, 12, 0, 0, 0, time.UTC), want: "02/01/2025 - 12.00 PM"},
	}
	for _, tt := range tests {
		if got := FormatDate(tt.in); got != tt.want {
			t.Fatalf("FormatDate(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
