package catalog

import (
	"testing"
	"time"
)

func TestParseISODuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"PT4M13S", 4*time.Minute + 13*time.Second, false},
		{"PT1H2M", time.Hour + 2*time.Minute, false},
		{"PT45S", 45 * time.Second, false},
		{"P1DT3S", 24*time.Hour + 3*time.Second, false},
		{"P1W", 7 * 24 * time.Hour, false},
		{"PT0S", 0, false},
		{"P0D", 0, false},
		{"", 0, true},
		{"P", 0, true},
		{"4M13S", 0, true},
		{"PT4X", 0, true},
		{"PT4M13", 0, true},
		{"PTT4M", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseISODuration(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseISODuration(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseISODuration(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, ""},
		{-time.Second, ""},
		{9 * time.Second, "0:09"},
		{4*time.Minute + 13*time.Second, "4:13"},
		{59*time.Minute + 59*time.Second, "59:59"},
		{time.Hour + 2*time.Minute, "1:02:00"},
		{26*time.Hour + 5*time.Second, "26:00:05"},
	}

	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
