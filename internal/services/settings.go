package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"linvo/storage"
)

// SettingsUpdate is a partial update; nil fields are left unchanged.
type SettingsUpdate struct {
	// DailyLimitMinutes is raw user input, read by its integer prefix. A
	// missing or non-positive number clears the limit.
	DailyLimitMinutes *string
	// DowntimeStart and DowntimeEnd accept "" (clear) or "HH:MM".
	DowntimeStart *string
	DowntimeEnd   *string
}

// SettingsService manages the document-wide viewing settings.
type SettingsService struct {
	session *Session
	now     func() time.Time
}

// NewSettingsService creates a SettingsService.
func NewSettingsService(session *Session) *SettingsService {
	return &SettingsService{session: session, now: time.Now}
}

// Settings returns the current settings.
func (s *SettingsService) Settings() storage.ViewingSettings {
	return s.session.Snapshot().Settings
}

// UpdateSettings merges the supplied fields, saving after each one.
// Downtime values are checked before anything is applied.
func (s *SettingsService) UpdateSettings(ctx context.Context, in SettingsUpdate) (storage.ViewingSettings, error) {
	for _, f := range []struct {
		name  string
		value *string
	}{
		{"downtimeStart", in.DowntimeStart},
		{"downtimeEnd", in.DowntimeEnd},
	} {
		if f.value == nil {
			continue
		}
		v := strings.TrimSpace(*f.value)
		if _, ok := storage.ParseClock(v); v != "" && !ok {
			return storage.ViewingSettings{}, &ValidationError{Field: f.name, Reason: "must be HH:MM"}
		}
	}

	if in.DailyLimitMinutes != nil {
		limit := parseDailyLimit(*in.DailyLimitMinutes)
		s.apply(ctx, func(vs *storage.ViewingSettings) { vs.DailyLimitMinutes = limit })
	}
	if in.DowntimeStart != nil {
		v := strings.TrimSpace(*in.DowntimeStart)
		s.apply(ctx, func(vs *storage.ViewingSettings) { vs.DowntimeStart = v })
	}
	if in.DowntimeEnd != nil {
		v := strings.TrimSpace(*in.DowntimeEnd)
		s.apply(ctx, func(vs *storage.ViewingSettings) { vs.DowntimeEnd = v })
	}
	return s.Settings(), nil
}

// InDowntime reports whether the current time falls in the downtime window.
func (s *SettingsService) InDowntime() bool {
	return s.Settings().InDowntime(s.now())
}

func (s *SettingsService) apply(ctx context.Context, fn func(vs *storage.ViewingSettings)) {
	_ = s.session.update(ctx, func(st *storage.AppState) error {
		fn(&st.Settings)
		return nil
	})
}

// parseDailyLimit reads the integer prefix of raw: surrounding space is
// ignored, then an optional sign and the leading decimal digits are taken
// and anything after them is dropped ("12abc" and "12.5" read as 12). It
// returns nil when there are no leading digits, the value does not fit an
// int, or it is not positive.
func parseDailyLimit(raw string) *int {
	s := strings.TrimSpace(raw)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return nil
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}
