package catalog

import (
	"fmt"
	"strconv"
	"time"
)

// ParseISODuration parses the ISO 8601 durations the Data API reports in
// contentDetails.duration, e.g. "PT4M13S", "PT1H2M", "P1DT3S".
func ParseISODuration(s string) (time.Duration, error) {
	if len(s) < 2 || s[0] != 'P' {
		return 0, fmt.Errorf("invalid ISO 8601 duration %q", s)
	}

	var total time.Duration
	inTime := false
	num := ""
	for _, r := range s[1:] {
		switch {
		case r >= '0' && r <= '9':
			num += string(r)
		case r == 'T':
			if inTime || num != "" {
				return 0, fmt.Errorf("invalid ISO 8601 duration %q", s)
			}
			inTime = true
		default:
			if num == "" {
				return 0, fmt.Errorf("invalid ISO 8601 duration %q", s)
			}
			n, err := strconv.Atoi(num)
			if err != nil {
				return 0, fmt.Errorf("invalid ISO 8601 duration %q: %w", s, err)
			}
			num = ""
			unit, err := durationUnit(r, inTime)
			if err != nil {
				return 0, fmt.Errorf("invalid ISO 8601 duration %q: %w", s, err)
			}
			total += time.Duration(n) * unit
		}
	}
	if num != "" {
		return 0, fmt.Errorf("invalid ISO 8601 duration %q", s)
	}
	return total, nil
}

func durationUnit(r rune, inTime bool) (time.Duration, error) {
	if inTime {
		switch r {
		case 'H':
			return time.Hour, nil
		case 'M':
			return time.Minute, nil
		case 'S':
			return time.Second, nil
		}
	} else {
		switch r {
		case 'D':
			return 24 * time.Hour, nil
		case 'W':
			return 7 * 24 * time.Hour, nil
		}
	}
	return 0, fmt.Errorf("unsupported designator %q", r)
}

// FormatDuration renders a video length the way players do: "4:13", "1:02:00".
// Zero renders as "".
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	secs := int(d.Round(time.Second) / time.Second)
	h, m, s := secs/3600, (secs/60)%60, secs%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
