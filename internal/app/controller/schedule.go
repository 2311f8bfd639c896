package controller

import (
	"strconv"
	"strings"
	"time"
)

// scheduleWindow is a daily time-of-day interval during which idle-triggered
// blanking is permitted. The window may wrap past midnight.
type scheduleWindow struct {
	enabled bool
	startM  int // minutes since midnight
	endM    int
}

func newScheduleWindow(enabled bool, startHHMM, endHHMM string) scheduleWindow {
	return scheduleWindow{
		enabled: enabled,
		startM:  parseHHMM(startHHMM),
		endM:    parseHHMM(endHHMM),
	}
}

// AllowedAt reports whether blanking is permitted at the given local time.
// A disabled window always permits.
func (w scheduleWindow) AllowedAt(now time.Time) bool {
	if !w.enabled {
		return true
	}
	nowM := now.Hour()*60 + now.Minute()
	if w.startM <= w.endM {
		return w.startM <= nowM && nowM < w.endM
	}
	// Wraps past midnight, e.g. 17:00 -> 09:00.
	return nowM >= w.startM || nowM < w.endM
}

// parseHHMM parses "HH:MM" into minutes since midnight, clamping components
// into range. Invalid input yields 0 rather than an error; a kiosk keeps
// running with a degenerate window instead of refusing to start.
func parseHHMM(s string) int {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) == 0 || parts[0] == "" {
		return 0
	}
	hh, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0
	}
	mm := 0
	if len(parts) > 1 {
		if v, err := strconv.Atoi(parts[1]); err == nil {
			mm = v
		}
	}
	hh = clamp(hh, 0, 23)
	mm = clamp(mm, 0, 59)
	return hh*60 + mm
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
