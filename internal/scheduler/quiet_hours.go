package scheduler

import (
	"time"

	"github.com/aleister1102/resourcewatch/internal/config"
)

// ActiveWindow is the local-time window [start, end) in which night-mode
// targets may fire. Outside it their firings are suppressed.
type ActiveWindow struct {
	start    int // minutes after midnight
	end      int
	location *time.Location
}

// NewActiveWindow builds the window from the scheduler configuration.
func NewActiveWindow(cfg config.SchedulerConfig) (ActiveWindow, error) {
	start, err := config.ParseClock(cfg.QuietHoursStart)
	if err != nil {
		return ActiveWindow{}, WrapError(err, "invalid quiet hours start")
	}
	end, err := config.ParseClock(cfg.QuietHoursEnd)
	if err != nil {
		return ActiveWindow{}, WrapError(err, "invalid quiet hours end")
	}

	tz := cfg.Timezone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return ActiveWindow{}, WrapError(err, "invalid scheduler timezone")
	}

	return ActiveWindow{start: start, end: end, location: loc}, nil
}

// Allows reports whether t falls inside the window. A window whose end is
// before its start wraps past midnight; equal bounds allow every instant.
func (w ActiveWindow) Allows(t time.Time) bool {
	if w.start == w.end {
		return true
	}
	loc := w.location
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	minute := local.Hour()*60 + local.Minute()

	if w.start < w.end {
		return minute >= w.start && minute < w.end
	}
	return minute >= w.start || minute < w.end
}
