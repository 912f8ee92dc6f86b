package models

// StatKind names a tracked counter family.
type StatKind string

const (
	StatChecks         StatKind = "checks"
	StatDownloads      StatKind = "downloads"
	StatContentChanges StatKind = "content_changes"
)

// AllStatKinds lists every counter family.
func AllStatKinds() []StatKind {
	return []StatKind{StatChecks, StatDownloads, StatContentChanges}
}

// Counter is a success/failure pair.
type Counter struct {
	Success int64 `json:"success"`
	Failure int64 `json:"failure"`
}

// Total returns success plus failure.
func (c Counter) Total() int64 {
	return c.Success + c.Failure
}

// Stats holds an owner's counters.
type Stats struct {
	Owner          string  `json:"owner"`
	Checks         Counter `json:"checks"`
	Downloads      Counter `json:"downloads"`
	ContentChanges Counter `json:"content_changes"`
}

// Counter returns the counter for a kind.
func (s *Stats) Counter(kind StatKind) *Counter {
	switch kind {
	case StatChecks:
		return &s.Checks
	case StatDownloads:
		return &s.Downloads
	case StatContentChanges:
		return &s.ContentChanges
	}
	return nil
}

// UptimePercent is successful checks over all checks, 0 with no checks.
func (s Stats) UptimePercent() float64 {
	total := s.Checks.Total()
	if total == 0 {
		return 0
	}
	return float64(s.Checks.Success) / float64(total) * 100
}
