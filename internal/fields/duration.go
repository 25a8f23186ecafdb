package fields

import "github.com/dlcks7456/diaryCleaning/pkg/contracts/domain"

// MinutesPerDay is added to the end time when a session crosses midnight.
const MinutesPerDay = 24 * 60

// DurationMinutes returns the wear time between start and end. An end earlier
// than start is read as the next day; sessions never span more than 24h.
func DurationMinutes(start, end domain.Clock) int {
	s, e := start.Minutes(), end.Minutes()
	if s > e {
		e += MinutesPerDay
	}
	return e - s
}
