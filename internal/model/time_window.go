package model

import "time"

// TimeWindow is an opening/closing instant pair. Both bounds are inclusive.
type TimeWindow struct {
	Opening time.Time `json:"opening_time"`
	Closing time.Time `json:"closing_time"`
}

// Contains reports whether opening <= now <= closing.
func (w TimeWindow) Contains(now time.Time) bool {
	return !now.Before(w.Opening) && !now.After(w.Closing)
}
