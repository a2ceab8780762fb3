package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeWindowContains(t *testing.T) {
	day := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	w := TimeWindow{Opening: day.Add(10 * time.Hour), Closing: day.Add(12 * time.Hour)}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"before opening", day.Add(9*time.Hour + 59*time.Minute), false},
		{"one nanosecond early", w.Opening.Add(-time.Nanosecond), false},
		{"at opening", w.Opening, true},
		{"inside", day.Add(11 * time.Hour), true},
		{"at closing", w.Closing, true},
		{"one nanosecond late", w.Closing.Add(time.Nanosecond), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.Contains(tt.now))
		})
	}
}

func TestTimeWindowContainsAcrossZones(t *testing.T) {
	helsinki := time.FixedZone("EET", 2*60*60)
	w := TimeWindow{
		Opening: time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC),
		Closing: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	assert.True(t, w.Contains(time.Date(2026, 6, 1, 12, 0, 0, 0, helsinki)))
	assert.False(t, w.Contains(time.Date(2026, 6, 1, 15, 0, 1, 0, helsinki)))
}

func TestExamSessionLabel(t *testing.T) {
	room := "A101"
	assert.Equal(t, "Final exam A101", ExamSession{Name: "Final exam", Room: &room}.Label())
	assert.Equal(t, "Final exam", ExamSession{Name: "Final exam"}.Label())
}
