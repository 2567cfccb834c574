package main

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSlotTimes(t *testing.T) {
	now := time.Date(2026, 5, 4, 18, 45, 0, 0, time.UTC)
	rng := rand.New(rand.NewPCG(1, 2))

	times := slotTimes(now, rng)
	assert.GreaterOrEqual(t, len(times), days*minSlotsByDay)
	assert.LessOrEqual(t, len(times), days*maxSlotsByDay)

	perDay := map[int]map[time.Time]bool{}
	for _, ts := range times {
		assert.Equal(t, time.UTC, ts.Location())
		assert.True(t, ts.After(now))

		day := int(ts.Sub(time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)).Hours()) / 24
		assert.GreaterOrEqual(t, day, 1)
		assert.LessOrEqual(t, day, days)

		minutes := ts.Hour()*60 + ts.Minute()
		assert.GreaterOrEqual(t, minutes, 9*60)
		assert.LessOrEqual(t, minutes, 17*60)
		assert.False(t, minutes >= 12*60 && minutes < 14*60, "lunch slot %s", ts)
		assert.Zero(t, ts.Minute()%30)

		if perDay[day] == nil {
			perDay[day] = map[time.Time]bool{}
		}
		assert.False(t, perDay[day][ts], "duplicate slot %s", ts)
		perDay[day][ts] = true
	}
	assert.Len(t, perDay, days)
}
