package repositories

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func acceptAll(c *changeCursor, ids ...uint64) []uint64 {
	var delivered []uint64
	for _, id := range ids {
		if c.accept(id) {
			delivered = append(delivered, id)
		}
	}
	return delivered
}

func TestChangeCursorAdvancesOverContiguousIDs(t *testing.T) {
	c := newChangeCursor(10, time.Minute)
	now := time.Now()

	assert.Equal(t, []uint64{11, 12, 13}, acceptAll(c, 11, 12, 13))
	assert.Zero(t, c.settle(now))
	assert.Equal(t, uint64(13), c.floor)
	assert.Empty(t, c.seen)

	assert.Empty(t, acceptAll(c, 9, 13), "ids at or below the floor are not redelivered")
}

func TestChangeCursorDeliversLateCommitBelowNewerChange(t *testing.T) {
	c := newChangeCursor(10, time.Minute)
	now := time.Now()

	// 12 committed before 11: deliver 12 now, keep the floor at 10.
	assert.Equal(t, []uint64{12}, acceptAll(c, 12))
	c.settle(now)
	assert.Equal(t, uint64(10), c.floor)

	// next poll still sees 12 and now also 11; only 11 is new.
	assert.Equal(t, []uint64{11}, acceptAll(c, 11, 12))
	c.settle(now.Add(time.Second))
	assert.Equal(t, uint64(12), c.floor)
	assert.Empty(t, c.seen)
}

func TestChangeCursorSkipsGapAfterWait(t *testing.T) {
	c := newChangeCursor(0, time.Minute)
	start := time.Now()

	acceptAll(c, 1, 3, 4)
	assert.Zero(t, c.settle(start))
	assert.Equal(t, uint64(1), c.floor)

	assert.Zero(t, c.settle(start.Add(30*time.Second)), "gap still within wait")
	assert.Equal(t, uint64(1), c.floor)

	assert.Equal(t, 1, c.settle(start.Add(61*time.Second)))
	assert.Equal(t, uint64(4), c.floor)
	assert.Empty(t, c.seen)

	assert.Empty(t, acceptAll(c, 2), "a skipped id is never delivered")
}

func TestChangeCursorRestartsWaitForNewGap(t *testing.T) {
	c := newChangeCursor(0, time.Minute)
	start := time.Now()

	acceptAll(c, 2, 4)
	c.settle(start)

	// gap at 1 closes late; the gap at 3 gets its own full wait.
	acceptAll(c, 1)
	assert.Zero(t, c.settle(start.Add(50*time.Second)))
	assert.Equal(t, uint64(2), c.floor)

	assert.Zero(t, c.settle(start.Add(70*time.Second)))
	assert.Equal(t, uint64(2), c.floor)

	assert.Equal(t, 1, c.settle(start.Add(111*time.Second)))
	assert.Equal(t, uint64(4), c.floor)
}
