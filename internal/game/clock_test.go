package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClock(t *testing.T) {
	c := NewClock(8)
	assert.Equal(t, 1, c.Year())
	assert.Equal(t, 1, c.QuarterInYear())
	assert.Equal(t, "Year 1, Q1", c.String())
	assert.False(t, c.IsYearEnd())

	for i := 0; i < 3; i++ {
		c.Advance()
	}
	assert.True(t, c.IsYearEnd())
	assert.Equal(t, 5, c.Remaining())

	c.Advance()
	assert.Equal(t, "Year 2, Q1", c.String())
	assert.InDelta(t, 0.5, c.Progress(), 1e-12)

	for i := 0; i < 4; i++ {
		c.Advance()
	}
	assert.True(t, c.GameOver())
	assert.Zero(t, c.Remaining())
	assert.Equal(t, 1.0, c.Progress())
}

func TestNewClockNeedsOneQuarter(t *testing.T) {
	assert.Equal(t, 1, NewClock(0).TotalQuarters)
	assert.False(t, NewClock(-3).GameOver())
}
