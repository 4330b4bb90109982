package game

import "fmt"

// Clock counts completed quarters from zero.
type Clock struct {
	Quarter       int `json:"quarter"`
	TotalQuarters int `json:"total_quarters"`
}

func NewClock(totalQuarters int) Clock {
	return Clock{TotalQuarters: max(1, totalQuarters)}
}

func (c Clock) Year() int {
	return c.Quarter/quartersPerYear + 1
}

func (c Clock) QuarterInYear() int {
	return c.Quarter%quartersPerYear + 1
}

func (c Clock) IsYearEnd() bool {
	return c.QuarterInYear() == quartersPerYear
}

func (c Clock) GameOver() bool {
	return c.Quarter >= c.TotalQuarters
}

func (c Clock) Remaining() int {
	return max(0, c.TotalQuarters-c.Quarter)
}

func (c Clock) Progress() float64 {
	if c.TotalQuarters <= 0 {
		return 1
	}
	return min(1, float64(c.Quarter)/float64(c.TotalQuarters))
}

func (c *Clock) Advance() {
	c.Quarter++
}

func (c Clock) String() string {
	return fmt.Sprintf("Year %d, Q%d", c.Year(), c.QuarterInYear())
}
