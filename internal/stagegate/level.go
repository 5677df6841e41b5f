package stagegate

// Level is a monotonically non-decreasing counter. The zero value is level 0.
// There is deliberately no way to lower a Level once raised.
type Level struct {
	n int
}

// LevelOf restores a Level from storage. Negative values clamp to zero.
func LevelOf(n int) Level {
	if n < 0 {
		n = 0
	}
	return Level{n: n}
}

// Int returns the current value.
func (l Level) Int() int { return l.n }

// Raise returns the level incremented by one.
func (l Level) Raise() Level { return Level{n: l.n + 1} }

// Merge returns the higher of two levels, used when reconciling concurrent
// writers so neither can lower the counter.
func (l Level) Merge(other Level) Level {
	if other.n > l.n {
		return other
	}
	return l
}
