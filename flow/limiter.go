package flow

// RoundLimiter bounds the number of tool dispatch rounds in a single turn so
// a model that keeps requesting tools cannot loop forever.
type RoundLimiter struct {
	max   int
	count int
}

// NewRoundLimiter creates a limiter allowing max rounds. A max of zero or
// less disables the limit.
func NewRoundLimiter(max int) *RoundLimiter {
	return &RoundLimiter{max: max}
}

// Allow records one round and reports whether it is within the limit.
func (l *RoundLimiter) Allow() bool {
	if l.max <= 0 {
		return true
	}
	l.count++
	return l.count <= l.max
}

// Count returns the number of rounds recorded so far.
func (l *RoundLimiter) Count() int {
	return l.count
}

// Max returns the configured limit.
func (l *RoundLimiter) Max() int {
	return l.max
}
