package session

// DefaultMaxFunctionCalls is the per-turn ceiling when none is configured.
const DefaultMaxFunctionCalls = 5

// CallBudget counts function calls within one turn.
type CallBudget struct {
	used    int
	ceiling int
}

// NewCallBudget returns a budget with the given ceiling.
func NewCallBudget(ceiling int) *CallBudget {
	if ceiling <= 0 {
		ceiling = DefaultMaxFunctionCalls
	}
	return &CallBudget{ceiling: ceiling}
}

// Reset starts a new turn.
func (b *CallBudget) Reset() { b.used = 0 }

// Consume counts one call and reports whether the ceiling is now exceeded.
// A call that exceeds the ceiling must not be executed.
func (b *CallBudget) Consume() (exceeded bool) {
	b.used++
	return b.used > b.ceiling
}

// Used returns the number of calls counted this turn.
func (b *CallBudget) Used() int { return b.used }

// Ceiling returns the maximum number of executed calls per turn.
func (b *CallBudget) Ceiling() int { return b.ceiling }
