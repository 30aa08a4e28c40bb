package stage

import "fmt"

const (
	// DefaultStart is the first stage run when --stage is not given.
	DefaultStart = 1
	// DefaultStop is large enough to cover every registered stage.
	DefaultStop = 100
)

// Range is the closed interval [Start, Stop] of stage numbers to execute.
type Range struct {
	Start int
	Stop  int
}

// DefaultRange returns [1, 100].
func DefaultRange() Range {
	return Range{Start: DefaultStart, Stop: DefaultStop}
}

// Contains reports whether stage n executes under this range.
func (r Range) Contains(n int) bool {
	return r.Start <= n && n <= r.Stop
}

// Empty reports whether no stage number can satisfy the range.
func (r Range) Empty() bool {
	return r.Start > r.Stop
}

func (r Range) String() string {
	return fmt.Sprintf("[%d, %d]", r.Start, r.Stop)
}
