package scriptrunner

import "context"

// Result is what a runner reports for one invocation.
type Result struct {
	Success bool
	Output  string
}

// Runner executes a piece of script code in some target context.
//
// An error means the invocation itself could not complete (the runner was
// unreachable, the process could not start, ...). A script that ran and
// reported failure returns a Result with Success false and a nil error.
type Runner interface {
	Invoke(ctx context.Context, code string) (*Result, error)
}

// Describer is implemented by runners that can describe their execution
// context for execution records.
type Describer interface {
	Describe() string
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, code string) (*Result, error)

// Invoke calls f(ctx, code).
func (f RunnerFunc) Invoke(ctx context.Context, code string) (*Result, error) {
	return f(ctx, code)
}

// Describe returns a description of r, or "unknown" when r cannot
// describe itself.
func Describe(r Runner) string {
	if d, ok := r.(Describer); ok {
		return d.Describe()
	}
	return "unknown"
}
