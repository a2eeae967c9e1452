package scriptrunner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// DefaultShell is the shell used when none is configured.
const DefaultShell = "sh"

// ShellRunner executes script code with `<shell> -c`.
type ShellRunner struct {
	shell string
	dir   string
	env   []string
}

// ShellOption is a functional option for ShellRunner
type ShellOption func(*ShellRunner)

// WithShell sets the shell binary
func WithShell(shell string) ShellOption {
	return func(r *ShellRunner) {
		if shell != "" {
			r.shell = shell
		}
	}
}

// WithDir sets the working directory for executed scripts
func WithDir(dir string) ShellOption {
	return func(r *ShellRunner) {
		r.dir = dir
	}
}

// WithEnv adds KEY=value entries on top of the current process environment
func WithEnv(env map[string]string) ShellOption {
	return func(r *ShellRunner) {
		for k, v := range env {
			r.env = append(r.env, k+"="+v)
		}
	}
}

// NewShellRunner creates a runner that executes code through a local shell.
func NewShellRunner(opts ...ShellOption) *ShellRunner {
	r := &ShellRunner{shell: DefaultShell}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Invoke runs code and reports success when the shell exits with status 0.
// Combined stdout and stderr become the output.
func (r *ShellRunner) Invoke(ctx context.Context, code string) (*Result, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return &Result{Success: true}, nil
	}

	cmd := exec.CommandContext(ctx, r.shell, "-c", code)
	cmd.Dir = r.dir
	cmd.Env = append(os.Environ(), r.env...)

	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &Result{Success: false, Output: string(output)}, nil
		}
		return nil, fmt.Errorf("starting %s: %w", r.shell, err)
	}

	return &Result{Success: true, Output: string(output)}, nil
}

// Describe reports the shell and platform.
func (r *ShellRunner) Describe() string {
	return fmt.Sprintf("shell %s on %s/%s", r.shell, runtime.GOOS, runtime.GOARCH)
}
