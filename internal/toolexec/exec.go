package toolexec

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"kiritan/internal/logging"
	"kiritan/internal/services"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, dir, binary string, args []string, onLine func(string)) error
}

// Command is an external program together with its fixed leading arguments.
type Command struct {
	Name string
	Argv []string
}

// Args returns the full argument list (without the binary) for this invocation.
func (c Command) Args(extra ...string) []string {
	if len(c.Argv) == 0 {
		return nil
	}
	args := make([]string, 0, len(c.Argv)-1+len(extra))
	args = append(args, c.Argv[1:]...)
	return append(args, extra...)
}

// Binary returns the program to execute.
func (c Command) Binary() string {
	if len(c.Argv) == 0 {
		return ""
	}
	return c.Argv[0]
}

// String renders the command line for logs.
func (c Command) String(extra ...string) string {
	return strings.Join(append(append([]string{}, c.Argv...), extra...), " ")
}

// outputTailLines is how many trailing output lines are reported when a tool
// fails.
const outputTailLines = 20

// Runner invokes commands inside a working directory and streams their output
// into the logger at debug level. On failure the last lines are logged at
// error level and the final one is carried in the error.
type Runner struct {
	Dir    string
	Exec   Executor
	Logger *slog.Logger
}

// NewRunner constructs a Runner using the process executor.
func NewRunner(dir string, logger *slog.Logger) *Runner {
	return &Runner{Dir: dir, Exec: CommandExecutor{}, Logger: logger}
}

// Run executes cmd with extra arguments appended. A failure is reported as
// services.ErrExternalTool.
func (r *Runner) Run(ctx context.Context, cmd Command, extra ...string) error {
	binary := cmd.Binary()
	if binary == "" {
		return services.Wrap(services.ErrConfiguration, cmd.Name, "run", "command not configured", nil)
	}
	logger := logging.WithContext(ctx, r.Logger)
	logger.Info("running external tool",
		logging.String("tool", cmd.Name),
		logging.String("command", cmd.String(extra...)),
	)
	executor := r.Exec
	if executor == nil {
		executor = CommandExecutor{}
	}
	tail := newOutputTail(outputTailLines)
	err := executor.Run(ctx, r.Dir, binary, cmd.Args(extra...), func(line string) {
		tail.add(line)
		logger.Debug(line, logging.String("tool", cmd.Name))
	})
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s interrupted: %w", cmd.Name, ctxErr)
	}
	message := describeExit(err)
	if lines := tail.snapshot(); len(lines) > 0 {
		logging.ErrorWithContext(logger, "external tool output", "tool_output",
			logging.String("tool", cmd.Name),
			logging.String("output", strings.Join(lines, "\n")),
		)
		message += ": " + lines[len(lines)-1]
	}
	return services.Wrap(services.ErrExternalTool, cmd.Name, "run", message, err)
}

func describeExit(err error) string {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Sprintf("exited with code %d", exitErr.ExitCode())
	}
	return "failed to run"
}

// ResolveBinary maps a relative program path ("local/data_prep.sh") onto dir
// and leaves bare names ("python3") for PATH lookup.
func ResolveBinary(dir, binary string) string {
	if binary == "" || filepath.IsAbs(binary) || !strings.ContainsRune(binary, filepath.Separator) {
		return binary
	}
	return filepath.Join(dir, binary)
}

// CommandExecutor runs programs with os/exec.
type CommandExecutor struct{}

func (CommandExecutor) Run(ctx context.Context, dir, binary string, args []string, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, ResolveBinary(dir, binary), args...) //nolint:gosec
	cmd.Dir = dir
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var scanErr error
	var once sync.Once

	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 2*MaxLineLength)
		scanner.Split(splitOutputLines(MaxLineLength))
		for scanner.Scan() {
			line := scanner.Text()
			if onLine == nil || line == "" {
				continue
			}
			mu.Lock()
			onLine(line)
			mu.Unlock()
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
			// Keep the pipe drained so the child never blocks on a full buffer.
			_, _ = io.Copy(io.Discard, r)
		}
	}

	wg.Add(2)
	go scan(stdout)
	go scan(stderr)

	wg.Wait()
	if err := cmd.Wait(); err != nil {
		return err
	}
	if scanErr != nil {
		return fmt.Errorf("scan output: %w", scanErr)
	}
	return nil
}
