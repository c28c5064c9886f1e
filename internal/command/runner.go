package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/alarm-engine/internal/logger"
)

// DefaultTimeout bounds a command when no timeout is configured.
const DefaultTimeout = time.Minute

var (
	// ErrEmptyCommand is returned for a command line without a program.
	ErrEmptyCommand = errors.New("empty command")
	// ErrStillRunning is returned while the previous run for the same key is alive.
	ErrStillRunning = errors.New("previous command is still running")
)

// Runner starts commands in a working directory and kills them, together
// with the processes they spawned, once the timeout expires.
type Runner struct {
	dir     string
	timeout time.Duration

	mu      sync.Mutex
	running map[string]int
}

// NewRunner creates a runner. An empty dir uses the engine's directory.
func NewRunner(dir string, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Runner{
		dir:     dir,
		timeout: timeout,
		running: make(map[string]int),
	}
}

// Run starts commandLine, split on whitespace, and returns without waiting.
// Only one process per key runs at a time.
func (r *Runner) Run(ctx context.Context, key, commandLine string) error {
	args := strings.Fields(commandLine)
	if len(args) == 0 {
		return ErrEmptyCommand
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if pid, ok := r.running[key]; ok {
		return fmt.Errorf("%w: %s (pid %d)", ErrStillRunning, key, pid)
	}

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)

	cmd := exec.CommandContext(runCtx, args[0], args[1:]...)
	cmd.Dir = r.dir
	cmd.Cancel = func() error {
		return killTree(cmd.Process.Pid)
	}

	if err := cmd.Start(); err != nil {
		cancel()

		return fmt.Errorf("start %q: %w", commandLine, err)
	}

	pid := cmd.Process.Pid
	r.running[key] = pid

	ctx = logger.WithKV(ctx, "command", commandLine, "pid", pid)
	logger.InfoKV(ctx, "command started")

	go r.wait(ctx, key, cmd, cancel)

	return nil
}

// Running reports whether a process for key is alive.
func (r *Runner) Running(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.running[key]

	return ok
}

func (r *Runner) wait(ctx context.Context, key string, cmd *exec.Cmd, cancel context.CancelFunc) {
	defer cancel()

	err := cmd.Wait()

	r.mu.Lock()
	delete(r.running, key)
	r.mu.Unlock()

	if err != nil {
		logger.WarnKV(ctx, "command failed", "exit_code", cmd.ProcessState.ExitCode(), "error", err)

		return
	}

	logger.InfoKV(ctx, "command finished", "exit_code", 0)
}

// killTree kills pid and every process it spawned, children first.
func killTree(pid int) error {
	processes, err := ps.Processes()
	if err != nil {
		return err
	}

	var errs []error

	for _, child := range descendants(pid, processes) {
		errs = append(errs, kill(child))
	}

	errs = append(errs, kill(pid))

	return errors.Join(errs...)
}

func kill(pid int) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return err
	}

	if err = process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}

	return nil
}

// descendants lists the processes below pid, deepest first.
func descendants(pid int, processes []ps.Process) []int {
	children := make(map[int][]int)
	for _, process := range processes {
		children[process.PPid()] = append(children[process.PPid()], process.Pid())
	}

	var (
		result []int
		visit  func(int)
	)

	visited := map[int]bool{pid: true}
	visit = func(parent int) {
		for _, child := range children[parent] {
			if visited[child] {
				continue
			}

			visited[child] = true
			visit(child)
			result = append(result, child)
		}
	}
	visit(pid)

	return result
}
