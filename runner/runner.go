package runner

import (
	"os"
	"os/exec"
	"time"

	"github.com/moyoez/gesubridge-go/tool"
	"github.com/moyoez/gesubridge-go/types"
)

// ProcessHandle is the sole owner of one spawned external process.
// No two handles ever reference the same OS process.
type ProcessHandle interface {
	Pid() int
	// IsAlive is a non-blocking liveness probe.
	IsAlive() bool
	// Terminate requests graceful termination and escalates to a kill
	// after the grace period. Terminating an exited handle is a no-op.
	Terminate()
	// WaitExit blocks until the process exits and returns its exit code
	// (-1 when the code is unknown, e.g. killed by signal).
	WaitExit() int
	// Lines streams output lines best-effort: when no one consumes them
	// they are dropped, never blocking the process.
	Lines() <-chan string
	// OutputTail returns the last captured output, used as error text
	// when the tool exits non-zero.
	OutputTail() string
}

// CommandRunner performs the actual OS process creation. The orchestration
// layer depends only on this narrow interface so tests can stub it out.
type CommandRunner interface {
	Spawn(executable string, args []string) (ProcessHandle, error)
}

// ExecRunner is the os/exec backed CommandRunner.
type ExecRunner struct {
	// Grace is how long Terminate waits for a clean exit before killing.
	Grace time.Duration
}

func NewExecRunner(grace time.Duration) *ExecRunner {
	if grace <= 0 {
		grace = 3 * time.Second
	}
	return &ExecRunner{Grace: grace}
}

// Spawn starts executable with args and hands back the owning handle.
func (r *ExecRunner) Spawn(executable string, args []string) (ProcessHandle, error) {
	if executable == "" {
		return nil, types.NewSpawnError("executable path is not configured")
	}
	if _, err := exec.LookPath(executable); err != nil {
		return nil, types.NewSpawnError("executable not resolvable: %v", err)
	}

	cmd := exec.Command(executable, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, types.NewSpawnError("failed to open stdout pipe: %v", err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return nil, types.NewSpawnError("failed to start %s: %v", executable, err)
	}

	h := newExecHandle(cmd, r.Grace)
	go h.drain(stdout)
	go h.wait()
	tool.DefaultLogger.Debugf("[Runner] Spawned %s (pid %d)", executable, h.Pid())
	return h, nil
}

var _ ProcessHandle = (*execHandle)(nil)

// interruptProcess asks the process to exit cleanly. On platforms where
// the signal is unsupported the caller falls back to the grace kill.
func interruptProcess(p *os.Process) error {
	return p.Signal(os.Interrupt)
}
