package runner

import (
	"bufio"
	"io"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/moyoez/gesubridge-go/tool"
)

const (
	// lineBuffer bounds the best-effort output channel.
	lineBuffer = 64
	// tailLimit bounds the retained output used for error text.
	tailLimit = 4 * 1024
)

type execHandle struct {
	cmd   *exec.Cmd
	grace time.Duration

	exited   atomic.Bool
	exitCode atomic.Int64
	done     chan struct{}

	lines chan string

	tailMu sync.Mutex
	tail   strings.Builder

	termOnce sync.Once
}

func newExecHandle(cmd *exec.Cmd, grace time.Duration) *execHandle {
	h := &execHandle{
		cmd:   cmd,
		grace: grace,
		done:  make(chan struct{}),
		lines: make(chan string, lineBuffer),
	}
	h.exitCode.Store(-1)
	return h
}

func (h *execHandle) Pid() int {
	return h.cmd.Process.Pid
}

func (h *execHandle) IsAlive() bool {
	return !h.exited.Load()
}

func (h *execHandle) Terminate() {
	h.termOnce.Do(func() {
		if h.exited.Load() {
			return
		}
		if err := interruptProcess(h.cmd.Process); err != nil {
			tool.DefaultLogger.Debugf("[Runner] Interrupt pid %d failed, killing: %v", h.Pid(), err)
			_ = h.cmd.Process.Kill()
			return
		}
		select {
		case <-h.done:
		case <-time.After(h.grace):
			tool.DefaultLogger.Warnf("[Runner] pid %d did not exit within %s, killing", h.Pid(), h.grace)
			_ = h.cmd.Process.Kill()
		}
	})
}

func (h *execHandle) WaitExit() int {
	<-h.done
	return int(h.exitCode.Load())
}

func (h *execHandle) Lines() <-chan string {
	return h.lines
}

func (h *execHandle) OutputTail() string {
	h.tailMu.Lock()
	defer h.tailMu.Unlock()
	return strings.TrimSpace(h.tail.String())
}

// drain consumes combined stdout/stderr so the child never blocks on a
// full pipe, retaining a bounded tail and forwarding lines best-effort.
func (h *execHandle) drain(out io.Reader) {
	scanner := bufio.NewScanner(out)
	scanner.Split(scanProgressLines)
	for scanner.Scan() {
		line := scanner.Text()
		h.appendTail(line)
		select {
		case h.lines <- line:
		default:
		}
	}
	close(h.lines)
}

func (h *execHandle) appendTail(line string) {
	h.tailMu.Lock()
	defer h.tailMu.Unlock()
	if h.tail.Len() > tailLimit {
		s := h.tail.String()
		h.tail.Reset()
		h.tail.WriteString(s[len(s)-tailLimit/2:])
	}
	h.tail.WriteString(line)
	h.tail.WriteByte('\n')
}

func (h *execHandle) wait() {
	err := h.cmd.Wait()
	code := 0
	if err != nil {
		code = -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		}
	}
	h.exitCode.Store(int64(code))
	h.exited.Store(true)
	close(h.done)
}

// scanProgressLines splits on \n like bufio.ScanLines but also on \r,
// because adb rewrites its progress line in place with carriage returns.
func scanProgressLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	for i, b := range data {
		if b == '\n' || b == '\r' {
			return i + 1, data[:i], nil
		}
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
