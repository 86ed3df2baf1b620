package session

import (
	"sync"
	"testing"
	"time"

	"github.com/moyoez/gesubridge-go/runner"
	"github.com/moyoez/gesubridge-go/types"
)

type fakeHandle struct {
	pid      int
	mu       sync.Mutex
	alive    bool
	exitCode int
	done     chan struct{}
	lines    chan string

	// termGate, when set, stalls Terminate until closed.
	termGate chan struct{}
}

func newFakeHandle(pid int) *fakeHandle {
	return &fakeHandle{
		pid:   pid,
		alive: true,
		done:  make(chan struct{}),
		lines: make(chan string, 8),
	}
}

func (h *fakeHandle) exit(code int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.alive {
		return
	}
	h.alive = false
	h.exitCode = code
	close(h.lines)
	close(h.done)
}

func (h *fakeHandle) Pid() int { return h.pid }

func (h *fakeHandle) IsAlive() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.alive
}

func (h *fakeHandle) Terminate() {
	if h.termGate != nil {
		<-h.termGate
	}
	h.exit(-1)
}

func (h *fakeHandle) WaitExit() int {
	<-h.done
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exitCode
}

func (h *fakeHandle) Lines() <-chan string { return h.lines }
func (h *fakeHandle) OutputTail() string   { return "" }

type fakeRunner struct {
	mu       sync.Mutex
	spawned  []*fakeHandle
	args     [][]string
	failNext bool
}

func (r *fakeRunner) Spawn(exe string, args []string) (runner.ProcessHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext {
		r.failNext = false
		return nil, types.NewSpawnError("fake spawn refused")
	}
	h := newFakeHandle(1000 + len(r.spawned))
	r.spawned = append(r.spawned, h)
	r.args = append(r.args, append([]string{exe}, args...))
	return h, nil
}

func (r *fakeRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.spawned)
}

func (r *fakeRunner) handle(i int) *fakeHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.spawned[i]
}

type fakeProbe struct {
	mu      sync.Mutex
	unready map[string]bool
}

func (p *fakeProbe) IsDeviceReady(serial string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.unready[serial]
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []*types.Notification
}

func (n *fakeNotifier) Broadcast(notification *types.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notification)
}

func (n *fakeNotifier) byType(eventType string) []*types.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []*types.Notification
	for _, e := range n.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func newTestRegistry() (*Registry, *fakeRunner, *fakeProbe, *fakeNotifier) {
	r := &fakeRunner{}
	probe := &fakeProbe{unready: make(map[string]bool)}
	notifier := &fakeNotifier{}
	reg := NewRegistry(r, probe, notifier, func() string { return "scrcpy" })
	return reg, r, probe, notifier
}

// waitForSessions polls until the registry holds want sessions for mode;
// stop removal happens on the reap goroutine.
func waitForSessions(t *testing.T, reg *Registry, mode types.SessionMode, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(reg.List(mode)) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %d sessions, have %d", want, len(reg.List(mode)))
}

func TestStartDuplicateRejected(t *testing.T) {
	reg, r, _, _ := newTestRegistry()

	first, err := reg.Start("DEV1", types.ModeMirror, types.SessionOptions{})
	if err != nil {
		t.Fatalf("First start failed: %v", err)
	}
	if first.State != types.SessionRunning {
		t.Errorf("Expected running state, got %s", first.State)
	}

	_, err = reg.Start("DEV1", types.ModeMirror, types.SessionOptions{})
	if types.KindOf(err) != types.ErrDuplicateSession {
		t.Fatalf("Expected duplicate_session error, got %v", err)
	}

	// the existing session is untouched and no second process exists
	if r.count() != 1 {
		t.Errorf("Expected 1 spawn, got %d", r.count())
	}
	sessions := reg.List(types.ModeMirror)
	if len(sessions) != 1 || sessions[0].State != types.SessionRunning {
		t.Errorf("Expected one running session, got %+v", sessions)
	}
}

func TestStopNonexistent(t *testing.T) {
	reg, _, _, _ := newTestRegistry()
	if err := reg.Stop("NOPE", types.ModeMirror); types.KindOf(err) != types.ErrSessionNotFound {
		t.Errorf("Expected session_not_found error, got %v", err)
	}
	if len(reg.List("")) != 0 {
		t.Error("Stop on nonexistent key must not mutate the registry")
	}
}

func TestModeKeysAreIndependent(t *testing.T) {
	reg, _, _, _ := newTestRegistry()

	if _, err := reg.Start("DEV1", types.ModeMirror, types.SessionOptions{}); err != nil {
		t.Fatalf("Mirror start failed: %v", err)
	}
	if _, err := reg.Start("DEV1", types.ModeCamera, types.SessionOptions{}); err != nil {
		t.Fatalf("Camera start failed: %v", err)
	}
	if _, err := reg.Start("DEV1", types.ModeMirror, types.SessionOptions{}); types.KindOf(err) != types.ErrDuplicateSession {
		t.Fatalf("Expected duplicate_session error, got %v", err)
	}
	if err := reg.Stop("DEV1", types.ModeMirror); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	waitForSessions(t, reg, types.ModeMirror, 0)
	if _, err := reg.Start("DEV1", types.ModeMirror, types.SessionOptions{}); err != nil {
		t.Fatalf("Restart after stop failed: %v", err)
	}
	if got := len(reg.List("")); got != 2 {
		t.Errorf("Expected 2 sessions, got %d", got)
	}
}

func TestStopTwice(t *testing.T) {
	reg, _, _, _ := newTestRegistry()

	if _, err := reg.Start("DEV1", types.ModeMirror, types.SessionOptions{}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := reg.Stop("DEV1", types.ModeMirror); err != nil {
		t.Fatalf("First stop failed: %v", err)
	}
	if err := reg.Stop("DEV1", types.ModeMirror); types.KindOf(err) != types.ErrSessionNotFound {
		t.Errorf("Expected session_not_found on second stop, got %v", err)
	}
}

func TestStopReturnsWhileProcessLingers(t *testing.T) {
	reg, r, _, notifier := newTestRegistry()

	if _, err := reg.Start("DEV1", types.ModeMirror, types.SessionOptions{}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	h := r.handle(0)
	h.termGate = make(chan struct{})

	started := time.Now()
	if err := reg.Stop("DEV1", types.ModeMirror); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if elapsed := time.Since(started); elapsed > 200*time.Millisecond {
		t.Fatalf("Stop blocked the caller for %v", elapsed)
	}

	// until the process exits the session is observable as stopping
	sessions := reg.List("")
	if len(sessions) != 1 || sessions[0].State != types.SessionStopping {
		t.Fatalf("Expected one stopping session, got %+v", sessions)
	}
	// and a second stop resolves without waiting either
	if err := reg.Stop("DEV1", types.ModeMirror); types.KindOf(err) != types.ErrSessionNotFound {
		t.Errorf("Expected session_not_found while stopping, got %v", err)
	}

	close(h.termGate)
	waitForSessions(t, reg, "", 0)
	if got := len(notifier.byType(types.NotifyTypeSessionStopped)); got != 1 {
		t.Errorf("Expected 1 stopped notification, got %d", got)
	}
}

func TestSpawnFailureRemovesEntry(t *testing.T) {
	reg, r, _, _ := newTestRegistry()
	r.failNext = true

	if _, err := reg.Start("DEV1", types.ModeMirror, types.SessionOptions{}); types.KindOf(err) != types.ErrSpawn {
		t.Fatalf("Expected spawn_failed error, got %v", err)
	}
	if len(reg.List("")) != 0 {
		t.Error("Failed spawn must not leave a registry entry")
	}
	// key is free again
	if _, err := reg.Start("DEV1", types.ModeMirror, types.SessionOptions{}); err != nil {
		t.Errorf("Start after spawn failure should succeed, got %v", err)
	}
}

func TestStartUnreadyDevice(t *testing.T) {
	reg, r, probe, _ := newTestRegistry()
	probe.mu.Lock()
	probe.unready["DEV1"] = true
	probe.mu.Unlock()

	if _, err := reg.Start("DEV1", types.ModeMirror, types.SessionOptions{}); types.KindOf(err) != types.ErrDeviceUnready {
		t.Fatalf("Expected device_unready error, got %v", err)
	}
	if r.count() != 0 {
		t.Error("Unready device must never reach the tool runner")
	}
}

func TestMonitorDetectsCrash(t *testing.T) {
	reg, r, _, notifier := newTestRegistry()
	monitor := NewMonitor(reg, time.Minute)

	if _, err := reg.Start("DEV1", types.ModeMirror, types.SessionOptions{}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// a sweep over a healthy process changes nothing
	monitor.sweep()
	if len(reg.List("")) != 1 {
		t.Fatal("Sweep must not reap a live session")
	}

	r.handle(0).exit(9)
	monitor.sweep()

	if len(reg.List("")) != 0 {
		t.Error("Crashed session should be removed from the registry")
	}
	crashed := notifier.byType(types.NotifyTypeSessionCrashed)
	if len(crashed) != 1 {
		t.Fatalf("Expected 1 crash notification, got %d", len(crashed))
	}
	snap, ok := crashed[0].Data["session"].(types.Session)
	if !ok || snap.State != types.SessionCrashed {
		t.Errorf("Crash notification should carry a crashed snapshot, got %+v", crashed[0].Data)
	}

	// key is free for a new session
	if _, err := reg.Start("DEV1", types.ModeMirror, types.SessionOptions{}); err != nil {
		t.Errorf("Start after crash should succeed, got %v", err)
	}
}

func TestMonitorIgnoresStoppingSession(t *testing.T) {
	reg, _, _, notifier := newTestRegistry()
	monitor := NewMonitor(reg, time.Minute)

	if _, err := reg.Start("DEV1", types.ModeMirror, types.SessionOptions{}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := reg.Stop("DEV1", types.ModeMirror); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	monitor.sweep()
	if got := notifier.byType(types.NotifyTypeSessionCrashed); len(got) != 0 {
		t.Errorf("Explicit stop must never surface as a crash, got %d crash events", len(got))
	}
}

func TestShutdownStopsEverything(t *testing.T) {
	reg, r, _, _ := newTestRegistry()
	if _, err := reg.Start("DEV1", types.ModeMirror, types.SessionOptions{}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := reg.Start("DEV2", types.ModeCamera, types.SessionOptions{}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	reg.Shutdown()
	if len(reg.List("")) != 0 {
		t.Error("Shutdown should drain the registry")
	}
	for i := 0; i < r.count(); i++ {
		if r.handle(i).IsAlive() {
			t.Errorf("Handle %d still alive after shutdown", i)
		}
	}
}

func TestBuildScrcpyArgs(t *testing.T) {
	args := buildScrcpyArgs("DEV1", types.ModeMirror, types.SessionOptions{ScreenOff: true})
	want := []string{"-s", "DEV1", "--turn-screen-off"}
	if len(args) != len(want) {
		t.Fatalf("Expected %v, got %v", want, args)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, args)
		}
	}

	camArgs := buildScrcpyArgs("DEV1", types.ModeCamera, types.SessionOptions{
		CameraFacing: types.CameraFacingFront,
		CameraSize:   "1920x1080",
		NoAudio:      true,
		Orientation:  types.OrientationPortrait,
	})
	joined := ""
	for _, a := range camArgs {
		joined += a + " "
	}
	for _, expected := range []string{"--video-source=camera", "--camera-facing=front", "--camera-size=1920x1080", "--no-audio", "--orientation=270"} {
		found := false
		for _, a := range camArgs {
			if a == expected {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected %s in args, got %s", expected, joined)
		}
	}

	backArgs := buildScrcpyArgs("DEV1", types.ModeCamera, types.SessionOptions{
		CameraFacing: types.CameraFacingBack,
		Orientation:  types.OrientationPortrait,
	})
	found := false
	for _, a := range backArgs {
		if a == "--orientation=90" {
			found = true
		}
	}
	if !found {
		t.Errorf("Portrait back camera should rotate 90, got %v", backArgs)
	}
}
