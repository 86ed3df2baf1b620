package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/moyoez/gesubridge-go/runner"
	"github.com/moyoez/gesubridge-go/tool"
	"github.com/moyoez/gesubridge-go/types"
)

// DeviceProbe answers "is this device currently ready" before a start
// request is honored. Implemented by adb.Client.
type DeviceProbe interface {
	IsDeviceReady(serial string) bool
}

// Notifier pushes events to connected UI clients. Implemented by the
// notify hub; a nil Notifier disables events.
type Notifier interface {
	Broadcast(n *types.Notification)
}

// entry is one live session. mu is the per-key mutation lock: start, stop
// and monitor-driven crash detection on the same key serialize through it.
// snapMu guards only the snapshot fields so List never waits on an
// in-flight stop.
type entry struct {
	mu sync.Mutex

	snapMu  sync.RWMutex
	session types.Session
	handle  runner.ProcessHandle
}

func (e *entry) snapshot() types.Session {
	e.snapMu.RLock()
	defer e.snapMu.RUnlock()
	return e.session
}

func (e *entry) setState(s types.SessionState) {
	e.snapMu.Lock()
	e.session.State = s
	e.snapMu.Unlock()
}

func (e *entry) setHandle(h runner.ProcessHandle) {
	e.snapMu.Lock()
	e.handle = h
	e.session.Pid = h.Pid()
	e.snapMu.Unlock()
}

func (e *entry) getHandle() runner.ProcessHandle {
	e.snapMu.RLock()
	defer e.snapMu.RUnlock()
	return e.handle
}

// Registry owns every mirror/camera session. At most one session exists
// per (device, mode) key; all mutation goes through Start, Stop and
// markCrashed, never through direct map access.
type Registry struct {
	mu      sync.Mutex
	entries map[types.SessionKey]*entry

	runner   runner.CommandRunner
	probe    DeviceProbe
	notifier Notifier

	// ScrcpyPath is read per start so a settings change applies to the
	// next session without a restart.
	ScrcpyPath func() string

	// wg tracks in-flight reap goroutines so Shutdown can wait them out.
	wg sync.WaitGroup
}

func NewRegistry(r runner.CommandRunner, probe DeviceProbe, notifier Notifier, scrcpyPath func() string) *Registry {
	return &Registry{
		entries:    make(map[types.SessionKey]*entry),
		runner:     r,
		probe:      probe,
		notifier:   notifier,
		ScrcpyPath: scrcpyPath,
	}
}

// Start spawns the mirroring tool for (deviceID, mode). A second start on
// the same key is rejected and leaves the existing session untouched.
func (r *Registry) Start(deviceID string, mode types.SessionMode, opts types.SessionOptions) (types.Session, error) {
	key := types.SessionKey{DeviceID: deviceID, Mode: mode}

	if r.probe != nil && !r.probe.IsDeviceReady(deviceID) {
		return types.Session{}, types.NewDeviceUnreadyError("device %s is not ready", deviceID)
	}

	r.mu.Lock()
	if _, exists := r.entries[key]; exists {
		r.mu.Unlock()
		return types.Session{}, types.NewDuplicateSessionError("%s session already active for device %s", mode, deviceID)
	}
	e := &entry{
		session: types.Session{
			DeviceID:  deviceID,
			Mode:      mode,
			State:     types.SessionStarting,
			StartedAt: time.Now(),
		},
	}
	// Hold the per-key lock across the spawn so a concurrent stop or
	// monitor pass waits instead of observing a half-started entry.
	e.mu.Lock()
	defer e.mu.Unlock()
	r.entries[key] = e
	r.mu.Unlock()

	handle, err := r.runner.Spawn(r.ScrcpyPath(), buildScrcpyArgs(deviceID, mode, opts))
	if err != nil {
		r.removeEntry(key, e)
		tool.DefaultLogger.Errorf("[Session] Spawn failed for %s: %v", key, err)
		return types.Session{}, err
	}

	e.setHandle(handle)
	e.setState(types.SessionRunning)
	tool.DefaultLogger.Infof("[Session] Started %s session for %s (pid %d)", mode, deviceID, handle.Pid())
	r.notify(types.NotifyTypeSessionStarted, e.snapshot())
	return e.snapshot(), nil
}

// Stop transitions the session for (deviceID, mode) to Stopping and
// returns; termination itself can take the whole grace period, so it runs
// in a reap goroutine off the caller's thread. A stop racing with another
// stop or a detected crash on the same key resolves through the per-key
// lock: the loser sees the entry gone or already stopping and gets
// SessionNotFoundError, never a handle to an unrelated successor session.
func (r *Registry) Stop(deviceID string, mode types.SessionMode) error {
	key := types.SessionKey{DeviceID: deviceID, Mode: mode}

	r.mu.Lock()
	e, ok := r.entries[key]
	r.mu.Unlock()
	if !ok {
		return types.NewSessionNotFoundError("no active %s session for device %s", mode, deviceID)
	}

	// Resolve a repeated stop from the snapshot alone; the reap goroutine
	// holds the per-key lock for the whole termination.
	if e.snapshot().State == types.SessionStopping {
		return types.NewSessionNotFoundError("no active %s session for device %s", mode, deviceID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// The entry may have been stopped or reaped while we waited; only
	// proceed when this exact entry is still the one registered.
	if !r.isCurrent(key, e) {
		return types.NewSessionNotFoundError("no active %s session for device %s", mode, deviceID)
	}

	e.setState(types.SessionStopping)
	tool.DefaultLogger.Infof("[Session] Stopping %s session for %s", mode, deviceID)
	r.wg.Add(1)
	go r.reap(key, e)
	return nil
}

// reap terminates a stopping session's process, waits out its exit and
// removes the entry. It serializes on the per-key lock, so a concurrent
// start on the same key waits until the old entry is gone or sees it as
// a duplicate while it still exists.
func (r *Registry) reap(key types.SessionKey, e *entry) {
	defer r.wg.Done()

	e.mu.Lock()
	defer e.mu.Unlock()

	handle := e.getHandle()
	if handle != nil {
		handle.Terminate()
		handle.WaitExit()
	}
	e.setState(types.SessionTerminated)
	r.removeEntry(key, e)

	tool.DefaultLogger.Infof("[Session] Stopped %s session for %s", key.Mode, key.DeviceID)
	r.notify(types.NotifyTypeSessionStopped, e.snapshot())
}

// List returns a snapshot of current sessions for mode, or all modes when
// mode is empty. Read-only: it never reaps or mutates entries.
func (r *Registry) List(mode types.SessionMode) []types.Session {
	r.mu.Lock()
	entries := make([]*entry, 0, len(r.entries))
	for key, e := range r.entries {
		if mode != "" && key.Mode != mode {
			continue
		}
		entries = append(entries, e)
	}
	r.mu.Unlock()

	sessions := make([]types.Session, 0, len(entries))
	for _, e := range entries {
		sessions = append(sessions, e.snapshot())
	}
	return sessions
}

// markCrashed is the monitor's single mutation entry point: transition a
// session whose process died without a stop request and remove it.
func (r *Registry) markCrashed(key types.SessionKey, e *entry) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !r.isCurrent(key, e) {
		return
	}
	snap := e.snapshot()
	if snap.State != types.SessionRunning {
		return
	}
	handle := e.getHandle()
	if handle == nil || handle.IsAlive() {
		return
	}

	e.setState(types.SessionCrashed)
	r.removeEntry(key, e)

	exitCode := handle.WaitExit()
	tool.DefaultLogger.Warnf("[Session] %s session for %s exited unexpectedly (pid %d, exit code %d)", key.Mode, key.DeviceID, snap.Pid, exitCode)
	r.notify(types.NotifyTypeSessionCrashed, e.snapshot())
}

// Shutdown stops every live session and waits for their processes to be
// reaped. Called on daemon exit so no orphaned mirror windows outlive the
// orchestrator.
func (r *Registry) Shutdown() {
	for _, s := range r.List("") {
		if err := r.Stop(s.DeviceID, s.Mode); err != nil {
			if types.KindOf(err) != types.ErrSessionNotFound {
				tool.DefaultLogger.Warnf("[Session] Shutdown stop failed for %s/%s: %v", s.DeviceID, s.Mode, err)
			}
		}
	}
	r.wg.Wait()
}

func (r *Registry) isCurrent(key types.SessionKey, e *entry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[key] == e
}

func (r *Registry) removeEntry(key types.SessionKey, e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries[key] == e {
		delete(r.entries, key)
	}
}

func (r *Registry) notify(eventType string, s types.Session) {
	if r.notifier == nil {
		return
	}
	r.notifier.Broadcast(&types.Notification{
		Type:    eventType,
		Title:   "Session " + string(s.Mode),
		Message: fmt.Sprintf("%s on %s", s.State, s.DeviceID),
		Data: map[string]any{
			"session": s,
		},
	})
}

// buildScrcpyArgs translates a session key and options into the scrcpy
// argument list. Camera orientation follows the sensor rules: portrait
// needs a 90 degree rotation for the back camera and 270 for the front
// (the front sensor is flipped); landscape is the natural orientation.
func buildScrcpyArgs(deviceID string, mode types.SessionMode, opts types.SessionOptions) []string {
	args := []string{"-s", deviceID}
	if mode == types.ModeMirror {
		if opts.ScreenOff {
			args = append(args, "--turn-screen-off")
		}
		return args
	}

	args = append(args, "--video-source=camera")
	facing := opts.CameraFacing
	if facing == "" {
		facing = types.CameraFacingBack
	}
	args = append(args, "--camera-facing="+facing)
	if opts.CameraSize != "" {
		args = append(args, "--camera-size="+opts.CameraSize)
	}
	if opts.NoAudio {
		args = append(args, "--no-audio")
	}
	if opts.Orientation == types.OrientationPortrait {
		if facing == types.CameraFacingFront {
			args = append(args, "--orientation=270")
		} else {
			args = append(args, "--orientation=90")
		}
	}
	return args
}
