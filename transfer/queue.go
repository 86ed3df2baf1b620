package transfer

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/moyoez/gesubridge-go/runner"
	"github.com/moyoez/gesubridge-go/tool"
	"github.com/moyoez/gesubridge-go/types"
)

// DeviceProbe answers "is this device currently ready" before a submit is
// honored. Implemented by adb.Client.
type DeviceProbe interface {
	IsDeviceReady(serial string) bool
}

// Notifier pushes events to connected UI clients; nil disables events.
type Notifier interface {
	Broadcast(n *types.Notification)
}

// Archiver persists terminal jobs for display across restarts. The queue
// itself always starts empty; the archive is a collaborator, not state.
type Archiver interface {
	Append(j types.TransferJob) error
}

// Options configures a Queue.
type Options struct {
	// PerDevice bounds concurrent transfers per device (default 1).
	PerDevice int
	// HistoryCapacity bounds the in-memory terminal job ring (default 50).
	HistoryCapacity int
	// AdbPath is read per transfer so settings changes apply immediately.
	AdbPath func() string
	// DefaultDeviceDir shapes push destinations when the caller gives none.
	DefaultDeviceDir func() string
}

// Queue schedules transfer jobs with bounded per-device concurrency.
// Structural mutation (enqueue, dispatch, cancel, terminal transition)
// serializes through mu; byte counters update atomically on the jobs.
type Queue struct {
	mu   sync.Mutex
	cond *sync.Cond

	// active holds every non-terminal job in submission order; dispatch
	// scans it front to back, which yields FIFO per device.
	active  []*job
	byID    map[string]*job
	running map[string]int
	history []types.TransferJob

	opts     Options
	runner   runner.CommandRunner
	probe    DeviceProbe
	notifier Notifier
	archive  Archiver

	// progressLimiter throttles progress events to the hub; structural
	// transitions are never dropped.
	progressLimiter *rate.Limiter

	stopped bool
	wg      sync.WaitGroup
}

func NewQueue(r runner.CommandRunner, probe DeviceProbe, notifier Notifier, archive Archiver, opts Options) *Queue {
	if opts.PerDevice <= 0 {
		opts.PerDevice = 1
	}
	if opts.HistoryCapacity <= 0 {
		opts.HistoryCapacity = 50
	}
	if opts.AdbPath == nil {
		opts.AdbPath = func() string { return "adb" }
	}
	if opts.DefaultDeviceDir == nil {
		opts.DefaultDeviceDir = func() string { return "Download/GesuBridge" }
	}
	q := &Queue{
		byID:            make(map[string]*job),
		running:         make(map[string]int),
		opts:            opts,
		runner:          r,
		probe:           probe,
		notifier:        notifier,
		archive:         archive,
		progressLimiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Start launches the dispatcher. Call Shutdown to stop it.
func (q *Queue) Start() {
	q.wg.Add(1)
	go q.dispatch()
}

// Shutdown stops the dispatcher and interrupts running transfers. Their
// jobs settle as Cancelled before Shutdown returns.
func (q *Queue) Shutdown() {
	q.mu.Lock()
	q.stopped = true
	for _, j := range q.active {
		if j.status() == types.TransferTransferring {
			j.cancelled.Store(true)
			if h := j.getHandle(); h != nil {
				go h.Terminate()
			}
		}
	}
	q.cond.Broadcast()
	q.mu.Unlock()
	q.wg.Wait()
}

// Submit creates one Queued job per path pair and returns immediately;
// execution is asynchronous. Jobs whose source cannot be established are
// created Failed rather than rejecting the whole batch.
func (q *Queue) Submit(deviceID string, direction types.TransferDirection, pairs []types.PathPair) ([]types.TransferJob, error) {
	if len(pairs) == 0 {
		return nil, types.NewInvalidPathError("no paths submitted")
	}
	if q.probe != nil && !q.probe.IsDeviceReady(deviceID) {
		return nil, types.NewDeviceUnreadyError("device %s is not ready", deviceID)
	}

	// Events are collected under the lock and broadcast after releasing
	// it; a stalled notify client must never wedge the dispatcher.
	type pendingEvent struct {
		event string
		snap  types.TransferJob
	}
	results := make([]types.TransferJob, 0, len(pairs))
	events := make([]pendingEvent, 0, len(pairs))

	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return nil, types.NewTransferIOError("transfer queue is shut down")
	}
	for _, pair := range pairs {
		j, prepErr := q.prepareJob(deviceID, direction, pair)
		if prepErr != nil {
			// establish failure: the job exists but never runs
			snap := j.finish(types.TransferFailed, prepErr.Error())
			q.pushHistoryLocked(snap)
			results = append(results, snap)
			events = append(events, pendingEvent{types.NotifyTypeTransferDone, snap})
			continue
		}
		q.active = append(q.active, j)
		q.byID[j.data.ID] = j
		snap := j.snapshot()
		results = append(results, snap)
		tool.DefaultLogger.Infof("[Transfer] Queued %s %s -> %s on %s (job %s)", direction, snap.SourcePath, snap.DestPath, deviceID, snap.ID)
		events = append(events, pendingEvent{types.NotifyTypeTransferQueued, snap})
	}
	q.cond.Broadcast()
	q.mu.Unlock()

	for _, e := range events {
		q.notifyJob(e.event, e.snap)
	}
	return results, nil
}

// prepareJob shapes destinations and stats push sources. The returned job
// is always non-nil; a non-nil error means it must be failed immediately.
func (q *Queue) prepareJob(deviceID string, direction types.TransferDirection, pair types.PathPair) (*job, error) {
	source := pair.Source
	dest := pair.Dest
	var size uint64

	switch direction {
	case types.DirectionPush:
		if dest == "" {
			dest = path.Join("/sdcard", q.opts.DefaultDeviceDir(), filepath.Base(source))
		}
		info, err := os.Stat(source)
		if err != nil {
			return newJob(deviceID, direction, source, dest, 0),
				types.NewTransferIOError("source not readable: %v", err)
		}
		if info.IsDir() {
			return newJob(deviceID, direction, source, dest, 0),
				types.NewTransferIOError("source is a directory: %s", source)
		}
		size = uint64(info.Size())
	case types.DirectionPull:
		if dest == "" {
			dest = path.Base(source)
		}
		// remote size is unknown until the tool reports it
	}
	return newJob(deviceID, direction, source, dest, size), nil
}

// Cancel requests cancellation of a job. Queued jobs transition directly
// without ever invoking the tool; Transferring jobs are interrupted and
// settle as Cancelled once the process exits. Cancelling an already
// terminal job is an idempotent no-op success.
func (q *Queue) Cancel(jobID string) error {
	q.mu.Lock()
	j, ok := q.byID[jobID]
	if !ok {
		for _, h := range q.history {
			if h.ID == jobID {
				q.mu.Unlock()
				tool.DefaultLogger.Debugf("[Transfer] Cancel on terminal job %s is a no-op", jobID)
				return nil
			}
		}
		q.mu.Unlock()
		return types.NewTransferNotFoundError("transfer %s not found", jobID)
	}

	switch j.status() {
	case types.TransferQueued:
		q.removeActiveLocked(j)
		snap := j.finish(types.TransferCancelled, "")
		q.pushHistoryLocked(snap)
		q.cond.Broadcast()
		q.mu.Unlock()
		tool.DefaultLogger.Infof("[Transfer] Cancelled queued job %s", jobID)
		q.notifyJob(types.NotifyTypeTransferDone, snap)
		return nil
	case types.TransferTransferring:
		j.cancelled.Store(true)
		handle := j.getHandle()
		q.mu.Unlock()
		if handle != nil {
			// Terminate waits out the grace period before escalating;
			// the job settles through run, so the caller need not wait.
			go handle.Terminate()
		}
		tool.DefaultLogger.Infof("[Transfer] Interrupting job %s", jobID)
		return nil
	}
	q.mu.Unlock()
	return nil
}

// ListActive returns non-terminal jobs in submission order.
func (q *Queue) ListActive() []types.TransferJob {
	q.mu.Lock()
	jobs := make([]*job, len(q.active))
	copy(jobs, q.active)
	q.mu.Unlock()

	out := make([]types.TransferJob, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.snapshot())
	}
	return out
}

// ListHistory returns terminal jobs, most recent first, bounded by the
// configured capacity.
func (q *Queue) ListHistory() []types.TransferJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]types.TransferJob, len(q.history))
	copy(out, q.history)
	return out
}

// Get returns the snapshot of one job, active or historical.
func (q *Queue) Get(jobID string) (types.TransferJob, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if j, ok := q.byID[jobID]; ok {
		return j.snapshot(), true
	}
	for _, h := range q.history {
		if h.ID == jobID {
			return h, true
		}
	}
	return types.TransferJob{}, false
}

// dispatch pulls the next Queued job whose device has a free slot, in
// submission order, and runs it. One failure never blocks the rest of the
// device's queue.
func (q *Queue) dispatch() {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		var next *job
		for {
			if q.stopped {
				q.mu.Unlock()
				return
			}
			next = q.nextEligibleLocked()
			if next != nil {
				break
			}
			q.cond.Wait()
		}
		next.setStatus(types.TransferTransferring)
		q.running[next.data.DeviceID]++
		q.mu.Unlock()

		q.wg.Add(1)
		go q.run(next)
	}
}

func (q *Queue) nextEligibleLocked() *job {
	for _, j := range q.active {
		if j.status() != types.TransferQueued {
			continue
		}
		if q.running[j.data.DeviceID] < q.opts.PerDevice {
			return j
		}
	}
	return nil
}

// run executes one job to a terminal state.
func (q *Queue) run(j *job) {
	defer q.wg.Done()
	snap := j.snapshot()
	q.notifyJob(types.NotifyTypeTransferStarted, snap)
	tool.DefaultLogger.Infof("[Transfer] Starting job %s (%s %s)", snap.ID, snap.Direction, snap.FileName)

	handle, err := q.runner.Spawn(q.opts.AdbPath(), buildAdbArgs(snap))
	if err != nil {
		q.settle(j, types.TransferFailed, err.Error())
		return
	}
	j.setHandle(handle)

	// cancel may have landed between dispatch and spawn
	if j.cancelled.Load() {
		handle.Terminate()
	}

	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		watchProgress(handle.Lines(), snap.SizeBytes,
			func(transferred uint64) {
				j.addProgress(transferred)
				if q.progressLimiter.Allow() {
					q.notifyJob(types.NotifyTypeTransferProgress, j.snapshot())
				}
			},
			func(bytes uint64) {
				j.finalSize.Store(bytes)
				j.addProgress(bytes)
			})
	}()

	exitCode := handle.WaitExit()
	<-progressDone

	switch {
	case j.cancelled.Load():
		q.settle(j, types.TransferCancelled, "interrupted before completion; partial file may remain at destination")
	case exitCode == 0:
		q.settle(j, types.TransferComplete, "")
	default:
		errText := handle.OutputTail()
		if errText == "" {
			errText = "transfer tool exited with code " + strconv.Itoa(exitCode)
		}
		q.settle(j, types.TransferFailed, errText)
	}
}

// settle moves a job to its terminal state, retires it into history and
// frees its device slot.
func (q *Queue) settle(j *job, status types.TransferStatus, errText string) {
	q.mu.Lock()
	snap := j.finish(status, errText)
	q.removeActiveLocked(j)
	q.running[j.data.DeviceID]--
	if q.running[j.data.DeviceID] <= 0 {
		delete(q.running, j.data.DeviceID)
	}
	q.pushHistoryLocked(snap)
	q.cond.Broadcast()
	q.mu.Unlock()

	switch status {
	case types.TransferComplete:
		tool.DefaultLogger.Infof("[Transfer] Job %s complete (%d bytes)", snap.ID, snap.TransferredBytes)
	case types.TransferCancelled:
		tool.DefaultLogger.Infof("[Transfer] Job %s cancelled", snap.ID)
	default:
		tool.DefaultLogger.Errorf("[Transfer] Job %s failed: %s", snap.ID, snap.Error)
	}
	q.notifyJob(types.NotifyTypeTransferDone, snap)
	if q.archive != nil {
		if err := q.archive.Append(snap); err != nil {
			tool.DefaultLogger.Warnf("[Transfer] Failed to archive job %s: %v", snap.ID, err)
		}
	}
}

func (q *Queue) removeActiveLocked(j *job) {
	for i, candidate := range q.active {
		if candidate == j {
			q.active = append(q.active[:i], q.active[i+1:]...)
			break
		}
	}
	delete(q.byID, j.data.ID)
}

// pushHistoryLocked inserts most-recent-first and evicts the oldest past
// capacity.
func (q *Queue) pushHistoryLocked(snap types.TransferJob) {
	q.history = append([]types.TransferJob{snap}, q.history...)
	if len(q.history) > q.opts.HistoryCapacity {
		q.history = q.history[:q.opts.HistoryCapacity]
	}
}

func (q *Queue) notifyJob(eventType string, snap types.TransferJob) {
	if q.notifier == nil {
		return
	}
	q.notifier.Broadcast(&types.Notification{
		Type:    eventType,
		Title:   "Transfer " + string(snap.Direction),
		Message: fmt.Sprintf("%s: %s", snap.FileName, snap.Status),
		Data: map[string]any{
			"job": snap,
		},
	})
}

func buildAdbArgs(snap types.TransferJob) []string {
	if snap.Direction == types.DirectionPush {
		return []string{"-s", snap.DeviceID, "push", snap.SourcePath, snap.DestPath}
	}
	return []string{"-s", snap.DeviceID, "pull", snap.SourcePath, snap.DestPath}
}
