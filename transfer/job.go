package transfer

import (
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/moyoez/gesubridge-go/runner"
	"github.com/moyoez/gesubridge-go/types"
)

// job is the queue's mutable record of one push/pull unit. Structural
// fields are guarded by the queue lock; the byte counter is a plain
// atomic since it is monotonic and never drives scheduling.
type job struct {
	data        types.TransferJob
	transferred atomic.Uint64
	// finalSize holds the exact byte count parsed from the tool's
	// summary line, used when the total was unknown at submit time.
	finalSize atomic.Uint64

	handle    runner.ProcessHandle
	cancelled atomic.Bool

	mu sync.Mutex
}

func newJob(deviceID string, direction types.TransferDirection, source, dest string, size uint64) *job {
	j := &job{
		data: types.TransferJob{
			ID:         uuid.NewString(),
			DeviceID:   deviceID,
			Direction:  direction,
			FileName:   filepath.Base(source),
			SourcePath: source,
			DestPath:   dest,
			SizeBytes:  size,
			Status:     types.TransferQueued,
			CreatedAt:  time.Now(),
		},
	}
	return j
}

// snapshot copies the job for API consumers, folding in the live byte
// counter.
func (j *job) snapshot() types.TransferJob {
	j.mu.Lock()
	defer j.mu.Unlock()
	snap := j.data
	snap.TransferredBytes = j.transferred.Load()
	if snap.SizeBytes > 0 && snap.TransferredBytes > snap.SizeBytes {
		snap.TransferredBytes = snap.SizeBytes
	}
	return snap
}

func (j *job) status() types.TransferStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.data.Status
}

func (j *job) setStatus(s types.TransferStatus) {
	j.mu.Lock()
	j.data.Status = s
	j.mu.Unlock()
}

func (j *job) setHandle(h runner.ProcessHandle) {
	j.mu.Lock()
	j.handle = h
	j.mu.Unlock()
}

func (j *job) getHandle() runner.ProcessHandle {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.handle
}

// finish marks the job terminal and returns the final snapshot.
func (j *job) finish(status types.TransferStatus, errText string) types.TransferJob {
	j.mu.Lock()
	j.data.Status = status
	j.data.Error = errText
	j.data.CompletedAt = time.Now()
	if status == types.TransferComplete {
		if j.data.SizeBytes == 0 {
			j.data.SizeBytes = j.finalSize.Load()
		}
		j.transferred.Store(j.data.SizeBytes)
	}
	snap := j.data
	snap.TransferredBytes = j.transferred.Load()
	j.mu.Unlock()
	return snap
}

// addProgress raises the byte counter, keeping it monotonic.
func (j *job) addProgress(transferred uint64) {
	for {
		cur := j.transferred.Load()
		if transferred <= cur {
			return
		}
		if j.transferred.CompareAndSwap(cur, transferred) {
			return
		}
	}
}
