package session

import (
	"time"

	"github.com/moyoez/gesubridge-go/tool"
	"github.com/moyoez/gesubridge-go/types"
)

// Monitor is the background watcher that detects process death not caused
// by an explicit stop. It only observes; every transition it triggers goes
// through the registry's markCrashed mutation path, so it can never race
// an in-flight stop on the same key.
type Monitor struct {
	registry *Registry
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

func NewMonitor(r *Registry, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Monitor{
		registry: r,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the recurring check. Call Stop to end it.
func (m *Monitor) Start() {
	go m.loop()
}

func (m *Monitor) Stop() {
	close(m.stop)
	<-m.done
}

func (m *Monitor) loop() {
	defer close(m.done)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	tool.DefaultLogger.Debugf("[Monitor] Watching sessions every %s", m.interval)
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

// sweep scans all registry entries once and reaps the dead ones.
func (m *Monitor) sweep() {
	r := m.registry
	r.mu.Lock()
	candidates := make(map[types.SessionKey]*entry, len(r.entries))
	for key, e := range r.entries {
		candidates[key] = e
	}
	r.mu.Unlock()

	for key, e := range candidates {
		snap := e.snapshot()
		if snap.State != types.SessionRunning {
			continue
		}
		handle := e.getHandle()
		if handle == nil || handle.IsAlive() {
			continue
		}
		// markCrashed revalidates under the per-key lock; a stop that
		// won the race makes this a no-op.
		r.markCrashed(key, e)
	}
}
