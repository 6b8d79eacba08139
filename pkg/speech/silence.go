package speech

import (
	"sync"
	"time"
)

const (
	// SilenceThreshold is the quiet period after which buffered speech is
	// auto-submitted.
	SilenceThreshold = 4000 * time.Millisecond
	// PollInterval is how often the monitor re-checks for silence.
	PollInterval = 500 * time.Millisecond
)

// Monitor watches time since the last recognized speech while capture is
// active. Once the quiet period exceeds the threshold and the answer buffer
// holds text, it fires OnSilence exactly once and disarms until the next
// Start. An idle microphone with an empty buffer never fires.
type Monitor struct {
	Threshold time.Duration
	Poll      time.Duration

	// BufferEmpty reports whether there is anything worth submitting.
	BufferEmpty func() bool
	// OnSilence stops capture and triggers submission.
	OnSilence func()

	now func() time.Time

	mu           sync.Mutex
	lastActivity time.Time
	armed        bool
	stopCh       chan struct{}
}

// NewMonitor creates a monitor with the fixed production threshold and poll
// interval.
func NewMonitor(bufferEmpty func() bool, onSilence func()) *Monitor {
	return &Monitor{
		Threshold:   SilenceThreshold,
		Poll:        PollInterval,
		BufferEmpty: bufferEmpty,
		OnSilence:   onSilence,
		now:         time.Now,
	}
}

// Start arms the monitor and begins polling. The activity clock starts now.
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.armed {
		m.mu.Unlock()
		return
	}
	m.armed = true
	m.lastActivity = m.now()
	stopCh := make(chan struct{})
	m.stopCh = stopCh
	m.mu.Unlock()

	go m.loop(stopCh)
}

// Stop disarms the monitor. Safe to call when not armed.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *Monitor) stopLocked() {
	if !m.armed {
		return
	}
	m.armed = false
	if m.stopCh != nil {
		close(m.stopCh)
		m.stopCh = nil
	}
}

// Touch records speech activity, resetting the quiet period.
func (m *Monitor) Touch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastActivity = m.now()
}

func (m *Monitor) loop(stopCh chan struct{}) {
	ticker := time.NewTicker(m.Poll)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if m.check() {
				return
			}
		}
	}
}

// check runs one silence evaluation and reports whether the monitor fired.
func (m *Monitor) check() bool {
	m.mu.Lock()
	if !m.armed {
		m.mu.Unlock()
		return true
	}
	quiet := m.now().Sub(m.lastActivity)
	if quiet <= m.Threshold || m.BufferEmpty == nil || m.BufferEmpty() {
		m.mu.Unlock()
		return false
	}
	// Disarm before firing so a slow OnSilence cannot double-trigger.
	m.stopLocked()
	onSilence := m.OnSilence
	m.mu.Unlock()

	if onSilence != nil {
		onSilence()
	}
	return true
}
