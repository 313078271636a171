package session

import (
	"sync"
	"time"
)

// Detector ends a capture session that has gone silent. Every pushed batch
// of audio resets the window; when the window elapses without audio the
// registered callback fires.
type Detector struct {
	timeout      time.Duration
	mu           sync.Mutex
	timer        *time.Timer
	onSessionEnd func()
}

func NewDetector(timeout time.Duration) *Detector {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Detector{timeout: timeout}
}

func (d *Detector) OnSessionEnd(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onSessionEnd = callback
}

// OnAudio reschedules the silence window.
func (d *Detector) OnAudio() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.timeout, func() {
		d.mu.Lock()
		callback := d.onSessionEnd
		d.timer = nil
		d.mu.Unlock()

		if callback != nil {
			callback()
		}
	})
}

// Stop cancels any pending silence timer.
func (d *Detector) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
