// Package debounce coalesces rapid edits per key and persists only the last value
// once the key has been quiet for the debounce window.
package debounce

import (
	"sort"
	"sync"
	"time"
)

// DefaultWindow is the quiet period before an edit is saved
const DefaultWindow = 3 * time.Second

// SaveFunc persists the latest value of a key
type SaveFunc func(key, value string)

// Config holds debouncer configuration
type Config struct {
	Window time.Duration // quiet period per key; 0 = DefaultWindow
	OnSave SaveFunc
}

type pendingEdit struct {
	value string
	timer *time.Timer
}

// Debouncer holds one pending edit per key. Editing key B does not cancel a
// pending edit of key A.
type Debouncer struct {
	cfg     Config
	mu      sync.Mutex
	pending map[string]*pendingEdit
	stopped bool
	wg      sync.WaitGroup
}

// New creates a Debouncer
func New(cfg Config) *Debouncer {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	return &Debouncer{
		cfg:     cfg,
		pending: make(map[string]*pendingEdit),
	}
}

// Trigger records value for key and restarts the key's timer
func (d *Debouncer) Trigger(key, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if p, ok := d.pending[key]; ok {
		d.stopTimer(p)
	}

	p := &pendingEdit{value: value}
	d.wg.Add(1)
	p.timer = time.AfterFunc(d.cfg.Window, func() {
		defer d.wg.Done()
		d.fire(key, p)
	})
	d.pending[key] = p
}

// fire saves the edit unless it was replaced, flushed or dropped meanwhile
func (d *Debouncer) fire(key string, p *pendingEdit) {
	d.mu.Lock()
	if d.pending[key] != p {
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	d.mu.Unlock()

	d.cfg.OnSave(key, p.value)
}

// stopTimer cancels a pending timer; caller holds d.mu
func (d *Debouncer) stopTimer(p *pendingEdit) {
	if p.timer.Stop() {
		d.wg.Done()
	}
}

// Pending returns the number of unsaved edits
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Flush saves every pending edit now, in key order, and waits for saves
// already started by expired timers.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	keys := make([]string, 0, len(d.pending))
	for key, p := range d.pending {
		d.stopTimer(p)
		keys = append(keys, key)
	}
	sort.Strings(keys)
	edits := make([]string, len(keys))
	for i, key := range keys {
		edits[i] = d.pending[key].value
		delete(d.pending, key)
	}
	d.mu.Unlock()

	for i, key := range keys {
		d.cfg.OnSave(key, edits[i])
	}
	d.wg.Wait()
}

// Stop drops pending edits and rejects further triggers
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	for key, p := range d.pending {
		d.stopTimer(p)
		delete(d.pending, key)
	}
	d.mu.Unlock()

	d.wg.Wait()
}
