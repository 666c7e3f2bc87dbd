package session

import (
	"sync"
	"time"
)

// timerSet manages the two kinds of deferred cleanup: per-identity disconnect
// grace timers and per-session empty-room deletion timers, both cancelable by
// key. A timer firing races against events that happened after it was scheduled,
// so every callback must re-validate its precondition against current registry
// state before acting; the timerSet only handles scheduling and cancellation.
type timerSet struct {
	mu       sync.Mutex
	grace    map[string]*time.Timer
	deletion map[string]*time.Timer
}

func newTimerSet() *timerSet {
	return &timerSet{
		grace:    make(map[string]*time.Timer),
		deletion: make(map[string]*time.Timer),
	}
}

// armGrace schedules the grace-expiry callback for an identity, replacing any
// timer already armed for the same uuid.
func (t *timerSet) armGrace(uuid string, d time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.grace[uuid]; ok {
		existing.Stop()
	}

	t.grace[uuid] = time.AfterFunc(d, func() {
		t.clearGrace(uuid)
		fn()
	})
}

// cancelGrace cancels a pending grace timer for the identity, if any.
func (t *timerSet) cancelGrace(uuid string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.grace[uuid]; ok {
		existing.Stop()
		delete(t.grace, uuid)
	}
}

func (t *timerSet) clearGrace(uuid string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.grace, uuid)
}

// armDeletion schedules the empty-session deletion callback for a session code,
// replacing any timer already armed for the same code.
func (t *timerSet) armDeletion(code string, d time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.deletion[code]; ok {
		existing.Stop()
	}

	t.deletion[code] = time.AfterFunc(d, func() {
		t.clearDeletion(code)
		fn()
	})
}

// cancelDeletion cancels a pending deletion timer for the session, if any.
func (t *timerSet) cancelDeletion(code string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.deletion[code]; ok {
		existing.Stop()
		delete(t.deletion, code)
	}
}

func (t *timerSet) clearDeletion(code string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.deletion, code)
}

// stopAll cancels every pending timer. Used during shutdown.
func (t *timerSet) stopAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for uuid, timer := range t.grace {
		timer.Stop()
		delete(t.grace, uuid)
	}
	for code, timer := range t.deletion {
		timer.Stop()
		delete(t.deletion, code)
	}
}
