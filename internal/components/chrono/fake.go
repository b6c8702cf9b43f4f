package chrono

import (
	"sync"
	"time"
)

// Fake is a manually advanced clock for tests.
type Fake struct {
	mutex sync.Mutex
	now   time.Time
}

func NewFake(now time.Time) *Fake {
	return &Fake{now: now}
}

func (f *Fake) Now() time.Time {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.now
}

func (f *Fake) Location() *time.Location {
	return f.Now().Location()
}

func (f *Fake) Advance(d time.Duration) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.now = f.now.Add(d)
}

// ManualCron records registrations and runs them only when Fire is called.
type ManualCron struct {
	mutex     sync.Mutex
	callbacks map[string][]func()
}

func NewManualCron() *ManualCron {
	return &ManualCron{callbacks: map[string][]func(){}}
}

func (m *ManualCron) Cron(spec string, callback func()) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.callbacks[spec] = append(m.callbacks[spec], callback)
	return nil
}

func (m *ManualCron) Stop() {}

// Fire runs every callback registered under spec and returns how many ran.
func (m *ManualCron) Fire(spec string) int {
	m.mutex.Lock()
	callbacks := append([]func(){}, m.callbacks[spec]...)
	m.mutex.Unlock()

	for _, cb := range callbacks {
		cb()
	}
	return len(callbacks)
}
