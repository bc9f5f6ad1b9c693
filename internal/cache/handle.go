package cache

import "sync"

// Manager owns the process-wide store handle. The first Acquire performs
// initialization; callers arriving while that init is in flight wait on the
// same attempt instead of opening parallel handles. After Invalidate the next
// Acquire re-initializes lazily.
type Manager struct {
	baseDir string

	// openFn exists so tests can count or fail initializations.
	openFn func(baseDir string) (*Store, error)

	mu      sync.Mutex
	store   *Store
	pending *initAttempt
}

// initAttempt is one shared in-flight initialization.
type initAttempt struct {
	done  chan struct{}
	store *Store
	err   error
}

// NewManager creates a manager for the store at baseDir. Nothing is opened
// until the first Acquire.
func NewManager(baseDir string) *Manager {
	return &Manager{
		baseDir: baseDir,
		openFn:  Open,
	}
}

// Acquire returns the live store handle, initializing it if needed. Exactly
// one initialization runs at a time; concurrent callers share its outcome.
// A failed attempt is not cached: the next Acquire tries again.
func (m *Manager) Acquire() (*Store, error) {
	m.mu.Lock()
	if m.store != nil {
		s := m.store
		m.mu.Unlock()
		return s, nil
	}

	attempt := m.pending
	if attempt == nil {
		attempt = &initAttempt{done: make(chan struct{})}
		m.pending = attempt
		go m.initialize(attempt)
	}
	m.mu.Unlock()

	<-attempt.done
	return attempt.store, attempt.err
}

// Invalidate discards the current handle (closing it) so the next Acquire
// re-initializes. Called on unexpected connection loss.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	s := m.store
	m.store = nil
	m.mu.Unlock()

	if s != nil {
		_ = s.Close()
	}
}

// Close shuts the handle down for good; a later Acquire would reopen it.
func (m *Manager) Close() {
	m.Invalidate()
}

func (m *Manager) initialize(attempt *initAttempt) {
	store, err := m.openFn(m.baseDir)

	m.mu.Lock()
	if err == nil {
		m.store = store
	}
	m.pending = nil
	m.mu.Unlock()

	attempt.store = store
	attempt.err = err
	close(attempt.done)
}
