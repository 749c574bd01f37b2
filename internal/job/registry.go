package job

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Static errors for registry operations.
var (
	// ErrJobNotFound is returned when a job cannot be found by ID.
	ErrJobNotFound = errors.New("job not found")
	// ErrInvalidTransition is returned when an invalid state transition is attempted.
	ErrInvalidTransition = errors.New("invalid state transition")
)

// defaultRetention is how long terminal jobs remain queryable before the
// sweeper evicts them.
const defaultRetention = 10 * time.Minute

// entry tracks a registered job together with its completion future. The done
// channel is closed exactly once, when the job reaches a terminal state.
type entry struct {
	job        *Job
	done       chan struct{}
	terminalAt time.Time
}

// Registry is a concurrent-safe store of jobs, indexed by id and by request
// fingerprint for in-flight deduplication. All mutations go through Update,
// which serializes writes under the registry lock; reads return clones.
type Registry struct {
	mu        sync.RWMutex
	byID      map[string]*entry
	byFP      map[string]*entry
	retention time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRetention overrides how long terminal jobs stay queryable.
func WithRetention(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.retention = d
		}
	}
}

// NewRegistry creates a registry and starts its background sweeper.
// Call Close to stop the sweeper.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		byID:      make(map[string]*entry),
		byFP:      make(map[string]*entry),
		retention: defaultRetention,
		stopCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	go r.sweep()
	return r
}

// CreateIfAbsent atomically returns the non-terminal job registered for the
// fingerprint, or registers the job built by build. The check and the insert
// happen in a single critical section, so two racing callers sharing a
// fingerprint can never both create a job.
// The returned job is a snapshot; created reports whether build was used.
func (r *Registry) CreateIfAbsent(fingerprint string, build func() *Job) (snapshot *Job, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.byFP[fingerprint]; ok && !e.job.IsTerminal() {
		return e.job.Clone(), false
	}

	j := build()
	e := &entry{job: j, done: make(chan struct{})}
	if j.IsTerminal() {
		e.terminalAt = time.Now()
		close(e.done)
	}

	r.byID[j.ID] = e
	r.byFP[fingerprint] = e
	return j.Clone(), true
}

// Get retrieves a snapshot of a job by its ID.
func (r *Registry) Get(id string) (*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byID[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return e.job.Clone(), nil
}

// GetByFingerprint retrieves a snapshot of the job registered for a fingerprint.
func (r *Registry) GetByFingerprint(fingerprint string) (*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byFP[fingerprint]
	if !ok {
		return nil, ErrJobNotFound
	}
	return e.job.Clone(), nil
}

// Update applies mutate to the live job under the registry lock. When the
// mutation brings the job into a terminal state, the job's completion future
// is resolved.
func (r *Registry) Update(id string, mutate func(*Job) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok {
		return ErrJobNotFound
	}

	wasTerminal := e.job.IsTerminal()
	if err := mutate(e.job); err != nil {
		return err
	}

	if !wasTerminal && e.job.IsTerminal() {
		e.terminalAt = time.Now()
		close(e.done)
	}
	return nil
}

// Await blocks until the job reaches a terminal state or the context is
// cancelled, then returns a snapshot.
func (r *Registry) Await(ctx context.Context, id string) (*Job, error) {
	r.mu.RLock()
	e, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrJobNotFound
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-e.done:
		return r.Get(id)
	}
}

// Evict removes a job from the registry.
func (r *Registry) Evict(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok {
		return
	}
	delete(r.byID, id)
	if cur, ok := r.byFP[e.job.Fingerprint]; ok && cur == e {
		delete(r.byFP, e.job.Fingerprint)
	}
}

// Close stops the background sweeper.
func (r *Registry) Close() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
	})
}

// sweep periodically evicts terminal jobs older than the retention window.
func (r *Registry) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.evictExpired(time.Now())
		}
	}
}

// evictExpired removes terminal entries whose retention window has elapsed.
func (r *Registry) evictExpired(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, e := range r.byID {
		if e.terminalAt.IsZero() || now.Sub(e.terminalAt) < r.retention {
			continue
		}
		delete(r.byID, id)
		if cur, ok := r.byFP[e.job.Fingerprint]; ok && cur == e {
			delete(r.byFP, e.job.Fingerprint)
		}
	}
}
