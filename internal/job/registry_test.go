package job

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestRegistry_CreateIfAbsent(t *testing.T) {
	r := NewRegistry()
	defer r.Close()

	first, created := r.CreateIfAbsent("fp-1", func() *Job { return New("fp-1") })
	if !created {
		t.Fatal("expected first caller to create the job")
	}

	second, created := r.CreateIfAbsent("fp-1", func() *Job { return New("fp-1") })
	if created {
		t.Fatal("expected second caller to attach to the existing job")
	}
	if first.ID != second.ID {
		t.Errorf("expected same job id, got %s and %s", first.ID, second.ID)
	}
}

func TestRegistry_CreateIfAbsent_Concurrent(t *testing.T) {
	r := NewRegistry()
	defer r.Close()

	const callers = 50
	var wg sync.WaitGroup
	ids := make(chan string, callers)
	createdCount := make(chan bool, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j, created := r.CreateIfAbsent("fp-race", func() *Job { return New("fp-race") })
			ids <- j.ID
			createdCount <- created
		}()
	}
	wg.Wait()
	close(ids)
	close(createdCount)

	seen := make(map[string]bool)
	for id := range ids {
		seen[id] = true
	}
	if len(seen) != 1 {
		t.Errorf("expected exactly one job, got %d distinct ids", len(seen))
	}

	creations := 0
	for c := range createdCount {
		if c {
			creations++
		}
	}
	if creations != 1 {
		t.Errorf("expected exactly one creation, got %d", creations)
	}
}

func TestRegistry_CreateIfAbsent_TerminalJobSuperseded(t *testing.T) {
	r := NewRegistry()
	defer r.Close()

	first, _ := r.CreateIfAbsent("fp-1", func() *Job { return New("fp-1") })
	if err := r.Update(first.ID, func(j *Job) error {
		return j.Fail(ErrorInfo{Class: ClassPermanent, Message: "bad"})
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, created := r.CreateIfAbsent("fp-1", func() *Job { return New("fp-1") })
	if !created {
		t.Fatal("expected a new job once the previous one is terminal")
	}
	if second.ID == first.ID {
		t.Error("expected a fresh job id")
	}

	// The superseded terminal job remains queryable by id.
	if _, err := r.Get(first.ID); err != nil {
		t.Errorf("terminal job should remain queryable: %v", err)
	}
}

func TestRegistry_Get_ReturnsSnapshot(t *testing.T) {
	r := NewRegistry()
	defer r.Close()

	created, _ := r.CreateIfAbsent("fp-1", func() *Job { return New("fp-1") })

	snap, err := r.Get(created.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap.Script = "mutated"

	fresh, _ := r.Get(created.ID)
	if fresh.Script != "" {
		t.Error("mutating a snapshot must not affect the registry")
	}
}

func TestRegistry_Get_NotFound(t *testing.T) {
	r := NewRegistry()
	defer r.Close()

	if _, err := r.Get("nope"); err != ErrJobNotFound {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

func TestRegistry_Update_InvalidTransitionPropagates(t *testing.T) {
	r := NewRegistry()
	defer r.Close()

	created, _ := r.CreateIfAbsent("fp-1", func() *Job { return New("fp-1") })

	err := r.Update(created.ID, func(j *Job) error {
		return j.TransitionTo(StatusCompleted)
	})
	if err != ErrInvalidTransition {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestRegistry_Await_ResolvesOnTerminal(t *testing.T) {
	r := NewRegistry()
	defer r.Close()

	created, _ := r.CreateIfAbsent("fp-1", func() *Job { return New("fp-1") })

	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = r.Update(created.ID, func(j *Job) error {
			if err := j.TransitionTo(StatusGeneratingScript); err != nil {
				return err
			}
			return j.Fail(ErrorInfo{Class: ClassTransient, Message: "timeout"})
		})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	final, err := r.Await(ctx, created.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if final.Status != StatusFailed {
		t.Errorf("expected FAILED, got %s", final.Status)
	}
}

func TestRegistry_Await_ContextCancelled(t *testing.T) {
	r := NewRegistry()
	defer r.Close()

	created, _ := r.CreateIfAbsent("fp-1", func() *Job { return New("fp-1") })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := r.Await(ctx, created.ID); err == nil {
		t.Fatal("expected context error")
	}
}

func TestRegistry_Evict(t *testing.T) {
	r := NewRegistry()
	defer r.Close()

	created, _ := r.CreateIfAbsent("fp-1", func() *Job { return New("fp-1") })
	r.Evict(created.ID)

	if _, err := r.Get(created.ID); err != ErrJobNotFound {
		t.Errorf("expected ErrJobNotFound after evict, got %v", err)
	}

	// Fingerprint slot is free again.
	_, createdAgain := r.CreateIfAbsent("fp-1", func() *Job { return New("fp-1") })
	if !createdAgain {
		t.Error("expected creation after eviction")
	}
}

func TestRegistry_EvictExpired(t *testing.T) {
	r := NewRegistry(WithRetention(time.Millisecond))
	defer r.Close()

	created, _ := r.CreateIfAbsent("fp-1", func() *Job { return New("fp-1") })
	_ = r.Update(created.ID, func(j *Job) error {
		return j.Fail(ErrorInfo{Class: ClassPermanent, Message: "bad"})
	})

	r.evictExpired(time.Now().Add(time.Second))

	if _, err := r.Get(created.ID); err != ErrJobNotFound {
		t.Errorf("expected expired terminal job to be evicted, got %v", err)
	}
}

func TestRegistry_EvictExpired_KeepsInFlight(t *testing.T) {
	r := NewRegistry(WithRetention(time.Millisecond))
	defer r.Close()

	created, _ := r.CreateIfAbsent("fp-1", func() *Job { return New("fp-1") })
	r.evictExpired(time.Now().Add(time.Hour))

	if _, err := r.Get(created.ID); err != nil {
		t.Errorf("in-flight job must never be swept: %v", err)
	}
}
