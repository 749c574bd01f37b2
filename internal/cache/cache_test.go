package cache

import (
	"testing"
	"time"

	"github.com/postervoice/talkinghead-api/internal/stage"
)

func TestStore_RoundTrip(t *testing.T) {
	s := New()
	defer s.Close()

	s.Put("fp-1", Entry{
		Script:   "hello",
		AudioURL: "mock://audio/a.wav",
		VideoURL: "mock://video/v.mp4",
		Sources:  map[stage.Kind]stage.Source{stage.KindScript: stage.SourceMock},
	})

	got, ok := s.Get("fp-1")
	if !ok {
		t.Fatal("expected hit")
	}
	if got.Script != "hello" || got.AudioURL != "mock://audio/a.wav" || got.VideoURL != "mock://video/v.mp4" {
		t.Errorf("unexpected entry: %+v", got)
	}
}

func TestStore_Miss(t *testing.T) {
	s := New()
	defer s.Close()

	if _, ok := s.Get("absent"); ok {
		t.Error("expected miss")
	}
}

func TestStore_ExpiredEntryIsMiss(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }

	s := New(WithTTL(5*time.Minute), WithClock(func() time.Time { return clock() }))
	defer s.Close()

	s.Put("fp-1", Entry{Script: "hello"})

	// Just inside the TTL: still a hit.
	clock = func() time.Time { return now.Add(5*time.Minute - time.Millisecond) }
	if _, ok := s.Get("fp-1"); !ok {
		t.Fatal("expected hit just before expiry")
	}

	// At TTL + epsilon: a miss, and the entry is purged.
	clock = func() time.Time { return now.Add(5*time.Minute + time.Millisecond) }
	if _, ok := s.Get("fp-1"); ok {
		t.Fatal("expected miss after expiry")
	}
	if s.Len() != 0 {
		t.Error("expected expired entry to be purged lazily")
	}
}

func TestStore_PutRefreshesExpiry(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }

	s := New(WithTTL(time.Minute), WithClock(func() time.Time { return clock() }))
	defer s.Close()

	s.Put("fp-1", Entry{Script: "v1"})

	clock = func() time.Time { return now.Add(50 * time.Second) }
	s.Put("fp-1", Entry{Script: "v2"})

	clock = func() time.Time { return now.Add(100 * time.Second) }
	got, ok := s.Get("fp-1")
	if !ok {
		t.Fatal("expected refreshed entry to be live")
	}
	if got.Script != "v2" {
		t.Errorf("expected v2, got %s", got.Script)
	}
}

func TestStore_PurgeExpired(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }

	s := New(WithTTL(time.Minute), WithClock(func() time.Time { return clock() }))
	defer s.Close()

	s.Put("fp-1", Entry{Script: "a"})
	s.Put("fp-2", Entry{Script: "b"})

	clock = func() time.Time { return now.Add(2 * time.Minute) }
	s.purgeExpired()

	if s.Len() != 0 {
		t.Errorf("expected all entries purged, have %d", s.Len())
	}
}

func TestStore_GetReturnsCopy(t *testing.T) {
	s := New()
	defer s.Close()

	s.Put("fp-1", Entry{Sources: map[stage.Kind]stage.Source{stage.KindScript: stage.SourceLive}})

	got, _ := s.Get("fp-1")
	got.Sources[stage.KindScript] = stage.SourceMock

	fresh, _ := s.Get("fp-1")
	if fresh.Sources[stage.KindScript] != stage.SourceLive {
		t.Error("mutating a returned entry must not affect the store")
	}
}
