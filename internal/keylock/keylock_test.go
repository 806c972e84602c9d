package keylock

import (
	"sync"
	"testing"
	"time"
)

func TestLock_MutualExclusionPerKey(t *testing.T) {
	m := New()
	const workers = 16
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := m.Lock("k")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()
	if counter != workers {
		t.Fatalf("lost updates under lock: got %d want %d", counter, workers)
	}
}

func TestLock_DistinctKeysDoNotBlock(t *testing.T) {
	m := New()
	unlockA := m.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := m.Lock("b")
		unlock()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("lock on a distinct key blocked")
	}
}

func TestLock_EntryReleasedWhenUnused(t *testing.T) {
	m := New()
	unlock := m.Lock("k")
	unlock()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.locks) != 0 {
		t.Fatalf("expected empty lock table, got %d entries", len(m.locks))
	}
}
