package state

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestStore_LoadMissingReturnsEmpty(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	reg, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if reg.NextID != 1 {
		t.Errorf("NextID = %d, want 1", reg.NextID)
	}
	if len(reg.Agents) != 0 {
		t.Errorf("Agents = %v, want empty", reg.Agents)
	}
}

func TestStore_LoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(dir, registryFile), []byte("not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err = s.Load()
	if !errors.Is(err, ErrCorruptState) {
		t.Errorf("Load corrupt file error = %v, want ErrCorruptState", err)
	}
}

func TestStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	launched := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	err = s.WithLock(func(reg *Registry) error {
		for i := 0; i < 3; i++ {
			id := reg.AllocateID()
			a := testAgent(id)
			a.LaunchedAt = launched
			if err := reg.Add(a); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithLock failed: %v", err)
	}

	reg, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if reg.NextID != 4 {
		t.Errorf("NextID = %d, want 4", reg.NextID)
	}
	if len(reg.Agents) != 3 {
		t.Fatalf("len(Agents) = %d, want 3", len(reg.Agents))
	}
	for i, a := range reg.Agents {
		if a.ID != i+1 {
			t.Errorf("Agents[%d].ID = %d, want %d", i, a.ID, i+1)
		}
		if !a.LaunchedAt.Equal(launched) {
			t.Errorf("Agents[%d].LaunchedAt = %v", i, a.LaunchedAt)
		}
	}
}

func TestStore_WithLockErrorDiscardsChanges(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	opErr := errors.New("boom")
	err = s.WithLock(func(reg *Registry) error {
		reg.AllocateID()
		return opErr
	})
	if !errors.Is(err, opErr) {
		t.Fatalf("WithLock error = %v, want %v", err, opErr)
	}

	reg, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if reg.NextID != 1 {
		t.Errorf("NextID = %d after failed op, want 1", reg.NextID)
	}
}

// Concurrent launches must allocate strictly increasing, never-duplicated ids.
func TestStore_ConcurrentAllocation(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	const workers = 8
	ids := make(chan int, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.WithLock(func(reg *Registry) error {
				id := reg.AllocateID()
				a := testAgent(id)
				a.Branch = a.Branch + "-c"
				a.WorktreePath = a.WorktreePath + "-c"
				if err := reg.Add(a); err != nil {
					return err
				}
				ids <- id
				return nil
			})
			if err != nil {
				t.Errorf("WithLock failed: %v", err)
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int]bool)
	for id := range ids {
		if seen[id] {
			t.Errorf("id %d allocated twice", id)
		}
		seen[id] = true
	}
	if len(seen) != workers {
		t.Errorf("allocated %d ids, want %d", len(seen), workers)
	}

	reg, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if reg.NextID != workers+1 {
		t.Errorf("final NextID = %d, want %d", reg.NextID, workers+1)
	}
}
