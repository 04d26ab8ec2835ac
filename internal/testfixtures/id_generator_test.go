package testfixtures

import (
	"sync"
	"testing"
)

func TestIDGenerator(t *testing.T) {
	gen := NewIDGenerator("task")
	if peek := gen.Peek(); peek != "task-1" {
		t.Fatalf("expected task-1 from Peek, got %q", peek)
	}
	if first, second := gen.Next(), gen.Next(); first != "task-1" || second != "task-2" {
		t.Fatalf("unexpected identifiers: %q, %q", first, second)
	}
	if gen.Issued() != 2 {
		t.Fatalf("expected 2 issued, got %d", gen.Issued())
	}
	if NewIDGenerator("").Next() != "id-1" {
		t.Fatalf("expected the default prefix")
	}
}

func TestIDGeneratorIsSafeForConcurrentServices(t *testing.T) {
	gen := NewIDGenerator("id")
	next := gen.NextFunc()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[string]bool)
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := next()
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != 50 {
		t.Fatalf("expected 50 distinct identifiers, got %d", len(seen))
	}
}
