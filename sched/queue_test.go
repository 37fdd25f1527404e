package sched

import (
	"sync"
	"testing"
	"time"
)

// =============================================================================
// PriorityQueue Tests
// =============================================================================

func TestPriorityQueue_FIFOWithinClass(t *testing.T) {
	q := NewPriorityQueue[int]()
	for i := range 10 {
		q.Push(i, CanBeDelayed)
	}
	for want := range 10 {
		got, ok := q.TryPop()
		if !ok || got != want {
			t.Fatalf("TryPop() = %d, %v; want %d, true", got, ok, want)
		}
	}
	if _, ok := q.TryPop(); ok {
		t.Error("TryPop() on empty queue should fail")
	}
}

func TestPriorityQueue_ClassOrder(t *testing.T) {
	q := NewPriorityQueue[string]()
	q.Push("lw1", LeastWanted)
	q.Push("cbd1", CanBeDelayed)
	q.Push("n1", Normal)
	q.Push("lw2", LeastWanted)
	q.Push("n2", Normal)

	if q.Len() != 5 {
		t.Errorf("Len() = %d, want 5", q.Len())
	}
	if q.LenClass(Normal) != 2 || q.LenClass(CanBeDelayed) != 1 || q.LenClass(LeastWanted) != 2 {
		t.Errorf("LenClass = %d/%d/%d, want 2/1/2",
			q.LenClass(Normal), q.LenClass(CanBeDelayed), q.LenClass(LeastWanted))
	}

	want := []string{"n1", "n2", "cbd1", "lw1", "lw2"}
	for _, w := range want {
		got, ok := q.TryPop()
		if !ok || got != w {
			t.Fatalf("TryPop() = %q, %v; want %q", got, ok, w)
		}
	}
}

func TestPriorityQueue_UnknownClass(t *testing.T) {
	q := NewPriorityQueue[int]()
	q.Push(1, PriorityClass(42))
	if q.LenClass(LeastWanted) != 1 {
		t.Error("unknown class should be queued as LeastWanted")
	}
	if q.LenClass(PriorityClass(-1)) != 0 {
		t.Error("LenClass of unknown class should be 0")
	}
}

func TestPriorityQueue_PopBlocksUntilPush(t *testing.T) {
	q := NewPriorityQueue[int]()
	got := make(chan int, 1)

	go func() {
		v, ok := q.Pop()
		if ok {
			got <- v
		}
	}()

	select {
	case <-got:
		t.Fatal("Pop() returned before Push")
	case <-time.After(20 * time.Millisecond):
	}

	q.Push(7, Normal)
	select {
	case v := <-got:
		if v != 7 {
			t.Errorf("Pop() = %d, want 7", v)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Pop() did not wake after Push")
	}
}

func TestPriorityQueue_CloseWakesAll(t *testing.T) {
	q := NewPriorityQueue[int]()

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := q.Pop(); ok {
				t.Error("Pop() after Close should fail")
			}
		}()
	}

	time.Sleep(10 * time.Millisecond)
	q.Close()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not wake waiting Pop calls")
	}
}

func TestPriorityQueue_CloseReturnsRemaining(t *testing.T) {
	q := NewPriorityQueue[int]()
	q.Push(1, LeastWanted)
	q.Push(2, Normal)

	rest := q.Close()
	if len(rest) != 2 || rest[0] != 2 || rest[1] != 1 {
		t.Errorf("Close() = %v, want [2 1]", rest)
	}
	if !q.Closed() {
		t.Error("Closed() should be true")
	}
	if q.Push(3, Normal) {
		t.Error("Push after Close should fail")
	}
	if q.Len() != 0 {
		t.Errorf("Len() after Close = %d, want 0", q.Len())
	}
	if rest := q.Close(); rest != nil {
		t.Errorf("second Close() = %v, want nil", rest)
	}
}

func TestPriorityQueue_ConcurrentProducers(t *testing.T) {
	q := NewPriorityQueue[int]()
	const producers, perProducer = 8, 500

	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perProducer {
				q.Push(p*perProducer+i, PriorityClass(i%numClasses))
			}
		}()
	}
	wg.Wait()

	if q.Len() != producers*perProducer {
		t.Fatalf("Len() = %d, want %d", q.Len(), producers*perProducer)
	}

	// Every Normal item must come out before any lower class.
	lastClass := Normal
	seen := make(map[int]bool)
	for {
		v, ok := q.TryPop()
		if !ok {
			break
		}
		class := PriorityClass((v % perProducer) % numClasses)
		if class < lastClass {
			t.Fatalf("item of class %v popped after class %v", class, lastClass)
		}
		lastClass = class
		seen[v] = true
	}
	if len(seen) != producers*perProducer {
		t.Errorf("popped %d distinct items, want %d", len(seen), producers*perProducer)
	}
}

func TestFIFO_Compaction(t *testing.T) {
	var f fifo[int]
	for i := range 100 {
		f.push(i)
		if i%3 == 0 {
			f.pop()
		}
	}
	want := 100 - 34
	if f.len() != want {
		t.Fatalf("len() = %d, want %d", f.len(), want)
	}
	prev := -1
	for f.len() > 0 {
		v := f.pop()
		if v <= prev {
			t.Fatalf("pop() = %d after %d, order broken", v, prev)
		}
		prev = v
	}
}
