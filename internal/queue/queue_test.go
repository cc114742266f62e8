package queue

import (
	"sync"
	"testing"
)

func TestFIFOOrderSingleProducer(t *testing.T) {
	q := New[int](16)
	for i := 0; i < 10; i++ {
		q.Send(i)
	}
	for i := 0; i < 10; i++ {
		v, ok := q.Receive()
		if !ok || v != i {
			t.Fatalf("expected %d, got %d (ok=%v)", i, v, ok)
		}
	}
}

func TestMultiProducerAllDelivered(t *testing.T) {
	q := New[int](256)
	var wg sync.WaitGroup
	const producers, perProducer = 8, 20
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Send(base*perProducer + i)
			}
		}(p)
	}
	wg.Wait()

	seen := make(map[int]bool)
	for i := 0; i < producers*perProducer; i++ {
		v, ok := q.Receive()
		if !ok {
			t.Fatalf("queue closed early")
		}
		seen[v] = true
	}
	if len(seen) != producers*perProducer {
		t.Fatalf("expected %d distinct events, got %d", producers*perProducer, len(seen))
	}
}

func TestCloseStopsReceive(t *testing.T) {
	q := New[int](1)
	q.Send(1)
	q.Close()
	if v, ok := q.Receive(); !ok || v != 1 {
		t.Fatalf("expected buffered value before close signal, got %d ok=%v", v, ok)
	}
	if _, ok := q.Receive(); ok {
		t.Fatalf("expected ok=false once the queue drains after close")
	}
}
