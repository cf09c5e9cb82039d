package containers

import (
	"errors"
	"testing"
)

func TestRingQueueWrapsAround(t *testing.T) {
	q := NewRingQueue[int](3)
	for i := 1; i <= 3; i++ {
		if err := q.Enqueue(i); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
	}
	if err := q.Enqueue(4); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("Enqueue on full queue:\nhave %v\nwant %v", err, ErrQueueFull)
	}
	if v, _ := q.Dequeue(); v != 1 {
		t.Fatalf("Dequeue:\nhave %d\nwant 1", v)
	}
	q.Enqueue(4)
	want := []int{2, 3, 4}
	for _, w := range want {
		if p, _ := q.Peek(); p != w {
			t.Fatalf("Peek:\nhave %d\nwant %d", p, w)
		}
		if v, err := q.Dequeue(); err != nil || v != w {
			t.Fatalf("Dequeue:\nhave %d, %v\nwant %d, nil", v, err, w)
		}
	}
	if _, err := q.Dequeue(); !errors.Is(err, ErrQueueEmpty) {
		t.Fatalf("Dequeue on empty queue:\nhave %v\nwant %v", err, ErrQueueEmpty)
	}
	if q.Len() != 0 || !q.IsEmpty() {
		t.Fatal("queue should be empty")
	}
}
