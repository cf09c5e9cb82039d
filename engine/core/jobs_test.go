package core

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestNewJobSystemValidation(t *testing.T) {
	if _, err := NewJobSystem(0, 1); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("zero workers:\nhave %v\nwant ErrInvalidArgument", err)
	}
	if _, err := NewJobSystem(1, -1); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("negative channel:\nhave %v\nwant ErrInvalidArgument", err)
	}
}

func TestJobSystemRunsEveryJob(t *testing.T) {
	js, err := NewJobSystem(4, 8)
	if err != nil {
		t.Fatal(err)
	}
	var completed, failed atomic.Int32
	var wg sync.WaitGroup
	boom := errors.New("boom")
	for i := 0; i < 100; i++ {
		wg.Add(1)
		i := i
		err := js.Submit(Job{
			Run: func() error {
				if i%10 == 0 {
					return boom
				}
				return nil
			},
			OnComplete: func() { completed.Add(1); wg.Done() },
			OnFailure: func(err error) {
				if errors.Is(err, boom) {
					failed.Add(1)
				}
				wg.Done()
			},
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	wg.Wait()
	if err := js.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if have := completed.Load(); have != 90 {
		t.Errorf("completed:\nhave %d\nwant 90", have)
	}
	if have := failed.Load(); have != 10 {
		t.Errorf("failed:\nhave %d\nwant 10", have)
	}
	// A second shutdown is harmless.
	if err := js.Shutdown(); err != nil {
		t.Fatal(err)
	}
}

func TestSubmitAfterShutdown(t *testing.T) {
	js, err := NewJobSystem(2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := js.Shutdown(); err != nil {
		t.Fatal(err)
	}
	ran := false
	err = js.Submit(Job{Run: func() error { ran = true; return nil }})
	if !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("Submit after Shutdown:\nhave %v\nwant %v", err, ErrInvalidOperation)
	}
	if ran {
		t.Fatal("job ran after Shutdown")
	}
}
