package schedule

import (
	"sync"
	"testing"
	"time"
)

func TestArmFiresCallback(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	wg.Add(1)
	var got int
	r.Arm(1, time.Millisecond, func(arg int) {
		got = arg
		wg.Done()
	}, 42)
	wg.Wait()
	if got != 42 {
		t.Errorf("callback arg = %d, want 42", got)
	}
}

func TestArmReplacesPending(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	wg.Add(1)
	var fired []int
	var mu sync.Mutex
	r.Arm(1, 5*time.Millisecond, func(arg int) {
		mu.Lock()
		fired = append(fired, arg)
		mu.Unlock()
	}, 1)
	r.Arm(1, time.Millisecond, func(arg int) {
		mu.Lock()
		fired = append(fired, arg)
		mu.Unlock()
		wg.Done()
	}, 2)
	wg.Wait()
	time.Sleep(10 * time.Millisecond) // let the replaced timer's window pass

	mu.Lock()
	defer mu.Unlock()
	if len(fired) != 1 || fired[0] != 2 {
		t.Errorf("fired = %v, want [2] (the replaced arm-1 should never fire)", fired)
	}
}

func TestCancelSuppressesCallback(t *testing.T) {
	r := NewRegistry()
	called := false
	r.Arm(1, 2*time.Millisecond, func(int) { called = true }, 0)
	r.Cancel(1)
	time.Sleep(10 * time.Millisecond)
	if called {
		t.Error("cancelled timer fired anyway")
	}
	if r.Pending(1) {
		t.Error("Pending should be false after Cancel")
	}
}

func TestPendingReflectsArmState(t *testing.T) {
	r := NewRegistry()
	if r.Pending(5) {
		t.Error("unarmed id should not be pending")
	}
	r.Arm(5, time.Hour, func(int) {}, 0)
	if !r.Pending(5) {
		t.Error("freshly armed id should be pending")
	}
}
