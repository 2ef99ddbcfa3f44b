package ksync

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMutexSpinExcludes(t *testing.T) {
	m := NewMutexSpin()
	var counter int
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Lock()
			counter++
			m.Unlock()
		}()
	}
	wg.Wait()
	require.Equal(t, 50, counter)
}

func TestMutexBlockingFIFOWakeOrder(t *testing.T) {
	m := NewMutexBlocking()
	m.Lock()

	const n = 5
	order := make(chan int, n)
	var started sync.WaitGroup
	started.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			started.Done()
			m.Lock()
			order <- i
			m.Unlock()
		}(i)
	}
	started.Wait()
	time.Sleep(20 * time.Millisecond) // let all goroutines enqueue

	m.Unlock() // release initial lock, waking waiters one at a time
	got := make([]int, 0, n)
	for i := 0; i < n; i++ {
		got = append(got, <-order)
	}
	require.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestSemaphoreDownBlocksUntilUp(t *testing.T) {
	s := NewSemaphore(0)
	done := make(chan struct{})
	go func() {
		s.Down()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Down returned before Up")
	case <-time.After(20 * time.Millisecond):
	}

	s.Up()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Down never unblocked after Up")
	}
}

func TestSemaphoreCountNonBlocking(t *testing.T) {
	s := NewSemaphore(2)
	s.Down()
	s.Down()
	require.Equal(t, 0, s.Count())
}

func TestCondvarSignalWakesOneWaiter(t *testing.T) {
	m := NewMutexBlocking()
	cv := NewCondvar()
	var woke int32

	const n = 3
	var started sync.WaitGroup
	started.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			m.Lock()
			started.Done()
			cv.Wait(m)
			atomic.AddInt32(&woke, 1)
			m.Unlock()
		}()
	}
	started.Wait()
	time.Sleep(20 * time.Millisecond)

	cv.Signal()
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, int32(1), atomic.LoadInt32(&woke))

	cv.Signal()
	cv.Signal()
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, int32(3), atomic.LoadInt32(&woke))
}
