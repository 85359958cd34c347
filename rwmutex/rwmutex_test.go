package rwmutex

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmlloyd/jsr166-sub001/mutex"
)

func TestConcurrentReaders(t *testing.T) {
	rw := New()
	const n = 5
	var wg sync.WaitGroup
	wg.Add(n)
	start := make(chan struct{})
	entered := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			<-start
			rw.ReadLock()
			entered <- struct{}{}
			time.Sleep(30 * time.Millisecond)
			rw.ReadUnlock()
		}()
	}
	close(start)
	for i := 0; i < n; i++ {
		select {
		case <-entered:
		case <-time.After(time.Second):
			t.Fatal("not all readers entered concurrently")
		}
	}
	wg.Wait()
}

func TestWriterExcludesReaders(t *testing.T) {
	rw := New()
	owner := mutex.NewOwner()
	rw.WriteLock(owner)

	readerDone := make(chan struct{})
	go func() {
		rw.ReadLock()
		close(readerDone)
		rw.ReadUnlock()
	}()

	select {
	case <-readerDone:
		t.Fatal("reader entered while writer held the lock")
	case <-time.After(30 * time.Millisecond):
	}

	require.NoError(t, rw.WriteUnlock(owner))
	select {
	case <-readerDone:
	case <-time.After(time.Second):
		t.Fatal("reader never entered after writer released")
	}
}

func TestSixthReaderTryLockFailsWhileWriterWaiting(t *testing.T) {
	rw := New()
	const readers = 5
	for i := 0; i < readers; i++ {
		rw.ReadLock()
	}

	writerAcquired := make(chan struct{})
	writerOwner := mutex.NewOwner()
	go func() {
		rw.WriteLock(writerOwner)
		close(writerAcquired)
	}()
	time.Sleep(30 * time.Millisecond) // let the writer register as waiting

	assert.False(t, rw.TryReadLock(), "sixth reader must fail fast while a writer waits")

	for i := 0; i < readers; i++ {
		rw.ReadUnlock()
	}

	select {
	case <-writerAcquired:
	case <-time.After(time.Second):
		t.Fatal("writer never acquired after readers released")
	}
	require.NoError(t, rw.WriteUnlock(writerOwner))
}

func TestDowngrade(t *testing.T) {
	rw := New()
	owner := mutex.NewOwner()
	rw.WriteLock(owner)
	require.NoError(t, rw.Downgrade(owner))

	// Other readers may now enter.
	otherReaderDone := make(chan struct{})
	go func() {
		rw.ReadLock()
		close(otherReaderDone)
		rw.ReadUnlock()
	}()
	select {
	case <-otherReaderDone:
	case <-time.After(time.Second):
		t.Fatal("other reader could not enter after downgrade")
	}
	rw.ReadUnlock() // release the downgraded read lock
}

func TestReaderNewConditionUnsupported(t *testing.T) {
	rw := New()
	_, err := rw.ReaderNewCondition()
	assert.ErrorIs(t, err, ErrUnsupported)
}
