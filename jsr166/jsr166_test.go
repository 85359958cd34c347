package jsr166

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmlloyd/jsr166-sub001/forkjoin"
)

func TestConstructorsReturnUsablePrimitives(t *testing.T) {
	m := NewMutex()
	owner := NewOwner()
	m.Lock(owner)
	require.NoError(t, m.Unlock(owner))

	rw := NewReentrantReadWriteMutex()
	rw.ReadLock()
	rw.ReadUnlock()

	q, err := NewLinkedBlockingQueue[int](2)
	require.NoError(t, err)
	require.True(t, q.OfferNonBlocking(1))
	v, ok := q.PollNonBlocking()
	require.True(t, ok)
	assert.Equal(t, 1, v)

	sq := NewSynchronousQueue[int]()
	go func() { _ = sq.Put(context.Background(), 7) }()
	got, err := sq.Take(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, got)

	pool := NewForkJoinPool(2)
	defer pool.Shutdown()
	task := forkjoin.NewTask(func(w *forkjoin.Worker) (int, error) { return 3, nil })
	pool.Submit(task)
	result, err := task.Join(nil)
	require.NoError(t, err)
	assert.Equal(t, 3, result)

	timer := NewScheduledTimer()
	defer func() { _ = timer.Shutdown(context.Background()) }()
	fired := make(chan struct{}, 1)
	_, err = timer.Schedule(func() error { fired <- struct{}{}; return nil }, time.Millisecond)
	require.NoError(t, err)
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("scheduled task never fired")
	}

	sref := NewStampedReference("a", 0)
	val, stamp := sref.Get()
	assert.Equal(t, "a", val)
	assert.Equal(t, 0, stamp)

	mref := NewMarkedReference(42, false)
	mval, mark := mref.Get()
	assert.Equal(t, 42, mval)
	assert.False(t, mark)
}
