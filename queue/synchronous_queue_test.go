package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynchronousQueuePutBlocksUntilTake(t *testing.T) {
	q := NewSynchronousQueue[int]()
	putDone := make(chan struct{})
	go func() {
		require.NoError(t, q.Put(context.Background(), 7))
		close(putDone)
	}()

	select {
	case <-putDone:
		t.Fatal("put should block until a consumer arrives")
	case <-time.After(30 * time.Millisecond):
	}

	v, err := q.Take(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	select {
	case <-putDone:
	case <-time.After(time.Second):
		t.Fatal("put never unblocked after take")
	}
}

func TestSynchronousQueueTakeBlocksUntilPut(t *testing.T) {
	q := NewSynchronousQueue[string]()
	takeDone := make(chan string, 1)
	go func() {
		v, err := q.Take(context.Background())
		require.NoError(t, err)
		takeDone <- v
	}()

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, q.Put(context.Background(), "hello"))

	select {
	case v := <-takeDone:
		assert.Equal(t, "hello", v)
	case <-time.After(time.Second):
		t.Fatal("take never received the handed-off item")
	}
}

// TestTwoProducersOneConsumerScenario reproduces spec §8 scenario 2: two
// producers P1 and P2 each put a distinct value with no consumer present,
// and a single consumer C1 takes twice, observing both values exactly once
// between them (order between the two producers is unspecified, since
// neither arrived before the other was waiting).
func TestTwoProducersOneConsumerScenario(t *testing.T) {
	q := NewSynchronousQueue[int]()
	done := make(chan error, 2)
	go func() { done <- q.Put(context.Background(), 1) }()
	go func() { done <- q.Put(context.Background(), 2) }()

	seen := make(map[int]bool)
	for i := 0; i < 2; i++ {
		v, err := q.Take(context.Background())
		require.NoError(t, err)
		seen[v] = true
	}
	assert.True(t, seen[1])
	assert.True(t, seen[2])

	for i := 0; i < 2; i++ {
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("a put never completed")
		}
	}
}

func TestSynchronousQueueLenAndToArrayAlwaysEmpty(t *testing.T) {
	q := NewSynchronousQueue[int]()
	assert.Equal(t, 0, q.Len())
	assert.Nil(t, q.ToArray())
}

func TestPutTimeoutFailsWithNoConsumer(t *testing.T) {
	q := NewSynchronousQueue[int]()
	ok, err := q.PutTimeout(context.Background(), 1, 30*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTakeTimeoutFailsWithNoProducer(t *testing.T) {
	q := NewSynchronousQueue[int]()
	_, ok, err := q.TakeTimeout(context.Background(), 30*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPutTimeoutSucceedsWhenConsumerArrivesInTime(t *testing.T) {
	q := NewSynchronousQueue[int]()
	takeDone := make(chan int, 1)
	go func() {
		v, err := q.Take(context.Background())
		require.NoError(t, err)
		takeDone <- v
	}()
	time.Sleep(10 * time.Millisecond)
	ok, err := q.PutTimeout(context.Background(), 9, time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 9, <-takeDone)
}

func TestPutInterruptedWhileWaitingFailsAndDoesNotDeliver(t *testing.T) {
	q := NewSynchronousQueue[int]()
	ctx, cancel := context.WithCancel(context.Background())

	putErr := make(chan error, 1)
	go func() {
		putErr <- q.Put(ctx, 5)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-putErr:
		assert.ErrorIs(t, err, ErrInterrupted)
	case <-time.After(time.Second):
		t.Fatal("put never observed cancellation")
	}

	// The cancelled producer must not be visible to a subsequent consumer.
	_, ok, err := q.TakeTimeout(context.Background(), 30*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnfairSynchronousQueueHandsOff(t *testing.T) {
	q := NewUnfairSynchronousQueue[int]()
	takeDone := make(chan int, 1)
	go func() {
		v, err := q.Take(context.Background())
		require.NoError(t, err)
		takeDone <- v
	}()
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, q.Put(context.Background(), 3))
	assert.Equal(t, 3, <-takeDone)
}
