package redisqueue

import (
	"context"
	"errors"
	"testing"
	"time"

	"transcode-worker/domain/queue"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mocks & Test Helpers ---

// fakeRedis models the two lists in memory
type fakeRedis struct {
	lists    map[string][]string
	blocking []time.Duration
	err      error
	// failAt makes the nth move (1-based) fail with err
	failAt int
	moves  int
}

func newFakeRedis(pending ...string) *fakeRedis {
	return &fakeRedis{lists: map[string][]string{"uploads": pending}}
}

func (f *fakeRedis) move(source, destination, srcpos, destpos string) *redis.StringCmd {
	f.moves++
	if f.err != nil && (f.failAt == 0 || f.moves == f.failAt) {
		return redis.NewStringResult("", f.err)
	}
	src := f.lists[source]
	if len(src) == 0 {
		return redis.NewStringResult("", redis.Nil)
	}
	var v string
	if srcpos == "RIGHT" {
		v = src[len(src)-1]
		f.lists[source] = src[:len(src)-1]
	} else {
		v = src[0]
		f.lists[source] = src[1:]
	}
	if destpos == "LEFT" {
		f.lists[destination] = append([]string{v}, f.lists[destination]...)
	} else {
		f.lists[destination] = append(f.lists[destination], v)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) BLMove(ctx context.Context, source, destination, srcpos, destpos string, timeout time.Duration) *redis.StringCmd {
	f.blocking = append(f.blocking, timeout)
	return f.move(source, destination, srcpos, destpos)
}

func (f *fakeRedis) LMove(ctx context.Context, source, destination, srcpos, destpos string) *redis.StringCmd {
	return f.move(source, destination, srcpos, destpos)
}

func (f *fakeRedis) LRem(ctx context.Context, key string, count int64, value interface{}) *redis.IntCmd {
	if f.err != nil && f.failAt == 0 {
		return redis.NewIntResult(0, f.err)
	}
	list := f.lists[key]
	for i, v := range list {
		if v == value {
			f.lists[key] = append(list[:i:i], list[i+1:]...)
			return redis.NewIntResult(1, nil)
		}
	}
	return redis.NewIntResult(0, nil)
}

func (f *fakeRedis) Ping(ctx context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", f.err)
}

// --- Tests ---

func TestNewQueue_RequiresName(t *testing.T) {
	_, err := NewQueue(newFakeRedis(), "", nil)
	assert.Error(t, err)
}

func TestQueue_Receive_MovesToProcessing(t *testing.T) {
	fake := newFakeRedis("one", "two", "three")
	q, err := NewQueue(fake, "uploads", nil)
	require.NoError(t, err)

	msgs, err := q.Receive(context.Background(), queue.ReceiveOptions{MaxMessages: 2, WaitTime: 20 * time.Second})
	require.NoError(t, err)

	require.Len(t, msgs, 2)
	assert.Equal(t, "one", msgs[0].Body)
	assert.Equal(t, "one", msgs[0].ReceiptHandle)
	assert.Equal(t, "two", msgs[1].Body)
	assert.NotEqual(t, msgs[0].ID, msgs[1].ID)

	assert.Equal(t, []string{"three"}, fake.lists["uploads"])
	assert.Equal(t, []string{"one", "two"}, fake.lists["uploads:processing"])
	assert.Equal(t, []time.Duration{20 * time.Second}, fake.blocking, "only the first move blocks")
}

func TestQueue_Receive_NoWaitNeverBlocks(t *testing.T) {
	fake := newFakeRedis("one")
	q, err := NewQueue(fake, "uploads", nil)
	require.NoError(t, err)

	msgs, err := q.Receive(context.Background(), queue.ReceiveOptions{MaxMessages: 1})
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
	assert.Empty(t, fake.blocking)
}

func TestQueue_Receive_Empty(t *testing.T) {
	q, err := NewQueue(newFakeRedis(), "uploads", nil)
	require.NoError(t, err)

	msgs, err := q.Receive(context.Background(), queue.ReceiveOptions{MaxMessages: 10, WaitTime: time.Second})
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestQueue_Receive_Error(t *testing.T) {
	fake := newFakeRedis("one")
	fake.err = errors.New("READONLY")
	q, err := NewQueue(fake, "uploads", nil)
	require.NoError(t, err)

	_, err = q.Receive(context.Background(), queue.ReceiveOptions{MaxMessages: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "READONLY")
}

func TestQueue_Delete(t *testing.T) {
	fake := newFakeRedis("one", "two")
	q, err := NewQueue(fake, "uploads", nil)
	require.NoError(t, err)

	msgs, err := q.Receive(context.Background(), queue.ReceiveOptions{MaxMessages: 2})
	require.NoError(t, err)

	require.NoError(t, q.Delete(context.Background(), msgs[0].ReceiptHandle))
	assert.Equal(t, []string{"two"}, fake.lists["uploads:processing"])

	// Unknown handles are tolerated
	require.NoError(t, q.Delete(context.Background(), "missing"))
}

func TestQueue_Receive_KeepsMovedOnLaterFailure(t *testing.T) {
	fake := newFakeRedis("one", "two", "three")
	fake.err = errors.New("connection reset")
	fake.failAt = 2
	q, err := NewQueue(fake, "uploads", nil)
	require.NoError(t, err)

	msgs, err := q.Receive(context.Background(), queue.ReceiveOptions{MaxMessages: 3})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "one", msgs[0].ReceiptHandle)

	assert.Equal(t, []string{"two", "three"}, fake.lists["uploads"])
	assert.Equal(t, []string{"one"}, fake.lists["uploads:processing"])

	// the returned message can still be acknowledged
	require.NoError(t, q.Delete(context.Background(), msgs[0].ReceiptHandle))
	assert.Empty(t, fake.lists["uploads:processing"])
}

func TestQueue_Receive_FirstMoveFailure(t *testing.T) {
	fake := newFakeRedis("one")
	fake.err = errors.New("connection reset")
	fake.failAt = 1
	q, err := NewQueue(fake, "uploads", nil)
	require.NoError(t, err)

	msgs, err := q.Receive(context.Background(), queue.ReceiveOptions{MaxMessages: 3})
	require.Error(t, err)
	assert.Nil(t, msgs)
	assert.Equal(t, []string{"one"}, fake.lists["uploads"])
}

func TestQueue_Requeue_RestoresOrder(t *testing.T) {
	fake := newFakeRedis("three")
	fake.lists["uploads:processing"] = []string{"one", "two"}
	q, err := NewQueue(fake, "uploads", nil)
	require.NoError(t, err)

	n, err := q.Requeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"one", "two", "three"}, fake.lists["uploads"])
	assert.Empty(t, fake.lists["uploads:processing"])

	msgs, err := q.Receive(context.Background(), queue.ReceiveOptions{MaxMessages: 1})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "one", msgs[0].Body)
}

func TestQueue_Requeue_Error(t *testing.T) {
	fake := newFakeRedis()
	fake.lists["uploads:processing"] = []string{"one"}
	fake.err = errors.New("connection reset")
	q, err := NewQueue(fake, "uploads", nil)
	require.NoError(t, err)

	n, err := q.Requeue(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, n)
}
