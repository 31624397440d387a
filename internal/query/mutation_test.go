package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded(t *testing.T, c *Cache, key Key, calls *int32) {
	t.Helper()
	rec := newRecorder()
	t.Cleanup(c.Subscribe(key, rec.fn))
	c.Query(key, counting(calls, func(n int32) (any, error) { return n, nil }))
	rec.settled(t)
}

func TestMutateRefetchesDeclaredKeys(t *testing.T) {
	c := New()
	var taskCalls, userCalls int32
	seeded(t, c, KeyTasks, &taskCalls)
	seeded(t, c, KeyUsers, &userCalls)

	got, err := Mutate(context.Background(), c, CreateTask, func(context.Context) (string, error) {
		return "created", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "created", got)

	e, _ := c.Get(KeyTasks)
	assert.Equal(t, int32(2), e.Data, "tasks refetched before Mutate returns")
	assert.False(t, e.Stale)
	assert.Equal(t, int32(1), atomic.LoadInt32(&userCalls), "undeclared key untouched")
}

func TestMutateFailureLeavesCacheUntouched(t *testing.T) {
	c := New()
	var calls int32
	seeded(t, c, KeyTasks, &calls)
	before, _ := c.Get(KeyTasks)

	boom := errors.New("rejected")
	_, err := Mutate(context.Background(), c, DeleteTask, func(context.Context) (struct{}, error) {
		return struct{}{}, boom
	})
	require.ErrorIs(t, err, boom)

	after, _ := c.Get(KeyTasks)
	assert.Equal(t, before, after)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestMutateSucceedsWhenRefetchFails(t *testing.T) {
	c := New()
	rec := newRecorder()
	defer c.Subscribe(KeyProfile, rec.fn)()

	var fail atomic.Bool
	c.Query(KeyProfile, func(context.Context) (any, error) {
		if fail.Load() {
			return nil, errors.New("offline")
		}
		return "before", nil
	})
	rec.settled(t)

	fail.Store(true)
	_, err := Mutate(context.Background(), c, UpdateProfile, func(context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)

	e, _ := c.Get(KeyProfile)
	assert.Equal(t, "before", e.Data)
	assert.Error(t, e.Err)
}

func TestAssignTaskInvalidatesAssigneeList(t *testing.T) {
	m := AssignTask("u7")
	assert.Equal(t, []Key{KeyTasks, "tasks-for-user:u7"}, m.Invalidates)
}

func TestMutateRefetchesPastInFlightFetch(t *testing.T) {
	c := New()
	rec := newRecorder()
	defer c.Subscribe(KeyTasks, rec.fn)()

	var mu sync.Mutex
	server := []string{}
	gate := make(chan struct{})
	started := make(chan struct{})
	var calls int32
	c.Query(KeyTasks, func(context.Context) (any, error) {
		mu.Lock()
		snapshot := append([]string(nil), server...)
		mu.Unlock()
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
			<-gate
		}
		return snapshot, nil
	})
	<-started

	_, err := Mutate(context.Background(), c, CreateTask, func(context.Context) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		server = append(server, "T1")
		return "T1", nil
	})
	require.NoError(t, err)
	close(gate)

	e, _ := c.Get(KeyTasks)
	assert.Equal(t, []string{"T1"}, e.Data)
}
