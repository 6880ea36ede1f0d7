package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunnerShutdownRoutesQueuedJobsToDrop(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	started := make(chan struct{}, 1)
	var mu sync.Mutex
	var dropped []relationJob
	r := newRelationRunner(10, time.Second,
		func(ctx context.Context, job relationJob) {
			started <- struct{}{}
			<-release
		},
		func(job relationJob, reason string) {
			require.Equal(t, "dropped at shutdown", reason)
			mu.Lock()
			dropped = append(dropped, job)
			mu.Unlock()
		})

	stop := r.Start(1)
	r.Enqueue(relationJob{op: opFollow, followerID: "u1", followingID: "u2"})
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("worker never picked up the first job")
	}
	r.Enqueue(relationJob{op: opFollow, followerID: "u1", followingID: "u3"})
	r.Enqueue(relationJob{op: opUnfollow, followerID: "u1", followingID: "u4"})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, stop(ctx))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, dropped, 2)
	require.Equal(t, "u3", dropped[0].followingID)
	require.Equal(t, "u4", dropped[1].followingID)
}

func TestRunnerShutdownDrainsQueueBeforeDropping(t *testing.T) {
	var mu sync.Mutex
	var handled, dropped int
	r := newRelationRunner(10, time.Second,
		func(ctx context.Context, job relationJob) {
			mu.Lock()
			handled++
			mu.Unlock()
		},
		func(job relationJob, reason string) {
			mu.Lock()
			dropped++
			mu.Unlock()
		})

	stop := r.Start(1)
	for i := 0; i < 5; i++ {
		r.Enqueue(relationJob{op: opFollow, followerID: "a", followingID: "b"})
	}
	require.NoError(t, stop(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 5, handled)
	require.Zero(t, dropped)
}
