package service

import (
	"context"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/d60-Lab/profile-service/pkg/logger"
)

const (
	opFollow   = "follow"
	opUnfollow = "unfollow"
)

type relationJob struct {
	op          string
	followerID  string
	followingID string
}

// relationRunner executes follow/unfollow jobs after the HTTP response has
// already been flushed. The queue is bounded; a full queue rejects the job
// instead of blocking the request path.
type relationRunner struct {
	ch      chan relationJob
	handle  func(ctx context.Context, job relationJob)
	onDrop  func(job relationJob, reason string)
	timeout time.Duration
}

func newRelationRunner(queueSize int, timeout time.Duration, handle func(context.Context, relationJob), onDrop func(relationJob, string)) *relationRunner {
	if queueSize <= 0 {
		queueSize = 10000
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &relationRunner{
		ch:      make(chan relationJob, queueSize),
		handle:  handle,
		onDrop:  onDrop,
		timeout: timeout,
	}
}

// Start launches the worker pool and returns a shutdown func. On shutdown
// the workers first drain what is already queued; jobs still left after the
// grace period are routed through onDrop so they are never silently lost.
func (r *relationRunner) Start(workers int) func(context.Context) error {
	if workers <= 0 {
		workers = 4
	}
	stopCh := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for {
				select {
				case job := <-r.ch:
					r.run(job)
				case <-stopCh:
					// finish what is already queued before exiting
					for {
						select {
						case job := <-r.ch:
							r.run(job)
						default:
							return
						}
					}
				}
			}
		}()
	}
	return func(ctx context.Context) error {
		close(stopCh)
		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
		case <-ctx.Done():
		}
		// anything still queued will never run in this process
		for {
			select {
			case job := <-r.ch:
				logger.Warn("relation job dropped at shutdown",
					zap.String("op", job.op),
					zap.String("follower", job.followerID),
					zap.String("following", job.followingID))
				if r.onDrop != nil {
					r.onDrop(job, "dropped at shutdown")
				}
			default:
				return nil
			}
		}
	}
}

// run is the error boundary for one background operation: whatever happens
// inside handle must end in a dead letter or a log line, never a crash.
func (r *relationRunner) run(job relationJob) {
	defer func() {
		if rec := recover(); rec != nil {
			sentry.CurrentHub().Recover(rec)
			logger.Error("panic in background relation job",
				zap.Any("panic", rec),
				zap.String("op", job.op),
				zap.String("follower", job.followerID),
				zap.String("following", job.followingID))
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	r.handle(ctx, job)
}

func (r *relationRunner) Enqueue(job relationJob) {
	select {
	case r.ch <- job:
	default:
		logger.Warn("relation runner queue full, drop job",
			zap.String("op", job.op),
			zap.String("follower", job.followerID),
			zap.String("following", job.followingID))
		if r.onDrop != nil {
			r.onDrop(job, "background queue full")
		}
	}
}
