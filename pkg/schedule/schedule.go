// Package schedule runs the repeating simulation timers. Every task belongs
// to a Group owned by one session; closing the group cancels all of them.
package schedule

import (
	"context"
	"sync"
	"time"
)

// Task is a repeating callback started by Group.Every.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Stop cancels the task without waiting. A callback already running keeps
// running, but sees its context cancelled; callbacks check ctx.Err() after
// taking their owner's lock so nothing is applied after Stop.
func (t *Task) Stop() {
	if t == nil {
		return
	}
	t.cancel()
}

// wait blocks until the task goroutine has exited.
func (t *Task) wait() {
	if t == nil {
		return
	}
	<-t.done
}

// Group owns a set of tasks and one-shot jobs.
type Group struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewGroup(parent context.Context) *Group {
	ctx, cancel := context.WithCancel(parent)
	return &Group{ctx: ctx, cancel: cancel}
}

// Every runs fn every interval until the task is stopped or the group closes.
// The first call happens one interval after Every returns.
func (g *Group) Every(interval time.Duration, fn func(ctx context.Context)) *Task {
	ctx, cancel := context.WithCancel(g.ctx)
	t := &Task{cancel: cancel, done: make(chan struct{})}
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer close(t.done)
		defer cancel()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if ctx.Err() != nil {
					return
				}
				fn(ctx)
			}
		}
	}()
	return t
}

// Go runs fn once in its own goroutine, tracked by the group.
func (g *Group) Go(fn func(ctx context.Context)) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		fn(g.ctx)
	}()
}

// Close cancels every task and job and waits for them to return. It must not
// be called while holding a lock the callbacks take.
func (g *Group) Close() {
	g.cancel()
	g.wg.Wait()
}
