// Package loader runs block loads off the caller's goroutine.
//
// Work is submitted with a priority. Visible loads (rows the user is looking
// at) always run before prefetch loads. Each job carries the context it was
// submitted with; a job whose context is already canceled when a worker picks
// it up is skipped.
package loader

import (
	"context"
	"fmt"
)

// Priority orders queued work.
type Priority int

const (
	// PriorityVisible is for rows currently on screen.
	PriorityVisible Priority = iota
	// PriorityPrefetch is speculative work around the visible range.
	PriorityPrefetch
)

func (p Priority) String() string {
	switch p {
	case PriorityVisible:
		return "visible"
	case PriorityPrefetch:
		return "prefetch"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

// Func is a unit of work.
type Func func(ctx context.Context)

// Executor accepts work for asynchronous execution.
type Executor interface {
	// Submit queues fn. It never blocks; false means the work was not
	// accepted (queue full or executor stopped) and will never run.
	Submit(ctx context.Context, p Priority, fn Func) bool

	// Close stops accepting work and releases workers.
	Close()
}
