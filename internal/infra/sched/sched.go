// Package sched provides the timer-backed Scheduler implementation.
package sched

import (
	"time"

	"github.com/okatsu/habitask/internal/domain"
)

// Ensure Real implements domain.Scheduler.
var _ domain.Scheduler = Real{}

// Real schedules functions with time.AfterFunc.
type Real struct{}

// AfterFunc runs fn after d on its own goroutine. The returned cancel
// function stops the pending run; it is a no-op once fn has started.
func (Real) AfterFunc(d time.Duration, fn func()) (cancel func()) {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}
