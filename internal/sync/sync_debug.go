//go:build deadlock

// Package sync aliases the lock types used on the engine's concurrent
// paths. Building with -tags deadlock maps them to go-deadlock
// wrappers that report lock-order inversions and long waits.
package sync

import (
	"os"
	"sync"
	"time"

	"github.com/sasha-s/go-deadlock"
)

// Mutex is a mutual exclusion lock with deadlock detection.
type Mutex = deadlock.Mutex

// RWMutex is a reader/writer lock with deadlock detection.
type RWMutex = deadlock.RWMutex

// Locker is the standard sync.Locker interface.
type Locker = sync.Locker

// Cond is the standard sync.Cond.
type Cond = sync.Cond

// NewCond returns a new Cond.
func NewCond(l Locker) *Cond {
	return sync.NewCond(l)
}

func init() {
	deadlock.Opts.DeadlockTimeout = 30 * time.Second
	deadlock.Opts.PrintAllCurrentGoroutines = true

	if os.Getenv("HOTVIEW_NO_DEADLOCK_DETECT") != "" {
		deadlock.Opts.Disable = true
		return
	}

	println("[DEADLOCK DETECTION ENABLED] lock types are go-deadlock wrappers")
}
