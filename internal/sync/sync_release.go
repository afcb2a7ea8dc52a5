//go:build !deadlock

// Package sync aliases the lock types used on the engine's concurrent
// paths. The default build maps them straight to the standard library;
// building with -tags deadlock swaps in go-deadlock wrappers that
// report lock-order inversions and long waits.
package sync

import "sync"

// Mutex is the standard sync.Mutex.
type Mutex = sync.Mutex

// RWMutex is the standard sync.RWMutex.
type RWMutex = sync.RWMutex

// Locker is the standard sync.Locker interface.
type Locker = sync.Locker

// Cond is the standard sync.Cond.
type Cond = sync.Cond

// NewCond returns a new Cond.
func NewCond(l Locker) *Cond {
	return sync.NewCond(l)
}
