package common

import "sync/atomic"

// ReentrancyGuard rejects nested entry into a value-moving operation.
type ReentrancyGuard struct {
	entered atomic.Bool
}

// Enter marks the guard as held or returns ErrReentrantCall.
func (g *ReentrancyGuard) Enter() error {
	if !g.entered.CompareAndSwap(false, true) {
		return ErrReentrantCall
	}
	return nil
}

// Exit releases the guard.
func (g *ReentrancyGuard) Exit() {
	g.entered.Store(false)
}
