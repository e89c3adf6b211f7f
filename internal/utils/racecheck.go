//go:build !framegraph_optimize

package utils

import (
	"fmt"
	"sync/atomic"
)

// RaceCheckEnabled reports whether RaceCheck sections are verified in this build
const RaceCheckEnabled = true

const writerHeld int32 = -1

// RaceCheck detects conflicting access to data that is meant to be touched by a single writer
// at a time. It never blocks: a conflicting Lock or RLock panics immediately. Builds with the
// framegraph_optimize tag replace it with an empty struct.
type RaceCheck struct {
	name  string
	state atomic.Int32
}

// NewRaceCheck creates a named RaceCheck. The name is only used in panic messages.
func NewRaceCheck(name string) *RaceCheck {
	return &RaceCheck{name: name}
}

func (c *RaceCheck) Lock() {
	if !c.state.CompareAndSwap(0, writerHeld) {
		panic(fmt.Sprintf("race detected on %s: exclusive access requested while state is %d", c.label(), c.state.Load()))
	}
}

func (c *RaceCheck) Unlock() {
	if !c.state.CompareAndSwap(writerHeld, 0) {
		panic(fmt.Sprintf("race detected on %s: exclusive access released but was not held", c.label()))
	}
}

func (c *RaceCheck) RLock() {
	for {
		current := c.state.Load()
		if current == writerHeld {
			panic(fmt.Sprintf("race detected on %s: shared access requested during exclusive access", c.label()))
		}
		if c.state.CompareAndSwap(current, current+1) {
			return
		}
	}
}

func (c *RaceCheck) RUnlock() {
	if c.state.Add(-1) < 0 {
		panic(fmt.Sprintf("race detected on %s: shared access released but was not held", c.label()))
	}
}

func (c *RaceCheck) label() string {
	if c.name == "" {
		return "unnamed data"
	}
	return c.name
}
