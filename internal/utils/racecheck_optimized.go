//go:build framegraph_optimize

package utils

// RaceCheckEnabled reports whether RaceCheck sections are verified in this build
const RaceCheckEnabled = false

// RaceCheck is compiled out in optimized builds
type RaceCheck struct{}

func NewRaceCheck(name string) *RaceCheck { return &RaceCheck{} }

func (c *RaceCheck) Lock()    {}
func (c *RaceCheck) Unlock()  {}
func (c *RaceCheck) RLock()   {}
func (c *RaceCheck) RUnlock() {}
