package memory

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/arsenal/memutils"
	"github.com/vkngwrapper/framegraph/native"
)

// MaxStrategies is the maximum number of strategies a Manager can hold
const MaxStrategies = 16

// Strategy is one way of satisfying memory requests. The Manager offers each request to its
// strategies in registration order.
type Strategy interface {
	Name() string
	// IsSupported reports whether the strategy will attempt requests of this type
	IsSupported(memoryType MemoryType) bool

	AllocForImage(image native.Handle, desc MemoryDesc) (Storage, error)
	AllocForBuffer(buffer native.Handle, desc MemoryDesc) (Storage, error)
	AllocForAccelStruct(accelStruct native.Handle, desc MemoryDesc) (Storage, error)
	Dealloc(storage *Storage) error
	MemoryInfo(storage *Storage) (MemoryInfo, error)

	AddStatistics(stats *memutils.Statistics)
	BuildStatsString(writer *jwriter.Writer)
	// Destroy frees every native allocation the strategy holds. It returns an error if any
	// allocation was still live.
	Destroy() error
}
