package memory

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/arsenal/memutils"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/framegraph/native"
	"golang.org/x/exp/slog"
)

// HostAllocator serves host-visible memory from persistently mapped blocks. Every Storage it
// produces carries a pointer into the mapping.
type HostAllocator struct {
	blocks blockStrategy
}

var _ Strategy = &HostAllocator{}

func NewHostAllocator(logger *slog.Logger, device native.MemoryDevice, options StrategyOptions) *HostAllocator {
	allocator := &HostAllocator{}
	allocator.blocks.init(allocator, logger, device, options.UseMutex, options.LargeHeapBlockSize, true, core1_0.MemoryPropertyHostVisible)
	return allocator
}

func (a *HostAllocator) Name() string { return "HostAllocator" }

func (a *HostAllocator) IsSupported(memoryType MemoryType) bool {
	return memoryType.HasHostAccess() && memoryType&(MemoryTypeVirtual|MemoryTypeLazilyAllocated) == 0
}

func (a *HostAllocator) AllocForImage(image native.Handle, desc MemoryDesc) (Storage, error) {
	return a.blocks.alloc(resourceKindImage, image, desc)
}

func (a *HostAllocator) AllocForBuffer(buffer native.Handle, desc MemoryDesc) (Storage, error) {
	return a.blocks.alloc(resourceKindBuffer, buffer, desc)
}

func (a *HostAllocator) AllocForAccelStruct(accelStruct native.Handle, desc MemoryDesc) (Storage, error) {
	return a.blocks.alloc(resourceKindAccelStruct, accelStruct, desc)
}

func (a *HostAllocator) Dealloc(storage *Storage) error {
	return a.blocks.dealloc(storage)
}

func (a *HostAllocator) MemoryInfo(storage *Storage) (MemoryInfo, error) {
	return a.blocks.memoryInfo(storage)
}

func (a *HostAllocator) AddStatistics(stats *memutils.Statistics) {
	a.blocks.addStatistics(stats)
}

func (a *HostAllocator) BuildStatsString(writer *jwriter.Writer) {
	a.blocks.buildStatsString(writer)
}

func (a *HostAllocator) Destroy() error {
	return a.blocks.destroy()
}
