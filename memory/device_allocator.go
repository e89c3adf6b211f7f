package memory

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/arsenal/memutils"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/framegraph/native"
	"golang.org/x/exp/slog"
)

// DeviceAllocator serves device-local memory that the host never maps
type DeviceAllocator struct {
	blocks blockStrategy
}

var _ Strategy = &DeviceAllocator{}

func NewDeviceAllocator(logger *slog.Logger, device native.MemoryDevice, options StrategyOptions) *DeviceAllocator {
	allocator := &DeviceAllocator{}
	allocator.blocks.init(allocator, logger, device, options.UseMutex, options.LargeHeapBlockSize, false, core1_0.MemoryPropertyDeviceLocal)
	return allocator
}

func (a *DeviceAllocator) Name() string { return "DeviceAllocator" }

func (a *DeviceAllocator) IsSupported(memoryType MemoryType) bool {
	return !memoryType.HasHostAccess() && memoryType&(MemoryTypeVirtual|MemoryTypeLazilyAllocated) == 0
}

func (a *DeviceAllocator) AllocForImage(image native.Handle, desc MemoryDesc) (Storage, error) {
	return a.blocks.alloc(resourceKindImage, image, desc)
}

func (a *DeviceAllocator) AllocForBuffer(buffer native.Handle, desc MemoryDesc) (Storage, error) {
	return a.blocks.alloc(resourceKindBuffer, buffer, desc)
}

func (a *DeviceAllocator) AllocForAccelStruct(accelStruct native.Handle, desc MemoryDesc) (Storage, error) {
	return a.blocks.alloc(resourceKindAccelStruct, accelStruct, desc)
}

func (a *DeviceAllocator) Dealloc(storage *Storage) error {
	return a.blocks.dealloc(storage)
}

func (a *DeviceAllocator) MemoryInfo(storage *Storage) (MemoryInfo, error) {
	return a.blocks.memoryInfo(storage)
}

func (a *DeviceAllocator) AddStatistics(stats *memutils.Statistics) {
	a.blocks.addStatistics(stats)
}

func (a *DeviceAllocator) BuildStatsString(writer *jwriter.Writer) {
	a.blocks.buildStatsString(writer)
}

func (a *DeviceAllocator) Destroy() error {
	return a.blocks.destroy()
}
