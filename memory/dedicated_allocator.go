package memory

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/arsenal/memutils"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/framegraph/internal/utils"
	"github.com/vkngwrapper/framegraph/native"
	"golang.org/x/exp/slog"
)

type dedicatedAllocation struct {
	memoryTypeIndex int
	size            int
	mapped          bool
}

// DedicatedAllocator gives each resource a native allocation of its own. It serves requests
// flagged Dedicated and transient LazilyAllocated attachments.
type DedicatedAllocator struct {
	logger     *slog.Logger
	device     native.MemoryDevice
	properties native.MemoryProperties

	mutex       utils.OptionalRWMutex
	allocations *swiss.Map[native.Handle, dedicatedAllocation]
}

var _ Strategy = &DedicatedAllocator{}

func NewDedicatedAllocator(logger *slog.Logger, device native.MemoryDevice, options StrategyOptions) *DedicatedAllocator {
	return &DedicatedAllocator{
		logger:      utils.LoggerOrNop(logger),
		device:      device,
		properties:  device.MemoryProperties(),
		mutex:       utils.OptionalRWMutex{UseMutex: options.UseMutex},
		allocations: swiss.NewMap[native.Handle, dedicatedAllocation](16),
	}
}

func (a *DedicatedAllocator) Name() string { return "DedicatedAllocator" }

func (a *DedicatedAllocator) IsSupported(memoryType MemoryType) bool {
	return memoryType&(MemoryTypeDedicated|MemoryTypeLazilyAllocated) != 0 && memoryType&MemoryTypeVirtual == 0
}

func (a *DedicatedAllocator) alloc(kind resourceKind, handle native.Handle, desc MemoryDesc) (Storage, error) {
	err := checkRequest(&a.properties, kind, desc)
	if err != nil {
		return Storage{}, err
	}

	required, preferred, notPreferred := desc.Type.PropertyPreferences()
	memTypeIndex := findMemoryTypeIndex(&a.properties, desc.Requirements.MemoryTypeBits, required, preferred, notPreferred)
	if memTypeIndex < 0 {
		return Storage{}, errors.Wrapf(ErrUnsupported, "no memory type in bits %#x has flags %s", desc.Requirements.MemoryTypeBits, required)
	}

	size := desc.Requirements.Size
	memory, _, err := a.device.AllocateMemory(memTypeIndex, size)
	if err != nil {
		return Storage{}, err
	}

	storage := Storage{
		Strategy:        a,
		Memory:          memory,
		MemoryTypeIndex: memTypeIndex,
		Size:            size,
	}

	flags := a.properties.MemoryTypes[memTypeIndex].PropertyFlags
	if desc.Type.HasHostAccess() && flags&core1_0.MemoryPropertyHostVisible != 0 {
		storage.MappedData, _, err = a.device.MapMemory(memory, 0, size)
		if err != nil {
			a.device.FreeMemory(memory)
			return Storage{}, err
		}
	}

	err = bindResource(a.device, kind, handle, memory, 0)
	if err != nil {
		if storage.MappedData != nil {
			a.device.UnmapMemory(memory)
		}
		a.device.FreeMemory(memory)
		return Storage{}, err
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.allocations.Put(memory, dedicatedAllocation{
		memoryTypeIndex: memTypeIndex,
		size:            size,
		mapped:          storage.MappedData != nil,
	})

	return storage, nil
}

func (a *DedicatedAllocator) AllocForImage(image native.Handle, desc MemoryDesc) (Storage, error) {
	return a.alloc(resourceKindImage, image, desc)
}

func (a *DedicatedAllocator) AllocForBuffer(buffer native.Handle, desc MemoryDesc) (Storage, error) {
	return a.alloc(resourceKindBuffer, buffer, desc)
}

func (a *DedicatedAllocator) AllocForAccelStruct(accelStruct native.Handle, desc MemoryDesc) (Storage, error) {
	return a.alloc(resourceKindAccelStruct, accelStruct, desc)
}

func (a *DedicatedAllocator) Dealloc(storage *Storage) error {
	a.mutex.Lock()
	allocation, ok := a.allocations.Get(storage.Memory)
	if ok {
		a.allocations.Delete(storage.Memory)
	}
	a.mutex.Unlock()

	if !ok {
		return errors.Newf("memory %d was not allocated by %s", storage.Memory, a.Name())
	}

	a.free(storage.Memory, allocation)
	return nil
}

func (a *DedicatedAllocator) free(memory native.Handle, allocation dedicatedAllocation) {
	if allocation.mapped {
		a.device.UnmapMemory(memory)
	}
	a.device.FreeMemory(memory)
}

func (a *DedicatedAllocator) MemoryInfo(storage *Storage) (MemoryInfo, error) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	allocation, ok := a.allocations.Get(storage.Memory)
	if !ok {
		return MemoryInfo{}, errors.Newf("memory %d was not allocated by %s", storage.Memory, a.Name())
	}

	return MemoryInfo{
		Memory:        storage.Memory,
		PropertyFlags: a.properties.MemoryTypes[allocation.memoryTypeIndex].PropertyFlags,
		Size:          allocation.size,
		MappedData:    storage.MappedData,
	}, nil
}

func (a *DedicatedAllocator) AddStatistics(stats *memutils.Statistics) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	a.allocations.Iter(func(_ native.Handle, allocation dedicatedAllocation) bool {
		stats.BlockCount++
		stats.BlockBytes += allocation.size
		stats.AllocationCount++
		stats.AllocationBytes += allocation.size
		return false
	})
}

func (a *DedicatedAllocator) BuildStatsString(writer *jwriter.Writer) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	s := writer.Array()
	defer s.End()

	a.allocations.Iter(func(memory native.Handle, allocation dedicatedAllocation) bool {
		o := s.Object()
		o.Name("Memory").Int(int(memory))
		o.Name("MemoryTypeIndex").Int(allocation.memoryTypeIndex)
		o.Name("Size").Int(allocation.size)
		o.Name("Mapped").Bool(allocation.mapped)
		o.End()
		return false
	})
}

func (a *DedicatedAllocator) Destroy() error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	leaked := a.allocations.Count()
	a.allocations.Iter(func(memory native.Handle, allocation dedicatedAllocation) bool {
		a.logger.LogAttrs(context.Background(), slog.LevelError, "[UNRELEASED MEMORY] unfreed dedicated allocation",
			slog.Uint64("memory", uint64(memory)),
			slog.Int("size", allocation.size),
		)
		a.free(memory, allocation)
		return false
	})
	a.allocations.Clear()

	if leaked > 0 {
		return errors.Newf("%d dedicated allocations were not freed before the destruction of %s", leaked, a.Name())
	}
	return nil
}
