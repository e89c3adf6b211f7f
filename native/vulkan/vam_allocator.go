package vulkan

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/arsenal/memutils"
	"github.com/vkngwrapper/arsenal/vam"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/core/v2/driver"
	"github.com/vkngwrapper/extensions/v2/khr_external_memory_capabilities"
	"github.com/vkngwrapper/framegraph/internal/utils"
	"github.com/vkngwrapper/framegraph/memory"
	"github.com/vkngwrapper/framegraph/native"
	"golang.org/x/exp/slog"
)

// VamOptions contains the vam settings of a VamAllocator
type VamOptions struct {
	// HeapSizeLimits caps the bytes allocated from each heap. A zero entry leaves the heap
	// unlimited. It may be left empty.
	HeapSizeLimits []int
	// ExternalMemoryHandleTypes exports the memory of each memory type with these handle types.
	// It may be left empty.
	ExternalMemoryHandleTypes []khr_external_memory_capabilities.ExternalMemoryHandleTypeFlags
}

type vamAllocation struct {
	resource native.Handle
	memory   native.Handle
	mapped   bool
}

type sharedMemory struct {
	handle native.Handle
	refs   int
}

// VamAllocator hands requests to a vam.Allocator. Resources are resolved through the Device
// registry, and every vam memory block is published as borrowed Device memory while an
// allocation lives in it. The *vam.Allocation is kept in Storage.BlockData.
type VamAllocator struct {
	logger    *slog.Logger
	device    *Device
	allocator *vam.Allocator

	mutex       utils.OptionalRWMutex
	allocations *swiss.Map[*vam.Allocation, vamAllocation]
	memories    *swiss.Map[driver.VkDeviceMemory, *sharedMemory]

	blockCount int
	blockBytes int
}

var _ memory.Strategy = &VamAllocator{}

// NewVamAllocator creates a vam.Allocator over the Device's core device. vam requires external
// memory support (core 1.1 or khr_external_memory), and its per-heap settings are also indexed by
// memory type, so physical devices with more memory types than heaps are refused.
func NewVamAllocator(logger *slog.Logger, instance core1_0.Instance, physicalDevice core1_0.PhysicalDevice, device *Device, options memory.StrategyOptions, vamOptions VamOptions) (*VamAllocator, error) {
	logger = utils.LoggerOrNop(logger)

	heapCount := len(device.properties.MemoryHeaps)
	if len(device.properties.MemoryTypes) > heapCount {
		return nil, errors.Wrapf(memory.ErrUnsupported, "vam cannot serve %d memory types from %d heaps", len(device.properties.MemoryTypes), heapCount)
	}

	heapSizeLimits := vamOptions.HeapSizeLimits
	if len(heapSizeLimits) == 0 {
		heapSizeLimits = make([]int, heapCount)
	}
	externalTypes := vamOptions.ExternalMemoryHandleTypes
	if len(externalTypes) == 0 {
		externalTypes = make([]khr_external_memory_capabilities.ExternalMemoryHandleTypeFlags, heapCount)
	}

	a := &VamAllocator{
		logger:      logger,
		device:      device,
		mutex:       utils.OptionalRWMutex{UseMutex: options.UseMutex},
		allocations: swiss.NewMap[*vam.Allocation, vamAllocation](16),
		memories:    swiss.NewMap[driver.VkDeviceMemory, *sharedMemory](8),
	}

	var flags vam.CreateFlags
	if !options.UseMutex {
		flags |= vam.AllocatorCreateExternallySynchronized
	}

	var err error
	a.allocator, err = vam.New(logger, instance, physicalDevice, device.device, vam.CreateOptions{
		Flags:                       flags,
		PreferredLargeHeapBlockSize: options.LargeHeapBlockSize,
		VulkanCallbacks:             device.callbacks,
		MemoryCallbackOptions: &vam.MemoryCallbackOptions{
			Allocate: a.blockAllocated,
			Free:     a.blockFreed,
		},
		HeapSizeLimits:            heapSizeLimits,
		ExternalMemoryHandleTypes: externalTypes,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (a *VamAllocator) blockAllocated(_ *vam.Allocator, memoryType int, _ core1_0.DeviceMemory, size int, _ any) {
	a.mutex.Lock()
	a.blockCount++
	a.blockBytes += size
	a.mutex.Unlock()

	a.logger.Debug("VamAllocator::BlockAllocated", slog.Int("memoryType", memoryType), slog.Int("size", size))
}

func (a *VamAllocator) blockFreed(_ *vam.Allocator, memoryType int, _ core1_0.DeviceMemory, size int, _ any) {
	a.mutex.Lock()
	a.blockCount--
	a.blockBytes -= size
	a.mutex.Unlock()

	a.logger.Debug("VamAllocator::BlockFreed", slog.Int("memoryType", memoryType), slog.Int("size", size))
}

// contain runs a vam call that releases memory. vam reports some of its own bookkeeping failures
// by panicking after the native memory has been released.
func (a *VamAllocator) contain(release func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("vam panicked while releasing memory", slog.Any("panic", r))
			err = errors.Newf("vam panicked while releasing memory: %v", r)
		}
	}()
	return release()
}

func (a *VamAllocator) Name() string { return "VamAllocator" }

func (a *VamAllocator) IsSupported(memoryType memory.MemoryType) bool {
	return memoryType&memory.MemoryTypeVirtual == 0
}

func vamCreateInfo(resource native.Handle, memoryType memory.MemoryType) vam.AllocationCreateInfo {
	required, preferred, _ := memoryType.PropertyPreferences()
	info := vam.AllocationCreateInfo{
		RequiredFlags:  required,
		PreferredFlags: preferred,
		UserData:       resource,
	}

	switch {
	case memoryType&(memory.MemoryTypeHostRead|memory.MemoryTypeHostCached) != 0:
		info.Flags |= memutils.AllocationCreateHostAccessRandom
	case memoryType.HasHostAccess():
		info.Flags |= memutils.AllocationCreateHostAccessSequentialWrite
	}
	if memoryType&memory.MemoryTypeDedicated != 0 {
		info.Flags |= memutils.AllocationCreateDedicatedMemory
	}
	if memoryType&memory.MemoryTypeLazilyAllocated != 0 {
		info.Usage = vam.MemoryUsageGPULazilyAllocated
	}
	return info
}

func checkVamSize(desc memory.MemoryDesc) error {
	if desc.Requirements.Size < 1 {
		return errors.Wrapf(memory.ErrUnsupported, "invalid allocation size %d", desc.Requirements.Size)
	}
	return nil
}

func (a *VamAllocator) AllocForBuffer(buffer native.Handle, desc memory.MemoryDesc) (memory.Storage, error) {
	if err := checkVamSize(desc); err != nil {
		return memory.Storage{}, err
	}
	object, err := a.device.typedObject(buffer, native.ObjectTypeBuffer)
	if err != nil {
		return memory.Storage{}, err
	}
	vkBuffer := object.(core1_0.Buffer)

	allocation := &vam.Allocation{}
	_, err = a.allocator.AllocateMemoryForBuffer(vkBuffer, vamCreateInfo(buffer, desc.Type), allocation)
	if err != nil {
		return memory.Storage{}, err
	}

	_, err = allocation.BindBufferMemory(vkBuffer)
	if err != nil {
		return memory.Storage{}, errors.CombineErrors(errors.Wrap(err, "failed to bind Buffer memory"), a.contain(allocation.Free))
	}
	return a.track(buffer, desc, allocation)
}

func (a *VamAllocator) AllocForImage(image native.Handle, desc memory.MemoryDesc) (memory.Storage, error) {
	if err := checkVamSize(desc); err != nil {
		return memory.Storage{}, err
	}
	object, err := a.device.typedObject(image, native.ObjectTypeImage)
	if err != nil {
		return memory.Storage{}, err
	}
	vkImage := object.(core1_0.Image)

	allocation := &vam.Allocation{}
	_, err = a.allocator.AllocateMemoryForImage(vkImage, vamCreateInfo(image, desc.Type), allocation)
	if err != nil {
		return memory.Storage{}, err
	}

	_, err = allocation.BindImageMemory(vkImage)
	if err != nil {
		return memory.Storage{}, errors.CombineErrors(errors.Wrap(err, "failed to bind Image memory"), a.contain(allocation.Free))
	}
	return a.track(image, desc, allocation)
}

func (a *VamAllocator) AllocForAccelStruct(accelStruct native.Handle, desc memory.MemoryDesc) (memory.Storage, error) {
	if err := checkVamSize(desc); err != nil {
		return memory.Storage{}, err
	}
	if !a.device.properties.AccelerationStructures {
		return memory.Storage{}, errors.Wrap(memory.ErrUnsupported, "device does not support acceleration structure memory")
	}

	requirements := desc.Requirements
	allocation := &vam.Allocation{}
	_, err := a.allocator.AllocateMemory(&requirements, vamCreateInfo(accelStruct, desc.Type), allocation)
	if err != nil {
		return memory.Storage{}, err
	}

	storage, err := a.track(accelStruct, desc, allocation)
	if err != nil {
		return memory.Storage{}, err
	}

	_, err = a.device.BindAccelerationStructureMemory(accelStruct, storage.Memory, storage.Offset)
	if err != nil {
		return memory.Storage{}, errors.CombineErrors(errors.Wrap(err, "failed to bind AccelStruct memory"), a.Dealloc(&storage))
	}
	return storage, nil
}

// track publishes the allocation's memory through the Device and maps it for host access
func (a *VamAllocator) track(resource native.Handle, desc memory.MemoryDesc, allocation *vam.Allocation) (memory.Storage, error) {
	storage := memory.Storage{
		Strategy:        a,
		MemoryTypeIndex: allocation.MemoryTypeIndex(),
		Offset:          allocation.FindOffset(),
		Size:            allocation.Size(),
		BlockData:       allocation,
	}

	if desc.Type.HasHostAccess() && allocation.MemoryType().PropertyFlags&core1_0.MemoryPropertyHostVisible != 0 {
		var err error
		storage.MappedData, _, err = allocation.Map()
		if err != nil {
			return memory.Storage{}, errors.CombineErrors(err, a.contain(allocation.Free))
		}
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	storage.Memory = a.borrow(allocation.Memory())
	a.allocations.Put(allocation, vamAllocation{
		resource: resource,
		memory:   storage.Memory,
		mapped:   storage.MappedData != nil,
	})
	return storage, nil
}

func (a *VamAllocator) borrow(deviceMemory core1_0.DeviceMemory) native.Handle {
	shared, ok := a.memories.Get(deviceMemory.Handle())
	if !ok {
		shared = &sharedMemory{handle: a.device.registerBorrowedMemory(deviceMemory)}
		a.memories.Put(deviceMemory.Handle(), shared)
	}
	shared.refs++
	return shared.handle
}

func (a *VamAllocator) giveBack(deviceMemory core1_0.DeviceMemory) {
	shared, ok := a.memories.Get(deviceMemory.Handle())
	if !ok {
		return
	}
	shared.refs--
	if shared.refs < 1 {
		a.memories.Delete(deviceMemory.Handle())
		a.device.releaseBorrowedMemory(shared.handle)
	}
}

func (a *VamAllocator) Dealloc(storage *memory.Storage) error {
	allocation, ok := storage.BlockData.(*vam.Allocation)
	if !ok {
		return errors.Newf("storage was not allocated by %s", a.Name())
	}

	a.mutex.Lock()
	record, ok := a.allocations.Get(allocation)
	if ok {
		a.allocations.Delete(allocation)
		a.giveBack(allocation.Memory())
	}
	a.mutex.Unlock()

	if !ok {
		return errors.Newf("allocation for %d was not made by %s", storage.Memory, a.Name())
	}
	return a.free(allocation, record)
}

func (a *VamAllocator) free(allocation *vam.Allocation, record vamAllocation) error {
	var err error
	if record.mapped {
		err = allocation.Unmap()
	}
	return errors.CombineErrors(err, a.contain(allocation.Free))
}

func (a *VamAllocator) MemoryInfo(storage *memory.Storage) (memory.MemoryInfo, error) {
	allocation, ok := storage.BlockData.(*vam.Allocation)
	if !ok {
		return memory.MemoryInfo{}, errors.Newf("storage was not allocated by %s", a.Name())
	}

	a.mutex.RLock()
	record, ok := a.allocations.Get(allocation)
	a.mutex.RUnlock()
	if !ok {
		return memory.MemoryInfo{}, errors.Newf("allocation for %d was not made by %s", storage.Memory, a.Name())
	}

	return memory.MemoryInfo{
		Memory:        record.memory,
		PropertyFlags: allocation.MemoryType().PropertyFlags,
		Offset:        allocation.FindOffset(),
		Size:          allocation.Size(),
		MappedData:    storage.MappedData,
	}, nil
}

func (a *VamAllocator) AddStatistics(stats *memutils.Statistics) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	stats.BlockCount += a.blockCount
	stats.BlockBytes += a.blockBytes
	a.allocations.Iter(func(allocation *vam.Allocation, _ vamAllocation) bool {
		stats.AllocationCount++
		stats.AllocationBytes += allocation.Size()
		return false
	})
}

func (a *VamAllocator) BuildStatsString(writer *jwriter.Writer) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	s := writer.Array()
	defer s.End()

	a.allocations.Iter(func(allocation *vam.Allocation, record vamAllocation) bool {
		o := s.Object()
		o.Name("Resource").String(fmt.Sprintf("%v", record.resource))
		o.Name("Memory").Int(int(record.memory))
		o.Name("MemoryTypeIndex").Int(allocation.MemoryTypeIndex())
		o.Name("Offset").Int(allocation.FindOffset())
		o.Name("Size").Int(allocation.Size())
		o.Name("Mapped").Bool(record.mapped)
		o.End()
		return false
	})
}

// Destroy frees leaked allocations and then the vam allocator's blocks
func (a *VamAllocator) Destroy() error {
	a.mutex.Lock()
	leaked := make(map[*vam.Allocation]vamAllocation, a.allocations.Count())
	a.allocations.Iter(func(allocation *vam.Allocation, record vamAllocation) bool {
		leaked[allocation] = record
		a.giveBack(allocation.Memory())
		return false
	})
	a.allocations.Clear()
	a.mutex.Unlock()

	var result error
	for allocation, record := range leaked {
		a.logger.LogAttrs(context.Background(), slog.LevelError, "[UNRELEASED MEMORY] unfreed vam allocation",
			slog.Any("resource", record.resource),
			slog.Uint64("memory", uint64(record.memory)),
			slog.Int("size", allocation.Size()),
		)
		result = errors.CombineErrors(result, a.free(allocation, record))
	}
	if len(leaked) > 0 {
		result = errors.CombineErrors(errors.Newf("%d vam allocations were not freed before the destruction of %s", len(leaked), a.Name()), result)
	}

	return errors.CombineErrors(result, a.contain(a.allocator.Destroy))
}
