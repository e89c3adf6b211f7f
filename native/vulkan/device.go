// Package vulkan implements native.Device over vkngwrapper. Objects created through the binding are
// registered with the Device to obtain a native.Handle; the registry keeps the typed object alive
// until its deferred destruction runs.
package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/vkngwrapper/arsenal/memutils"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/core/v2/driver"
	"github.com/vkngwrapper/framegraph/internal/utils"
	"github.com/vkngwrapper/framegraph/native"
	"golang.org/x/exp/slices"
	"golang.org/x/exp/slog"
)

// Destroyable is implemented by every vkngwrapper object that can be handed to the frame graph
type Destroyable interface {
	Destroy(callbacks *driver.AllocationCallbacks)
}

// AccelerationStructureBinder binds acceleration structure memory. Core Vulkan has no entry point for
// this, so the extension wrapper in use supplies it.
type AccelerationStructureBinder func(accelStruct Destroyable, memory core1_0.DeviceMemory, offset int) (common.VkResult, error)

// CreateOptions contains optional settings when creating a Device
type CreateOptions struct {
	// ExternallySynchronized disables the registry lock. The consumer must guarantee that the
	// Device is only used from one goroutine at a time.
	ExternallySynchronized bool

	// VulkanCallbacks is an optional set of callbacks passed to every Vulkan allocation and
	// destruction performed by the Device
	VulkanCallbacks *driver.AllocationCallbacks

	// BindAccelerationStructure enables acceleration structure memory when provided
	BindAccelerationStructure AccelerationStructureBinder
}

type registration struct {
	objectType native.ObjectType
	object     Destroyable
	memory     core1_0.DeviceMemory
	// borrowed memory belongs to another allocator and is never freed or mapped through the Device
	borrowed bool
}

// Device is a native.Device backed by a core1_0.Device
type Device struct {
	logger    *slog.Logger
	device    core1_0.Device
	callbacks *driver.AllocationCallbacks
	bindAccel AccelerationStructureBinder

	properties native.MemoryProperties

	registryLock utils.OptionalRWMutex
	registry     *swiss.Map[native.Handle, registration]
	nextHandle   native.Handle
}

var _ native.Device = &Device{}

func New(logger *slog.Logger, physicalDevice core1_0.PhysicalDevice, device core1_0.Device, options CreateOptions) (*Device, error) {
	deviceProperties, err := physicalDevice.Properties()
	if err != nil {
		return nil, err
	}

	err = memutils.CheckPow2(deviceProperties.Limits.BufferImageGranularity, "device bufferImageGranularity")
	if err != nil {
		return nil, err
	}
	err = memutils.CheckPow2(deviceProperties.Limits.NonCoherentAtomSize, "device nonCoherentAtomSize")
	if err != nil {
		return nil, err
	}

	memoryProperties := physicalDevice.MemoryProperties()
	if len(memoryProperties.MemoryTypes) > common.MaxMemoryTypes {
		return nil, errors.Newf("physical device reports %d memory types, more than the maximum of %d", len(memoryProperties.MemoryTypes), common.MaxMemoryTypes)
	}

	return &Device{
		logger:    utils.LoggerOrNop(logger),
		device:    device,
		callbacks: options.VulkanCallbacks,
		bindAccel: options.BindAccelerationStructure,
		properties: native.MemoryProperties{
			MemoryTypes:            memoryProperties.MemoryTypes,
			MemoryHeaps:            memoryProperties.MemoryHeaps,
			BufferImageGranularity: deviceProperties.Limits.BufferImageGranularity,
			NonCoherentAtomSize:    deviceProperties.Limits.NonCoherentAtomSize,
			AccelerationStructures: options.BindAccelerationStructure != nil,
		},
		registryLock: utils.OptionalRWMutex{
			UseMutex: !options.ExternallySynchronized,
		},
		registry: swiss.NewMap[native.Handle, registration](64),
	}, nil
}

func (d *Device) register(entry registration) native.Handle {
	d.registryLock.Lock()
	defer d.registryLock.Unlock()

	d.nextHandle++
	d.registry.Put(d.nextHandle, entry)
	return d.nextHandle
}

func (d *Device) lookup(handle native.Handle) (registration, bool) {
	d.registryLock.RLock()
	defer d.registryLock.RUnlock()

	return d.registry.Get(handle)
}

// accelerationStructureTypes are the registry tags either acceleration structure extension
// registers under
var accelerationStructureTypes = []native.ObjectType{
	native.ObjectTypeAccelerationStructureKHR,
	native.ObjectTypeAccelerationStructureNV,
}

func (d *Device) unregister(handle native.Handle, objectTypes ...native.ObjectType) (registration, bool) {
	d.registryLock.Lock()
	defer d.registryLock.Unlock()

	entry, ok := d.registry.Get(handle)
	if !ok || !slices.Contains(objectTypes, entry.objectType) {
		return registration{}, false
	}
	d.registry.Delete(handle)
	return entry, true
}

// Register adds a binding object to the registry and returns the handle the frame graph will use
// to refer to it
func (d *Device) Register(objectType native.ObjectType, object Destroyable) native.Handle {
	return d.register(registration{objectType: objectType, object: object})
}

func (d *Device) RegisterBuffer(buffer core1_0.Buffer) native.Handle {
	return d.Register(native.ObjectTypeBuffer, buffer)
}

func (d *Device) RegisterImage(image core1_0.Image) native.Handle {
	return d.Register(native.ObjectTypeImage, image)
}

func (d *Device) RegisterSampler(sampler core1_0.Sampler) native.Handle {
	return d.Register(native.ObjectTypeSampler, sampler)
}

func (d *Device) RegisterDescriptorSetLayout(layout core1_0.DescriptorSetLayout) native.Handle {
	return d.Register(native.ObjectTypeDescriptorSetLayout, layout)
}

func (d *Device) RegisterPipelineLayout(layout core1_0.PipelineLayout) native.Handle {
	return d.Register(native.ObjectTypePipelineLayout, layout)
}

func (d *Device) RegisterPipeline(pipeline core1_0.Pipeline) native.Handle {
	return d.Register(native.ObjectTypePipeline, pipeline)
}

// Object returns the binding object registered under handle
func (d *Device) Object(handle native.Handle) (Destroyable, bool) {
	entry, ok := d.lookup(handle)
	if !ok || entry.object == nil {
		return nil, false
	}
	return entry.object, true
}

func (d *Device) typedObject(handle native.Handle, objectType native.ObjectType) (Destroyable, error) {
	entry, ok := d.lookup(handle)
	if !ok || entry.objectType != objectType || entry.object == nil {
		return nil, errors.Newf("%d is not a registered %s", handle, objectType)
	}
	return entry.object, nil
}

// registerBorrowedMemory publishes memory owned by another allocator under a handle so that it
// can be reported in Storage and bound to acceleration structures
func (d *Device) registerBorrowedMemory(memory core1_0.DeviceMemory) native.Handle {
	return d.register(registration{objectType: native.ObjectTypeDeviceMemory, memory: memory, borrowed: true})
}

func (d *Device) releaseBorrowedMemory(handle native.Handle) {
	entry, ok := d.lookup(handle)
	if !ok || !entry.borrowed {
		d.logger.Error("attempted to release device memory that was not borrowed", slog.Uint64("handle", uint64(handle)))
		return
	}
	d.unregister(handle, native.ObjectTypeDeviceMemory)
}

func (d *Device) ownedMemory(handle native.Handle) (core1_0.DeviceMemory, bool) {
	entry, ok := d.lookup(handle)
	if !ok || entry.objectType != native.ObjectTypeDeviceMemory || entry.borrowed {
		return nil, false
	}
	return entry.memory, true
}

// DeviceMemory returns the binding memory object allocated under handle
func (d *Device) DeviceMemory(handle native.Handle) (core1_0.DeviceMemory, bool) {
	entry, ok := d.lookup(handle)
	if !ok || entry.objectType != native.ObjectTypeDeviceMemory {
		return nil, false
	}
	return entry.memory, true
}

func (d *Device) MemoryProperties() native.MemoryProperties {
	return d.properties
}

func (d *Device) AllocateMemory(memoryTypeIndex int, size int) (native.Handle, common.VkResult, error) {
	memory, res, err := d.device.AllocateMemory(d.callbacks, core1_0.MemoryAllocateInfo{
		AllocationSize:  size,
		MemoryTypeIndex: memoryTypeIndex,
	})
	if err != nil {
		return native.NullHandle, res, err
	}

	return d.register(registration{objectType: native.ObjectTypeDeviceMemory, memory: memory}), res, nil
}

func (d *Device) FreeMemory(handle native.Handle) {
	if _, ok := d.ownedMemory(handle); !ok {
		d.logger.Error("attempted to free unknown device memory", slog.Uint64("handle", uint64(handle)))
		return
	}
	entry, ok := d.unregister(handle, native.ObjectTypeDeviceMemory)
	if !ok {
		d.logger.Error("attempted to free unknown device memory", slog.Uint64("handle", uint64(handle)))
		return
	}
	entry.memory.Free(d.callbacks)
}

func (d *Device) MapMemory(handle native.Handle, offset int, size int) (unsafe.Pointer, common.VkResult, error) {
	memory, ok := d.ownedMemory(handle)
	if !ok {
		return nil, core1_0.VKErrorUnknown, errors.Newf("attempted to map unknown device memory %d", handle)
	}
	return memory.Map(offset, size, 0)
}

func (d *Device) UnmapMemory(handle native.Handle) {
	memory, ok := d.ownedMemory(handle)
	if !ok {
		d.logger.Error("attempted to unmap unknown device memory", slog.Uint64("handle", uint64(handle)))
		return
	}
	memory.Unmap()
}

func (d *Device) bindTargets(target native.Handle, memoryHandle native.Handle, targetTypes ...native.ObjectType) (Destroyable, core1_0.DeviceMemory, error) {
	entry, ok := d.lookup(target)
	if !ok || !slices.Contains(targetTypes, entry.objectType) {
		return nil, nil, errors.Newf("attempted to bind memory to unknown %s %d", targetTypes[0], target)
	}
	memory, ok := d.DeviceMemory(memoryHandle)
	if !ok {
		return nil, nil, errors.Newf("attempted to bind %s %d to unknown device memory %d", entry.objectType, target, memoryHandle)
	}
	return entry.object, memory, nil
}

func (d *Device) BindBufferMemory(buffer native.Handle, memory native.Handle, offset int) (common.VkResult, error) {
	object, deviceMemory, err := d.bindTargets(buffer, memory, native.ObjectTypeBuffer)
	if err != nil {
		return core1_0.VKErrorUnknown, err
	}
	return object.(core1_0.Buffer).BindBufferMemory(deviceMemory, offset)
}

func (d *Device) BindImageMemory(image native.Handle, memory native.Handle, offset int) (common.VkResult, error) {
	object, deviceMemory, err := d.bindTargets(image, memory, native.ObjectTypeImage)
	if err != nil {
		return core1_0.VKErrorUnknown, err
	}
	return object.(core1_0.Image).BindImageMemory(deviceMemory, offset)
}

func (d *Device) BindAccelerationStructureMemory(accelStruct native.Handle, memory native.Handle, offset int) (common.VkResult, error) {
	if d.bindAccel == nil {
		return core1_0.VKErrorFeatureNotPresent, core1_0.VKErrorFeatureNotPresent.ToError()
	}
	object, deviceMemory, err := d.bindTargets(accelStruct, memory, accelerationStructureTypes...)
	if err != nil {
		return core1_0.VKErrorUnknown, err
	}
	return d.bindAccel(object, deviceMemory, offset)
}
