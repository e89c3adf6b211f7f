// Package fake provides an in-memory native.Device that records every creation, allocation and
// destruction. It backs tests and headless tooling.
package fake

import (
	"sync"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/framegraph/native"
)

// DefaultProperties describes a small discrete GPU with a device-local heap and a host heap
func DefaultProperties() native.MemoryProperties {
	return native.MemoryProperties{
		MemoryTypes: []core1_0.MemoryType{
			{
				PropertyFlags: core1_0.MemoryPropertyDeviceLocal,
				HeapIndex:     0,
			},
			{
				PropertyFlags: core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent,
				HeapIndex:     1,
			},
			{
				PropertyFlags: core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent | core1_0.MemoryPropertyHostCached,
				HeapIndex:     1,
			},
			{
				PropertyFlags: core1_0.MemoryPropertyDeviceLocal | core1_0.MemoryPropertyLazilyAllocated,
				HeapIndex:     0,
			},
		},
		MemoryHeaps: []core1_0.MemoryHeap{
			{
				Size:  64 * 1024 * 1024,
				Flags: core1_0.MemoryHeapDeviceLocal,
			},
			{
				Size: 64 * 1024 * 1024,
			},
		},
		BufferImageGranularity: 1,
		NonCoherentAtomSize:    64,
		AccelerationStructures: true,
	}
}

type object struct {
	objectType native.ObjectType
	size       int
	// memory is only materialized when it is first mapped
	memory  []byte
	mapped  bool
	boundTo native.Handle
}

// Device is a recording native.Device. All methods are safe for concurrent use.
type Device struct {
	lock sync.Mutex

	properties native.MemoryProperties
	nextHandle native.Handle
	live       map[native.Handle]*object
	destroyed  []native.DestroyEntry
	violations []error

	// FailAllocation, when set, is consulted before every memory allocation. Returning true fails
	// the allocation with VKErrorOutOfDeviceMemory.
	FailAllocation func(memoryTypeIndex int, size int) bool
}

var _ native.Device = &Device{}

func New(properties native.MemoryProperties) *Device {
	return &Device{
		properties: properties,
		live:       make(map[native.Handle]*object),
	}
}

func (d *Device) newHandle(objectType native.ObjectType) (native.Handle, *object) {
	d.nextHandle++
	obj := &object{objectType: objectType}
	d.live[d.nextHandle] = obj
	return d.nextHandle, obj
}

// Create registers a new live native object and returns its handle
func (d *Device) Create(objectType native.ObjectType) native.Handle {
	d.lock.Lock()
	defer d.lock.Unlock()

	handle, _ := d.newHandle(objectType)
	return handle
}

// LiveCount returns the number of live objects of the provided type
func (d *Device) LiveCount(objectType native.ObjectType) int {
	d.lock.Lock()
	defer d.lock.Unlock()

	count := 0
	for _, obj := range d.live {
		if obj.objectType == objectType {
			count++
		}
	}
	return count
}

// TotalLive returns the number of live objects of any type, device memory included
func (d *Device) TotalLive() int {
	d.lock.Lock()
	defer d.lock.Unlock()

	return len(d.live)
}

// Destroyed returns every destruction performed so far, in order
func (d *Device) Destroyed() []native.DestroyEntry {
	d.lock.Lock()
	defer d.lock.Unlock()

	return append([]native.DestroyEntry(nil), d.destroyed...)
}

// DestroyedCount returns the number of destructions of the provided type
func (d *Device) DestroyedCount(objectType native.ObjectType) int {
	d.lock.Lock()
	defer d.lock.Unlock()

	count := 0
	for _, entry := range d.destroyed {
		if entry.Type == objectType {
			count++
		}
	}
	return count
}

// Violations returns every misuse detected: double destroys, destroys with the wrong type, and
// binds or maps of unknown objects
func (d *Device) Violations() []error {
	d.lock.Lock()
	defer d.lock.Unlock()

	return append([]error(nil), d.violations...)
}

// BoundMemory returns the memory a buffer, image or acceleration structure was bound to
func (d *Device) BoundMemory(handle native.Handle) native.Handle {
	d.lock.Lock()
	defer d.lock.Unlock()

	obj, ok := d.live[handle]
	if !ok {
		return native.NullHandle
	}
	return obj.boundTo
}

func (d *Device) destroy(objectType native.ObjectType, handle native.Handle) {
	d.lock.Lock()
	defer d.lock.Unlock()

	obj, ok := d.live[handle]
	if !ok {
		d.violations = append(d.violations, errors.Newf("%s %d destroyed but it is not live", objectType, handle))
		return
	}
	if obj.objectType != objectType {
		d.violations = append(d.violations, errors.Newf("%s %d destroyed as a %s", obj.objectType, handle, objectType))
		return
	}
	if obj.mapped {
		d.violations = append(d.violations, errors.Newf("memory %d freed while mapped", handle))
	}

	delete(d.live, handle)
	d.destroyed = append(d.destroyed, native.DestroyEntry{Type: objectType, Handle: handle})
}

func (d *Device) MemoryProperties() native.MemoryProperties {
	return d.properties
}

func (d *Device) AllocateMemory(memoryTypeIndex int, size int) (native.Handle, common.VkResult, error) {
	if memoryTypeIndex < 0 || memoryTypeIndex >= len(d.properties.MemoryTypes) {
		return native.NullHandle, core1_0.VKErrorUnknown, errors.Newf("memory type index %d out of range", memoryTypeIndex)
	}
	if d.FailAllocation != nil && d.FailAllocation(memoryTypeIndex, size) {
		return native.NullHandle, core1_0.VKErrorOutOfDeviceMemory, core1_0.VKErrorOutOfDeviceMemory.ToError()
	}

	d.lock.Lock()
	defer d.lock.Unlock()

	handle, obj := d.newHandle(native.ObjectTypeDeviceMemory)
	obj.size = size
	return handle, core1_0.VKSuccess, nil
}

func (d *Device) FreeMemory(handle native.Handle) {
	d.destroy(native.ObjectTypeDeviceMemory, handle)
}

func (d *Device) MapMemory(memory native.Handle, offset int, size int) (unsafe.Pointer, common.VkResult, error) {
	d.lock.Lock()
	defer d.lock.Unlock()

	obj, ok := d.live[memory]
	if !ok || obj.objectType != native.ObjectTypeDeviceMemory {
		err := errors.Newf("map of unknown memory %d", memory)
		d.violations = append(d.violations, err)
		return nil, core1_0.VKErrorUnknown, err
	}
	if obj.mapped {
		err := errors.Newf("memory %d mapped twice", memory)
		d.violations = append(d.violations, err)
		return nil, core1_0.VKErrorUnknown, err
	}
	if offset < 0 || size <= 0 || offset+size > obj.size {
		return nil, core1_0.VKErrorUnknown, errors.Newf("map range %d+%d exceeds memory %d of size %d", offset, size, memory, obj.size)
	}

	if obj.memory == nil {
		obj.memory = make([]byte, obj.size)
	}
	obj.mapped = true
	return unsafe.Pointer(&obj.memory[offset]), core1_0.VKSuccess, nil
}

func (d *Device) UnmapMemory(memory native.Handle) {
	d.lock.Lock()
	defer d.lock.Unlock()

	obj, ok := d.live[memory]
	if !ok || !obj.mapped {
		d.violations = append(d.violations, errors.Newf("unmap of memory %d that is not mapped", memory))
		return
	}
	obj.mapped = false
}

func (d *Device) bind(target native.Handle, expected native.ObjectType, memory native.Handle, offset int) (common.VkResult, error) {
	d.lock.Lock()
	defer d.lock.Unlock()

	obj, ok := d.live[target]
	if !ok || obj.objectType != expected {
		err := errors.Newf("bind of unknown %s %d", expected, target)
		d.violations = append(d.violations, err)
		return core1_0.VKErrorUnknown, err
	}
	mem, ok := d.live[memory]
	if !ok || mem.objectType != native.ObjectTypeDeviceMemory {
		err := errors.Newf("bind of %s %d to unknown memory %d", expected, target, memory)
		d.violations = append(d.violations, err)
		return core1_0.VKErrorUnknown, err
	}
	if offset < 0 || offset >= mem.size {
		return core1_0.VKErrorUnknown, errors.Newf("bind offset %d outside memory %d", offset, memory)
	}

	obj.boundTo = memory
	return core1_0.VKSuccess, nil
}

func (d *Device) BindBufferMemory(buffer native.Handle, memory native.Handle, offset int) (common.VkResult, error) {
	return d.bind(buffer, native.ObjectTypeBuffer, memory, offset)
}

func (d *Device) BindImageMemory(image native.Handle, memory native.Handle, offset int) (common.VkResult, error) {
	return d.bind(image, native.ObjectTypeImage, memory, offset)
}

func (d *Device) BindAccelerationStructureMemory(accelStruct native.Handle, memory native.Handle, offset int) (common.VkResult, error) {
	return d.bind(accelStruct, native.ObjectTypeAccelerationStructureKHR, memory, offset)
}

func (d *Device) DestroySemaphore(handle native.Handle) {
	d.destroy(native.ObjectTypeSemaphore, handle)
}

func (d *Device) DestroyFence(handle native.Handle) {
	d.destroy(native.ObjectTypeFence, handle)
}

func (d *Device) DestroyImage(handle native.Handle) {
	d.destroy(native.ObjectTypeImage, handle)
}

func (d *Device) DestroyEvent(handle native.Handle) {
	d.destroy(native.ObjectTypeEvent, handle)
}

func (d *Device) DestroyQueryPool(handle native.Handle) {
	d.destroy(native.ObjectTypeQueryPool, handle)
}

func (d *Device) DestroyBuffer(handle native.Handle) {
	d.destroy(native.ObjectTypeBuffer, handle)
}

func (d *Device) DestroyBufferView(handle native.Handle) {
	d.destroy(native.ObjectTypeBufferView, handle)
}

func (d *Device) DestroyImageView(handle native.Handle) {
	d.destroy(native.ObjectTypeImageView, handle)
}

func (d *Device) DestroyPipelineLayout(handle native.Handle) {
	d.destroy(native.ObjectTypePipelineLayout, handle)
}

func (d *Device) DestroyRenderPass(handle native.Handle) {
	d.destroy(native.ObjectTypeRenderPass, handle)
}

func (d *Device) DestroyPipeline(handle native.Handle) {
	d.destroy(native.ObjectTypePipeline, handle)
}

func (d *Device) DestroyDescriptorSetLayout(handle native.Handle) {
	d.destroy(native.ObjectTypeDescriptorSetLayout, handle)
}

func (d *Device) DestroySampler(handle native.Handle) {
	d.destroy(native.ObjectTypeSampler, handle)
}

func (d *Device) DestroyDescriptorPool(handle native.Handle) {
	d.destroy(native.ObjectTypeDescriptorPool, handle)
}

func (d *Device) DestroyFramebuffer(handle native.Handle) {
	d.destroy(native.ObjectTypeFramebuffer, handle)
}

func (d *Device) DestroyCommandPool(handle native.Handle) {
	d.destroy(native.ObjectTypeCommandPool, handle)
}

func (d *Device) DestroySamplerYcbcrConversion(handle native.Handle) {
	d.destroy(native.ObjectTypeSamplerYcbcrConversion, handle)
}

func (d *Device) DestroyDescriptorUpdateTemplate(handle native.Handle) {
	d.destroy(native.ObjectTypeDescriptorUpdateTemplate, handle)
}

func (d *Device) DestroyAccelerationStructure(handle native.Handle) {
	d.destroy(native.ObjectTypeAccelerationStructureKHR, handle)
}
