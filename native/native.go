// Package native is the boundary between the frame graph and the graphics API binding. Objects
// crossing it are addressed by an opaque Handle and a Vulkan object type tag, so that destruction
// can be deferred and dispatched without holding typed binding objects.
package native

//go:generate mockgen -package mocks -destination mocks/memory_device.go github.com/vkngwrapper/framegraph/native MemoryDevice

import (
	"unsafe"

	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
)

// Handle is an opaque reference to a native object. The zero Handle is never a live object.
type Handle uint64

const NullHandle Handle = 0

// DestroyEntry is a native object waiting for destruction at the next frame boundary
type DestroyEntry struct {
	Type   ObjectType
	Handle Handle
}

// MemoryProperties describes the memory types and limits of a device
type MemoryProperties struct {
	MemoryTypes []core1_0.MemoryType
	MemoryHeaps []core1_0.MemoryHeap

	BufferImageGranularity int
	NonCoherentAtomSize    int

	// AccelerationStructures is true if the device can bind acceleration structure memory
	AccelerationStructures bool
}

// MemoryDevice is the subset of a device used to allocate and bind memory
type MemoryDevice interface {
	MemoryProperties() MemoryProperties

	AllocateMemory(memoryTypeIndex int, size int) (Handle, common.VkResult, error)
	FreeMemory(memory Handle)
	MapMemory(memory Handle, offset int, size int) (unsafe.Pointer, common.VkResult, error)
	UnmapMemory(memory Handle)

	BindBufferMemory(buffer Handle, memory Handle, offset int) (common.VkResult, error)
	BindImageMemory(image Handle, memory Handle, offset int) (common.VkResult, error)
	BindAccelerationStructureMemory(accelStruct Handle, memory Handle, offset int) (common.VkResult, error)
}

// Device is everything the resource manager needs from the binding
type Device interface {
	MemoryDevice
	Destroyer
}
