package memory

import (
	"unsafe"

	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/framegraph/ids"
	"github.com/vkngwrapper/framegraph/native"
)

// MemoryDesc describes the memory a resource needs
type MemoryDesc struct {
	Type         MemoryType
	Requirements core1_0.MemoryRequirements
	// Pool names a pool created with Manager.CreatePool. It is only consulted by the PoolAllocator.
	Pool ids.MemPoolID
}

// Storage is the record of one allocation. It is created by a Strategy and must be handed back to
// the Manager that produced it.
type Storage struct {
	// Strategy is the strategy that owns this allocation
	Strategy Strategy
	// Memory is the native memory the resource was bound to, or native.NullHandle for virtual storage
	Memory          native.Handle
	MemoryTypeIndex int
	Offset          int
	Size            int
	// MappedData points at Offset within persistently mapped memory, or is nil
	MappedData unsafe.Pointer

	// BlockData is private to the owning strategy
	BlockData any
}

// IsValid reports whether the storage is a live allocation
func (s *Storage) IsValid() bool {
	return s.Strategy != nil
}

// MemoryInfo describes where a resource's memory lives
type MemoryInfo struct {
	Memory        native.Handle
	PropertyFlags core1_0.MemoryPropertyFlags
	Offset        int
	Size          int
	MappedData    unsafe.Pointer
}
