package memory

import (
	"context"
	"fmt"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/arsenal/memutils/metadata"
	"github.com/vkngwrapper/framegraph/native"
	"golang.org/x/exp/slog"
)

// memoryBlock is one native allocation carved up among many resources
type memoryBlock struct {
	serial  int
	handle  native.Handle
	mapped  unsafe.Pointer
	regions metadata.BlockMetadata
}

func newBlockMetadata(linear bool, bufferImageGranularity int, size int) metadata.BlockMetadata {
	var regions metadata.BlockMetadata
	if linear {
		regions = metadata.NewLinearBlockMetadata(bufferImageGranularity, false)
	} else {
		regions = metadata.NewTLSFBlockMetadata(bufferImageGranularity, false)
	}
	regions.Init(size)
	return regions
}

func (b *memoryBlock) pointerAt(offset int) unsafe.Pointer {
	if b.mapped == nil {
		return nil
	}
	return unsafe.Add(b.mapped, offset)
}

func (b *memoryBlock) check() error {
	if b.handle == native.NullHandle {
		return errors.Newf("memory block %d has no native memory", b.serial)
	}
	if b.regions.Size() < 1 {
		return errors.Newf("memory block %d has an invalid size", b.serial)
	}
	return b.regions.Validate()
}

// release frees the native memory. Live suballocations are logged and reported but do not
// keep the memory alive.
func (b *memoryBlock) release(logger *slog.Logger, device native.MemoryDevice) error {
	live := b.regions.AllocationCount()
	if live > 0 {
		b.regions.DebugLogAllAllocations(logger, func(log *slog.Logger, offset int, size int, userData any) {
			log.LogAttrs(context.Background(), slog.LevelError, "[UNRELEASED MEMORY] suballocation still live at block release",
				slog.Int("block", b.serial),
				slog.Int("offset", offset),
				slog.Int("size", size),
				slog.Any("resource", userData),
			)
		})
	}

	if b.mapped != nil {
		device.UnmapMemory(b.handle)
		b.mapped = nil
	}
	device.FreeMemory(b.handle)
	b.handle = native.NullHandle
	b.regions.Destroy()

	if live > 0 {
		return errors.Newf("memory block %d released with %d live suballocations", b.serial, live)
	}
	return nil
}

func (b *memoryBlock) writeJSON(obj *jwriter.ObjectState) error {
	// The metadata header takes the object by value, so it must not be the first property or
	// the comma state is lost
	obj.Name("Mapped").Bool(b.mapped != nil)
	err := b.regions.PrintDetailedMapHeader(*obj)
	if err != nil {
		return err
	}

	regions := obj.Name("Suballocations").Array()
	defer regions.End()

	b.regions.VisitAllBlocks(func(_ metadata.BlockAllocationHandle, offset int, size int, userData any, free bool) {
		region := regions.Object()
		defer region.End()

		region.Name("Offset").Int(offset)
		region.Name("Size").Int(size)
		if free {
			region.Name("Type").String(metadata.SuballocationFree.String())
		} else if userData != nil {
			region.Name("Resource").String(fmt.Sprintf("%v", userData))
		}
	})
	return nil
}

// blockAllocation is the strategy-private data of a suballocated Storage
type blockAllocation struct {
	list   *blockList
	block  *memoryBlock
	handle metadata.BlockAllocationHandle
}
