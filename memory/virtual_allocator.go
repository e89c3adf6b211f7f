package memory

import (
	"context"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/arsenal/memutils"
	"github.com/vkngwrapper/arsenal/memutils/metadata"
	"github.com/vkngwrapper/framegraph/internal/utils"
	"github.com/vkngwrapper/framegraph/native"
	"golang.org/x/exp/slog"
)

// defaultVirtualBlockSize is the address range covered by each virtual block when none is provided
// via StrategyOptions. It is equal to 1Gb.
const defaultVirtualBlockSize int = 1024 * 1024 * 1024

// virtualAllocation is the strategy-private data of a virtual Storage
type virtualAllocation struct {
	block  metadata.BlockMetadata
	handle metadata.BlockAllocationHandle
}

// VirtualAllocator reserves address ranges inside virtual blocks that have no native memory behind
// them. Resources placed this way are never bound; the frame graph uses them to plan aliasing.
type VirtualAllocator struct {
	logger    *slog.Logger
	blockSize int

	mutex  utils.OptionalMutex
	blocks []metadata.BlockMetadata
}

var _ Strategy = &VirtualAllocator{}

func NewVirtualAllocator(logger *slog.Logger, options StrategyOptions) *VirtualAllocator {
	blockSize := options.VirtualBlockSize
	if blockSize == 0 {
		blockSize = defaultVirtualBlockSize
	}

	return &VirtualAllocator{
		logger:    utils.LoggerOrNop(logger),
		blockSize: blockSize,
		mutex:     utils.OptionalMutex{UseMutex: options.UseMutex},
	}
}

func (a *VirtualAllocator) Name() string { return "VirtualAllocator" }

func (a *VirtualAllocator) IsSupported(memoryType MemoryType) bool {
	return memoryType&MemoryTypeVirtual != 0
}

func (a *VirtualAllocator) alloc(handle native.Handle, desc MemoryDesc) (Storage, error) {
	size := desc.Requirements.Size
	alignment := uint(desc.Requirements.Alignment)
	if err := checkSize(size); err != nil {
		return Storage{}, err
	}
	if size > a.blockSize {
		return Storage{}, errors.Wrapf(ErrUnsupported, "virtual allocation of %d bytes is larger than the virtual block size %d", size, a.blockSize)
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	for _, block := range a.blocks {
		storage, ok, err := a.allocFrom(block, handle, size, alignment)
		if err != nil || ok {
			return storage, err
		}
	}

	// Virtual blocks never have native memory behind them. They use the same TLSF metadata as
	// native blocks so their statistics count allocations the same way.
	block := metadata.NewTLSFBlockMetadata(1, false)
	block.Init(a.blockSize)

	storage, ok, err := a.allocFrom(block, handle, size, alignment)
	if err == nil && !ok {
		err = errors.Newf("virtual allocation of %d bytes did not fit in an empty virtual block", size)
	}
	if err != nil {
		block.Destroy()
		return Storage{}, err
	}

	a.blocks = append(a.blocks, block)
	return storage, nil
}

func (a *VirtualAllocator) allocFrom(block metadata.BlockMetadata, handle native.Handle, size int, alignment uint) (Storage, bool, error) {
	var request metadata.AllocationRequest
	ok, err := block.PopulateAllocationRequest(size, alignment, false, metadata.SuballocationUnknown, memutils.AllocationCreateStrategyMinMemory, &request)
	if err != nil || !ok {
		return Storage{}, false, err
	}

	err = block.Alloc(&request, metadata.SuballocationUnknown, handle)
	if err != nil {
		return Storage{}, false, err
	}

	offset, err := block.AllocationOffset(request.BlockAllocationHandle)
	if err != nil {
		return Storage{}, false, err
	}

	return Storage{
		Strategy:  a,
		Offset:    offset,
		Size:      size,
		BlockData: &virtualAllocation{block: block, handle: request.BlockAllocationHandle},
	}, true, nil
}

func (a *VirtualAllocator) AllocForImage(image native.Handle, desc MemoryDesc) (Storage, error) {
	return a.alloc(image, desc)
}

func (a *VirtualAllocator) AllocForBuffer(buffer native.Handle, desc MemoryDesc) (Storage, error) {
	return a.alloc(buffer, desc)
}

func (a *VirtualAllocator) AllocForAccelStruct(accelStruct native.Handle, desc MemoryDesc) (Storage, error) {
	return a.alloc(accelStruct, desc)
}

func (a *VirtualAllocator) Dealloc(storage *Storage) error {
	allocation, ok := storage.BlockData.(*virtualAllocation)
	if !ok {
		return errors.Newf("storage passed to %s was not allocated by it", a.Name())
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	return allocation.block.Free(allocation.handle)
}

func (a *VirtualAllocator) MemoryInfo(storage *Storage) (MemoryInfo, error) {
	if storage.Strategy != a {
		return MemoryInfo{}, errors.Newf("storage passed to %s was not allocated by it", a.Name())
	}
	return MemoryInfo{
		Memory: native.NullHandle,
		Offset: storage.Offset,
		Size:   storage.Size,
	}, nil
}

func (a *VirtualAllocator) AddStatistics(stats *memutils.Statistics) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	for _, block := range a.blocks {
		block.AddStatistics(stats)
	}
}

func (a *VirtualAllocator) BuildStatsString(writer *jwriter.Writer) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	obj := writer.Object()
	defer obj.End()

	for index, block := range a.blocks {
		blockObj := obj.Name(strconv.Itoa(index)).Object()
		blockObj.Name("Virtual").Bool(true)
		err := block.PrintDetailedMapHeader(blockObj)
		blockObj.End()
		if err != nil {
			a.logger.Error("failed to print virtual block", slog.Int("block.id", index), slog.Any("error", err))
		}
	}
}

func (a *VirtualAllocator) Destroy() error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	leaked := 0
	for index, block := range a.blocks {
		if !block.IsEmpty() {
			a.logger.LogAttrs(context.Background(), slog.LevelError, "[UNRELEASED MEMORY] unfreed virtual allocations",
				slog.Int("block.id", index),
				slog.Int("count", block.AllocationCount()),
			)
			leaked += block.AllocationCount()
		}
		block.Destroy()
	}
	a.blocks = nil

	if leaked > 0 {
		return errors.Newf("%d virtual allocations were not freed before the destruction of %s", leaked, a.Name())
	}
	return nil
}
