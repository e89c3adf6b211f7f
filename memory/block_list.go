package memory

import (
	"math"
	"strconv"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/arsenal/memutils"
	"github.com/vkngwrapper/arsenal/memutils/metadata"
	"github.com/vkngwrapper/framegraph/internal/utils"
	"github.com/vkngwrapper/framegraph/native"
	"golang.org/x/exp/slices"
	"golang.org/x/exp/slog"
)

type blockListConfig struct {
	memoryTypeIndex int
	blockSize       int
	// fixedBlockSize rejects requests larger than blockSize instead of creating an oversized block
	fixedBlockSize bool
	minBlocks      int
	maxBlocks      int
	minAlignment   uint
	mapBlocks      bool
	// linear places suballocations with the linear metadata instead of TLSF
	linear                 bool
	bufferImageGranularity int
}

// blockList owns every block of one memory type for a single strategy or pool. Blocks are
// ordered by ascending free space so the first block with room is the tightest fit.
type blockList struct {
	logger *slog.Logger
	device native.MemoryDevice
	config blockListConfig

	mutex      utils.OptionalRWMutex
	blocks     []*memoryBlock
	nextSerial int
}

func newBlockList(useMutex bool, logger *slog.Logger, device native.MemoryDevice, config blockListConfig) *blockList {
	logger = utils.LoggerOrNop(logger)
	if config.maxBlocks < 1 {
		config.maxBlocks = math.MaxInt
	}
	if config.minAlignment < 1 {
		config.minAlignment = 1
	}
	// The linear metadata divides by the granularity
	if config.bufferImageGranularity < 1 {
		config.bufferImageGranularity = 1
	}

	list := &blockList{
		logger: logger,
		device: device,
		config: config,
	}
	list.mutex.UseMutex = useMutex
	return list
}

func (l *blockList) MemoryTypeIndex() int { return l.config.memoryTypeIndex }

// CreateMinBlocks fills the list up to its configured minimum
func (l *blockList) CreateMinBlocks() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	for len(l.blocks) < l.config.minBlocks {
		if _, err := l.grow(l.config.blockSize); err != nil {
			return err
		}
	}
	return nil
}

func (l *blockList) grow(size int) (*memoryBlock, error) {
	if len(l.blocks) >= l.config.maxBlocks {
		return nil, errors.Wrapf(ErrPoolExhausted, "memory type %d is limited to %d blocks", l.config.memoryTypeIndex, l.config.maxBlocks)
	}

	handle, _, err := l.device.AllocateMemory(l.config.memoryTypeIndex, size)
	if err != nil {
		return nil, err
	}

	block := &memoryBlock{
		serial:  l.nextSerial,
		handle:  handle,
		regions: newBlockMetadata(l.config.linear, l.config.bufferImageGranularity, size),
	}

	if l.config.mapBlocks {
		block.mapped, _, err = l.device.MapMemory(handle, 0, size)
		if err != nil {
			l.device.FreeMemory(handle)
			return nil, err
		}
	}
	l.nextSerial++

	l.logger.Debug("BlockList::Grow",
		slog.Int("memoryType", l.config.memoryTypeIndex),
		slog.Int("block", block.serial),
		slog.Int("size", size),
	)

	// An empty block has the most free space, so it belongs at the back
	l.blocks = append(l.blocks, block)
	return block, nil
}

// Allocate reserves size bytes in the tightest block with room, growing the list when no
// block fits. userData is recorded with the suballocation for leak reports and stats.
func (l *blockList) Allocate(size int, alignment uint, allocType metadata.SuballocationType, userData any) (*memoryBlock, metadata.BlockAllocationHandle, int, error) {
	if err := checkSize(size); err != nil {
		return nil, metadata.NoAllocation, 0, err
	}
	if alignment < l.config.minAlignment {
		alignment = l.config.minAlignment
	}
	if l.config.fixedBlockSize && size > l.config.blockSize {
		return nil, metadata.NoAllocation, 0, errors.Wrapf(ErrPoolExhausted, "%d bytes does not fit in a %d byte block", size, l.config.blockSize)
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	for index, block := range l.blocks {
		if block.regions.SumFreeSize() < size {
			continue
		}
		handle, ok, err := l.allocateFrom(block, size, alignment, allocType, userData)
		if err != nil {
			return nil, metadata.NoAllocation, 0, err
		}
		if ok {
			l.settle(index)
			return l.placed(block, handle)
		}
	}

	blockSize := l.config.blockSize
	if size > blockSize {
		blockSize = memutils.AlignUp(size, alignment)
	}

	block, err := l.grow(blockSize)
	if err != nil {
		return nil, metadata.NoAllocation, 0, err
	}

	handle, ok, err := l.allocateFrom(block, size, alignment, allocType, userData)
	if err == nil && !ok {
		err = errors.Newf("%d bytes did not fit in a fresh %d byte block", size, blockSize)
	}
	if err != nil {
		l.blocks = l.blocks[:len(l.blocks)-1]
		l.logger.Debug("BlockList::Release", slog.Int("block", block.serial))
		return nil, metadata.NoAllocation, 0, errors.CombineErrors(err, block.release(l.logger, l.device))
	}
	l.settle(len(l.blocks) - 1)
	return l.placed(block, handle)
}

func (l *blockList) allocateFrom(block *memoryBlock, size int, alignment uint, allocType metadata.SuballocationType, userData any) (metadata.BlockAllocationHandle, bool, error) {
	var request metadata.AllocationRequest
	ok, err := block.regions.PopulateAllocationRequest(size, alignment, false, allocType, memutils.AllocationCreateStrategyMinMemory, &request)
	if err != nil || !ok {
		return metadata.NoAllocation, false, err
	}

	err = block.regions.Alloc(&request, allocType, userData)
	if err != nil {
		return metadata.NoAllocation, false, err
	}
	return request.BlockAllocationHandle, true, nil
}

func (l *blockList) placed(block *memoryBlock, handle metadata.BlockAllocationHandle) (*memoryBlock, metadata.BlockAllocationHandle, int, error) {
	offset, err := block.regions.AllocationOffset(handle)
	if err != nil {
		return nil, metadata.NoAllocation, 0, err
	}
	return block, handle, offset, nil
}

// Free returns a suballocation to its block. One empty block is kept as a spare, and any
// other block that becomes empty is released while the list is above its minimum.
func (l *blockList) Free(block *memoryBlock, handle metadata.BlockAllocationHandle) error {
	released, err := l.free(block, handle)
	if err != nil || released == nil {
		return err
	}

	l.logger.Debug("BlockList::Release", slog.Int("block", released.serial))
	return released.release(l.logger, l.device)
}

func (l *blockList) free(block *memoryBlock, handle metadata.BlockAllocationHandle) (*memoryBlock, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	index := slices.Index(l.blocks, block)
	if index < 0 {
		return nil, errors.Newf("memory block %d does not belong to memory type %d", block.serial, l.config.memoryTypeIndex)
	}

	hadSpare := slices.IndexFunc(l.blocks, func(b *memoryBlock) bool { return b.regions.IsEmpty() }) >= 0

	if err := block.regions.Free(handle); err != nil {
		return nil, err
	}
	utils.DebugAssert(block.check() == nil, "memory block %d is inconsistent after a free", block.serial)

	if block.regions.IsEmpty() && hadSpare && len(l.blocks) > l.config.minBlocks {
		l.blocks = slices.Delete(l.blocks, index, index+1)
		return block, nil
	}

	l.settle(index)
	return nil, nil
}

// settle moves the block at index to its place in free-space order after its free
// space changed
func (l *blockList) settle(index int) {
	free := func(i int) int { return l.blocks[i].regions.SumFreeSize() }

	for index > 0 && free(index-1) > free(index) {
		l.blocks[index-1], l.blocks[index] = l.blocks[index], l.blocks[index-1]
		index--
	}
	for index < len(l.blocks)-1 && free(index) > free(index+1) {
		l.blocks[index], l.blocks[index+1] = l.blocks[index+1], l.blocks[index]
		index++
	}
}

func (l *blockList) mappedPointer(block *memoryBlock, offset int) unsafe.Pointer {
	return block.pointerAt(offset)
}

func (l *blockList) HasNoAllocations() bool {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	return slices.IndexFunc(l.blocks, func(b *memoryBlock) bool { return !b.regions.IsEmpty() }) < 0
}

// Destroy releases every block, including blocks that still hold suballocations
func (l *blockList) Destroy() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	var result error
	for _, block := range l.blocks {
		result = errors.CombineErrors(result, block.release(l.logger, l.device))
	}
	l.blocks = nil
	return result
}

func (l *blockList) AddStatistics(stats *memutils.Statistics) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	for _, block := range l.blocks {
		block.regions.AddStatistics(stats)
	}
}

func (l *blockList) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	for _, block := range l.blocks {
		block.regions.AddDetailedStatistics(stats)
	}
}

func (l *blockList) PrintDetailedMap(json *jwriter.ObjectState) error {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	for _, block := range l.blocks {
		obj := json.Name(strconv.Itoa(block.serial)).Object()
		err := block.writeJSON(&obj)
		obj.End()
		if err != nil {
			return err
		}
	}
	return nil
}
