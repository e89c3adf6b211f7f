package memory

import (
	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/arsenal/memutils"
	"github.com/vkngwrapper/framegraph/ids"
	"github.com/vkngwrapper/framegraph/internal/utils"
	"github.com/vkngwrapper/framegraph/native"
	"golang.org/x/exp/slog"
)

// PoolCreateInfo describes a named pool of memory blocks
type PoolCreateInfo struct {
	// MemoryType selects the native memory type of the pool's blocks. Pools with host access are
	// persistently mapped.
	MemoryType MemoryType
	// MemoryTypeBits optionally restricts the native memory types the pool may use
	MemoryTypeBits uint32
	// BlockSize is the size of every block in the pool. When 0, the preferred block size for the
	// chosen memory type is used.
	BlockSize int
	// MinBlockCount blocks are created with the pool and never freed while it lives
	MinBlockCount int
	// MaxBlockCount limits the pool's growth. When 0, the pool grows without limit.
	MaxBlockCount int
	// Linear places allocations one after another in each block, which suits pools that are
	// filled and emptied as a whole, such as per-frame staging
	Linear bool
}

type memoryPool struct {
	id              ids.MemPoolID
	memoryTypeIndex int
	blocks          *blockList
}

// PoolAllocator serves requests that name a pool created with CreatePool
type PoolAllocator struct {
	logger     *slog.Logger
	device     native.MemoryDevice
	properties native.MemoryProperties
	useMutex   bool
	largeHeap  int

	mutex utils.OptionalRWMutex
	pools *swiss.Map[ids.HashVal, *memoryPool]
}

var _ Strategy = &PoolAllocator{}

func NewPoolAllocator(logger *slog.Logger, device native.MemoryDevice, options StrategyOptions) *PoolAllocator {
	largeHeap := options.LargeHeapBlockSize
	if largeHeap == 0 {
		largeHeap = defaultLargeHeapBlockSize
	}

	return &PoolAllocator{
		logger:     utils.LoggerOrNop(logger),
		device:     device,
		properties: device.MemoryProperties(),
		useMutex:   options.UseMutex,
		largeHeap:  largeHeap,
		mutex:      utils.OptionalRWMutex{UseMutex: options.UseMutex},
		pools:      swiss.NewMap[ids.HashVal, *memoryPool](8),
	}
}

func (a *PoolAllocator) Name() string { return "PoolAllocator" }

func (a *PoolAllocator) IsSupported(memoryType MemoryType) bool {
	return memoryType&MemoryTypeVirtual == 0
}

// CreatePool creates a pool that requests can name through MemoryDesc.Pool
func (a *PoolAllocator) CreatePool(id ids.MemPoolID, createInfo PoolCreateInfo) error {
	a.logger.Debug("PoolAllocator::CreatePool",
		slog.String("Pool", id.String()),
		slog.String("MemoryType", createInfo.MemoryType.String()),
		slog.Int("BlockSize", createInfo.BlockSize),
		slog.Bool("Linear", createInfo.Linear),
	)

	if !id.IsDefined() {
		return errors.New("attempted to create a pool with an undefined id")
	}
	if createInfo.MaxBlockCount > 0 && createInfo.MinBlockCount > createInfo.MaxBlockCount {
		return errors.Newf("provided MinBlockCount %d was greater than provided MaxBlockCount %d", createInfo.MinBlockCount, createInfo.MaxBlockCount)
	}
	if createInfo.BlockSize < 0 {
		return errors.Newf("provided BlockSize %d was negative", createInfo.BlockSize)
	}

	memoryTypeBits := createInfo.MemoryTypeBits
	if memoryTypeBits == 0 {
		memoryTypeBits = ^uint32(0)
	}
	required, preferred, notPreferred := createInfo.MemoryType.PropertyPreferences()
	memTypeIndex := findMemoryTypeIndex(&a.properties, memoryTypeBits, required, preferred, notPreferred)
	if memTypeIndex < 0 {
		return errors.Wrapf(ErrUnsupported, "no memory type has flags %s", required)
	}

	blockSize := createInfo.BlockSize
	if blockSize == 0 {
		blockSize = calculatePreferredBlockSize(&a.properties, memTypeIndex, a.largeHeap)
	}

	minAlignment := memoryTypeMinimumAlignment(&a.properties, memTypeIndex)
	if granularity := uint(a.properties.BufferImageGranularity); granularity > minAlignment {
		// Pools mix images and buffers in the same blocks
		minAlignment = granularity
	}

	pool := &memoryPool{
		id:              id,
		memoryTypeIndex: memTypeIndex,
		blocks: newBlockList(a.useMutex, a.logger, a.device, blockListConfig{
			memoryTypeIndex: memTypeIndex,
			blockSize:       blockSize,
			fixedBlockSize:  true,
			minBlocks:       createInfo.MinBlockCount,
			maxBlocks:       createInfo.MaxBlockCount,
			minAlignment:    minAlignment,
			mapBlocks:       createInfo.MemoryType.HasHostAccess(),
			linear:          createInfo.Linear,

			bufferImageGranularity: a.properties.BufferImageGranularity,
		}),
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.pools.Has(id.Hash()) {
		return errors.Newf("pool %s already exists", id)
	}

	err := pool.blocks.CreateMinBlocks()
	if err != nil {
		destroyErr := pool.blocks.Destroy()
		if destroyErr != nil {
			a.logger.Error("error attempting to destroy pool after creation failure", slog.Any("error", destroyErr))
		}
		return err
	}

	a.pools.Put(id.Hash(), pool)
	return nil
}

// DestroyPool frees every block of a pool. The pool must not have live allocations.
func (a *PoolAllocator) DestroyPool(id ids.MemPoolID) error {
	a.logger.Debug("PoolAllocator::DestroyPool", slog.String("Pool", id.String()))

	a.mutex.Lock()
	defer a.mutex.Unlock()

	pool, ok := a.pools.Get(id.Hash())
	if !ok {
		return errors.Wrapf(ErrPoolNotFound, "pool %s", id)
	}
	if !pool.blocks.HasNoAllocations() {
		return errors.Newf("pool %s still has live allocations", id)
	}

	a.pools.Delete(id.Hash())
	return pool.blocks.Destroy()
}

func (a *PoolAllocator) alloc(kind resourceKind, handle native.Handle, desc MemoryDesc) (Storage, error) {
	err := checkRequest(&a.properties, kind, desc)
	if err != nil {
		return Storage{}, err
	}
	if !desc.Pool.IsDefined() {
		return Storage{}, errors.Wrap(ErrPoolNotFound, "request does not name a pool")
	}

	a.mutex.RLock()
	pool, ok := a.pools.Get(desc.Pool.Hash())
	a.mutex.RUnlock()

	if !ok {
		return Storage{}, errors.Wrapf(ErrPoolNotFound, "pool %s", desc.Pool)
	}
	if desc.Requirements.MemoryTypeBits&(1<<pool.memoryTypeIndex) == 0 {
		return Storage{}, errors.Wrapf(ErrUnsupported, "pool %s uses memory type %d, which the resource does not accept", desc.Pool, pool.memoryTypeIndex)
	}

	block, allocHandle, offset, err := pool.blocks.Allocate(desc.Requirements.Size, uint(desc.Requirements.Alignment), kind.suballocationType(), handle)
	if err != nil {
		return Storage{}, errors.Wrapf(err, "pool %s", desc.Pool)
	}

	err = bindResource(a.device, kind, handle, block.handle, offset)
	if err != nil {
		freeErr := pool.blocks.Free(block, allocHandle)
		if freeErr != nil {
			a.logger.Error("failed to free pool allocation after a failed bind", slog.Any("error", freeErr))
		}
		return Storage{}, err
	}

	return Storage{
		Strategy:        a,
		Memory:          block.handle,
		MemoryTypeIndex: pool.memoryTypeIndex,
		Offset:          offset,
		Size:            desc.Requirements.Size,
		MappedData:      pool.blocks.mappedPointer(block, offset),
		BlockData:       &blockAllocation{list: pool.blocks, block: block, handle: allocHandle},
	}, nil
}

func (a *PoolAllocator) AllocForImage(image native.Handle, desc MemoryDesc) (Storage, error) {
	return a.alloc(resourceKindImage, image, desc)
}

func (a *PoolAllocator) AllocForBuffer(buffer native.Handle, desc MemoryDesc) (Storage, error) {
	return a.alloc(resourceKindBuffer, buffer, desc)
}

func (a *PoolAllocator) AllocForAccelStruct(accelStruct native.Handle, desc MemoryDesc) (Storage, error) {
	return a.alloc(resourceKindAccelStruct, accelStruct, desc)
}

func (a *PoolAllocator) Dealloc(storage *Storage) error {
	blockData, ok := storage.BlockData.(*blockAllocation)
	if !ok {
		return errors.Newf("storage passed to %s was not allocated by it", a.Name())
	}
	return blockData.list.Free(blockData.block, blockData.handle)
}

func (a *PoolAllocator) MemoryInfo(storage *Storage) (MemoryInfo, error) {
	if storage.Strategy != a {
		return MemoryInfo{}, errors.Newf("storage passed to %s was not allocated by it", a.Name())
	}
	return MemoryInfo{
		Memory:        storage.Memory,
		PropertyFlags: a.properties.MemoryTypes[storage.MemoryTypeIndex].PropertyFlags,
		Offset:        storage.Offset,
		Size:          storage.Size,
		MappedData:    storage.MappedData,
	}, nil
}

func (a *PoolAllocator) AddStatistics(stats *memutils.Statistics) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	a.pools.Iter(func(_ ids.HashVal, pool *memoryPool) bool {
		pool.blocks.AddStatistics(stats)
		return false
	})
}

func (a *PoolAllocator) BuildStatsString(writer *jwriter.Writer) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	obj := writer.Object()
	defer obj.End()

	a.pools.Iter(func(_ ids.HashVal, pool *memoryPool) bool {
		poolObj := obj.Name(pool.id.String()).Object()
		poolObj.Name("MemoryTypeIndex").Int(pool.memoryTypeIndex)

		var stats memutils.DetailedStatistics
		stats.Clear()
		pool.blocks.AddDetailedStatistics(&stats)
		writeDetailedStatistics(&poolObj, &stats)

		blocks := poolObj.Name("Blocks").Object()
		err := pool.blocks.PrintDetailedMap(&blocks)
		blocks.End()
		if err != nil {
			a.logger.Error("failed to print pool blocks", slog.String("Pool", pool.id.String()), slog.Any("error", err))
		}

		poolObj.End()
		return false
	})
}

func (a *PoolAllocator) Destroy() error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	var result error
	a.pools.Iter(func(_ ids.HashVal, pool *memoryPool) bool {
		result = errors.CombineErrors(result, pool.blocks.Destroy())
		return false
	})
	a.pools.Clear()
	return result
}
