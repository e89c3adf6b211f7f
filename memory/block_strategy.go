package memory

import (
	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/arsenal/memutils"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/framegraph/internal/utils"
	"github.com/vkngwrapper/framegraph/native"
	"golang.org/x/exp/slog"
)

const (
	// defaultLargeHeapBlockSize is the block size used for heaps larger than a gigabyte when none is
	// provided via CreateOptions. It is equal to 256Mb.
	defaultLargeHeapBlockSize int = 256 * 1024 * 1024
	smallHeapMaxSize          int = 1024 * 1024 * 1024
)

func calculatePreferredBlockSize(properties *native.MemoryProperties, memTypeIndex int, largeHeapBlockSize int) int {
	heapIndex := properties.MemoryTypes[memTypeIndex].HeapIndex
	heapSize := properties.MemoryHeaps[heapIndex].Size

	rawSize := largeHeapBlockSize
	if heapSize <= smallHeapMaxSize {
		rawSize = heapSize / 8
	}

	return memutils.AlignUp(rawSize, 32)
}

// blockStrategy suballocates resources from lazily created per-memory-type block lists. When the
// device's buffer-image granularity is greater than 1, images get their own lists so that linear
// and optimal resources never share a page.
type blockStrategy struct {
	owner  Strategy
	logger *slog.Logger
	device native.MemoryDevice

	properties         native.MemoryProperties
	useMutex           bool
	largeHeapBlockSize int
	persistentlyMapped bool
	requiredFlags      core1_0.MemoryPropertyFlags
	separateImages     bool

	listMutex   utils.OptionalMutex
	linearLists [common.MaxMemoryTypes]*blockList
	imageLists  [common.MaxMemoryTypes]*blockList
}

func (s *blockStrategy) init(owner Strategy, logger *slog.Logger, device native.MemoryDevice, useMutex bool, largeHeapBlockSize int, persistentlyMapped bool, requiredFlags core1_0.MemoryPropertyFlags) {
	if largeHeapBlockSize == 0 {
		largeHeapBlockSize = defaultLargeHeapBlockSize
	}

	s.owner = owner
	s.logger = utils.LoggerOrNop(logger)
	s.device = device
	s.properties = device.MemoryProperties()
	s.useMutex = useMutex
	s.largeHeapBlockSize = largeHeapBlockSize
	s.persistentlyMapped = persistentlyMapped
	s.requiredFlags = requiredFlags
	s.separateImages = s.properties.BufferImageGranularity > 1
	s.listMutex = utils.OptionalMutex{UseMutex: useMutex}
}

func (s *blockStrategy) blockList(kind resourceKind, memTypeIndex int) *blockList {
	s.listMutex.Lock()
	defer s.listMutex.Unlock()

	lists := &s.linearLists
	if kind == resourceKindImage && s.separateImages {
		lists = &s.imageLists
	}

	if lists[memTypeIndex] == nil {
		lists[memTypeIndex] = newBlockList(s.useMutex, s.logger, s.device, blockListConfig{
			memoryTypeIndex: memTypeIndex,
			blockSize:       calculatePreferredBlockSize(&s.properties, memTypeIndex, s.largeHeapBlockSize),
			minAlignment:    memoryTypeMinimumAlignment(&s.properties, memTypeIndex),
			mapBlocks:       s.persistentlyMapped,

			bufferImageGranularity: s.properties.BufferImageGranularity,
		})
	}

	return lists[memTypeIndex]
}

func (s *blockStrategy) alloc(kind resourceKind, handle native.Handle, desc MemoryDesc) (Storage, error) {
	err := checkRequest(&s.properties, kind, desc)
	if err != nil {
		return Storage{}, err
	}

	required, preferred, notPreferred := desc.Type.PropertyPreferences()
	required |= s.requiredFlags

	memTypeIndex := findMemoryTypeIndex(&s.properties, desc.Requirements.MemoryTypeBits, required, preferred, notPreferred)
	if memTypeIndex < 0 {
		return Storage{}, errors.Wrapf(ErrUnsupported, "no memory type in bits %#x has flags %s", desc.Requirements.MemoryTypeBits, required)
	}

	list := s.blockList(kind, memTypeIndex)
	block, allocHandle, offset, err := list.Allocate(desc.Requirements.Size, uint(desc.Requirements.Alignment), kind.suballocationType(), handle)
	if err != nil {
		return Storage{}, err
	}

	err = bindResource(s.device, kind, handle, block.handle, offset)
	if err != nil {
		freeErr := list.Free(block, allocHandle)
		if freeErr != nil {
			s.logger.Error("failed to free block allocation after a failed bind", slog.Any("error", freeErr))
		}
		return Storage{}, err
	}

	return Storage{
		Strategy:        s.owner,
		Memory:          block.handle,
		MemoryTypeIndex: memTypeIndex,
		Offset:          offset,
		Size:            desc.Requirements.Size,
		MappedData:      list.mappedPointer(block, offset),
		BlockData:       &blockAllocation{list: list, block: block, handle: allocHandle},
	}, nil
}

func (s *blockStrategy) dealloc(storage *Storage) error {
	blockData, ok := storage.BlockData.(*blockAllocation)
	if !ok {
		return errors.Newf("storage passed to %s was not allocated by it", s.owner.Name())
	}
	return blockData.list.Free(blockData.block, blockData.handle)
}

func (s *blockStrategy) memoryInfo(storage *Storage) (MemoryInfo, error) {
	if storage.Strategy != s.owner {
		return MemoryInfo{}, errors.Newf("storage passed to %s was not allocated by it", s.owner.Name())
	}
	return MemoryInfo{
		Memory:        storage.Memory,
		PropertyFlags: s.properties.MemoryTypes[storage.MemoryTypeIndex].PropertyFlags,
		Offset:        storage.Offset,
		Size:          storage.Size,
		MappedData:    storage.MappedData,
	}, nil
}

func (s *blockStrategy) forEachList(visit func(list *blockList)) {
	s.listMutex.Lock()
	defer s.listMutex.Unlock()

	for _, lists := range [][common.MaxMemoryTypes]*blockList{s.linearLists, s.imageLists} {
		for _, list := range lists {
			if list != nil {
				visit(list)
			}
		}
	}
}

func (s *blockStrategy) addStatistics(stats *memutils.Statistics) {
	s.forEachList(func(list *blockList) {
		list.AddStatistics(stats)
	})
}

func (s *blockStrategy) buildStatsString(writer *jwriter.Writer) {
	obj := writer.Object()
	defer obj.End()

	var stats memutils.DetailedStatistics
	stats.Clear()
	s.forEachList(func(list *blockList) {
		list.AddDetailedStatistics(&stats)
	})
	writeDetailedStatistics(&obj, &stats)

	blocks := obj.Name("Blocks").Object()
	s.forEachList(func(list *blockList) {
		typeObj := blocks.Name("Type " + memoryTypeName(list.MemoryTypeIndex())).Object()
		err := list.PrintDetailedMap(&typeObj)
		typeObj.End()
		if err != nil {
			s.logger.Error("failed to print memory blocks", slog.String("strategy", s.owner.Name()), slog.Any("error", err))
		}
	})
	blocks.End()
}

func (s *blockStrategy) destroy() error {
	var result error
	s.forEachList(func(list *blockList) {
		result = errors.CombineErrors(result, list.Destroy())
	})
	s.linearLists = [common.MaxMemoryTypes]*blockList{}
	s.imageLists = [common.MaxMemoryTypes]*blockList{}
	return result
}
