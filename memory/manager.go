// Package memory backs buffers, images and acceleration structures with device memory. A Manager
// holds an ordered list of strategies and offers each request to them in turn until one succeeds.
package memory

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/arsenal/memutils"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/framegraph/ids"
	"github.com/vkngwrapper/framegraph/internal/utils"
	"github.com/vkngwrapper/framegraph/native"
	"golang.org/x/exp/slog"
)

// CreateFlags indicate specific manager behaviors to activate or deactivate
type CreateFlags int32

var managerCreateFlagsMapping = common.NewFlagStringMapping[CreateFlags]()

func (f CreateFlags) Register(str string) {
	managerCreateFlagsMapping.Register(f, str)
}
func (f CreateFlags) String() string {
	return managerCreateFlagsMapping.FlagsToString(f)
}

const (
	// CreateExternallySynchronized ensures that the manager and its strategies will not be
	// synchronized internally. The consumer must guarantee they are used from only one goroutine
	// at a time or are synchronized by some other mechanism.
	CreateExternallySynchronized CreateFlags = 1 << iota
	// CreateWithoutDefaultStrategies leaves the strategy list empty so that the consumer can
	// Register its own
	CreateWithoutDefaultStrategies
)

func init() {
	CreateExternallySynchronized.Register("CreateExternallySynchronized")
	CreateWithoutDefaultStrategies.Register("CreateWithoutDefaultStrategies")
}

// StrategyOptions contains the settings shared by the built-in strategies
type StrategyOptions struct {
	// UseMutex enables internal locking
	UseMutex bool
	// LargeHeapBlockSize is the block size used for heaps larger than a gigabyte. Smaller heaps
	// use an eighth of the heap.
	LargeHeapBlockSize int
	// VirtualBlockSize is the address range covered by each virtual block
	VirtualBlockSize int
}

// CreateOptions contains optional settings when creating a Manager
type CreateOptions struct {
	// Flags indicates specific manager behaviors to activate or deactivate
	Flags CreateFlags
	// PreferredLargeHeapBlockSize is the block size to use when allocating from heaps larger
	// than a gigabyte
	PreferredLargeHeapBlockSize int
	// VirtualBlockSize is the size of the address range reserved by each virtual block
	VirtualBlockSize int
}

// Manager routes memory requests through its strategies in registration order
type Manager struct {
	logger *slog.Logger
	device native.MemoryDevice

	raceCheck     *utils.RaceCheck
	strategies    [MaxStrategies]Strategy
	strategyCount int
}

// New creates a Manager. Unless CreateWithoutDefaultStrategies is set, it registers a
// PoolAllocator, DedicatedAllocator, HostAllocator, DeviceAllocator and VirtualAllocator, in
// that order.
func New(logger *slog.Logger, device native.MemoryDevice, options CreateOptions) (*Manager, error) {
	logger = utils.LoggerOrNop(logger)
	if options.PreferredLargeHeapBlockSize < 0 {
		return nil, errors.Newf("provided PreferredLargeHeapBlockSize %d was negative", options.PreferredLargeHeapBlockSize)
	}

	manager := &Manager{
		logger:    logger,
		device:    device,
		raceCheck: utils.NewRaceCheck("memory.Manager"),
	}

	if options.Flags&CreateWithoutDefaultStrategies != 0 {
		return manager, nil
	}

	strategyOptions := StrategyOptions{
		UseMutex:           options.Flags&CreateExternallySynchronized == 0,
		LargeHeapBlockSize: options.PreferredLargeHeapBlockSize,
		VirtualBlockSize:   options.VirtualBlockSize,
	}

	for _, strategy := range []Strategy{
		NewPoolAllocator(logger, device, strategyOptions),
		NewDedicatedAllocator(logger, device, strategyOptions),
		NewHostAllocator(logger, device, strategyOptions),
		NewDeviceAllocator(logger, device, strategyOptions),
		NewVirtualAllocator(logger, strategyOptions),
	} {
		err := manager.Register(strategy)
		if err != nil {
			return nil, err
		}
	}

	return manager, nil
}

// Register appends a strategy. Strategies registered earlier are offered requests first.
func (m *Manager) Register(strategy Strategy) error {
	m.raceCheck.Lock()
	defer m.raceCheck.Unlock()

	m.logger.Debug("Manager::Register", slog.String("strategy", strategy.Name()))

	if m.strategyCount >= MaxStrategies {
		return errors.Wrapf(ErrTooManyStrategies, "cannot register %s", strategy.Name())
	}

	m.strategies[m.strategyCount] = strategy
	m.strategyCount++
	return nil
}

// Strategies returns the registered strategies in order
func (m *Manager) Strategies() []Strategy {
	m.raceCheck.RLock()
	defer m.raceCheck.RUnlock()

	return append([]Strategy(nil), m.strategies[:m.strategyCount]...)
}

func (m *Manager) allocate(kind resourceKind, desc MemoryDesc, alloc func(strategy Strategy) (Storage, error)) (Storage, error) {
	m.raceCheck.RLock()
	defer m.raceCheck.RUnlock()

	var attempts error
	attemptCount := 0

	for _, strategy := range m.strategies[:m.strategyCount] {
		if !strategy.IsSupported(desc.Type) {
			continue
		}

		attemptCount++
		storage, err := alloc(strategy)
		if err == nil {
			return storage, nil
		}

		m.logger.LogAttrs(context.Background(), slog.LevelDebug, "strategy could not allocate, trying the next one",
			slog.String("strategy", strategy.Name()),
			slog.String("kind", kind.String()),
			slog.Any("error", err),
		)
		attempts = errors.CombineErrors(attempts, errors.Wrapf(err, "%s", strategy.Name()))
	}

	if attemptCount == 0 {
		return Storage{}, errors.WithSecondaryError(
			errors.Wrapf(ErrAllocationFailed, "no strategy supports %s memory of type %s", kind, desc.Type),
			errors.Wrapf(ErrUnsupported, "memory type %s", desc.Type),
		)
	}

	return Storage{}, errors.WithSecondaryError(
		errors.Wrapf(ErrAllocationFailed, "%d strategies failed to allocate %d bytes of %s memory of type %s", attemptCount, desc.Requirements.Size, kind, desc.Type),
		attempts,
	)
}

func (m *Manager) AllocateForImage(image native.Handle, desc MemoryDesc) (Storage, error) {
	m.logger.Debug("Manager::AllocateForImage")

	return m.allocate(resourceKindImage, desc, func(strategy Strategy) (Storage, error) {
		return strategy.AllocForImage(image, desc)
	})
}

func (m *Manager) AllocateForBuffer(buffer native.Handle, desc MemoryDesc) (Storage, error) {
	m.logger.Debug("Manager::AllocateForBuffer")

	return m.allocate(resourceKindBuffer, desc, func(strategy Strategy) (Storage, error) {
		return strategy.AllocForBuffer(buffer, desc)
	})
}

func (m *Manager) AllocateForAccelStruct(accelStruct native.Handle, desc MemoryDesc) (Storage, error) {
	m.logger.Debug("Manager::AllocateForAccelStruct")

	return m.allocate(resourceKindAccelStruct, desc, func(strategy Strategy) (Storage, error) {
		return strategy.AllocForAccelStruct(accelStruct, desc)
	})
}

// Deallocate returns storage to the strategy that produced it and clears it
func (m *Manager) Deallocate(storage *Storage) error {
	m.logger.Debug("Manager::Deallocate")

	if !storage.IsValid() {
		return errors.New("attempted to deallocate storage that is not allocated")
	}

	err := storage.Strategy.Dealloc(storage)
	if err != nil {
		return err
	}

	*storage = Storage{}
	return nil
}

func (m *Manager) MemoryInfo(storage *Storage) (MemoryInfo, error) {
	if !storage.IsValid() {
		return MemoryInfo{}, errors.New("attempted to retrieve memory info for storage that is not allocated")
	}
	return storage.Strategy.MemoryInfo(storage)
}

func (m *Manager) poolAllocator() (*PoolAllocator, error) {
	for _, strategy := range m.strategies[:m.strategyCount] {
		pools, ok := strategy.(*PoolAllocator)
		if ok {
			return pools, nil
		}
	}
	return nil, errors.Wrap(ErrUnsupported, "no PoolAllocator is registered")
}

// CreatePool creates a named pool on the first registered PoolAllocator
func (m *Manager) CreatePool(id ids.MemPoolID, createInfo PoolCreateInfo) error {
	m.raceCheck.RLock()
	defer m.raceCheck.RUnlock()

	pools, err := m.poolAllocator()
	if err != nil {
		return err
	}
	return pools.CreatePool(id, createInfo)
}

// DestroyPool destroys a named pool on the first registered PoolAllocator
func (m *Manager) DestroyPool(id ids.MemPoolID) error {
	m.raceCheck.RLock()
	defer m.raceCheck.RUnlock()

	pools, err := m.poolAllocator()
	if err != nil {
		return err
	}
	return pools.DestroyPool(id)
}

// Statistics sums the statistics of every strategy
func (m *Manager) Statistics() memutils.Statistics {
	m.raceCheck.RLock()
	defer m.raceCheck.RUnlock()

	var stats memutils.Statistics
	for _, strategy := range m.strategies[:m.strategyCount] {
		strategy.AddStatistics(&stats)
	}
	return stats
}

// BuildStatsString returns a JSON document describing every strategy's memory
func (m *Manager) BuildStatsString() string {
	m.raceCheck.RLock()
	defer m.raceCheck.RUnlock()

	writer := jwriter.NewWriter()
	obj := writer.Object()

	var total memutils.Statistics
	strategiesObj := obj.Name("Strategies").Object()
	for _, strategy := range m.strategies[:m.strategyCount] {
		var stats memutils.Statistics
		strategy.AddStatistics(&stats)
		total.AddStatistics(&stats)

		strategyObj := strategiesObj.Name(strategy.Name()).Object()
		writeStatistics(&strategyObj, &stats)
		strategy.BuildStatsString(strategyObj.Name("Detail"))
		strategyObj.End()
	}
	strategiesObj.End()

	totalObj := obj.Name("Total").Object()
	writeStatistics(&totalObj, &total)
	totalObj.End()

	obj.End()
	return string(writer.Bytes())
}

// Destroy destroys every strategy. Strategies with live allocations still free their native
// memory, but the leaks are reported in the returned error.
func (m *Manager) Destroy() error {
	m.raceCheck.Lock()
	defer m.raceCheck.Unlock()

	m.logger.Debug("Manager::Destroy")

	var result error
	for index := m.strategyCount - 1; index >= 0; index-- {
		result = errors.CombineErrors(result, m.strategies[index].Destroy())
		m.strategies[index] = nil
	}
	m.strategyCount = 0
	return result
}
