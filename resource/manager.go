// Package resource assigns generational identities to native objects and defers their destruction
// to the frame boundary. Samplers, descriptor set layouts and pipeline layouts are deduplicated by
// content and reference counted.
package resource

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/framegraph/ids"
	"github.com/vkngwrapper/framegraph/internal/utils"
	"github.com/vkngwrapper/framegraph/memory"
	"github.com/vkngwrapper/framegraph/native"
	"golang.org/x/exp/slog"
)

// initialDestroyQueueCapacity is the capacity reserved for the deferred-destroy queue. The queue
// grows past it as needed.
const initialDestroyQueueCapacity = 256

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
	// CreateExternallySynchronized removes the mutex around the deferred-destroy and unassign
	// queues. The consumer must guarantee that resources are only released from the frame
	// goroutine.
	CreateExternallySynchronized CreateFlags = 1 << iota
)

func init() {
	CreateExternallySynchronized.Register("CreateExternallySynchronized")
}

// CreateOptions contains optional settings when creating a Manager
type CreateOptions struct {
	// Flags indicates specific manager behaviors to activate or deactivate
	Flags CreateFlags
	// PoolCapacity is the maximum number of live resources of each kind. When 0, 4096 is used.
	PoolCapacity int
}

// Manager owns the identity pools of every resource kind. Assign, Unassign and the frame hooks
// must be called from a single goroutine at a time; Get methods may be called from any goroutine
// between OnBeginFrame and OnEndFrame.
type Manager struct {
	logger       *slog.Logger
	device       native.Device
	destroyTable native.DestroyTable
	memory       *memory.Manager

	raceCheck *utils.RaceCheck
	frame     uint64

	buffers      pool[Buffer]
	images       pool[Image]
	memories     pool[memory.Storage]
	rtGeometries pool[AccelStruct]
	rtScenes     pool[AccelStruct]
	gPipelines   pool[Pipeline]
	mPipelines   pool[Pipeline]
	cPipelines   pool[Pipeline]
	rtPipelines  pool[Pipeline]

	samplers        cachedPool[Sampler]
	dsLayouts       cachedPool[DescriptorSetLayout]
	pipelineLayouts cachedPool[PipelineLayout]

	queueMutex    utils.OptionalMutex
	readyToDelete []native.DestroyEntry
	unassignIDs   []ids.Untyped
}

// New creates a Manager. memoryManager may be nil if resources will never be assigned with a
// memory.MemoryDesc.
func New(logger *slog.Logger, device native.Device, memoryManager *memory.Manager, options CreateOptions) (*Manager, error) {
	logger = utils.LoggerOrNop(logger)
	if device == nil {
		return nil, errors.New("attempted to create a resource manager without a device")
	}

	capacity := options.PoolCapacity
	if capacity == 0 {
		capacity = defaultPoolCapacity
	}
	if capacity < 0 || capacity > int(ids.MaxIndex)+1 {
		return nil, errors.Newf("provided PoolCapacity %d was outside the range [1, %d]", capacity, int(ids.MaxIndex)+1)
	}

	m := &Manager{
		logger:        logger,
		device:        device,
		destroyTable:  native.NewDestroyTable(device),
		memory:        memoryManager,
		raceCheck:     utils.NewRaceCheck("resource.Manager"),
		queueMutex:    utils.OptionalMutex{UseMutex: options.Flags&CreateExternallySynchronized == 0},
		readyToDelete: make([]native.DestroyEntry, 0, initialDestroyQueueCapacity),
	}

	m.buffers.init(ids.BufferKind{}.KindName(), capacity)
	m.images.init(ids.ImageKind{}.KindName(), capacity)
	m.memories.init(ids.MemoryKind{}.KindName(), capacity)
	m.rtGeometries.init(ids.RTGeometryKind{}.KindName(), capacity)
	m.rtScenes.init(ids.RTSceneKind{}.KindName(), capacity)
	m.gPipelines.init(ids.GPipelineKind{}.KindName(), capacity)
	m.mPipelines.init(ids.MPipelineKind{}.KindName(), capacity)
	m.cPipelines.init(ids.CPipelineKind{}.KindName(), capacity)
	m.rtPipelines.init(ids.RTPipelineKind{}.KindName(), capacity)
	m.samplers.init(ids.SamplerKind{}.KindName(), capacity)
	m.dsLayouts.init(ids.DescriptorSetLayoutKind{}.KindName(), capacity)
	m.pipelineLayouts.init(ids.PipelineLayoutKind{}.KindName(), capacity)

	return m, nil
}

// Frame returns the number of frames begun so far
func (m *Manager) Frame() uint64 {
	m.raceCheck.RLock()
	defer m.raceCheck.RUnlock()

	return m.frame
}

// OnBeginFrame opens a new frame
func (m *Manager) OnBeginFrame() {
	m.raceCheck.Lock()
	defer m.raceCheck.Unlock()

	m.frame++
	m.logger.Debug("Manager::OnBeginFrame", slog.Uint64("frame", m.frame))
}

// OnEndFrame destroys every native object released during the frame, then recycles the
// identities that referred to them
func (m *Manager) OnEndFrame() {
	m.raceCheck.Lock()
	defer m.raceCheck.Unlock()

	m.logger.Debug("Manager::OnEndFrame", slog.Uint64("frame", m.frame))

	m.deleteResources()
	m.unassignResourceIDs()
}

// OnDestroy releases everything the manager still holds. Leaked resources are logged and
// destroyed, and every cache entry is evicted regardless of its reference count.
func (m *Manager) OnDestroy() {
	m.raceCheck.Lock()
	m.logger.Debug("Manager::OnDestroy")

	m.destroyLeakedResources()

	m.samplers.forEachLive(func(index uint16, generation uint16, s *slot[Sampler]) {
		m.retireSampler(ids.NewResourceID[ids.SamplerKind](index, generation), s)
	})
	m.pipelineLayouts.forEachLive(func(index uint16, generation uint16, s *slot[PipelineLayout]) {
		m.retirePipelineLayout(ids.NewResourceID[ids.PipelineLayoutKind](index, generation), s)
	})
	m.dsLayouts.forEachLive(func(index uint16, generation uint16, s *slot[DescriptorSetLayout]) {
		m.retireDescriptorSetLayout(ids.NewResourceID[ids.DescriptorSetLayoutKind](index, generation), s)
	})
	m.raceCheck.Unlock()

	m.OnEndFrame()
}

func logLeak[K ids.Kind](m *Manager, id ids.ResourceID[K]) {
	m.logger.LogAttrs(context.Background(), slog.LevelWarn, "[UNRELEASED RESOURCE] resource was still assigned at shutdown",
		slog.String("id", id.String()),
	)
}

// destroyLeakedResources retires live resources of the uncached kinds, dependents first
func (m *Manager) destroyLeakedResources() {
	for _, pipelines := range []struct {
		pool *pool[Pipeline]
		id   func(index, generation uint16) ids.Untyped
	}{
		{&m.gPipelines, func(index, generation uint16) ids.Untyped {
			return ids.Of(ids.NewResourceID[ids.GPipelineKind](index, generation))
		}},
		{&m.mPipelines, func(index, generation uint16) ids.Untyped {
			return ids.Of(ids.NewResourceID[ids.MPipelineKind](index, generation))
		}},
		{&m.cPipelines, func(index, generation uint16) ids.Untyped {
			return ids.Of(ids.NewResourceID[ids.CPipelineKind](index, generation))
		}},
		{&m.rtPipelines, func(index, generation uint16) ids.Untyped {
			return ids.Of(ids.NewResourceID[ids.RTPipelineKind](index, generation))
		}},
	} {
		pipelines.pool.forEachLive(func(index uint16, generation uint16, s *slot[Pipeline]) {
			id := pipelines.id(index, generation)
			m.logger.LogAttrs(context.Background(), slog.LevelWarn, "[UNRELEASED RESOURCE] pipeline was still assigned at shutdown",
				slog.String("kind", pipelines.pool.kindName()),
				slog.Int("index", int(index)),
			)
			m.retirePipeline(pipelines.pool, id, s)
		})
	}

	m.rtScenes.forEachLive(func(index uint16, generation uint16, s *slot[AccelStruct]) {
		id := ids.NewResourceID[ids.RTSceneKind](index, generation)
		logLeak(m, id)
		m.retireAccelStruct(&m.rtScenes, ids.Of(id), s)
	})
	m.rtGeometries.forEachLive(func(index uint16, generation uint16, s *slot[AccelStruct]) {
		id := ids.NewResourceID[ids.RTGeometryKind](index, generation)
		logLeak(m, id)
		m.retireAccelStruct(&m.rtGeometries, ids.Of(id), s)
	})
	m.images.forEachLive(func(index uint16, generation uint16, s *slot[Image]) {
		id := ids.NewResourceID[ids.ImageKind](index, generation)
		logLeak(m, id)
		m.retireImage(id, s)
	})
	m.buffers.forEachLive(func(index uint16, generation uint16, s *slot[Buffer]) {
		id := ids.NewResourceID[ids.BufferKind](index, generation)
		logLeak(m, id)
		m.retireBuffer(id, s)
	})
	m.memories.forEachLive(func(index uint16, generation uint16, s *slot[memory.Storage]) {
		id := ids.NewResourceID[ids.MemoryKind](index, generation)
		logLeak(m, id)
		m.retireMemory(id)
	})
}

// DeferDestroy queues a native object for destruction at the end of the frame. It may be called
// from any goroutine unless the manager was created with CreateExternallySynchronized.
func (m *Manager) DeferDestroy(objectType native.ObjectType, handle native.Handle) {
	m.queueMutex.Lock()
	defer m.queueMutex.Unlock()

	m.readyToDelete = append(m.readyToDelete, native.DestroyEntry{Type: objectType, Handle: handle})
}

func (m *Manager) deferUnassign(id ids.Untyped) {
	m.queueMutex.Lock()
	defer m.queueMutex.Unlock()

	m.unassignIDs = append(m.unassignIDs, id)
}

func (m *Manager) deleteResources() {
	m.queueMutex.Lock()
	defer m.queueMutex.Unlock()

	for _, entry := range m.readyToDelete {
		if !m.destroyTable.Destroy(entry) {
			m.logger.LogAttrs(context.Background(), slog.LevelError, "resource type is not supported",
				slog.String("type", entry.Type.String()),
				slog.Uint64("handle", uint64(entry.Handle)),
			)
		}
	}
	m.readyToDelete = m.readyToDelete[:0]
}

func (m *Manager) unassignResourceIDs() {
	m.queueMutex.Lock()
	unassignIDs := m.unassignIDs
	m.unassignIDs = nil
	m.queueMutex.Unlock()

	for _, id := range unassignIDs {
		var ok bool

		switch id.UID {
		case ids.BufferUID:
			_, ok = recycle[ids.BufferKind](&m.buffers, id)
		case ids.ImageUID:
			_, ok = recycle[ids.ImageKind](&m.images, id)
		case ids.MemoryUID:
			ok = m.releaseMemory(id)
		case ids.RTGeometryUID:
			_, ok = recycle[ids.RTGeometryKind](&m.rtGeometries, id)
		case ids.RTSceneUID:
			_, ok = recycle[ids.RTSceneKind](&m.rtScenes, id)
		case ids.GPipelineUID:
			_, ok = recycle[ids.GPipelineKind](&m.gPipelines, id)
		case ids.MPipelineUID:
			_, ok = recycle[ids.MPipelineKind](&m.mPipelines, id)
		case ids.CPipelineUID:
			_, ok = recycle[ids.CPipelineKind](&m.cPipelines, id)
		case ids.RTPipelineUID:
			_, ok = recycle[ids.RTPipelineKind](&m.rtPipelines, id)
		case ids.SamplerUID:
			_, ok = recycle[ids.SamplerKind](&m.samplers.pool, id)
		case ids.DescriptorSetLayoutUID:
			_, ok = recycle[ids.DescriptorSetLayoutKind](&m.dsLayouts.pool, id)
		case ids.PipelineLayoutUID:
			_, ok = recycle[ids.PipelineLayoutKind](&m.pipelineLayouts.pool, id)
		}

		if !ok {
			m.logger.LogAttrs(context.Background(), slog.LevelError, "failed to unassign resource id",
				slog.Uint64("uid", uint64(id.UID)),
				slog.Uint64("data", uint64(id.Data)),
			)
		}
	}
}

func (m *Manager) releaseMemory(id ids.Untyped) bool {
	storage, ok := recycle[ids.MemoryKind](&m.memories, id)
	if !ok {
		return false
	}
	if m.memory == nil {
		return true
	}

	err := m.memory.Deallocate(&storage)
	if err != nil {
		m.logger.LogAttrs(context.Background(), slog.LevelError, "failed to return resource memory",
			slog.Uint64("memory", uint64(storage.Memory)),
			slog.Any("error", err),
		)
	}
	return true
}

func staleID(id interface{ String() string }) error {
	utils.DebugAssert(false, "%s is stale or was never assigned", id)
	return errors.Wrapf(ErrStaleID, "%s", id)
}
