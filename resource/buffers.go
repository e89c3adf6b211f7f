package resource

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/framegraph/ids"
	"github.com/vkngwrapper/framegraph/memory"
	"github.com/vkngwrapper/framegraph/native"
	"golang.org/x/exp/slog"
)

// allocateMemory backs a resource with storage from the memory manager and assigns the storage a
// memory slot. A nil desc leaves the resource's memory to the caller.
func (m *Manager) allocateMemory(desc *memory.MemoryDesc, allocate func(desc memory.MemoryDesc) (memory.Storage, error)) (ids.RawMemoryID, error) {
	if desc == nil {
		return ids.RawMemoryID{}, nil
	}
	if m.memory == nil {
		return ids.RawMemoryID{}, errors.New("a memory desc was provided but the resource manager has no memory manager")
	}
	if !m.memories.hasRoom() {
		return ids.RawMemoryID{}, errors.Wrapf(ErrPoolFull, "%s pool already holds its maximum of %d resources", m.memories.kindName(), m.memories.capacityLimit())
	}

	storage, err := allocate(*desc)
	if err != nil {
		return ids.RawMemoryID{}, err
	}

	id, _, err := assign[ids.MemoryKind](&m.memories, storage)
	if err != nil {
		m.discardStorage(&storage)
		return ids.RawMemoryID{}, err
	}
	return id, nil
}

// discardMemory undoes allocateMemory for a resource that failed to be assigned
func (m *Manager) discardMemory(id ids.RawMemoryID) {
	s, ok := lookup(&m.memories, id)
	if !ok {
		return
	}
	m.memories.markPending(s)
	storage, _ := m.memories.recycle(id.Index(), id.Generation())
	m.discardStorage(&storage)
}

func (m *Manager) discardStorage(storage *memory.Storage) {
	err := m.memory.Deallocate(storage)
	if err != nil {
		m.logger.Error("failed to return memory after a failed assignment", slog.Any("error", err))
	}
}

func (m *Manager) retireMemory(id ids.RawMemoryID) {
	if !id.IsValid() {
		return
	}

	s, ok := lookup(&m.memories, id)
	if !ok {
		m.logger.Error("resource referred to memory that is not assigned", slog.String("memory", id.String()))
		return
	}
	m.memories.markPending(s)
	m.deferUnassign(ids.Of(id))
}

// AssignBuffer assigns an identity to a buffer the caller created. If memDesc is not nil, memory is
// allocated and bound to the buffer first, and is returned to the memory manager when the buffer is
// destroyed. On failure nothing is assigned and the caller still owns the buffer.
func (m *Manager) AssignBuffer(handle native.Handle, desc BufferDesc, memDesc *memory.MemoryDesc) (ids.BufferID, error) {
	m.raceCheck.Lock()
	defer m.raceCheck.Unlock()

	if !m.buffers.hasRoom() {
		return ids.BufferID{}, errors.Wrapf(ErrPoolFull, "%s pool already holds its maximum of %d resources", m.buffers.kindName(), m.buffers.capacityLimit())
	}

	memoryID, err := m.allocateMemory(memDesc, func(desc memory.MemoryDesc) (memory.Storage, error) {
		return m.memory.AllocateForBuffer(handle, desc)
	})
	if err != nil {
		return ids.BufferID{}, errors.Wrapf(err, "failed to allocate memory for buffer %d", handle)
	}

	id, _, err := assign[ids.BufferKind](&m.buffers, Buffer{Handle: handle, Desc: desc, Memory: memoryID})
	if err != nil {
		m.discardMemory(memoryID)
		return ids.BufferID{}, err
	}

	m.logger.Debug("Manager::AssignBuffer", slog.String("id", id.String()), slog.Int("size", desc.Size))
	return ids.NewStrong(id), nil
}

// UnassignBuffer releases id. The buffer, and any memory assigned with it, are destroyed at the end
// of the frame.
func (m *Manager) UnassignBuffer(id *ids.BufferID) error {
	m.raceCheck.Lock()
	defer m.raceCheck.Unlock()

	raw := id.Get()
	s, ok := lookup(&m.buffers, raw)
	if !ok {
		return staleID(raw)
	}

	id.Release()
	m.retireBuffer(raw, s)
	return nil
}

func (m *Manager) retireBuffer(id ids.RawBufferID, s *slot[Buffer]) {
	m.logger.Debug("Manager::UnassignBuffer", slog.String("id", id.String()))

	m.buffers.markPending(s)
	m.DeferDestroy(native.ObjectTypeBuffer, s.data.Handle)
	m.deferUnassign(ids.Of(id))
	m.retireMemory(s.data.Memory)
}

// GetBuffer returns the buffer id refers to. It fails if id is stale.
func (m *Manager) GetBuffer(id ids.RawBufferID) (Buffer, bool) {
	return get(&m.buffers, id)
}

// AssignImage assigns an identity to an image the caller created. If memDesc is not nil, memory is
// allocated and bound to the image first. On failure nothing is assigned and the caller still owns
// the image.
func (m *Manager) AssignImage(handle native.Handle, desc ImageDesc, memDesc *memory.MemoryDesc) (ids.ImageID, error) {
	m.raceCheck.Lock()
	defer m.raceCheck.Unlock()

	if !m.images.hasRoom() {
		return ids.ImageID{}, errors.Wrapf(ErrPoolFull, "%s pool already holds its maximum of %d resources", m.images.kindName(), m.images.capacityLimit())
	}

	memoryID, err := m.allocateMemory(memDesc, func(desc memory.MemoryDesc) (memory.Storage, error) {
		return m.memory.AllocateForImage(handle, desc)
	})
	if err != nil {
		return ids.ImageID{}, errors.Wrapf(err, "failed to allocate memory for image %d", handle)
	}

	id, _, err := assign[ids.ImageKind](&m.images, Image{Handle: handle, Desc: desc, Memory: memoryID})
	if err != nil {
		m.discardMemory(memoryID)
		return ids.ImageID{}, err
	}

	m.logger.Debug("Manager::AssignImage", slog.String("id", id.String()))
	return ids.NewStrong(id), nil
}

func (m *Manager) UnassignImage(id *ids.ImageID) error {
	m.raceCheck.Lock()
	defer m.raceCheck.Unlock()

	raw := id.Get()
	s, ok := lookup(&m.images, raw)
	if !ok {
		return staleID(raw)
	}

	id.Release()
	m.retireImage(raw, s)
	return nil
}

func (m *Manager) retireImage(id ids.RawImageID, s *slot[Image]) {
	m.logger.Debug("Manager::UnassignImage", slog.String("id", id.String()))

	m.images.markPending(s)
	m.DeferDestroy(native.ObjectTypeImage, s.data.Handle)
	m.deferUnassign(ids.Of(id))
	m.retireMemory(s.data.Memory)
}

func (m *Manager) GetImage(id ids.RawImageID) (Image, bool) {
	return get(&m.images, id)
}

// AssignMemory assigns an identity to storage the caller allocated from the manager's memory
// manager. The storage is deallocated at the end of the frame in which the identity is released.
func (m *Manager) AssignMemory(storage memory.Storage) (ids.MemoryID, error) {
	m.raceCheck.Lock()
	defer m.raceCheck.Unlock()

	if m.memory == nil {
		return ids.MemoryID{}, errors.New("attempted to assign memory without a memory manager")
	}
	if !storage.IsValid() {
		return ids.MemoryID{}, errors.New("attempted to assign storage that is not allocated")
	}

	id, _, err := assign[ids.MemoryKind](&m.memories, storage)
	if err != nil {
		return ids.MemoryID{}, err
	}

	m.logger.Debug("Manager::AssignMemory", slog.String("id", id.String()), slog.String("strategy", storage.Strategy.Name()))
	return ids.NewStrong(id), nil
}

func (m *Manager) UnassignMemory(id *ids.MemoryID) error {
	m.raceCheck.Lock()
	defer m.raceCheck.Unlock()

	raw := id.Get()
	if _, ok := lookup(&m.memories, raw); !ok {
		return staleID(raw)
	}

	id.Release()
	m.retireMemory(raw)
	return nil
}

func (m *Manager) GetMemory(id ids.RawMemoryID) (memory.Storage, bool) {
	return get(&m.memories, id)
}

// MemoryInfo describes the memory behind id
func (m *Manager) MemoryInfo(id ids.RawMemoryID) (memory.MemoryInfo, error) {
	storage, ok := get(&m.memories, id)
	if !ok {
		return memory.MemoryInfo{}, errors.Wrapf(ErrStaleID, "%s", id)
	}
	return m.memory.MemoryInfo(&storage)
}

func (m *Manager) assignAccelStruct(p *pool[AccelStruct], handle native.Handle, desc AccelStructDesc, memDesc *memory.MemoryDesc) (uint16, uint16, error) {
	if !p.hasRoom() {
		return 0, 0, errors.Wrapf(ErrPoolFull, "%s pool already holds its maximum of %d resources", p.kindName(), p.capacityLimit())
	}

	memoryID, err := m.allocateMemory(memDesc, func(desc memory.MemoryDesc) (memory.Storage, error) {
		return m.memory.AllocateForAccelStruct(handle, desc)
	})
	if err != nil {
		return 0, 0, errors.Wrapf(err, "failed to allocate memory for acceleration structure %d", handle)
	}

	index, generation, _, err := p.assign(AccelStruct{Handle: handle, Desc: desc, Memory: memoryID}, stateCreated)
	if err != nil {
		m.discardMemory(memoryID)
		return 0, 0, err
	}
	return index, generation, nil
}

func (m *Manager) retireAccelStruct(p *pool[AccelStruct], id ids.Untyped, s *slot[AccelStruct]) {
	p.markPending(s)
	m.DeferDestroy(native.ObjectTypeAccelerationStructureKHR, s.data.Handle)
	m.deferUnassign(id)
	m.retireMemory(s.data.Memory)
}

// AssignRTGeometry assigns an identity to a bottom-level acceleration structure
func (m *Manager) AssignRTGeometry(handle native.Handle, desc AccelStructDesc, memDesc *memory.MemoryDesc) (ids.RTGeometryID, error) {
	m.raceCheck.Lock()
	defer m.raceCheck.Unlock()

	index, generation, err := m.assignAccelStruct(&m.rtGeometries, handle, desc, memDesc)
	if err != nil {
		return ids.RTGeometryID{}, err
	}

	id := ids.NewResourceID[ids.RTGeometryKind](index, generation)
	m.logger.Debug("Manager::AssignRTGeometry", slog.String("id", id.String()))
	return ids.NewStrong(id), nil
}

func (m *Manager) UnassignRTGeometry(id *ids.RTGeometryID) error {
	m.raceCheck.Lock()
	defer m.raceCheck.Unlock()

	raw := id.Get()
	s, ok := lookup(&m.rtGeometries, raw)
	if !ok {
		return staleID(raw)
	}

	id.Release()
	m.retireAccelStruct(&m.rtGeometries, ids.Of(raw), s)
	return nil
}

func (m *Manager) GetRTGeometry(id ids.RawRTGeometryID) (AccelStruct, bool) {
	return get(&m.rtGeometries, id)
}

// AssignRTScene assigns an identity to a top-level acceleration structure
func (m *Manager) AssignRTScene(handle native.Handle, desc AccelStructDesc, memDesc *memory.MemoryDesc) (ids.RTSceneID, error) {
	m.raceCheck.Lock()
	defer m.raceCheck.Unlock()

	index, generation, err := m.assignAccelStruct(&m.rtScenes, handle, desc, memDesc)
	if err != nil {
		return ids.RTSceneID{}, err
	}

	id := ids.NewResourceID[ids.RTSceneKind](index, generation)
	m.logger.Debug("Manager::AssignRTScene", slog.String("id", id.String()))
	return ids.NewStrong(id), nil
}

func (m *Manager) UnassignRTScene(id *ids.RTSceneID) error {
	m.raceCheck.Lock()
	defer m.raceCheck.Unlock()

	raw := id.Get()
	s, ok := lookup(&m.rtScenes, raw)
	if !ok {
		return staleID(raw)
	}

	id.Release()
	m.retireAccelStruct(&m.rtScenes, ids.Of(raw), s)
	return nil
}

func (m *Manager) GetRTScene(id ids.RawRTSceneID) (AccelStruct, bool) {
	return get(&m.rtScenes, id)
}
