package resource

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/framegraph/ids"
	"github.com/vkngwrapper/framegraph/memory"
	"github.com/vkngwrapper/framegraph/native"
	"github.com/vkngwrapper/framegraph/native/fake"
)

func newTestManager(t *testing.T, options CreateOptions) (*Manager, *fake.Device, *memory.Manager) {
	device := fake.New(fake.DefaultProperties())

	memoryManager, err := memory.New(nil, device, memory.CreateOptions{})
	require.NoError(t, err)

	manager, err := New(nil, device, memoryManager, options)
	require.NoError(t, err)

	return manager, device, memoryManager
}

func creator(device *fake.Device, objectType native.ObjectType, calls *int) CreateFunc {
	return func() (native.Handle, error) {
		*calls++
		return device.Create(objectType), nil
	}
}

func deviceLocalMemory(size int) *memory.MemoryDesc {
	return &memory.MemoryDesc{
		Type: memory.MemoryTypeDeviceLocal,
		Requirements: core1_0.MemoryRequirements{
			Size:           size,
			Alignment:      256,
			MemoryTypeBits: 0xF,
		},
	}
}

func poolStats(t *testing.T, manager *Manager, kind string) PoolStats {
	for _, pool := range manager.Stats().Pools {
		if pool.Kind == kind {
			return pool
		}
	}
	require.Failf(t, "pool not found", "no pool named %s", kind)
	return PoolStats{}
}

func TestManager_GetFailsForMismatchedGeneration(t *testing.T) {
	manager, device, _ := newTestManager(t, CreateOptions{})

	id, err := manager.AssignBuffer(device.Create(native.ObjectTypeBuffer), BufferDesc{Size: 64}, nil)
	require.NoError(t, err)
	raw := id.Get()

	_, ok := manager.GetBuffer(raw)
	require.True(t, ok)

	_, ok = manager.GetBuffer(ids.NewResourceID[ids.BufferKind](raw.Index(), raw.Generation()+1))
	require.False(t, ok)
	_, ok = manager.GetBuffer(ids.RawBufferID{})
	require.False(t, ok)
	_, ok = manager.GetBuffer(ids.NewResourceID[ids.BufferKind](raw.Index()+1, raw.Generation()))
	require.False(t, ok)

	require.NoError(t, manager.UnassignBuffer(&id))
	require.False(t, id.IsValid())

	// Pending slots no longer resolve, even before the frame ends
	_, ok = manager.GetBuffer(raw)
	require.False(t, ok)

	manager.OnEndFrame()
	_, ok = manager.GetBuffer(raw)
	require.False(t, ok)
	require.Equal(t, 1, device.DestroyedCount(native.ObjectTypeBuffer))
}

func TestManager_ReleasedIndexIsReusedWithNewGeneration(t *testing.T) {
	manager, device, _ := newTestManager(t, CreateOptions{})

	var images []ids.ImageID
	for i := 0; i < 4; i++ {
		id, err := manager.AssignImage(device.Create(native.ObjectTypeImage), ImageDesc{MipLevels: 1, ArrayLayers: 1}, nil)
		require.NoError(t, err)
		images = append(images, id)
	}

	imageA := images[3]
	rawA := imageA.Get()
	require.Equal(t, uint16(3), rawA.Index())
	require.Equal(t, uint16(0), rawA.Generation())

	manager.OnBeginFrame()
	require.NoError(t, manager.UnassignImage(&imageA))
	manager.OnEndFrame()

	imageB, err := manager.AssignImage(device.Create(native.ObjectTypeImage), ImageDesc{MipLevels: 1, ArrayLayers: 1}, nil)
	require.NoError(t, err)
	rawB := imageB.Get()
	require.Equal(t, uint16(3), rawB.Index())
	require.Equal(t, uint16(1), rawB.Generation())

	_, ok := manager.GetImage(rawA)
	require.False(t, ok)
	_, ok = manager.GetImage(rawB)
	require.True(t, ok)

	images[3] = imageB
	for i := range images {
		require.NoError(t, manager.UnassignImage(&images[i]))
	}
	manager.OnDestroy()
	require.Equal(t, 0, device.LiveCount(native.ObjectTypeImage))
}

func TestManager_IdenticalDescriptorsShareIdentity(t *testing.T) {
	manager, device, _ := newTestManager(t, CreateOptions{})

	calls := 0
	desc := SamplerDesc{MagFilter: core1_0.Filter(1), MinFilter: core1_0.Filter(1), MaxLod: 12}

	first, err := manager.AssignSampler(desc, creator(device, native.ObjectTypeSampler, &calls))
	require.NoError(t, err)
	second, err := manager.AssignSampler(desc, creator(device, native.ObjectTypeSampler, &calls))
	require.NoError(t, err)
	require.Equal(t, first.Get(), second.Get())
	require.Equal(t, 1, calls)

	other, err := manager.AssignSampler(SamplerDesc{MaxLod: 4}, creator(device, native.ObjectTypeSampler, &calls))
	require.NoError(t, err)
	require.NotEqual(t, first.Get(), other.Get())
	require.Equal(t, 2, calls)

	require.NoError(t, manager.UnassignSampler(&first))
	manager.OnEndFrame()
	_, ok := manager.GetSampler(second.Get())
	require.True(t, ok)
	require.Equal(t, 0, device.DestroyedCount(native.ObjectTypeSampler))

	require.NoError(t, manager.UnassignSampler(&second))
	require.NoError(t, manager.UnassignSampler(&other))
	manager.OnEndFrame()
	require.Equal(t, 2, device.DestroyedCount(native.ObjectTypeSampler))

	// The cache no longer holds the destroyed sampler
	third, err := manager.AssignSampler(desc, creator(device, native.ObjectTypeSampler, &calls))
	require.NoError(t, err)
	require.Equal(t, 3, calls)
	require.NoError(t, manager.UnassignSampler(&third))
	manager.OnDestroy()
}

func TestManager_DescriptorSetLayoutContentCache(t *testing.T) {
	manager, device, _ := newTestManager(t, CreateOptions{})

	calls := 0
	desc := DescriptorSetLayoutDesc{Bindings: []DescriptorBinding{
		{Binding: 0, Type: core1_0.DescriptorType(6), Count: 1, Stages: core1_0.ShaderStageFlags(1)},
		{Binding: 1, Type: core1_0.DescriptorType(1), Count: 4, Stages: core1_0.ShaderStageFlags(16)},
	}}
	copied := DescriptorSetLayoutDesc{Bindings: append([]DescriptorBinding(nil), desc.Bindings...)}

	first, err := manager.AssignDescriptorSetLayout(desc, creator(device, native.ObjectTypeDescriptorSetLayout, &calls))
	require.NoError(t, err)
	second, err := manager.AssignDescriptorSetLayout(copied, creator(device, native.ObjectTypeDescriptorSetLayout, &calls))
	require.NoError(t, err)
	require.Equal(t, first.Get(), second.Get())
	require.Equal(t, 1, calls)

	// Mutating the caller's slice does not disturb the cached descriptor
	desc.Bindings[0].Count = 2
	layout, ok := manager.GetDescriptorSetLayout(first.Get())
	require.True(t, ok)
	require.Equal(t, 1, layout.Desc.Bindings[0].Count)

	require.NoError(t, manager.UnassignDescriptorSetLayout(&first))
	require.NoError(t, manager.UnassignDescriptorSetLayout(&second))
	manager.OnEndFrame()
	require.Equal(t, 1, device.DestroyedCount(native.ObjectTypeDescriptorSetLayout))
}

func TestManager_CreateFailureAssignsNothing(t *testing.T) {
	manager, _, _ := newTestManager(t, CreateOptions{})

	_, err := manager.AssignSampler(SamplerDesc{}, func() (native.Handle, error) {
		return native.NullHandle, errors.New("out of host memory")
	})
	require.Error(t, err)
	require.Equal(t, 0, poolStats(t, manager, "Sampler").Live)
	require.Equal(t, 0, poolStats(t, manager, "Sampler").Cached)
}

func TestManager_PipelineLayoutHoldsDescriptorSetLayouts(t *testing.T) {
	manager, device, _ := newTestManager(t, CreateOptions{})

	calls := 0
	dsLayout, err := manager.AssignDescriptorSetLayout(DescriptorSetLayoutDesc{}, creator(device, native.ObjectTypeDescriptorSetLayout, &calls))
	require.NoError(t, err)

	layoutDesc := PipelineLayoutDesc{
		DescriptorSets: []DescriptorSet{
			{ID: ids.NewNamedID[ids.DescriptorSetKind]("PerPass"), Layout: dsLayout.Get()},
		},
		PushConstants: []PushConstantRange{
			{ID: ids.NewNamedID[ids.PushConstantKind]("Transform"), Stages: core1_0.ShaderStageFlags(1), Size: 64},
		},
	}
	layout, err := manager.AssignPipelineLayout(layoutDesc, creator(device, native.ObjectTypePipelineLayout, &calls))
	require.NoError(t, err)

	pipeline, err := manager.AssignGraphicsPipeline(device.Create(native.ObjectTypePipeline), layout.Get())
	require.NoError(t, err)

	rawDSLayout := dsLayout.Get()
	rawLayout := layout.Get()
	require.NoError(t, manager.UnassignDescriptorSetLayout(&dsLayout))
	require.NoError(t, manager.UnassignPipelineLayout(&layout))
	manager.OnEndFrame()

	_, ok := manager.GetDescriptorSetLayout(rawDSLayout)
	require.True(t, ok)
	_, ok = manager.GetPipelineLayout(rawLayout)
	require.True(t, ok)

	require.NoError(t, manager.UnassignGraphicsPipeline(&pipeline))
	manager.OnEndFrame()

	_, ok = manager.GetPipelineLayout(rawLayout)
	require.False(t, ok)
	_, ok = manager.GetDescriptorSetLayout(rawDSLayout)
	require.False(t, ok)

	require.Equal(t, []native.DestroyEntry{
		{Type: native.ObjectTypePipeline, Handle: 3},
		{Type: native.ObjectTypePipelineLayout, Handle: 2},
		{Type: native.ObjectTypeDescriptorSetLayout, Handle: 1},
	}, device.Destroyed())
}

func TestManager_PipelineLayoutRequiresLiveDescriptorSetLayouts(t *testing.T) {
	manager, device, _ := newTestManager(t, CreateOptions{})

	calls := 0
	_, err := manager.AssignPipelineLayout(PipelineLayoutDesc{
		DescriptorSets: []DescriptorSet{{Layout: ids.NewResourceID[ids.DescriptorSetLayoutKind](5, 0)}},
	}, creator(device, native.ObjectTypePipelineLayout, &calls))
	require.True(t, errors.Is(err, ErrStaleID))
	require.Equal(t, 0, calls)

	_, err = manager.AssignComputePipeline(device.Create(native.ObjectTypePipeline), ids.NewResourceID[ids.PipelineLayoutKind](0, 0))
	require.True(t, errors.Is(err, ErrStaleID))
}

func TestManager_DeferredDestroyDrainsLargeBatch(t *testing.T) {
	manager, device, _ := newTestManager(t, CreateOptions{})

	manager.OnBeginFrame()
	for i := 0; i < 300; i++ {
		id, err := manager.AssignBuffer(device.Create(native.ObjectTypeBuffer), BufferDesc{Size: 16}, nil)
		require.NoError(t, err)
		require.NoError(t, manager.UnassignBuffer(&id))
	}

	stats := manager.Stats()
	require.Equal(t, 300, stats.PendingDestroy)
	require.Equal(t, 300, stats.PendingUnassign)

	manager.OnEndFrame()

	stats = manager.Stats()
	require.Equal(t, 0, stats.PendingDestroy)
	require.Equal(t, 0, stats.PendingUnassign)
	require.Equal(t, 300, device.DestroyedCount(native.ObjectTypeBuffer))
	require.Equal(t, 0, device.LiveCount(native.ObjectTypeBuffer))
	require.Equal(t, 0, poolStats(t, manager, "Buffer").Live)
}

func TestManager_ShutdownEvictsUnownedCacheEntries(t *testing.T) {
	manager, device, _ := newTestManager(t, CreateOptions{})

	calls := 0
	first, err := manager.AssignSampler(SamplerDesc{MaxLod: 1}, creator(device, native.ObjectTypeSampler, &calls))
	require.NoError(t, err)
	second, err := manager.AssignSampler(SamplerDesc{MaxLod: 2}, creator(device, native.ObjectTypeSampler, &calls))
	require.NoError(t, err)
	layout, err := manager.AssignPipelineLayout(PipelineLayoutDesc{}, creator(device, native.ObjectTypePipelineLayout, &calls))
	require.NoError(t, err)

	// Owners drop their references without unassigning
	first.Release()
	second.Release()
	layout.Release()

	manager.OnDestroy()

	require.Equal(t, 2, device.DestroyedCount(native.ObjectTypeSampler))
	require.Equal(t, 1, device.DestroyedCount(native.ObjectTypePipelineLayout))
	require.Equal(t, 0, device.TotalLive())
	require.Empty(t, device.Violations())

	for _, kind := range []string{"Sampler", "PipelineLayout", "DescriptorSetLayout"} {
		stats := poolStats(t, manager, kind)
		require.Equal(t, 0, stats.Live, kind)
		require.Equal(t, 0, stats.Cached, kind)
	}
}

func TestManager_OnDestroyDestroysEveryCreation(t *testing.T) {
	manager, device, memoryManager := newTestManager(t, CreateOptions{})

	calls := 0
	manager.OnBeginFrame()

	buffer, err := manager.AssignBuffer(device.Create(native.ObjectTypeBuffer), BufferDesc{Size: 1024}, deviceLocalMemory(1024))
	require.NoError(t, err)
	_, err = manager.AssignBuffer(device.Create(native.ObjectTypeBuffer), BufferDesc{Size: 1024}, deviceLocalMemory(1024))
	require.NoError(t, err)
	_, err = manager.AssignImage(device.Create(native.ObjectTypeImage), ImageDesc{MipLevels: 1, ArrayLayers: 1}, deviceLocalMemory(4096))
	require.NoError(t, err)

	geometry, err := manager.AssignRTGeometry(device.Create(native.ObjectTypeAccelerationStructureKHR), AccelStructDesc{
		Size:       2048,
		Geometries: []ids.GeometryID{ids.NewNamedID[ids.GeometryKind]("Terrain")},
	}, deviceLocalMemory(2048))
	require.NoError(t, err)
	_, err = manager.AssignRTScene(device.Create(native.ObjectTypeAccelerationStructureKHR), AccelStructDesc{
		Size:      2048,
		Instances: []ids.InstanceID{ids.NewNamedID[ids.InstanceKind]("Terrain0")},
	}, deviceLocalMemory(2048))
	require.NoError(t, err)

	dsLayout, err := manager.AssignDescriptorSetLayout(DescriptorSetLayoutDesc{}, creator(device, native.ObjectTypeDescriptorSetLayout, &calls))
	require.NoError(t, err)
	layout, err := manager.AssignPipelineLayout(PipelineLayoutDesc{
		DescriptorSets: []DescriptorSet{{ID: ids.NewNamedID[ids.DescriptorSetKind]("Material"), Layout: dsLayout.Get()}},
	}, creator(device, native.ObjectTypePipelineLayout, &calls))
	require.NoError(t, err)
	_, err = manager.AssignSampler(SamplerDesc{}, creator(device, native.ObjectTypeSampler, &calls))
	require.NoError(t, err)

	_, err = manager.AssignGraphicsPipeline(device.Create(native.ObjectTypePipeline), layout.Get())
	require.NoError(t, err)
	_, err = manager.AssignMeshPipeline(device.Create(native.ObjectTypePipeline), layout.Get())
	require.NoError(t, err)
	_, err = manager.AssignComputePipeline(device.Create(native.ObjectTypePipeline), layout.Get())
	require.NoError(t, err)
	_, err = manager.AssignRayTracingPipeline(device.Create(native.ObjectTypePipeline), ids.RawPipelineLayoutID{})
	require.NoError(t, err)

	standalone, err := memoryManager.AllocateForBuffer(device.Create(native.ObjectTypeBuffer), *deviceLocalMemory(512))
	require.NoError(t, err)
	_, err = manager.AssignMemory(standalone)
	require.NoError(t, err)

	require.NoError(t, manager.UnassignBuffer(&buffer))
	require.NoError(t, manager.UnassignRTGeometry(&geometry))
	manager.OnEndFrame()

	created := device.TotalLive() - device.LiveCount(native.ObjectTypeDeviceMemory)
	manager.OnDestroy()

	// One buffer was created outside the manager, for the standalone memory
	require.Equal(t, 1, device.LiveCount(native.ObjectTypeBuffer))
	require.Equal(t, created-1, len(device.Destroyed())-device.DestroyedCount(native.ObjectTypeDeviceMemory)-2)
	require.Empty(t, device.Violations())

	require.Equal(t, 0, memoryManager.Statistics().AllocationCount)
	require.NoError(t, memoryManager.Destroy())
	require.Equal(t, 0, device.LiveCount(native.ObjectTypeDeviceMemory))

	for _, pool := range manager.Stats().Pools {
		require.Equal(t, 0, pool.Live, pool.Kind)
	}
}

func TestManager_AssignWithMemory(t *testing.T) {
	manager, device, memoryManager := newTestManager(t, CreateOptions{})

	handle := device.Create(native.ObjectTypeBuffer)
	id, err := manager.AssignBuffer(handle, BufferDesc{Size: 256}, &memory.MemoryDesc{
		Type: memory.MemoryTypeHostWrite,
		Requirements: core1_0.MemoryRequirements{
			Size:           256,
			Alignment:      64,
			MemoryTypeBits: 0xF,
		},
	})
	require.NoError(t, err)

	buffer, ok := manager.GetBuffer(id.Get())
	require.True(t, ok)
	require.True(t, buffer.Memory.IsValid())

	info, err := manager.MemoryInfo(buffer.Memory)
	require.NoError(t, err)
	require.NotNil(t, info.MappedData)
	require.Equal(t, device.BoundMemory(handle), info.Memory)

	storage, ok := manager.GetMemory(buffer.Memory)
	require.True(t, ok)
	require.Equal(t, "HostAllocator", storage.Strategy.Name())

	require.NoError(t, manager.UnassignBuffer(&id))
	require.Equal(t, 1, memoryManager.Statistics().AllocationCount)
	manager.OnEndFrame()
	require.Equal(t, 0, memoryManager.Statistics().AllocationCount)

	_, err = manager.MemoryInfo(buffer.Memory)
	require.True(t, errors.Is(err, ErrStaleID))
}

func TestManager_MemoryFailureCommitsNothing(t *testing.T) {
	manager, device, _ := newTestManager(t, CreateOptions{})
	device.FailAllocation = func(int, int) bool { return true }

	_, err := manager.AssignImage(device.Create(native.ObjectTypeImage), ImageDesc{}, deviceLocalMemory(4096))
	require.True(t, errors.Is(err, memory.ErrAllocationFailed))
	require.Equal(t, 0, poolStats(t, manager, "Image").Live)
	require.Equal(t, 0, poolStats(t, manager, "Memory").Live)
}

func TestManager_MemoryDescWithoutMemoryManager(t *testing.T) {
	device := fake.New(fake.DefaultProperties())
	manager, err := New(nil, device, nil, CreateOptions{})
	require.NoError(t, err)

	rejected := device.Create(native.ObjectTypeBuffer)
	_, err = manager.AssignBuffer(rejected, BufferDesc{}, deviceLocalMemory(64))
	require.Error(t, err)
	require.Equal(t, 0, poolStats(t, manager, "Buffer").Live)

	_, err = manager.AssignBuffer(device.Create(native.ObjectTypeBuffer), BufferDesc{}, nil)
	require.NoError(t, err)
	manager.OnDestroy()

	// The rejected buffer was never assigned, so it still belongs to the caller
	require.Equal(t, 1, device.LiveCount(native.ObjectTypeBuffer))
	device.DestroyBuffer(rejected)
	require.Equal(t, 0, device.LiveCount(native.ObjectTypeBuffer))
	require.Empty(t, device.Violations())
}

func TestManager_PoolFull(t *testing.T) {
	manager, device, memoryManager := newTestManager(t, CreateOptions{PoolCapacity: 2})

	for i := 0; i < 2; i++ {
		_, err := manager.AssignBuffer(device.Create(native.ObjectTypeBuffer), BufferDesc{}, deviceLocalMemory(64))
		require.NoError(t, err)
	}

	_, err := manager.AssignBuffer(device.Create(native.ObjectTypeBuffer), BufferDesc{}, deviceLocalMemory(64))
	require.True(t, errors.Is(err, ErrPoolFull))
	require.Equal(t, 2, memoryManager.Statistics().AllocationCount)

	calls := 0
	for i := 0; i < 2; i++ {
		_, err = manager.AssignSampler(SamplerDesc{MaxLod: float32(i)}, creator(device, native.ObjectTypeSampler, &calls))
		require.NoError(t, err)
	}
	_, err = manager.AssignSampler(SamplerDesc{MaxLod: 9}, creator(device, native.ObjectTypeSampler, &calls))
	require.True(t, errors.Is(err, ErrPoolFull))
	require.Equal(t, 2, calls)

	_, err = New(nil, device, nil, CreateOptions{PoolCapacity: 1 << 20})
	require.Error(t, err)
}

func TestManager_AcquireAddsReference(t *testing.T) {
	manager, device, _ := newTestManager(t, CreateOptions{})

	calls := 0
	layout, err := manager.AssignPipelineLayout(PipelineLayoutDesc{}, creator(device, native.ObjectTypePipelineLayout, &calls))
	require.NoError(t, err)

	acquired, err := manager.AcquirePipelineLayout(layout.Get())
	require.NoError(t, err)
	require.Equal(t, layout.Get(), acquired.Get())

	require.NoError(t, manager.UnassignPipelineLayout(&layout))
	manager.OnEndFrame()
	_, ok := manager.GetPipelineLayout(acquired.Get())
	require.True(t, ok)

	rawAcquired := acquired.Get()
	require.NoError(t, manager.UnassignPipelineLayout(&acquired))
	manager.OnEndFrame()
	require.Equal(t, 1, device.DestroyedCount(native.ObjectTypePipelineLayout))

	_, err = manager.AcquirePipelineLayout(rawAcquired)
	require.True(t, errors.Is(err, ErrStaleID))

	sampler, err := manager.AssignSampler(SamplerDesc{}, creator(device, native.ObjectTypeSampler, &calls))
	require.NoError(t, err)
	extra, err := manager.AcquireSampler(sampler.Get())
	require.NoError(t, err)
	require.NoError(t, manager.UnassignSampler(&sampler))
	require.NoError(t, manager.UnassignSampler(&extra))

	dsLayout, err := manager.AssignDescriptorSetLayout(DescriptorSetLayoutDesc{}, creator(device, native.ObjectTypeDescriptorSetLayout, &calls))
	require.NoError(t, err)
	extraLayout, err := manager.AcquireDescriptorSetLayout(dsLayout.Get())
	require.NoError(t, err)
	require.NoError(t, manager.UnassignDescriptorSetLayout(&dsLayout))
	require.NoError(t, manager.UnassignDescriptorSetLayout(&extraLayout))

	manager.OnEndFrame()
	require.Equal(t, 0, device.TotalLive())
}

func TestManager_UnknownDestroyTagIsSkipped(t *testing.T) {
	manager, device, _ := newTestManager(t, CreateOptions{})

	buffer := device.Create(native.ObjectTypeBuffer)
	image := device.Create(native.ObjectTypeImage)

	manager.DeferDestroy(native.ObjectTypeBuffer, buffer)
	manager.DeferDestroy(native.ObjectType(12345), 77)
	manager.DeferDestroy(native.ObjectTypeImage, image)
	manager.OnEndFrame()

	require.Equal(t, []native.DestroyEntry{
		{Type: native.ObjectTypeBuffer, Handle: buffer},
		{Type: native.ObjectTypeImage, Handle: image},
	}, device.Destroyed())
	require.Equal(t, 0, manager.Stats().PendingDestroy)
}

func TestManager_DeferDestroyFromWorkers(t *testing.T) {
	manager, device, _ := newTestManager(t, CreateOptions{})

	handles := make([]native.Handle, 64)
	for i := range handles {
		handles[i] = device.Create(native.ObjectTypeSemaphore)
	}

	manager.OnBeginFrame()
	var wg sync.WaitGroup
	for i := range handles {
		wg.Add(1)
		go func(handle native.Handle) {
			defer wg.Done()
			manager.DeferDestroy(native.ObjectTypeSemaphore, handle)
		}(handles[i])
	}
	wg.Wait()
	manager.OnEndFrame()

	require.Equal(t, 64, device.DestroyedCount(native.ObjectTypeSemaphore))
	require.Equal(t, uint64(1), manager.Frame())
}

func TestManager_GetDuringAssignment(t *testing.T) {
	manager, device, _ := newTestManager(t, CreateOptions{})

	var assigned []ids.RawBufferID
	for i := 0; i < 16; i++ {
		id, err := manager.AssignBuffer(device.Create(native.ObjectTypeBuffer), BufferDesc{Size: i}, nil)
		require.NoError(t, err)
		assigned = append(assigned, id.Release())
	}

	manager.OnBeginFrame()

	var wg sync.WaitGroup
	for worker := 0; worker < 4; worker++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for round := 0; round < 100; round++ {
				for i, id := range assigned {
					buffer, ok := manager.GetBuffer(id)
					if !ok || buffer.Desc.Size != i {
						panic("assigned buffer did not resolve")
					}
				}
			}
		}()
	}

	// Enough new slots to publish several chunks while the workers read
	for i := 0; i < 3*chunkSize; i++ {
		_, err := manager.AssignBuffer(device.Create(native.ObjectTypeBuffer), BufferDesc{}, nil)
		require.NoError(t, err)
	}
	wg.Wait()

	manager.OnDestroy()
	require.Equal(t, 0, device.LiveCount(native.ObjectTypeBuffer))
}

func TestManager_BuildStatsString(t *testing.T) {
	manager, device, _ := newTestManager(t, CreateOptions{})

	_, err := manager.AssignBuffer(device.Create(native.ObjectTypeBuffer), BufferDesc{Size: 64}, deviceLocalMemory(64))
	require.NoError(t, err)

	var parsed struct {
		Pools map[string]struct {
			Live     int
			Capacity int
		}
		Memory struct {
			AllocationCount int
		}
	}
	require.NoError(t, json.Unmarshal([]byte(manager.BuildStatsString()), &parsed))
	require.Equal(t, 1, parsed.Pools["Buffer"].Live)
	require.Equal(t, 1, parsed.Pools["Memory"].Live)
	require.Equal(t, defaultPoolCapacity, parsed.Pools["Image"].Capacity)
	require.Equal(t, 1, parsed.Memory.AllocationCount)

	manager.OnDestroy()
}

func TestCreateFlagsString(t *testing.T) {
	require.Equal(t, "CreateExternallySynchronized", CreateExternallySynchronized.String())
}
