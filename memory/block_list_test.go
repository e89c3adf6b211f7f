package memory

import (
	"encoding/json"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/arsenal/memutils"
	"github.com/vkngwrapper/arsenal/memutils/metadata"
	"github.com/vkngwrapper/framegraph/ids"
	"github.com/vkngwrapper/framegraph/native"
	"github.com/vkngwrapper/framegraph/native/fake"
)

func testBlockList(device native.MemoryDevice, linear bool) *blockList {
	return newBlockList(true, nil, device, blockListConfig{
		memoryTypeIndex: 0,
		blockSize:       4096,
		linear:          linear,
	})
}

func TestBlockList_AlignsSuballocations(t *testing.T) {
	device := fake.New(fake.DefaultProperties())
	list := testBlockList(device, false)

	first, firstHandle, firstOffset, err := list.Allocate(100, 256, metadata.SuballocationBuffer, native.Handle(1))
	require.NoError(t, err)
	require.Equal(t, 0, firstOffset)

	second, secondHandle, secondOffset, err := list.Allocate(100, 256, metadata.SuballocationBuffer, native.Handle(2))
	require.NoError(t, err)
	require.Same(t, first, second)
	require.Equal(t, 256, secondOffset)
	require.Equal(t, 1, device.LiveCount(native.ObjectTypeDeviceMemory))
	require.NoError(t, first.check())

	require.NoError(t, list.Free(first, firstHandle))
	require.Error(t, list.Free(first, firstHandle))

	third, thirdHandle, thirdOffset, err := list.Allocate(100, 256, metadata.SuballocationBuffer, native.Handle(3))
	require.NoError(t, err)
	require.Same(t, first, third)
	require.Zero(t, thirdOffset%256)

	var stats memutils.Statistics
	list.AddStatistics(&stats)
	require.Equal(t, memutils.Statistics{BlockCount: 1, BlockBytes: 4096, AllocationCount: 2, AllocationBytes: 200}, stats)

	require.NoError(t, list.Free(second, secondHandle))
	require.NoError(t, list.Free(third, thirdHandle))
	require.True(t, list.HasNoAllocations())
	require.NoError(t, list.Destroy())
	require.Equal(t, 0, device.LiveCount(native.ObjectTypeDeviceMemory))
}

func TestBlockList_OversizedRequestGetsItsOwnBlock(t *testing.T) {
	device := fake.New(fake.DefaultProperties())
	list := testBlockList(device, false)

	block, handle, offset, err := list.Allocate(10000, 512, metadata.SuballocationImageOptimal, native.Handle(1))
	require.NoError(t, err)
	require.Equal(t, 0, offset)
	require.Equal(t, memutils.AlignUp(10000, 512), block.regions.Size())

	require.NoError(t, list.Free(block, handle))
	require.NoError(t, list.Destroy())
}

func TestBlockList_RejectsEmptyRequests(t *testing.T) {
	device := fake.New(fake.DefaultProperties())
	list := testBlockList(device, false)

	for i := 0; i < 5; i++ {
		_, _, _, err := list.Allocate(0, 256, metadata.SuballocationBuffer, nil)
		require.True(t, errors.Is(err, ErrUnsupported))
	}
	_, _, _, err := list.Allocate(-16, 256, metadata.SuballocationBuffer, nil)
	require.True(t, errors.Is(err, ErrUnsupported))

	require.Equal(t, 0, device.LiveCount(native.ObjectTypeDeviceMemory))
	require.NoError(t, list.Destroy())
}

func TestBlockList_ReleasesFreshBlockWhenPlacementFails(t *testing.T) {
	device := fake.New(fake.DefaultProperties())
	list := testBlockList(device, true)

	// The linear metadata refuses free-typed requests after the block has been created
	_, _, _, err := list.Allocate(128, 1, metadata.SuballocationFree, nil)
	require.Error(t, err)
	require.Equal(t, 0, device.LiveCount(native.ObjectTypeDeviceMemory))
	require.Empty(t, list.blocks)
	require.Empty(t, device.Violations())
}

func TestBlockList_LinearPlacesInOrder(t *testing.T) {
	device := fake.New(fake.DefaultProperties())
	list := testBlockList(device, true)

	var handles []metadata.BlockAllocationHandle
	var block *memoryBlock
	for i := 0; i < 4; i++ {
		b, handle, offset, err := list.Allocate(1000, 1, metadata.SuballocationBuffer, native.Handle(i+1))
		require.NoError(t, err)
		require.Equal(t, i*1000, offset)
		block = b
		handles = append(handles, handle)
	}

	// A fifth request does not fit behind the others
	overflow, overflowHandle, _, err := list.Allocate(1000, 1, metadata.SuballocationBuffer, native.Handle(5))
	require.NoError(t, err)
	require.NotSame(t, block, overflow)

	for _, handle := range handles {
		require.NoError(t, list.Free(block, handle))
	}
	require.NoError(t, list.Free(overflow, overflowHandle))
	require.True(t, list.HasNoAllocations())
	require.NoError(t, list.Destroy())
	require.Equal(t, 0, device.LiveCount(native.ObjectTypeDeviceMemory))
}

func TestBlockList_DestroyReportsLiveSuballocations(t *testing.T) {
	device := fake.New(fake.DefaultProperties())
	list := testBlockList(device, false)

	_, _, _, err := list.Allocate(64, 1, metadata.SuballocationBuffer, native.Handle(9))
	require.NoError(t, err)

	require.Error(t, list.Destroy())
	require.Equal(t, 0, device.LiveCount(native.ObjectTypeDeviceMemory))
}

func TestStrategies_EmptyRequestsAllocateNothing(t *testing.T) {
	device := fake.New(fake.DefaultProperties())
	manager, err := New(nil, device, CreateOptions{})
	require.NoError(t, err)

	poolID := ids.NewNamedID[ids.MemPoolKind]("empty")
	require.NoError(t, manager.CreatePool(poolID, PoolCreateInfo{MemoryType: MemoryTypeDeviceLocal, BlockSize: 4096}))

	for _, memoryType := range []MemoryType{MemoryTypeDeviceLocal, MemoryTypeHostWrite, MemoryTypeDedicated, MemoryTypeVirtual} {
		for i := 0; i < 5; i++ {
			desc := bufferDesc(memoryType, 0)
			desc.Pool = poolID
			_, err := manager.AllocateForBuffer(device.Create(native.ObjectTypeBuffer), desc)
			require.True(t, errors.Is(err, ErrAllocationFailed))
		}
	}

	require.Equal(t, 0, device.LiveCount(native.ObjectTypeDeviceMemory))
	require.Equal(t, memutils.Statistics{}, manager.Statistics())
	require.NoError(t, manager.Destroy())
}

func TestStrategies_NilLogger(t *testing.T) {
	device := fake.New(fake.DefaultProperties())

	strategies := []Strategy{
		NewPoolAllocator(nil, device, StrategyOptions{}),
		NewDedicatedAllocator(nil, device, StrategyOptions{}),
		NewHostAllocator(nil, device, StrategyOptions{}),
		NewDeviceAllocator(nil, device, StrategyOptions{}),
		NewVirtualAllocator(nil, StrategyOptions{VirtualBlockSize: 4096}),
	}

	poolID := ids.NewNamedID[ids.MemPoolKind]("logged")
	pools := strategies[0].(*PoolAllocator)
	require.NoError(t, pools.CreatePool(poolID, PoolCreateInfo{MemoryType: MemoryTypeDeviceLocal, BlockSize: 4096}))

	for _, strategy := range strategies {
		desc := bufferDesc(MemoryTypeDeviceLocal, 512)
		desc.Pool = poolID

		// Leaked allocations are logged when the strategy is destroyed
		_, err := strategy.AllocForBuffer(device.Create(native.ObjectTypeBuffer), desc)
		require.NoError(t, err, strategy.Name())
		require.Error(t, strategy.Destroy(), strategy.Name())
	}

	require.Equal(t, 0, device.LiveCount(native.ObjectTypeDeviceMemory))
}

func TestManager_StatsStringIsValidJSON(t *testing.T) {
	device := fake.New(fake.DefaultProperties())
	manager, err := New(nil, device, CreateOptions{})
	require.NoError(t, err)

	poolID := ids.NewNamedID[ids.MemPoolKind]("frame")
	require.NoError(t, manager.CreatePool(poolID, PoolCreateInfo{MemoryType: MemoryTypeHostWrite, BlockSize: 4096, Linear: true}))

	var storages []Storage
	for _, desc := range []MemoryDesc{
		bufferDesc(MemoryTypeDeviceLocal, 1024),
		bufferDesc(MemoryTypeDeviceLocal, 2048),
		bufferDesc(MemoryTypeHostWrite, 512),
		bufferDesc(MemoryTypeVirtual, 512),
		{Type: MemoryTypeHostWrite, Requirements: bufferDesc(0, 256).Requirements, Pool: poolID},
	} {
		storage, err := manager.AllocateForBuffer(device.Create(native.ObjectTypeBuffer), desc)
		require.NoError(t, err)
		storages = append(storages, storage)
	}

	stats := manager.BuildStatsString()
	require.True(t, json.Valid([]byte(stats)), stats)
	require.Contains(t, stats, `"Suballocations"`)
	require.Contains(t, stats, `"TotalBytes"`)

	for i := range storages {
		require.NoError(t, manager.Deallocate(&storages[i]))
	}
	require.True(t, json.Valid([]byte(manager.BuildStatsString())))
	require.NoError(t, manager.Destroy())
}
