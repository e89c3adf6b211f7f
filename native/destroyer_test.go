package native_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/framegraph/native"
	"github.com/vkngwrapper/framegraph/native/fake"
)

func TestDestroyTableDispatch(t *testing.T) {
	device := fake.New(fake.DefaultProperties())
	table := native.NewDestroyTable(device)

	types := []native.ObjectType{
		native.ObjectTypeSemaphore,
		native.ObjectTypeFence,
		native.ObjectTypeImage,
		native.ObjectTypeEvent,
		native.ObjectTypeQueryPool,
		native.ObjectTypeBuffer,
		native.ObjectTypeBufferView,
		native.ObjectTypeImageView,
		native.ObjectTypePipelineLayout,
		native.ObjectTypeRenderPass,
		native.ObjectTypePipeline,
		native.ObjectTypeDescriptorSetLayout,
		native.ObjectTypeSampler,
		native.ObjectTypeDescriptorPool,
		native.ObjectTypeFramebuffer,
		native.ObjectTypeCommandPool,
		native.ObjectTypeSamplerYcbcrConversion,
		native.ObjectTypeDescriptorUpdateTemplate,
		native.ObjectTypeAccelerationStructureKHR,
	}

	for _, objectType := range types {
		handle := device.Create(objectType)
		require.True(t, table.Destroy(native.DestroyEntry{Type: objectType, Handle: handle}), objectType.String())
	}

	memory, _, err := device.AllocateMemory(0, 256)
	require.NoError(t, err)
	require.True(t, table.Destroy(native.DestroyEntry{Type: native.ObjectTypeDeviceMemory, Handle: memory}))

	require.Equal(t, 0, device.TotalLive())
	require.Len(t, device.Destroyed(), len(types)+1)
	require.Empty(t, device.Violations())
}

func TestDestroyTableUnknownType(t *testing.T) {
	device := fake.New(fake.DefaultProperties())
	table := native.NewDestroyTable(device)

	handle := device.Create(native.ObjectTypeShaderModule)
	require.False(t, table.Destroy(native.DestroyEntry{Type: native.ObjectTypeShaderModule, Handle: handle}))
	require.False(t, table.Destroy(native.DestroyEntry{Type: native.ObjectType(42), Handle: handle}))
	require.Equal(t, 1, device.LiveCount(native.ObjectTypeShaderModule))
}

func TestObjectTypeString(t *testing.T) {
	require.Equal(t, "Sampler", native.ObjectTypeSampler.String())
	require.Equal(t, "ObjectType(42)", native.ObjectType(42).String())
}

func TestFakeDeviceDetectsDoubleDestroy(t *testing.T) {
	device := fake.New(fake.DefaultProperties())

	handle := device.Create(native.ObjectTypeBuffer)
	device.DestroyBuffer(handle)
	device.DestroyBuffer(handle)

	require.Len(t, device.Violations(), 1)
	require.Equal(t, 1, device.DestroyedCount(native.ObjectTypeBuffer))
}
