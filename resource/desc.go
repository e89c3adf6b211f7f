package resource

import (
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/framegraph/ids"
	"github.com/vkngwrapper/framegraph/internal/hashing"
	"golang.org/x/exp/slices"
)

// BufferDesc describes a buffer the caller created
type BufferDesc struct {
	Size  int
	Usage core1_0.BufferUsageFlags
}

// ImageDesc describes an image the caller created
type ImageDesc struct {
	Type        core1_0.ImageType
	Format      core1_0.Format
	Extent      core1_0.Extent3D
	MipLevels   int
	ArrayLayers int
	Samples     core1_0.SampleCountFlags
	Usage       core1_0.ImageUsageFlags
}

// AccelStructDesc describes an acceleration structure. Bottom-level structures list their
// geometries, top-level scenes list their instances.
type AccelStructDesc struct {
	Size              int
	BuildScratchSize  int
	UpdateScratchSize int
	Geometries        []ids.GeometryID
	Instances         []ids.InstanceID
}

// SamplerDesc is the cache key of a sampler
type SamplerDesc struct {
	MagFilter               core1_0.Filter
	MinFilter               core1_0.Filter
	MipmapMode              core1_0.SamplerMipmapMode
	AddressModeU            core1_0.SamplerAddressMode
	AddressModeV            core1_0.SamplerAddressMode
	AddressModeW            core1_0.SamplerAddressMode
	MipLodBias              float32
	AnisotropyEnable        bool
	MaxAnisotropy           float32
	CompareEnable           bool
	CompareOp               core1_0.CompareOp
	MinLod                  float32
	MaxLod                  float32
	BorderColor             core1_0.BorderColor
	UnnormalizedCoordinates bool
}

func (d SamplerDesc) Hash() ids.HashVal {
	return ids.HashVal(hashing.New(hashing.DefaultSeed).
		Uint32(ids.SamplerUID).
		Int(int(d.MagFilter)).
		Int(int(d.MinFilter)).
		Int(int(d.MipmapMode)).
		Int(int(d.AddressModeU)).
		Int(int(d.AddressModeV)).
		Int(int(d.AddressModeW)).
		Float32(d.MipLodBias).
		Bool(d.AnisotropyEnable).
		Float32(d.MaxAnisotropy).
		Bool(d.CompareEnable).
		Int(int(d.CompareOp)).
		Float32(d.MinLod).
		Float32(d.MaxLod).
		Int(int(d.BorderColor)).
		Bool(d.UnnormalizedCoordinates).
		Sum())
}

// DescriptorBinding is a single binding slot of a descriptor set layout
type DescriptorBinding struct {
	Binding int
	Type    core1_0.DescriptorType
	Count   int
	Stages  core1_0.ShaderStageFlags
}

// DescriptorSetLayoutDesc is the cache key of a descriptor set layout. Bindings are compared in
// order.
type DescriptorSetLayoutDesc struct {
	Bindings []DescriptorBinding
}

func (d DescriptorSetLayoutDesc) Hash() ids.HashVal {
	hasher := hashing.New(hashing.DefaultSeed).
		Uint32(ids.DescriptorSetLayoutUID).
		Int(len(d.Bindings))

	for _, binding := range d.Bindings {
		hasher.Int(binding.Binding).
			Int(int(binding.Type)).
			Int(binding.Count).
			Int(int(binding.Stages))
	}
	return ids.HashVal(hasher.Sum())
}

func (d DescriptorSetLayoutDesc) Equal(other DescriptorSetLayoutDesc) bool {
	return slices.Equal(d.Bindings, other.Bindings)
}

// DescriptorSet names a descriptor set layout within a pipeline layout
type DescriptorSet struct {
	ID     ids.DescriptorSetID
	Layout ids.RawDescriptorSetLayoutID
}

// PushConstantRange is a named push constant block within a pipeline layout
type PushConstantRange struct {
	ID     ids.PushConstantID
	Stages core1_0.ShaderStageFlags
	Offset int
	Size   int
}

// PipelineLayoutDesc is the cache key of a pipeline layout
type PipelineLayoutDesc struct {
	DescriptorSets []DescriptorSet
	PushConstants  []PushConstantRange
}

func (d PipelineLayoutDesc) Hash() ids.HashVal {
	hasher := hashing.New(hashing.DefaultSeed).
		Uint32(ids.PipelineLayoutUID).
		Int(len(d.DescriptorSets))

	for _, set := range d.DescriptorSets {
		hasher.Uint64(uint64(set.ID.Hash())).
			Uint32(set.Layout.Data())
	}

	hasher.Int(len(d.PushConstants))
	for _, pushConstant := range d.PushConstants {
		hasher.Uint64(uint64(pushConstant.ID.Hash())).
			Int(int(pushConstant.Stages)).
			Int(pushConstant.Offset).
			Int(pushConstant.Size)
	}
	return ids.HashVal(hasher.Sum())
}

func (d PipelineLayoutDesc) Equal(other PipelineLayoutDesc) bool {
	return slices.EqualFunc(d.DescriptorSets, other.DescriptorSets, func(a, b DescriptorSet) bool {
		return a.ID.Equal(b.ID) && a.Layout == b.Layout
	}) && slices.EqualFunc(d.PushConstants, other.PushConstants, func(a, b PushConstantRange) bool {
		return a.ID.Equal(b.ID) && a.Stages == b.Stages && a.Offset == b.Offset && a.Size == b.Size
	})
}
