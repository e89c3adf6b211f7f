package resource

import (
	"github.com/vkngwrapper/framegraph/ids"
	"github.com/vkngwrapper/framegraph/native"
)

// Buffer is the payload of a buffer slot
type Buffer struct {
	Handle native.Handle
	Desc   BufferDesc
	// Memory is invalid when the buffer's memory is managed by the caller
	Memory ids.RawMemoryID
}

// Image is the payload of an image slot
type Image struct {
	Handle native.Handle
	Desc   ImageDesc
	// Memory is invalid when the image's memory is managed by the caller
	Memory ids.RawMemoryID
}

// AccelStruct is the payload of an RT geometry or RT scene slot
type AccelStruct struct {
	Handle native.Handle
	Desc   AccelStructDesc
	Memory ids.RawMemoryID
}

type Sampler struct {
	Handle native.Handle
	Desc   SamplerDesc
}

type DescriptorSetLayout struct {
	Handle native.Handle
	Desc   DescriptorSetLayoutDesc
}

type PipelineLayout struct {
	Handle native.Handle
	Desc   PipelineLayoutDesc
}

// Pipeline is the payload of graphics, mesh, compute and ray tracing pipeline slots
type Pipeline struct {
	Handle native.Handle
	Layout ids.RawPipelineLayoutID
}
