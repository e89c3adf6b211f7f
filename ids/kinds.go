package ids

// Kind is implemented by the marker types that distinguish one family of identities from another.
// UID values are stable for the life of a process and are used to route heterogeneous identity
// queues back to the owning pool.
type Kind interface {
	UID() uint32
	KindName() string
}

const (
	BufferUID              uint32 = 1
	ImageUID               uint32 = 2
	GPipelineUID           uint32 = 3
	MPipelineUID           uint32 = 4
	CPipelineUID           uint32 = 5
	RTPipelineUID          uint32 = 6
	SamplerUID             uint32 = 7
	DescriptorSetLayoutUID uint32 = 8
	PipelineResourcesUID   uint32 = 9
	LogicalPassUID         uint32 = 10
	RTSceneUID             uint32 = 11
	RTGeometryUID          uint32 = 12
	RTShaderTableUID       uint32 = 13
	SwapchainUID           uint32 = 14
	PipelineLayoutUID      uint32 = 15
	MemoryUID              uint32 = 16
)

type BufferKind struct{}

func (BufferKind) UID() uint32      { return BufferUID }
func (BufferKind) KindName() string { return "Buffer" }

type ImageKind struct{}

func (ImageKind) UID() uint32      { return ImageUID }
func (ImageKind) KindName() string { return "Image" }

type GPipelineKind struct{}

func (GPipelineKind) UID() uint32      { return GPipelineUID }
func (GPipelineKind) KindName() string { return "GraphicsPipeline" }

type MPipelineKind struct{}

func (MPipelineKind) UID() uint32      { return MPipelineUID }
func (MPipelineKind) KindName() string { return "MeshPipeline" }

type CPipelineKind struct{}

func (CPipelineKind) UID() uint32      { return CPipelineUID }
func (CPipelineKind) KindName() string { return "ComputePipeline" }

type RTPipelineKind struct{}

func (RTPipelineKind) UID() uint32      { return RTPipelineUID }
func (RTPipelineKind) KindName() string { return "RayTracingPipeline" }

type SamplerKind struct{}

func (SamplerKind) UID() uint32      { return SamplerUID }
func (SamplerKind) KindName() string { return "Sampler" }

type DescriptorSetLayoutKind struct{}

func (DescriptorSetLayoutKind) UID() uint32      { return DescriptorSetLayoutUID }
func (DescriptorSetLayoutKind) KindName() string { return "DescriptorSetLayout" }

type PipelineResourcesKind struct{}

func (PipelineResourcesKind) UID() uint32      { return PipelineResourcesUID }
func (PipelineResourcesKind) KindName() string { return "PipelineResources" }

type LogicalPassKind struct{}

func (LogicalPassKind) UID() uint32      { return LogicalPassUID }
func (LogicalPassKind) KindName() string { return "LogicalPass" }

type RTSceneKind struct{}

func (RTSceneKind) UID() uint32      { return RTSceneUID }
func (RTSceneKind) KindName() string { return "RTScene" }

type RTGeometryKind struct{}

func (RTGeometryKind) UID() uint32      { return RTGeometryUID }
func (RTGeometryKind) KindName() string { return "RTGeometry" }

type RTShaderTableKind struct{}

func (RTShaderTableKind) UID() uint32      { return RTShaderTableUID }
func (RTShaderTableKind) KindName() string { return "RTShaderTable" }

type SwapchainKind struct{}

func (SwapchainKind) UID() uint32      { return SwapchainUID }
func (SwapchainKind) KindName() string { return "Swapchain" }

type PipelineLayoutKind struct{}

func (PipelineLayoutKind) UID() uint32      { return PipelineLayoutUID }
func (PipelineLayoutKind) KindName() string { return "PipelineLayout" }

type MemoryKind struct{}

func (MemoryKind) UID() uint32      { return MemoryUID }
func (MemoryKind) KindName() string { return "Memory" }

// Weak references
type (
	RawBufferID              = ResourceID[BufferKind]
	RawImageID               = ResourceID[ImageKind]
	RawGPipelineID           = ResourceID[GPipelineKind]
	RawMPipelineID           = ResourceID[MPipelineKind]
	RawCPipelineID           = ResourceID[CPipelineKind]
	RawRTPipelineID          = ResourceID[RTPipelineKind]
	RawSamplerID             = ResourceID[SamplerKind]
	RawDescriptorSetLayoutID = ResourceID[DescriptorSetLayoutKind]
	RawPipelineResourcesID   = ResourceID[PipelineResourcesKind]
	LogicalPassID            = ResourceID[LogicalPassKind]
	RawRTSceneID             = ResourceID[RTSceneKind]
	RawRTGeometryID          = ResourceID[RTGeometryKind]
	RawRTShaderTableID       = ResourceID[RTShaderTableKind]
	RawSwapchainID           = ResourceID[SwapchainKind]
	RawPipelineLayoutID      = ResourceID[PipelineLayoutKind]
	RawMemoryID              = ResourceID[MemoryKind]
)

// Strong references
type (
	BufferID              = Strong[BufferKind]
	ImageID               = Strong[ImageKind]
	GPipelineID           = Strong[GPipelineKind]
	MPipelineID           = Strong[MPipelineKind]
	CPipelineID           = Strong[CPipelineKind]
	RTPipelineID          = Strong[RTPipelineKind]
	SamplerID             = Strong[SamplerKind]
	DescriptorSetLayoutID = Strong[DescriptorSetLayoutKind]
	RTSceneID             = Strong[RTSceneKind]
	RTGeometryID          = Strong[RTGeometryKind]
	RTShaderTableID       = Strong[RTShaderTableKind]
	SwapchainID           = Strong[SwapchainKind]
	PipelineLayoutID      = Strong[PipelineLayoutKind]
	MemoryID              = Strong[MemoryKind]
)
