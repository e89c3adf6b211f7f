package native

// Destroyer exposes one destroy entry point per object type the frame graph can defer
type Destroyer interface {
	DestroySemaphore(handle Handle)
	DestroyFence(handle Handle)
	FreeMemory(handle Handle)
	DestroyImage(handle Handle)
	DestroyEvent(handle Handle)
	DestroyQueryPool(handle Handle)
	DestroyBuffer(handle Handle)
	DestroyBufferView(handle Handle)
	DestroyImageView(handle Handle)
	DestroyPipelineLayout(handle Handle)
	DestroyRenderPass(handle Handle)
	DestroyPipeline(handle Handle)
	DestroyDescriptorSetLayout(handle Handle)
	DestroySampler(handle Handle)
	DestroyDescriptorPool(handle Handle)
	DestroyFramebuffer(handle Handle)
	DestroyCommandPool(handle Handle)
	DestroySamplerYcbcrConversion(handle Handle)
	DestroyDescriptorUpdateTemplate(handle Handle)
	DestroyAccelerationStructure(handle Handle)
}

type DestroyFunc func(handle Handle)

// DestroyTable dispatches deferred destruction by object type
type DestroyTable map[ObjectType]DestroyFunc

// NewDestroyTable binds every destroyable object type to its entry point on d. Both acceleration
// structure tags route to DestroyAccelerationStructure.
func NewDestroyTable(d Destroyer) DestroyTable {
	return DestroyTable{
		ObjectTypeSemaphore:                d.DestroySemaphore,
		ObjectTypeFence:                    d.DestroyFence,
		ObjectTypeDeviceMemory:             d.FreeMemory,
		ObjectTypeImage:                    d.DestroyImage,
		ObjectTypeEvent:                    d.DestroyEvent,
		ObjectTypeQueryPool:                d.DestroyQueryPool,
		ObjectTypeBuffer:                   d.DestroyBuffer,
		ObjectTypeBufferView:               d.DestroyBufferView,
		ObjectTypeImageView:                d.DestroyImageView,
		ObjectTypePipelineLayout:           d.DestroyPipelineLayout,
		ObjectTypeRenderPass:               d.DestroyRenderPass,
		ObjectTypePipeline:                 d.DestroyPipeline,
		ObjectTypeDescriptorSetLayout:      d.DestroyDescriptorSetLayout,
		ObjectTypeSampler:                  d.DestroySampler,
		ObjectTypeDescriptorPool:           d.DestroyDescriptorPool,
		ObjectTypeFramebuffer:              d.DestroyFramebuffer,
		ObjectTypeCommandPool:              d.DestroyCommandPool,
		ObjectTypeSamplerYcbcrConversion:   d.DestroySamplerYcbcrConversion,
		ObjectTypeDescriptorUpdateTemplate: d.DestroyDescriptorUpdateTemplate,
		ObjectTypeAccelerationStructureKHR: d.DestroyAccelerationStructure,
		ObjectTypeAccelerationStructureNV:  d.DestroyAccelerationStructure,
	}
}

// Destroy dispatches entry, returning false if its type has no entry point
func (t DestroyTable) Destroy(entry DestroyEntry) bool {
	destroy, ok := t[entry.Type]
	if !ok {
		return false
	}
	destroy(entry.Handle)
	return true
}
