package native

import "fmt"

// ObjectType tags a Handle with the kind of native object it refers to. Values match VkObjectType.
type ObjectType int32

const (
	ObjectTypeUnknown                  ObjectType = 0
	ObjectTypeSemaphore                ObjectType = 5
	ObjectTypeFence                    ObjectType = 7
	ObjectTypeDeviceMemory             ObjectType = 8
	ObjectTypeBuffer                   ObjectType = 9
	ObjectTypeImage                    ObjectType = 10
	ObjectTypeEvent                    ObjectType = 11
	ObjectTypeQueryPool                ObjectType = 12
	ObjectTypeBufferView               ObjectType = 13
	ObjectTypeImageView                ObjectType = 14
	ObjectTypeShaderModule             ObjectType = 15
	ObjectTypePipelineCache            ObjectType = 16
	ObjectTypePipelineLayout           ObjectType = 17
	ObjectTypeRenderPass               ObjectType = 18
	ObjectTypePipeline                 ObjectType = 19
	ObjectTypeDescriptorSetLayout      ObjectType = 20
	ObjectTypeSampler                  ObjectType = 21
	ObjectTypeDescriptorPool           ObjectType = 22
	ObjectTypeDescriptorSet            ObjectType = 23
	ObjectTypeFramebuffer              ObjectType = 24
	ObjectTypeCommandPool              ObjectType = 25
	ObjectTypeDescriptorUpdateTemplate ObjectType = 1000085000
	ObjectTypeAccelerationStructureKHR ObjectType = 1000150000
	ObjectTypeSamplerYcbcrConversion   ObjectType = 1000156000
	ObjectTypeAccelerationStructureNV  ObjectType = 1000165000
)

var objectTypeNames = map[ObjectType]string{
	ObjectTypeUnknown:                  "Unknown",
	ObjectTypeSemaphore:                "Semaphore",
	ObjectTypeFence:                    "Fence",
	ObjectTypeDeviceMemory:             "DeviceMemory",
	ObjectTypeBuffer:                   "Buffer",
	ObjectTypeImage:                    "Image",
	ObjectTypeEvent:                    "Event",
	ObjectTypeQueryPool:                "QueryPool",
	ObjectTypeBufferView:               "BufferView",
	ObjectTypeImageView:                "ImageView",
	ObjectTypeShaderModule:             "ShaderModule",
	ObjectTypePipelineCache:            "PipelineCache",
	ObjectTypePipelineLayout:           "PipelineLayout",
	ObjectTypeRenderPass:               "RenderPass",
	ObjectTypePipeline:                 "Pipeline",
	ObjectTypeDescriptorSetLayout:      "DescriptorSetLayout",
	ObjectTypeSampler:                  "Sampler",
	ObjectTypeDescriptorPool:           "DescriptorPool",
	ObjectTypeDescriptorSet:            "DescriptorSet",
	ObjectTypeFramebuffer:              "Framebuffer",
	ObjectTypeCommandPool:              "CommandPool",
	ObjectTypeDescriptorUpdateTemplate: "DescriptorUpdateTemplate",
	ObjectTypeAccelerationStructureKHR: "AccelerationStructureKHR",
	ObjectTypeSamplerYcbcrConversion:   "SamplerYcbcrConversion",
	ObjectTypeAccelerationStructureNV:  "AccelerationStructureNV",
}

func (t ObjectType) String() string {
	name, ok := objectTypeNames[t]
	if !ok {
		return fmt.Sprintf("ObjectType(%d)", int32(t))
	}
	return name
}
