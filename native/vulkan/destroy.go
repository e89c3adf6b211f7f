package vulkan

import (
	"github.com/vkngwrapper/framegraph/native"
	"golang.org/x/exp/slog"
)

func (d *Device) destroy(handle native.Handle, objectTypes ...native.ObjectType) {
	entry, ok := d.unregister(handle, objectTypes...)
	if !ok {
		d.logger.Error("attempted to destroy unknown object",
			slog.String("type", objectTypes[0].String()),
			slog.Uint64("handle", uint64(handle)),
		)
		return
	}
	entry.object.Destroy(d.callbacks)
}

func (d *Device) DestroySemaphore(handle native.Handle) {
	d.destroy(handle, native.ObjectTypeSemaphore)
}

func (d *Device) DestroyFence(handle native.Handle) {
	d.destroy(handle, native.ObjectTypeFence)
}

func (d *Device) DestroyImage(handle native.Handle) {
	d.destroy(handle, native.ObjectTypeImage)
}

func (d *Device) DestroyEvent(handle native.Handle) {
	d.destroy(handle, native.ObjectTypeEvent)
}

func (d *Device) DestroyQueryPool(handle native.Handle) {
	d.destroy(handle, native.ObjectTypeQueryPool)
}

func (d *Device) DestroyBuffer(handle native.Handle) {
	d.destroy(handle, native.ObjectTypeBuffer)
}

func (d *Device) DestroyBufferView(handle native.Handle) {
	d.destroy(handle, native.ObjectTypeBufferView)
}

func (d *Device) DestroyImageView(handle native.Handle) {
	d.destroy(handle, native.ObjectTypeImageView)
}

func (d *Device) DestroyPipelineLayout(handle native.Handle) {
	d.destroy(handle, native.ObjectTypePipelineLayout)
}

func (d *Device) DestroyRenderPass(handle native.Handle) {
	d.destroy(handle, native.ObjectTypeRenderPass)
}

func (d *Device) DestroyPipeline(handle native.Handle) {
	d.destroy(handle, native.ObjectTypePipeline)
}

func (d *Device) DestroyDescriptorSetLayout(handle native.Handle) {
	d.destroy(handle, native.ObjectTypeDescriptorSetLayout)
}

func (d *Device) DestroySampler(handle native.Handle) {
	d.destroy(handle, native.ObjectTypeSampler)
}

func (d *Device) DestroyDescriptorPool(handle native.Handle) {
	d.destroy(handle, native.ObjectTypeDescriptorPool)
}

func (d *Device) DestroyFramebuffer(handle native.Handle) {
	d.destroy(handle, native.ObjectTypeFramebuffer)
}

func (d *Device) DestroyCommandPool(handle native.Handle) {
	d.destroy(handle, native.ObjectTypeCommandPool)
}

func (d *Device) DestroySamplerYcbcrConversion(handle native.Handle) {
	d.destroy(handle, native.ObjectTypeSamplerYcbcrConversion)
}

func (d *Device) DestroyDescriptorUpdateTemplate(handle native.Handle) {
	d.destroy(handle, native.ObjectTypeDescriptorUpdateTemplate)
}

func (d *Device) DestroyAccelerationStructure(handle native.Handle) {
	d.destroy(handle, accelerationStructureTypes...)
}
