package memory

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/arsenal/memutils/metadata"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/framegraph/native"
)

type resourceKind int32

var resourceKindMapping = common.NewFlagStringMapping[resourceKind]()

func (k resourceKind) String() string {
	return resourceKindMapping.FlagsToString(k)
}

const (
	resourceKindBuffer resourceKind = 1 << iota
	resourceKindImage
	resourceKindAccelStruct
)

func init() {
	resourceKindMapping.Register(resourceKindBuffer, "Buffer")
	resourceKindMapping.Register(resourceKindImage, "Image")
	resourceKindMapping.Register(resourceKindAccelStruct, "AccelStruct")
}

// suballocationType is the kind's class for buffer-image granularity. Acceleration structures
// live in buffer memory.
func (k resourceKind) suballocationType() metadata.SuballocationType {
	if k == resourceKindImage {
		return metadata.SuballocationImageOptimal
	}
	return metadata.SuballocationBuffer
}

func checkSize(size int) error {
	if size < 1 {
		return errors.Wrapf(ErrUnsupported, "invalid allocation size %d", size)
	}
	return nil
}

// checkRequest fails empty requests, and requests for acceleration structure memory on
// devices that cannot bind it
func checkRequest(properties *native.MemoryProperties, kind resourceKind, desc MemoryDesc) error {
	err := checkSize(desc.Requirements.Size)
	if err != nil {
		return err
	}
	if kind == resourceKindAccelStruct && !properties.AccelerationStructures {
		return errors.Wrap(ErrUnsupported, "device does not support acceleration structure memory")
	}
	return nil
}

func bindResource(device native.MemoryDevice, kind resourceKind, handle native.Handle, memory native.Handle, offset int) error {
	var err error
	switch kind {
	case resourceKindBuffer:
		_, err = device.BindBufferMemory(handle, memory, offset)
	case resourceKindImage:
		_, err = device.BindImageMemory(handle, memory, offset)
	case resourceKindAccelStruct:
		_, err = device.BindAccelerationStructureMemory(handle, memory, offset)
	default:
		return errors.Newf("attempted to bind a resource of unknown kind %s", kind)
	}
	if err != nil {
		return errors.Wrapf(err, "failed to bind %s memory", kind)
	}
	return nil
}
