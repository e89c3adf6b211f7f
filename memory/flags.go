package memory

import (
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
)

// MemoryType describes how a resource intends to use its memory. Strategies claim requests by
// MemoryType, and it is converted to native memory property flags when a memory type is chosen.
type MemoryType int32

var memoryTypeMapping = common.NewFlagStringMapping[MemoryType]()

func (f MemoryType) Register(str string) {
	memoryTypeMapping.Register(f, str)
}
func (f MemoryType) String() string {
	return memoryTypeMapping.FlagsToString(f)
}

const (
	// MemoryTypeDeviceLocal requests memory that is fast for the device to access
	MemoryTypeDeviceLocal MemoryType = 1 << iota
	// MemoryTypeHostRead requests memory that the host can map and read back
	MemoryTypeHostRead
	// MemoryTypeHostWrite requests memory that the host can map and write
	MemoryTypeHostWrite
	// MemoryTypeHostCoherent requests host-visible memory that does not need explicit flushes
	MemoryTypeHostCoherent
	// MemoryTypeHostCached requests host-visible memory that is cached on the host
	MemoryTypeHostCached
	// MemoryTypeLazilyAllocated requests transient memory the implementation may never commit,
	// such as render-pass-local attachments
	MemoryTypeLazilyAllocated
	// MemoryTypeDedicated requests a native allocation used by this resource alone
	MemoryTypeDedicated
	// MemoryTypeVirtual requests an address range with no native memory behind it
	MemoryTypeVirtual

	// MemoryTypeHostAccessMask covers every flag that implies the host will map the memory
	MemoryTypeHostAccessMask = MemoryTypeHostRead | MemoryTypeHostWrite | MemoryTypeHostCoherent | MemoryTypeHostCached
)

func init() {
	MemoryTypeDeviceLocal.Register("DeviceLocal")
	MemoryTypeHostRead.Register("HostRead")
	MemoryTypeHostWrite.Register("HostWrite")
	MemoryTypeHostCoherent.Register("HostCoherent")
	MemoryTypeHostCached.Register("HostCached")
	MemoryTypeLazilyAllocated.Register("LazilyAllocated")
	MemoryTypeDedicated.Register("Dedicated")
	MemoryTypeVirtual.Register("Virtual")
}

// HasHostAccess reports whether the memory will be mapped by the host
func (f MemoryType) HasHostAccess() bool {
	return f&MemoryTypeHostAccessMask != 0
}

// PropertyPreferences converts a MemoryType into the property flags used to choose a native memory type
func (f MemoryType) PropertyPreferences() (required, preferred, notPreferred core1_0.MemoryPropertyFlags) {
	if f&MemoryTypeDeviceLocal != 0 {
		required |= core1_0.MemoryPropertyDeviceLocal
	}
	if f.HasHostAccess() {
		required |= core1_0.MemoryPropertyHostVisible
	}
	if f&MemoryTypeHostCoherent != 0 {
		required |= core1_0.MemoryPropertyHostCoherent
	}
	if f&MemoryTypeHostCached != 0 {
		required |= core1_0.MemoryPropertyHostCached
	}
	if f&MemoryTypeLazilyAllocated != 0 {
		required |= core1_0.MemoryPropertyLazilyAllocated
	} else {
		notPreferred |= core1_0.MemoryPropertyLazilyAllocated
	}

	switch {
	case f&MemoryTypeHostRead != 0:
		// Readback is far faster from cached memory
		preferred |= core1_0.MemoryPropertyHostCached
	case f&MemoryTypeHostWrite != 0:
		notPreferred |= core1_0.MemoryPropertyHostCached
	case !f.HasHostAccess():
		preferred |= core1_0.MemoryPropertyDeviceLocal
		notPreferred |= core1_0.MemoryPropertyHostVisible
	}

	return required, preferred, notPreferred
}
