package memory

import (
	"math"
	"math/bits"

	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/framegraph/native"
)

// findMemoryTypeIndex chooses the native memory type with every required flag that misses the
// fewest preferred flags and carries the fewest unwanted ones. It returns -1 if no type qualifies.
func findMemoryTypeIndex(
	properties *native.MemoryProperties,
	memoryTypeBits uint32,
	requiredFlags, preferredFlags, notPreferredFlags core1_0.MemoryPropertyFlags,
) int {
	bestMemoryTypeIndex := -1
	minCost := math.MaxInt

	for memTypeIndex := 0; memTypeIndex < len(properties.MemoryTypes); memTypeIndex++ {
		memTypeBit := uint32(1 << memTypeIndex)

		if memTypeBit&memoryTypeBits == 0 {
			continue
		}

		flags := properties.MemoryTypes[memTypeIndex].PropertyFlags
		if requiredFlags&flags != requiredFlags {
			continue
		}

		missingPreferredFlags := preferredFlags & ^flags
		presentNotPreferredFlags := notPreferredFlags & flags
		cost := bits.OnesCount32(uint32(missingPreferredFlags)) + bits.OnesCount32(uint32(presentNotPreferredFlags))
		if cost == 0 {
			return memTypeIndex
		} else if cost < minCost {
			bestMemoryTypeIndex = memTypeIndex
			minCost = cost
		}
	}

	return bestMemoryTypeIndex
}

func isHostNonCoherent(flags core1_0.MemoryPropertyFlags) bool {
	return flags&(core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent) == core1_0.MemoryPropertyHostVisible
}

// memoryTypeMinimumAlignment keeps suballocations in non-coherent memory on separate atoms so they
// can be flushed independently
func memoryTypeMinimumAlignment(properties *native.MemoryProperties, memTypeIndex int) uint {
	if isHostNonCoherent(properties.MemoryTypes[memTypeIndex].PropertyFlags) && properties.NonCoherentAtomSize > 1 {
		return uint(properties.NonCoherentAtomSize)
	}
	return 1
}
