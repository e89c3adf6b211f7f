package ids

import (
	"fmt"
	"math"

	"github.com/vkngwrapper/framegraph/internal/hashing"
)

// HashVal is a 64-bit content or identity hash
type HashVal uint64

const (
	indexBits        = 16
	indexMask uint32 = 1<<indexBits - 1

	// InvalidData is the packed value of an invalid identity
	InvalidData uint32 = math.MaxUint32
	// MaxIndex is the highest slot index a pool may hand out. Index 0xFFFF is never used so that
	// no live identity can collide with InvalidData.
	MaxIndex uint16 = math.MaxUint16 - 1
)

// ResourceID is a weak, generational reference to a slot in a resource pool. The value is stored
// complemented so that the zero value is the invalid sentinel.
type ResourceID[K Kind] struct {
	inverted uint32
}

// FromData constructs an identity from its packed representation
func FromData[K Kind](data uint32) ResourceID[K] {
	return ResourceID[K]{inverted: ^data}
}

// NewResourceID packs index and generation into an identity
func NewResourceID[K Kind](index uint16, generation uint16) ResourceID[K] {
	return FromData[K](uint32(index) | uint32(generation)<<indexBits)
}

func (id ResourceID[K]) Data() uint32       { return ^id.inverted }
func (id ResourceID[K]) IsValid() bool      { return id.inverted != 0 }
func (id ResourceID[K]) Index() uint16      { return uint16(id.Data() & indexMask) }
func (id ResourceID[K]) Generation() uint16 { return uint16(id.Data() >> indexBits) }

func (id ResourceID[K]) UID() uint32 {
	var kind K
	return kind.UID()
}

// Hash mixes the packed value with the kind UID so that equal slots of different kinds do not
// collide in shared hash tables
func (id ResourceID[K]) Hash() HashVal {
	return HashVal(hashing.New(hashing.DefaultSeed).Uint32(id.Data()).Sum()) + HashVal(id.UID())
}

func (id ResourceID[K]) String() string {
	var kind K
	if !id.IsValid() {
		return fmt.Sprintf("%s(invalid)", kind.KindName())
	}
	return fmt.Sprintf("%s(%d:%d)", kind.KindName(), id.Index(), id.Generation())
}

// Untyped is a ResourceID with its kind erased, used by queues that hold identities of many kinds
type Untyped struct {
	UID  uint32
	Data uint32
}

// Of drops the static kind of id, keeping its UID for later dispatch
func Of[K Kind](id ResourceID[K]) Untyped {
	return Untyped{UID: id.UID(), Data: id.Data()}
}

// Restore recovers a typed identity. It returns false if u was erased from a different kind.
func Restore[K Kind](u Untyped) (ResourceID[K], bool) {
	var kind K
	if kind.UID() != u.UID {
		return ResourceID[K]{}, false
	}
	return FromData[K](u.Data), true
}
