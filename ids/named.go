package ids

import (
	"fmt"

	"github.com/vkngwrapper/framegraph/internal/hashing"
)

// NamedKind is implemented by the marker types of named identities
type NamedKind interface {
	Kind
	// Seed selects the hash seed for names of this kind
	Seed() uint64
	// KeepsName reports whether the name survives in optimized builds
	KeepsName() bool
}

type namedKind struct{}

func (namedKind) Seed() uint64    { return hashing.DefaultSeed }
func (namedKind) KeepsName() bool { return false }

type UniformKind struct{ namedKind }

func (UniformKind) UID() uint32      { return 1 }
func (UniformKind) KindName() string { return "Uniform" }

type PushConstantKind struct{ namedKind }

func (PushConstantKind) UID() uint32      { return 2 }
func (PushConstantKind) KindName() string { return "PushConstant" }

type DescriptorSetKind struct{ namedKind }

func (DescriptorSetKind) UID() uint32      { return 4 }
func (DescriptorSetKind) KindName() string { return "DescriptorSet" }

type SpecializationKind struct{ namedKind }

func (SpecializationKind) UID() uint32      { return 5 }
func (SpecializationKind) KindName() string { return "Specialization" }

type VertexKind struct{ namedKind }

func (VertexKind) UID() uint32      { return 6 }
func (VertexKind) KindName() string { return "Vertex" }

type VertexBufferKind struct{ namedKind }

func (VertexBufferKind) UID() uint32      { return 7 }
func (VertexBufferKind) KindName() string { return "VertexBuffer" }

type MemPoolKind struct{ namedKind }

func (MemPoolKind) UID() uint32      { return 8 }
func (MemPoolKind) KindName() string { return "MemPool" }

type RTShaderKind struct{ namedKind }

func (RTShaderKind) UID() uint32      { return 10 }
func (RTShaderKind) KindName() string { return "RTShader" }

// Shader names are looked up again when shader tables are rebuilt, so they are never dropped
func (RTShaderKind) KeepsName() bool { return true }

type GeometryKind struct{ namedKind }

func (GeometryKind) UID() uint32      { return 11 }
func (GeometryKind) KindName() string { return "Geometry" }

type InstanceKind struct{ namedKind }

func (InstanceKind) UID() uint32      { return 12 }
func (InstanceKind) KindName() string { return "Instance" }

type (
	UniformID        = NamedID[UniformKind]
	PushConstantID   = NamedID[PushConstantKind]
	DescriptorSetID  = NamedID[DescriptorSetKind]
	SpecializationID = NamedID[SpecializationKind]
	VertexID         = NamedID[VertexKind]
	VertexBufferID   = NamedID[VertexBufferKind]
	MemPoolID        = NamedID[MemPoolKind]
	RTShaderID       = NamedID[RTShaderKind]
	GeometryID       = NamedID[GeometryKind]
	InstanceID       = NamedID[InstanceKind]
)

// NamedID identifies a descriptor entry by a seeded hash of its name. The hash is stored relative
// to the hash of the empty string so that the zero value is undefined. Compare NamedIDs with
// Equal, or use Hash as a map key: in development builds the struct also carries the name.
type NamedID[K NamedKind] struct {
	relHash HashVal
	name    string
}

func emptyHash[K NamedKind]() HashVal {
	var kind K
	return HashVal(hashing.String("", kind.Seed()))
}

func NewNamedID[K NamedKind](name string) NamedID[K] {
	var kind K
	id := NamedIDFromHash[K](HashVal(hashing.String(name, kind.Seed())))
	if KeepNames || kind.KeepsName() {
		id.name = name
	}
	return id
}

func NamedIDFromHash[K NamedKind](hash HashVal) NamedID[K] {
	return NamedID[K]{relHash: hash ^ emptyHash[K]()}
}

func (id NamedID[K]) Hash() HashVal {
	return id.relHash ^ emptyHash[K]()
}

// Name returns the source string, or "" when it was not retained
func (id NamedID[K]) Name() string { return id.name }

func (id NamedID[K]) IsDefined() bool { return id.relHash != 0 }

func (id NamedID[K]) Equal(other NamedID[K]) bool { return id.relHash == other.relHash }

func (id NamedID[K]) Less(other NamedID[K]) bool { return id.Hash() < other.Hash() }

// Optimized returns the hash-only form of id
func (id NamedID[K]) Optimized() NamedID[K] {
	return NamedID[K]{relHash: id.relHash}
}

func (id NamedID[K]) String() string {
	var kind K
	if id.name != "" {
		return fmt.Sprintf("%s(%q)", kind.KindName(), id.name)
	}
	return fmt.Sprintf("%s(%016x)", kind.KindName(), uint64(id.Hash()))
}
