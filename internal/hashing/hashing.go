package hashing

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
)

// DefaultSeed is the seed used for content hashes that do not select their own
const DefaultSeed uint64 = math.MaxUint32

// Hasher accumulates a seeded xxhash digest over the fields of a descriptor. Field writes are
// length-prefixed where needed so that adjacent variable-length fields cannot run together.
type Hasher struct {
	digest  *xxhash.Digest
	scratch [8]byte
}

func New(seed uint64) *Hasher {
	return &Hasher{digest: xxhash.NewWithSeed(seed)}
}

func (h *Hasher) Uint64(value uint64) *Hasher {
	binary.LittleEndian.PutUint64(h.scratch[:], value)
	_, _ = h.digest.Write(h.scratch[:])
	return h
}

func (h *Hasher) Uint32(value uint32) *Hasher {
	binary.LittleEndian.PutUint32(h.scratch[:4], value)
	_, _ = h.digest.Write(h.scratch[:4])
	return h
}

func (h *Hasher) Int(value int) *Hasher {
	return h.Uint64(uint64(value))
}

func (h *Hasher) Float32(value float32) *Hasher {
	return h.Uint32(math.Float32bits(value))
}

func (h *Hasher) Bool(value bool) *Hasher {
	if value {
		return h.Uint32(1)
	}
	return h.Uint32(0)
}

func (h *Hasher) String(value string) *Hasher {
	h.Int(len(value))
	_, _ = h.digest.WriteString(value)
	return h
}

func (h *Hasher) Sum() uint64 {
	return h.digest.Sum64()
}

// String hashes a single string with the provided seed
func String(value string, seed uint64) uint64 {
	digest := xxhash.NewWithSeed(seed)
	_, _ = digest.WriteString(value)
	return digest.Sum64()
}
