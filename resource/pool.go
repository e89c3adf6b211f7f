package resource

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/framegraph/ids"
)

const (
	chunkSize = 256
	maxChunks = (int(ids.MaxIndex) + chunkSize) / chunkSize

	// defaultPoolCapacity is the number of slots each pool may hand out when CreateOptions does not
	// provide one
	defaultPoolCapacity = 4096
)

type slotState uint32

const (
	stateInitial slotState = iota
	stateCreated
	stateCached
	statePendingDestroy
)

// slot is a single resource entry. header packs the generation into the low 16 bits and the state
// above them; it is written last when a slot is assigned, so a reader that observes a live header
// also observes the payload.
type slot[T any] struct {
	header atomic.Uint32

	refs   int32
	key    ids.HashVal
	cached bool
	data   T
}

func (s *slot[T]) load() (generation uint16, state slotState) {
	header := s.header.Load()
	return uint16(header), slotState(header >> 16)
}

func (s *slot[T]) store(generation uint16, state slotState) {
	s.header.Store(uint32(generation) | uint32(state)<<16)
}

func (s *slot[T]) live() bool {
	_, state := s.load()
	return state == stateCreated || state == stateCached
}

type chunk[T any] [chunkSize]slot[T]

// pool hands out generational slots from fixed-size chunks. Chunks are never moved once
// published, so lookups may run on other goroutines while the frame thread assigns new slots.
// Everything except lookup must be called by a single writer.
type pool[T any] struct {
	name     string
	capacity int

	chunks [maxChunks]atomic.Pointer[chunk[T]]
	count  int
	free   []uint16
	live   int
}

func (p *pool[T]) init(name string, capacity int) {
	p.name = name
	p.capacity = capacity
}

func (p *pool[T]) slotAt(index uint16) *slot[T] {
	c := p.chunks[int(index)/chunkSize].Load()
	if c == nil {
		return nil
	}
	return &c[int(index)%chunkSize]
}

func (p *pool[T]) hasRoom() bool {
	return len(p.free) > 0 || p.count < p.capacity
}

// assign stores data in a free slot, reusing recycled indices before growing
func (p *pool[T]) assign(data T, state slotState) (uint16, uint16, *slot[T], error) {
	var index uint16

	if last := len(p.free) - 1; last >= 0 {
		index = p.free[last]
		p.free = p.free[:last]
	} else {
		if p.count >= p.capacity {
			return 0, 0, nil, errors.Wrapf(ErrPoolFull, "%s pool already holds its maximum of %d resources", p.name, p.capacity)
		}

		chunkIndex := p.count / chunkSize
		if p.chunks[chunkIndex].Load() == nil {
			p.chunks[chunkIndex].Store(new(chunk[T]))
		}
		index = uint16(p.count)
		p.count++
	}

	s := p.slotAt(index)
	generation, _ := s.load()
	s.data = data
	s.refs = 1
	s.key = 0
	s.cached = false
	s.store(generation, state)
	p.live++

	return index, generation, s, nil
}

// lookup returns the slot at index if it is live and still on the provided generation
func (p *pool[T]) lookup(index uint16, generation uint16) (*slot[T], bool) {
	s := p.slotAt(index)
	if s == nil {
		return nil, false
	}

	slotGeneration, state := s.load()
	if slotGeneration != generation || (state != stateCreated && state != stateCached) {
		return nil, false
	}
	return s, true
}

func (p *pool[T]) markPending(s *slot[T]) {
	generation, _ := s.load()
	s.store(generation, statePendingDestroy)
}

// recycle returns a pending slot to the free list with its generation incremented. It returns the
// payload the slot held.
func (p *pool[T]) recycle(index uint16, generation uint16) (T, bool) {
	var zero T

	s := p.slotAt(index)
	if s == nil {
		return zero, false
	}
	slotGeneration, state := s.load()
	if slotGeneration != generation || state != statePendingDestroy {
		return zero, false
	}

	data := s.data
	s.store(generation+1, stateInitial)
	s.data = zero
	s.refs = 0
	s.key = 0
	s.cached = false

	p.free = append(p.free, index)
	p.live--
	return data, true
}

// forEachLive visits every live slot in index order
func (p *pool[T]) forEachLive(visit func(index uint16, generation uint16, s *slot[T])) {
	for i := 0; i < p.count; i++ {
		s := p.slotAt(uint16(i))
		generation, state := s.load()
		if state == stateCreated || state == stateCached {
			visit(uint16(i), generation, s)
		}
	}
}

func (p *pool[T]) kindName() string   { return p.name }
func (p *pool[T]) liveCount() int     { return p.live }
func (p *pool[T]) capacityLimit() int { return p.capacity }

func lookup[K ids.Kind, T any](p *pool[T], id ids.ResourceID[K]) (*slot[T], bool) {
	if !id.IsValid() {
		return nil, false
	}
	return p.lookup(id.Index(), id.Generation())
}

func get[K ids.Kind, T any](p *pool[T], id ids.ResourceID[K]) (T, bool) {
	s, ok := lookup(p, id)
	if !ok {
		var zero T
		return zero, false
	}
	return s.data, true
}

func assign[K ids.Kind, T any](p *pool[T], data T) (ids.ResourceID[K], *slot[T], error) {
	index, generation, s, err := p.assign(data, stateCreated)
	if err != nil {
		return ids.ResourceID[K]{}, nil, err
	}
	return ids.NewResourceID[K](index, generation), s, nil
}

func recycle[K ids.Kind, T any](p *pool[T], untyped ids.Untyped) (T, bool) {
	id, ok := ids.Restore[K](untyped)
	if !ok {
		var zero T
		return zero, false
	}
	return p.recycle(id.Index(), id.Generation())
}
