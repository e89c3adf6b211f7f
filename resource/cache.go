package resource

import (
	"github.com/dolthub/swiss"
	"github.com/vkngwrapper/framegraph/ids"
)

// cachedPool is a pool whose slots are deduplicated by descriptor content. Every slot is reference
// counted; the cache only ever points at live slots.
type cachedPool[T any] struct {
	pool[T]
	cache *swiss.Map[ids.HashVal, uint16]
}

func (p *cachedPool[T]) init(name string, capacity int) {
	p.pool.init(name, capacity)
	p.cache = swiss.NewMap[ids.HashVal, uint16](64)
}

// find returns the cached slot for key if its content satisfies matches
func (p *cachedPool[T]) find(key ids.HashVal, matches func(data *T) bool) (uint16, uint16, *slot[T], bool) {
	index, ok := p.cache.Get(key)
	if !ok {
		return 0, 0, nil, false
	}

	s := p.slotAt(index)
	generation, _ := s.load()
	if !s.live() || !matches(&s.data) {
		return 0, 0, nil, false
	}
	return index, generation, s, true
}

// insert assigns a slot and publishes it under key. If a different descriptor already owns key,
// the new slot is still assigned but never handed out by find.
func (p *cachedPool[T]) insert(key ids.HashVal, data T) (uint16, uint16, *slot[T], error) {
	if p.cache.Has(key) {
		return p.assign(data, stateCreated)
	}

	index, generation, s, err := p.assign(data, stateCached)
	if err != nil {
		return 0, 0, nil, err
	}
	s.key = key
	s.cached = true
	p.cache.Put(key, index)
	return index, generation, s, nil
}

func (p *cachedPool[T]) evict(s *slot[T]) {
	if s.cached {
		p.cache.Delete(s.key)
		s.cached = false
	}
}

func (p *cachedPool[T]) cachedCount() int {
	return p.cache.Count()
}
