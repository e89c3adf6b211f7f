package resource

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/framegraph/ids"
	"github.com/vkngwrapper/framegraph/native"
	"golang.org/x/exp/slog"
)

// CreateFunc creates the native object for a descriptor that was not found in a cache
type CreateFunc func() (native.Handle, error)

// assignCached returns the cached slot matching key, adding a reference, or creates and caches a
// new one. created reports whether create was called.
func assignCached[K ids.Kind, T any](
	m *Manager,
	p *cachedPool[T],
	objectType native.ObjectType,
	key ids.HashVal,
	matches func(data *T) bool,
	create CreateFunc,
	build func(handle native.Handle) T,
) (id ids.ResourceID[K], s *slot[T], created bool, err error) {
	if index, generation, s, ok := p.find(key, matches); ok {
		s.refs++
		return ids.NewResourceID[K](index, generation), s, false, nil
	}

	if !p.hasRoom() {
		return id, nil, false, errors.Wrapf(ErrPoolFull, "%s pool already holds its maximum of %d resources", p.kindName(), p.capacityLimit())
	}

	handle, err := create()
	if err != nil {
		return id, nil, false, errors.Wrapf(err, "failed to create %s", p.kindName())
	}

	index, generation, s, err := p.insert(key, build(handle))
	if err != nil {
		m.DeferDestroy(objectType, handle)
		return id, nil, false, err
	}
	return ids.NewResourceID[K](index, generation), s, true, nil
}

// acquire adds a reference to a live cached slot
func acquire[K ids.Kind, T any](p *cachedPool[T], id ids.ResourceID[K]) (ids.Strong[K], error) {
	s, ok := lookup(&p.pool, id)
	if !ok {
		return ids.Strong[K]{}, errors.Wrapf(ErrStaleID, "%s", id)
	}
	s.refs++
	return ids.NewStrong(id), nil
}

// AssignSampler returns the sampler matching desc, calling create only if none is cached. Each
// call returns a new reference that must be released with UnassignSampler.
func (m *Manager) AssignSampler(desc SamplerDesc, create CreateFunc) (ids.SamplerID, error) {
	m.raceCheck.Lock()
	defer m.raceCheck.Unlock()

	id, _, created, err := assignCached[ids.SamplerKind](m, &m.samplers, native.ObjectTypeSampler, desc.Hash(),
		func(data *Sampler) bool { return data.Desc == desc },
		create,
		func(handle native.Handle) Sampler { return Sampler{Handle: handle, Desc: desc} },
	)
	if err != nil {
		return ids.SamplerID{}, err
	}

	m.logger.Debug("Manager::AssignSampler", slog.String("id", id.String()), slog.Bool("created", created))
	return ids.NewStrong(id), nil
}

// AcquireSampler adds a reference to a sampler that is already assigned
func (m *Manager) AcquireSampler(id ids.RawSamplerID) (ids.SamplerID, error) {
	m.raceCheck.Lock()
	defer m.raceCheck.Unlock()

	return acquire(&m.samplers, id)
}

// UnassignSampler releases one reference. The sampler is destroyed at the end of the frame in
// which its last reference is released.
func (m *Manager) UnassignSampler(id *ids.SamplerID) error {
	m.raceCheck.Lock()
	defer m.raceCheck.Unlock()

	raw := id.Get()
	s, ok := lookup(&m.samplers.pool, raw)
	if !ok {
		return staleID(raw)
	}

	id.Release()
	s.refs--
	if s.refs <= 0 {
		m.retireSampler(raw, s)
	}
	return nil
}

func (m *Manager) retireSampler(id ids.RawSamplerID, s *slot[Sampler]) {
	m.logger.Debug("Manager::retireSampler", slog.String("id", id.String()))

	m.samplers.evict(s)
	m.samplers.markPending(s)
	s.refs = 0
	m.DeferDestroy(native.ObjectTypeSampler, s.data.Handle)
	m.deferUnassign(ids.Of(id))
}

func (m *Manager) GetSampler(id ids.RawSamplerID) (Sampler, bool) {
	return get(&m.samplers.pool, id)
}

// AssignDescriptorSetLayout returns the descriptor set layout matching desc, calling create only
// if none is cached
func (m *Manager) AssignDescriptorSetLayout(desc DescriptorSetLayoutDesc, create CreateFunc) (ids.DescriptorSetLayoutID, error) {
	m.raceCheck.Lock()
	defer m.raceCheck.Unlock()

	id, _, created, err := assignCached[ids.DescriptorSetLayoutKind](m, &m.dsLayouts, native.ObjectTypeDescriptorSetLayout, desc.Hash(),
		func(data *DescriptorSetLayout) bool { return data.Desc.Equal(desc) },
		create,
		func(handle native.Handle) DescriptorSetLayout {
			return DescriptorSetLayout{Handle: handle, Desc: DescriptorSetLayoutDesc{
				Bindings: append([]DescriptorBinding(nil), desc.Bindings...),
			}}
		},
	)
	if err != nil {
		return ids.DescriptorSetLayoutID{}, err
	}

	m.logger.Debug("Manager::AssignDescriptorSetLayout", slog.String("id", id.String()), slog.Bool("created", created))
	return ids.NewStrong(id), nil
}

func (m *Manager) AcquireDescriptorSetLayout(id ids.RawDescriptorSetLayoutID) (ids.DescriptorSetLayoutID, error) {
	m.raceCheck.Lock()
	defer m.raceCheck.Unlock()

	return acquire(&m.dsLayouts, id)
}

func (m *Manager) UnassignDescriptorSetLayout(id *ids.DescriptorSetLayoutID) error {
	m.raceCheck.Lock()
	defer m.raceCheck.Unlock()

	raw := id.Get()
	if _, ok := lookup(&m.dsLayouts.pool, raw); !ok {
		return staleID(raw)
	}

	id.Release()
	m.releaseDescriptorSetLayout(raw)
	return nil
}

func (m *Manager) releaseDescriptorSetLayout(id ids.RawDescriptorSetLayoutID) {
	s, ok := lookup(&m.dsLayouts.pool, id)
	if !ok {
		m.logger.Error("released a descriptor set layout that is not assigned", slog.String("id", id.String()))
		return
	}

	s.refs--
	if s.refs <= 0 {
		m.retireDescriptorSetLayout(id, s)
	}
}

func (m *Manager) retireDescriptorSetLayout(id ids.RawDescriptorSetLayoutID, s *slot[DescriptorSetLayout]) {
	m.logger.Debug("Manager::retireDescriptorSetLayout", slog.String("id", id.String()))

	m.dsLayouts.evict(s)
	m.dsLayouts.markPending(s)
	s.refs = 0
	m.DeferDestroy(native.ObjectTypeDescriptorSetLayout, s.data.Handle)
	m.deferUnassign(ids.Of(id))
}

func (m *Manager) GetDescriptorSetLayout(id ids.RawDescriptorSetLayoutID) (DescriptorSetLayout, bool) {
	return get(&m.dsLayouts.pool, id)
}

// AssignPipelineLayout returns the pipeline layout matching desc, calling create only if none is
// cached. A newly created layout holds a reference on every descriptor set layout it names until
// it is destroyed.
func (m *Manager) AssignPipelineLayout(desc PipelineLayoutDesc, create CreateFunc) (ids.PipelineLayoutID, error) {
	m.raceCheck.Lock()
	defer m.raceCheck.Unlock()

	for _, set := range desc.DescriptorSets {
		if _, ok := lookup(&m.dsLayouts.pool, set.Layout); !ok {
			return ids.PipelineLayoutID{}, errors.Wrapf(ErrStaleID, "descriptor set %s refers to %s", set.ID, set.Layout)
		}
	}

	id, _, created, err := assignCached[ids.PipelineLayoutKind](m, &m.pipelineLayouts, native.ObjectTypePipelineLayout, desc.Hash(),
		func(data *PipelineLayout) bool { return data.Desc.Equal(desc) },
		create,
		func(handle native.Handle) PipelineLayout {
			return PipelineLayout{Handle: handle, Desc: PipelineLayoutDesc{
				DescriptorSets: append([]DescriptorSet(nil), desc.DescriptorSets...),
				PushConstants:  append([]PushConstantRange(nil), desc.PushConstants...),
			}}
		},
	)
	if err != nil {
		return ids.PipelineLayoutID{}, err
	}

	if created {
		for _, set := range desc.DescriptorSets {
			s, _ := lookup(&m.dsLayouts.pool, set.Layout)
			s.refs++
		}
	}

	m.logger.Debug("Manager::AssignPipelineLayout", slog.String("id", id.String()), slog.Bool("created", created))
	return ids.NewStrong(id), nil
}

func (m *Manager) AcquirePipelineLayout(id ids.RawPipelineLayoutID) (ids.PipelineLayoutID, error) {
	m.raceCheck.Lock()
	defer m.raceCheck.Unlock()

	return acquire(&m.pipelineLayouts, id)
}

func (m *Manager) UnassignPipelineLayout(id *ids.PipelineLayoutID) error {
	m.raceCheck.Lock()
	defer m.raceCheck.Unlock()

	raw := id.Get()
	if _, ok := lookup(&m.pipelineLayouts.pool, raw); !ok {
		return staleID(raw)
	}

	id.Release()
	m.releasePipelineLayout(raw)
	return nil
}

func (m *Manager) releasePipelineLayout(id ids.RawPipelineLayoutID) {
	s, ok := lookup(&m.pipelineLayouts.pool, id)
	if !ok {
		m.logger.Error("released a pipeline layout that is not assigned", slog.String("id", id.String()))
		return
	}

	s.refs--
	if s.refs <= 0 {
		m.retirePipelineLayout(id, s)
	}
}

func (m *Manager) retirePipelineLayout(id ids.RawPipelineLayoutID, s *slot[PipelineLayout]) {
	m.logger.Debug("Manager::retirePipelineLayout", slog.String("id", id.String()))

	m.pipelineLayouts.evict(s)
	m.pipelineLayouts.markPending(s)
	s.refs = 0
	m.DeferDestroy(native.ObjectTypePipelineLayout, s.data.Handle)
	m.deferUnassign(ids.Of(id))

	for _, set := range s.data.Desc.DescriptorSets {
		m.releaseDescriptorSetLayout(set.Layout)
	}
}

func (m *Manager) GetPipelineLayout(id ids.RawPipelineLayoutID) (PipelineLayout, bool) {
	return get(&m.pipelineLayouts.pool, id)
}
