package resource

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/framegraph/ids"
	"github.com/vkngwrapper/framegraph/native"
	"golang.org/x/exp/slog"
)

// assignPipeline assigns a pipeline slot that holds a reference on layout. An invalid layout is
// allowed for pipelines whose layout is managed by the caller.
func assignPipeline[K ids.Kind](m *Manager, p *pool[Pipeline], handle native.Handle, layout ids.RawPipelineLayoutID) (ids.Strong[K], error) {
	m.raceCheck.Lock()
	defer m.raceCheck.Unlock()

	var layoutSlot *slot[PipelineLayout]
	if layout.IsValid() {
		var ok bool
		layoutSlot, ok = lookup(&m.pipelineLayouts.pool, layout)
		if !ok {
			return ids.Strong[K]{}, errors.Wrapf(ErrStaleID, "pipeline %d refers to %s", handle, layout)
		}
	}

	id, _, err := assign[K](p, Pipeline{Handle: handle, Layout: layout})
	if err != nil {
		return ids.Strong[K]{}, err
	}
	if layoutSlot != nil {
		layoutSlot.refs++
	}

	m.logger.Debug("Manager::AssignPipeline", slog.String("id", id.String()), slog.String("layout", layout.String()))
	return ids.NewStrong(id), nil
}

func unassignPipeline[K ids.Kind](m *Manager, p *pool[Pipeline], id *ids.Strong[K]) error {
	m.raceCheck.Lock()
	defer m.raceCheck.Unlock()

	raw := id.Get()
	s, ok := lookup(p, raw)
	if !ok {
		return staleID(raw)
	}

	id.Release()
	m.retirePipeline(p, ids.Of(raw), s)
	return nil
}

func (m *Manager) retirePipeline(p *pool[Pipeline], id ids.Untyped, s *slot[Pipeline]) {
	p.markPending(s)
	m.DeferDestroy(native.ObjectTypePipeline, s.data.Handle)
	m.deferUnassign(id)

	if s.data.Layout.IsValid() {
		m.releasePipelineLayout(s.data.Layout)
	}
}

func (m *Manager) AssignGraphicsPipeline(handle native.Handle, layout ids.RawPipelineLayoutID) (ids.GPipelineID, error) {
	return assignPipeline[ids.GPipelineKind](m, &m.gPipelines, handle, layout)
}

func (m *Manager) UnassignGraphicsPipeline(id *ids.GPipelineID) error {
	return unassignPipeline(m, &m.gPipelines, id)
}

func (m *Manager) GetGraphicsPipeline(id ids.RawGPipelineID) (Pipeline, bool) {
	return get(&m.gPipelines, id)
}

func (m *Manager) AssignMeshPipeline(handle native.Handle, layout ids.RawPipelineLayoutID) (ids.MPipelineID, error) {
	return assignPipeline[ids.MPipelineKind](m, &m.mPipelines, handle, layout)
}

func (m *Manager) UnassignMeshPipeline(id *ids.MPipelineID) error {
	return unassignPipeline(m, &m.mPipelines, id)
}

func (m *Manager) GetMeshPipeline(id ids.RawMPipelineID) (Pipeline, bool) {
	return get(&m.mPipelines, id)
}

func (m *Manager) AssignComputePipeline(handle native.Handle, layout ids.RawPipelineLayoutID) (ids.CPipelineID, error) {
	return assignPipeline[ids.CPipelineKind](m, &m.cPipelines, handle, layout)
}

func (m *Manager) UnassignComputePipeline(id *ids.CPipelineID) error {
	return unassignPipeline(m, &m.cPipelines, id)
}

func (m *Manager) GetComputePipeline(id ids.RawCPipelineID) (Pipeline, bool) {
	return get(&m.cPipelines, id)
}

func (m *Manager) AssignRayTracingPipeline(handle native.Handle, layout ids.RawPipelineLayoutID) (ids.RTPipelineID, error) {
	return assignPipeline[ids.RTPipelineKind](m, &m.rtPipelines, handle, layout)
}

func (m *Manager) UnassignRayTracingPipeline(id *ids.RTPipelineID) error {
	return unassignPipeline(m, &m.rtPipelines, id)
}

func (m *Manager) GetRayTracingPipeline(id ids.RawRTPipelineID) (Pipeline, bool) {
	return get(&m.rtPipelines, id)
}
