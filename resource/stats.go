package resource

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/arsenal/memutils"
)

// PoolStats describes the occupancy of a single resource pool
type PoolStats struct {
	Kind     string
	Live     int
	Capacity int
	// Cached is the number of live entries reachable through the pool's content cache
	Cached int
}

// Stats is a snapshot of the manager's pools and queues
type Stats struct {
	Frame           uint64
	Pools           []PoolStats
	PendingDestroy  int
	PendingUnassign int
}

type statsPool interface {
	kindName() string
	liveCount() int
	capacityLimit() int
}

func (m *Manager) pools() []statsPool {
	return []statsPool{
		&m.buffers, &m.images, &m.memories,
		&m.rtGeometries, &m.rtScenes,
		&m.gPipelines, &m.mPipelines, &m.cPipelines, &m.rtPipelines,
		&m.samplers, &m.dsLayouts, &m.pipelineLayouts,
	}
}

// Stats returns the live counts of every pool
func (m *Manager) Stats() Stats {
	m.raceCheck.RLock()
	defer m.raceCheck.RUnlock()

	stats := Stats{Frame: m.frame}
	for _, p := range m.pools() {
		poolStats := PoolStats{
			Kind:     p.kindName(),
			Live:     p.liveCount(),
			Capacity: p.capacityLimit(),
		}
		if cached, ok := p.(interface{ cachedCount() int }); ok {
			poolStats.Cached = cached.cachedCount()
		}
		stats.Pools = append(stats.Pools, poolStats)
	}

	m.queueMutex.Lock()
	stats.PendingDestroy = len(m.readyToDelete)
	stats.PendingUnassign = len(m.unassignIDs)
	m.queueMutex.Unlock()

	return stats
}

// BuildStatsString returns a JSON document describing every pool and, if the manager has one, the
// memory manager's totals
func (m *Manager) BuildStatsString() string {
	stats := m.Stats()

	writer := jwriter.NewWriter()
	obj := writer.Object()

	obj.Name("Frame").Int(int(stats.Frame))
	obj.Name("PendingDestroy").Int(stats.PendingDestroy)
	obj.Name("PendingUnassign").Int(stats.PendingUnassign)

	poolsObj := obj.Name("Pools").Object()
	for _, pool := range stats.Pools {
		poolObj := poolsObj.Name(pool.Kind).Object()
		poolObj.Name("Live").Int(pool.Live)
		poolObj.Name("Capacity").Int(pool.Capacity)
		poolObj.Name("Cached").Int(pool.Cached)
		poolObj.End()
	}
	poolsObj.End()

	if m.memory != nil {
		memoryStats := m.memory.Statistics()
		writeMemoryStatistics(&obj, &memoryStats)
	}

	obj.End()
	return string(writer.Bytes())
}

func writeMemoryStatistics(obj *jwriter.ObjectState, stats *memutils.Statistics) {
	memoryObj := obj.Name("Memory").Object()
	defer memoryObj.End()

	memoryObj.Name("BlockCount").Int(stats.BlockCount)
	memoryObj.Name("BlockBytes").Int(stats.BlockBytes)
	memoryObj.Name("AllocationCount").Int(stats.AllocationCount)
	memoryObj.Name("AllocationBytes").Int(stats.AllocationBytes)
}
