package resource

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/framegraph/ids"
)

func TestPool_GrowsAcrossChunks(t *testing.T) {
	var p pool[int]
	p.init("Test", chunkSize*2+1)

	for i := 0; i < chunkSize*2+1; i++ {
		index, generation, _, err := p.assign(i, stateCreated)
		require.NoError(t, err)
		require.Equal(t, uint16(i), index)
		require.Equal(t, uint16(0), generation)
	}
	require.Equal(t, chunkSize*2+1, p.liveCount())
	require.NotNil(t, p.chunks[2].Load())
	require.Nil(t, p.chunks[3].Load())

	_, _, _, err := p.assign(0, stateCreated)
	require.True(t, errors.Is(err, ErrPoolFull))

	s, ok := p.lookup(chunkSize+5, 0)
	require.True(t, ok)
	require.Equal(t, chunkSize+5, s.data)
}

func TestPool_RecycleBumpsGeneration(t *testing.T) {
	var p pool[string]
	p.init("Test", 8)

	id, s, err := assign[ids.ImageKind](&p, "first")
	require.NoError(t, err)

	// Only pending slots are recycled
	_, ok := p.recycle(id.Index(), id.Generation())
	require.False(t, ok)

	p.markPending(s)
	_, ok = lookup(&p, id)
	require.False(t, ok)

	data, ok := recycle[ids.ImageKind](&p, ids.Of(id))
	require.True(t, ok)
	require.Equal(t, "first", data)
	require.Equal(t, 0, p.liveCount())

	// Recycling twice is refused
	_, ok = recycle[ids.ImageKind](&p, ids.Of(id))
	require.False(t, ok)

	// An untyped id of the wrong kind is refused
	_, ok = recycle[ids.BufferKind](&p, ids.Of(id))
	require.False(t, ok)

	next, _, err := assign[ids.ImageKind](&p, "second")
	require.NoError(t, err)
	require.Equal(t, id.Index(), next.Index())
	require.Equal(t, id.Generation()+1, next.Generation())

	_, ok = get(&p, id)
	require.False(t, ok)
	value, ok := get(&p, next)
	require.True(t, ok)
	require.Equal(t, "second", value)
}

func TestPool_ForEachLiveSkipsPending(t *testing.T) {
	var p pool[int]
	p.init("Test", 8)

	for i := 0; i < 4; i++ {
		_, _, _, err := p.assign(i, stateCreated)
		require.NoError(t, err)
	}
	s, _ := p.lookup(1, 0)
	p.markPending(s)

	var visited []int
	p.forEachLive(func(index uint16, generation uint16, s *slot[int]) {
		visited = append(visited, s.data)
	})
	require.Equal(t, []int{0, 2, 3}, visited)
}

func TestCachedPool_CollisionIsNotShared(t *testing.T) {
	var p cachedPool[string]
	p.init("Test", 8)

	index, _, first, err := p.insert(42, "a")
	require.NoError(t, err)
	require.True(t, first.cached)

	_, _, _, ok := p.find(42, func(data *string) bool { return *data == "b" })
	require.False(t, ok)

	// A different descriptor with the same key gets its own uncached slot
	_, _, second, err := p.insert(42, "b")
	require.NoError(t, err)
	require.False(t, second.cached)

	found, _, _, ok := p.find(42, func(data *string) bool { return *data == "a" })
	require.True(t, ok)
	require.Equal(t, index, found)

	p.evict(first)
	require.Equal(t, 0, p.cachedCount())
}
