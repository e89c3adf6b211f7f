package ids

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResourceIDZeroValueInvalid(t *testing.T) {
	var id RawBufferID
	require.False(t, id.IsValid())
	require.Equal(t, InvalidData, id.Data())
	require.Equal(t, "Buffer(invalid)", id.String())

	require.False(t, FromData[BufferKind](InvalidData).IsValid())
	require.Equal(t, RawBufferID{}, FromData[BufferKind](InvalidData))
}

func TestResourceIDPacking(t *testing.T) {
	id := NewResourceID[ImageKind](3, 7)
	require.True(t, id.IsValid())
	require.Equal(t, uint16(3), id.Index())
	require.Equal(t, uint16(7), id.Generation())
	require.Equal(t, uint32(3|7<<16), id.Data())
	require.Equal(t, ImageUID, id.UID())
	require.Equal(t, "Image(3:7)", id.String())

	require.Equal(t, id, FromData[ImageKind](id.Data()))
	require.NotEqual(t, id, NewResourceID[ImageKind](3, 8))
}

func TestResourceIDMapKey(t *testing.T) {
	m := map[RawImageID]int{}
	m[NewResourceID[ImageKind](1, 0)] = 1
	m[NewResourceID[ImageKind](1, 1)] = 2

	require.Len(t, m, 2)
	require.Equal(t, 2, m[NewResourceID[ImageKind](1, 1)])
}

func TestResourceIDHashIncludesKind(t *testing.T) {
	buffer := NewResourceID[BufferKind](5, 2)
	image := NewResourceID[ImageKind](5, 2)

	require.Equal(t, buffer.Data(), image.Data())
	require.NotEqual(t, buffer.Hash(), image.Hash())
	require.Equal(t, buffer.Hash(), NewResourceID[BufferKind](5, 2).Hash())
}

func TestUntypedRoundTrip(t *testing.T) {
	id := NewResourceID[SamplerKind](12, 4)
	u := Of(id)
	require.Equal(t, SamplerUID, u.UID)

	restored, ok := Restore[SamplerKind](u)
	require.True(t, ok)
	require.Equal(t, id, restored)

	_, ok = Restore[BufferKind](u)
	require.False(t, ok)
}

func TestStrongOwnership(t *testing.T) {
	raw := NewResourceID[BufferKind](0, 1)
	strong := NewStrong(raw)
	require.True(t, strong.IsValid())
	require.Equal(t, raw, strong.Get())

	var other BufferID
	other.MoveFrom(&strong)
	require.False(t, strong.IsValid())
	require.Equal(t, raw, other.Get())
	strong.AssertReleased()

	released := other.Release()
	require.Equal(t, raw, released)
	require.False(t, other.IsValid())
	other.AssertReleased()

	other.Set(released)
	require.True(t, other.IsValid())
	other.Release()
}
