package ids

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNamedIDZeroValueUndefined(t *testing.T) {
	var id UniformID
	require.False(t, id.IsDefined())
	require.False(t, NewNamedID[UniformKind]("").IsDefined())
	require.True(t, id.Equal(NewNamedID[UniformKind]("")))
}

func TestNamedIDEquality(t *testing.T) {
	a := NewNamedID[DescriptorSetKind]("PerPass")
	b := NewNamedID[DescriptorSetKind]("PerPass")
	c := NewNamedID[DescriptorSetKind]("PerDraw")

	require.True(t, a.IsDefined())
	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
	require.Equal(t, a.Hash(), b.Hash())
	require.NotEqual(t, a.Less(c), c.Less(a))
}

func TestNamedIDFromHash(t *testing.T) {
	named := NewNamedID[VertexKind]("position")
	fromHash := NamedIDFromHash[VertexKind](named.Hash())

	require.True(t, named.Equal(fromHash))
	require.Equal(t, "", fromHash.Name())
	require.Equal(t, fromHash, named.Optimized())
}

func TestNamedIDRetainsName(t *testing.T) {
	shader := NewNamedID[RTShaderKind]("closestHit")
	require.Equal(t, "closestHit", shader.Name())
	require.Equal(t, `RTShader("closestHit")`, shader.String())

	uniform := NewNamedID[UniformKind]("camera")
	if KeepNames {
		require.Equal(t, "camera", uniform.Name())
	} else {
		require.Equal(t, "", uniform.Name())
	}
}
