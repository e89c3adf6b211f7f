//go:build framegraph_optimize

package resource

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/framegraph/ids"
	"github.com/vkngwrapper/framegraph/native"
)

func TestManager_UnassignStaleIDReturnsError(t *testing.T) {
	manager, device, _ := newTestManager(t, CreateOptions{})

	id, err := manager.AssignBuffer(device.Create(native.ObjectTypeBuffer), BufferDesc{}, nil)
	require.NoError(t, err)

	stale := ids.NewStrong(ids.NewResourceID[ids.BufferKind](id.Get().Index(), id.Get().Generation()+1))
	err = manager.UnassignBuffer(&stale)
	require.True(t, errors.Is(err, ErrStaleID))
	require.True(t, stale.IsValid())

	require.NoError(t, manager.UnassignBuffer(&id))
	manager.OnDestroy()
}
