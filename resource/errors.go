package resource

import "github.com/cockroachdb/errors"

var (
	// ErrStaleID is returned when an identity's generation no longer matches its slot, or the
	// slot is not live
	ErrStaleID = errors.New("stale resource id")
	// ErrPoolFull is returned when a resource pool has handed out every slot it may hold
	ErrPoolFull = errors.New("resource pool is full")
)
