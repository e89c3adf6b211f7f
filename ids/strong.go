package ids

import "github.com/vkngwrapper/framegraph/internal/utils"

// Strong is the single owner of a ResourceID. It is moved with MoveFrom or handed back with
// Release; Go has no destructors, so code that drops a Strong calls AssertReleased to catch
// owners that forgot to release.
type Strong[K Kind] struct {
	id ResourceID[K]
}

func NewStrong[K Kind](id ResourceID[K]) Strong[K] {
	return Strong[K]{id: id}
}

func (s Strong[K]) IsValid() bool      { return s.id.IsValid() }
func (s Strong[K]) Get() ResourceID[K] { return s.id }
func (s Strong[K]) Hash() HashVal      { return s.id.Hash() }
func (s Strong[K]) String() string     { return s.id.String() }

// Release gives up ownership, returning the weak identity and leaving s invalid
func (s *Strong[K]) Release() ResourceID[K] {
	id := s.id
	s.id = ResourceID[K]{}
	return id
}

// MoveFrom transfers ownership from other into s. s must not own anything yet.
func (s *Strong[K]) MoveFrom(other *Strong[K]) {
	utils.DebugAssert(!s.id.IsValid(), "%s overwritten by a move while still owned", s.id)
	s.id = other.Release()
}

// Set takes ownership of id. s must not own anything yet.
func (s *Strong[K]) Set(id ResourceID[K]) {
	utils.DebugAssert(!s.id.IsValid(), "%s overwritten while still owned", s.id)
	s.id = id
}

// AssertReleased is the drop-time check for owners: it fails if s still owns an identity
func (s *Strong[K]) AssertReleased() {
	utils.DebugAssert(!s.id.IsValid(), "%s dropped without being released", s.id)
}
