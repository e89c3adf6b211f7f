// Package ids contains the compact identities used to address resources owned by the frame graph.
//
// A ResourceID is a weak reference: a 16-bit slot index and a 16-bit generation packed into a
// uint32. Copies are free and confer no destruction responsibility. A Strong wraps exactly one
// ResourceID and represents ownership; it must be handed back through Release before it is
// discarded. NamedID values identify descriptor entries (uniforms, descriptor sets, vertex
// attributes) by a seeded content hash of their name.
package ids
