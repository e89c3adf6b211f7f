//go:build framegraph_optimize

package utils

// DebugAssert panics with an assertion failure when condition is false. This method no-ops
// when the framegraph_optimize build tag is present.
func DebugAssert(condition bool, format string, args ...any) {
}
