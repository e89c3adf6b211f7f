//go:build framegraph_optimize

package ids

// KeepNames reports whether NamedID values retain their source string
const KeepNames = false
