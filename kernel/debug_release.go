//go:build release

package kernel

// assertDebug is a no-op in release builds: capacity/configuration errors
// are silently clamped or rejected by the caller instead of halting, per
// spec.md §7.
func assertDebug(cond bool, format string, args ...any) {}
