//go:build !release

package kernel

import "fmt"

// assertDebug is the debug-build realization of ASSERT_DEBUG: it panics
// with a formatted message when cond is false. Building with the
// "release" tag turns this into a no-op (see debug_release.go), matching
// spec.md §7: silently clamp/reject in release, halt in development.
func assertDebug(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("assert: "+format, args...))
	}
}
