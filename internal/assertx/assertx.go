// Package assertx holds the engine's single "this cannot happen" panic
// helper, carried over from the teacher's glee.assert.
package assertx

import "fmt"

// True panics with a formatted message if condition is false.
//
// Reserved for internal invariant violations (spec.md §7 kind 4): empty
// stacks, type mismatches at term construction, unsupported opcodes in the
// solver visitor. These are programmer errors and are not recovered.
func True(condition bool, format string, args ...interface{}) {
	if !condition {
		panic(fmt.Sprintf("assertx: "+format, args...))
	}
}
