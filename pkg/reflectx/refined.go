// Package reflectx contains the reflection helpers used when binding model
// tool calls to plain Go functions.
package reflectx

import "reflect"

// IsRefinedType reports whether value is exactly the type R. The tool call
// binder uses this to recognize framework-injected parameters (for example
// context variables) that must not appear in a tool's JSON schema.
func IsRefinedType[R any](value reflect.Type) bool {
	var toMatch R
	return reflect.TypeOf(toMatch) == value
}
