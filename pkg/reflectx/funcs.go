package reflectx

import (
	"reflect"
	"runtime"
	"strings"
)

// IsFunction reports whether fn is a callable function value.
func IsFunction(fn any) bool {
	if fn == nil {
		return false
	}
	return reflect.TypeOf(fn).Kind() == reflect.Func
}

// ResultImplements reports whether the first return value of fn implements
// the interface I.
func ResultImplements[I any](fn any) bool {
	if !IsFunction(fn) {
		return false
	}
	ft := reflect.TypeOf(fn)
	if ft.NumOut() == 0 {
		return false
	}
	iface := reflect.TypeOf((*I)(nil)).Elem()
	return ft.Out(0).Implements(iface)
}

// FunctionName resolves the symbol name of fn, stripped of its package path.
// Anonymous functions yield their compiler-assigned name (e.g. "funcNN").
func FunctionName(fn any) string {
	if !IsFunction(fn) {
		return ""
	}
	rf := runtime.FuncForPC(reflect.ValueOf(fn).Pointer())
	if rf == nil {
		return reflect.TypeOf(fn).String()
	}
	name := rf.Name()
	if lastDot := strings.LastIndex(name, "."); lastDot >= 0 {
		name = name[lastDot+1:]
	}
	return strings.TrimSuffix(name, "-fm")
}
