package stdx

// Must0 panics when err is not nil. Reserve it for initialization paths where
// an error means the process cannot meaningfully continue.
func Must0(err error) {
	if err != nil {
		panic(err)
	}
}

// Must1 returns v when err is nil and panics otherwise. It collapses the
// common constructor-that-cannot-fail pattern into a single expression.
//
// Example usage:
//
//	tmpl := stdx.Must1(template.New("instructions").Parse(raw))
func Must1[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
