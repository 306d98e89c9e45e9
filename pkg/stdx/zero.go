package stdx

// Zero returns the zero value of T. It reads better than declaring a throwaway
// variable in generic code that needs to return "nothing" alongside an error.
func Zero[T any]() T {
	var zero T
	return zero
}
