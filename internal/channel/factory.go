//go:build !debug

package channel

// New creates a buffered channel with the given size.
// Build with -tags debug to get unbuffered channels that surface ordering bugs.
func New[T any](size int) Channel[T] {
	return NewBuffered[T](size)
}
