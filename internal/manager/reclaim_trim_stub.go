//go:build !llama || !linux

package manager

// trimNativeHeap is a no-op without the native engine; the Go runtime has
// already returned what it can.
func trimNativeHeap() {}
