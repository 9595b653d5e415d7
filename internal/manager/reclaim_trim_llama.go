//go:build llama && linux

package manager

/*
#include <malloc.h>
*/
import "C"

// trimNativeHeap asks glibc to release free arena memory left behind by the
// engine's allocations.
func trimNativeHeap() { C.malloc_trim(0) }
