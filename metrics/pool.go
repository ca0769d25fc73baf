package metrics

import (
	"fmt"
	"sync"
)

// Label values are passed to Prometheus as variadic string slices.
// Pooling them keeps the per-packet tracer callbacks allocation-free.
const labelCapacity = 4

var labelPool = sync.Pool{New: func() any {
	s := make([]string, 0, labelCapacity)
	return &s
}}

func getStringSlice() *[]string {
	s := labelPool.Get().(*[]string)
	*s = (*s)[:0]
	return s
}

func putStringSlice(s *[]string) {
	if c := cap(*s); c < labelCapacity {
		panic(fmt.Sprintf("expected a string slice with capacity %d or greater, got %d", labelCapacity, c))
	}
	labelPool.Put(s)
}
