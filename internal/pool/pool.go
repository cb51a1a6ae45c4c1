// Package pool implements the fixed-size slot allocator the AM entity uses
// for its receive-segment records, grounded on librlc/fastalloc.c's
// free-list-over-an-arena design. Allocation and free are both O(1): a
// free slot's handle is popped off (or pushed onto) a stack of free handles
// kept beside the arena.
//
// Single-threaded: like every other component in this library (see the
// concurrency model), a Pool is not safe for concurrent use and relies on
// its owning entity to serialize access.
package pool

// Pool allocates fixed-size values of type T from a pre-sized arena.
// The zero value is not usable; construct with New.
type Pool[T any] struct {
	arena    []T
	free     []int32
	inUse    []bool
	cap      int
	allocated int
}

// New creates a pool with room for capacity elements.
func New[T any](capacity int) *Pool[T] {
	p := &Pool[T]{
		arena: make([]T, capacity),
		free:  make([]int32, capacity),
		inUse: make([]bool, capacity),
		cap:   capacity,
	}
	for i := 0; i < capacity; i++ {
		p.free[i] = int32(capacity - 1 - i)
	}
	return p
}

// Alloc returns a pointer to a zeroed slot and its handle, or ok=false if
// the pool is exhausted (resource-exhaustion error kind, §7).
func (p *Pool[T]) Alloc() (handle int32, value *T, ok bool) {
	if len(p.free) == 0 {
		return 0, nil, false
	}
	n := len(p.free) - 1
	h := p.free[n]
	p.free = p.free[:n]
	p.inUse[h] = true
	p.allocated++
	var zero T
	p.arena[h] = zero
	return h, &p.arena[h], true
}

// Get dereferences a handle previously returned by Alloc.
func (p *Pool[T]) Get(handle int32) *T {
	return &p.arena[handle]
}

// Free returns a handle to the pool. Freeing an already-free handle is a
// caller bug and is ignored rather than corrupting the free list.
func (p *Pool[T]) Free(handle int32) {
	if !p.inUse[handle] {
		return
	}
	p.inUse[handle] = false
	p.allocated--
	p.free = append(p.free, handle)
}

// Len returns the number of currently allocated slots.
func (p *Pool[T]) Len() int { return p.allocated }

// Cap returns the total number of slots in the arena.
func (p *Pool[T]) Cap() int { return p.cap }
