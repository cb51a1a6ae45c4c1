package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	n int
}

func TestAllocExhaustion(t *testing.T) {
	p := New[record](2)

	h1, v1, ok := p.Alloc()
	require.True(t, ok)
	v1.n = 1

	h2, v2, ok := p.Alloc()
	require.True(t, ok)
	v2.n = 2

	_, _, ok = p.Alloc()
	assert.False(t, ok, "pool should be exhausted")

	assert.Equal(t, 1, p.Get(h1).n)
	assert.Equal(t, 2, p.Get(h2).n)
	assert.Equal(t, 2, p.Len())
}

func TestFreeAllowsReuse(t *testing.T) {
	p := New[record](1)

	h, v, ok := p.Alloc()
	require.True(t, ok)
	v.n = 42

	p.Free(h)
	assert.Equal(t, 0, p.Len())

	h2, v2, ok := p.Alloc()
	require.True(t, ok)
	assert.Equal(t, 0, v2.n, "slot must be zeroed on reuse")
	assert.Equal(t, h, h2)
}

func TestDoubleFreeIsNoop(t *testing.T) {
	p := New[record](1)
	h, _, _ := p.Alloc()
	p.Free(h)
	p.Free(h)
	assert.Equal(t, 1, len(p.free), "double free must not duplicate the handle in the free list")
}
