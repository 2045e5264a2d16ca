package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBitset(t *testing.T) {
	b := newBitset(100)
	assert.Len(t, b, 2)

	for _, i := range []int{0, 63, 64, 99} {
		b.set(i)
	}
	for _, i := range []int{0, 63, 64, 99} {
		assert.True(t, b.isSet(i), "bit %d", i)
	}
	assert.False(t, b.isSet(1))
	assert.False(t, b.isSet(65))

	dst := newBitset(100)
	dst.copyFrom(b)
	assert.Equal(t, b, dst)

	assert.Panics(t, func() { newBitset(10).copyFrom(b) })
}
