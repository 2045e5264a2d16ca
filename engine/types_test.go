package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProtocolLookup(t *testing.T) {
	state := &State{
		Protocols: map[ProtocolID]ProtocolState{
			"ints":   {Schema: "mock/ints@v1", Data: []int{1, 2}},
			"broken": {Schema: "mock/ints@v1", Error: "rpc down"},
		},
	}

	ints, ok := Protocol[[]int](state, "ints")
	assert.True(t, ok)
	assert.Equal(t, []int{1, 2}, ints)

	_, ok = Protocol[string](state, "ints")
	assert.False(t, ok, "wrong type")

	_, ok = Protocol[[]int](state, "broken")
	assert.False(t, ok, "errored protocols have no usable data")

	_, ok = Protocol[[]int](state, "missing")
	assert.False(t, ok)

	assert.True(t, state.HasErrors())
	delete(state.Protocols, "broken")
	assert.False(t, state.HasErrors())
}
