package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeuristic_Used(t *testing.T) {
	h := UsedHeuristic(42)

	v, ok := h.TryGet()
	assert.True(t, ok)
	assert.Equal(t, 42, v)
	assert.Equal(t, 42, h.Get())

	h.Set(7)
	assert.Equal(t, 7, h.Get())
}

func TestHeuristic_Unused(t *testing.T) {
	h := UnusedHeuristic[int]()

	v, ok := h.TryGet()
	assert.False(t, ok)
	assert.Zero(t, v)

	// 读取静态禁用的启发式是构造期缺陷，必须立即失败
	assert.Panics(t, func() { _ = h.Get() })
	assert.Panics(t, func() { h.Set(1) })
}
