package selector

// Heuristic 包装一个“仅在相关配置下才会启用”的过滤器取值。
// 两种形态：
//   - Unused：当前配置下该过滤器永远不会触发，读取即为构造期缺陷（panic）；
//   - Used(v)：过滤器启用，持有实际取值。
//
// 用于在配置静态证明某启发式不可能命中时，完全跳过解析与查表。
type Heuristic[T any] struct {
	value T
	used  bool
}

// UsedHeuristic 构造启用状态的 Heuristic
func UsedHeuristic[T any](v T) Heuristic[T] {
	return Heuristic[T]{value: v, used: true}
}

// UnusedHeuristic 构造静态禁用状态的 Heuristic
func UnusedHeuristic[T any]() Heuristic[T] {
	return Heuristic[T]{}
}

// TryGet 返回取值与是否启用，禁用时返回零值与 false
func (h Heuristic[T]) TryGet() (T, bool) {
	return h.value, h.used
}

// Get 返回取值，禁用时 panic（构造期缺陷，而非运行时状态）
func (h Heuristic[T]) Get() T {
	if !h.used {
		panic("attempted to use heuristic marked as unused")
	}
	return h.value
}

// Set 覆盖取值，禁用时 panic
func (h *Heuristic[T]) Set(v T) {
	if !h.used {
		panic("attempted to use heuristic marked as unused")
	}
	h.value = v
}
