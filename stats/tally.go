// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package stats

// Tally 累計每個 item 被抽中的次數
//
// 記錄時只做 map 計數，不做任何浮點運算；統計量在 Audit 時一次計算。
// 不是 goroutine safe，並行抽樣時請每個 goroutine 各自一份，最後 Merge。
type Tally[T comparable] struct {
	order  []T // 第一次出現的順序
	counts map[T]int
	total  int
}

func NewTally[T comparable]() *Tally[T] {
	return &Tally[T]{counts: make(map[T]int)}
}

func (t *Tally[T]) Add(item T) {
	if _, ok := t.counts[item]; !ok {
		t.order = append(t.order, item)
	}
	t.counts[item]++
	t.total++
}

func (t *Tally[T]) AddAll(items []T) {
	for _, it := range items {
		t.Add(it)
	}
}

// Merge 把 o 的計數加進 t
func (t *Tally[T]) Merge(o *Tally[T]) {
	if o == nil {
		return
	}
	for _, it := range o.order {
		if _, ok := t.counts[it]; !ok {
			t.order = append(t.order, it)
		}
		t.counts[it] += o.counts[it]
	}
	t.total += o.total
}

func (t *Tally[T]) Count(item T) int {
	return t.counts[item]
}

func (t *Tally[T]) Total() int {
	return t.total
}

// Items 依第一次出現的順序回傳有被記錄過的 item
func (t *Tally[T]) Items() []T {
	return append([]T(nil), t.order...)
}
