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

package sampler

import "sort"

// partition 把權重表切成 [0,1) 上首尾相接的半開區間。
//
// 第 i 個區間為 [bounds[i-1], bounds[i])（bounds[-1] 視為 0），
// 寬度等於 weight_i / total。只存上界，抽樣時對上界做二分搜尋。
//
// 舉例：權重 [1, 0, 3]，total = 4
//
//	bounds = [0.25, 0.25, 1]
//	r = 0.10 -> 0
//	r = 0.25 -> 2 (index 1 寬度為 0，永遠不會被選中)
//	r = 0.99 -> 2
type partition[T comparable] struct {
	bounds []float64
	items  []T
	last   int // 最後一個寬度 > 0 的區間
}

// buildPartition 依 entries 的順序建立分割，呼叫端需保證 total > 0 且等於
// 以相同順序累加的權重和。
//
// 上界以「累積權重 / total」計算，而不是逐段累加 weight/total，
// 每個上界只有一次捨入；最後一個有效區間的上界另外夾到 1.0，
// 保證 [last_lo, 1) 內任何 r 都會落在它身上。
func buildPartition[T comparable](entries []entry[T], total float64) partition[T] {
	p := partition[T]{
		bounds: make([]float64, len(entries)),
		items:  make([]T, len(entries)),
		last:   -1,
	}
	acc := 0.0
	for i, e := range entries {
		acc += e.weight
		p.bounds[i] = acc / total
		p.items[i] = e.item
		if e.weight > 0 {
			p.last = i
		}
	}
	for i := p.last; i < len(p.bounds); i++ {
		p.bounds[i] = 1
	}
	return p
}

// pick 回傳區間包含 r 的 item（lo <= r < hi）。
//
// 來源若違反合約回傳 [0,1) 以外的值：r < 0 (或 NaN) 視為 0，r >= 1 落在最後一個有效區間。
func (p *partition[T]) pick(r float64) T {
	if !(r >= 0) {
		r = 0
	}
	i := sort.Search(len(p.bounds), func(i int) bool { return p.bounds[i] > r })
	if i > p.last {
		i = p.last
	}
	return p.items[i]
}
