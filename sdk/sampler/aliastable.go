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

// Package sampler 提供以相對權重做隨機抽選的工具。
//
// 本檔案 (aliastable.go) 以 Vose's Alias Method 實作不可變的 Frozen 快照。
//
// 演算法原理：
//   - 將任意離散分佈轉換為 N 個等寬槽位的組合。
//   - 每個槽位只存放「自己」和「別名 (Alias)」兩個選項。
//   - 抽樣時先選槽位，再依槽位內的門檻決定是自己還是別名。
//
// 特性：
//   - 建表時間 O(N)，抽樣時間 O(1)。
//   - 每次抽樣只消耗一個 Float64：整數部分選槽位，小數部分當作門檻比較。
//   - 建好之後不再變動，可以在多個 goroutine 間共用（各自帶自己的 Source）。
package sampler

import (
	"fmt"

	"github.com/jasoryeh/Compendium/errs"
)

// aliasTable 的 prob 為槽位內選中「自己」的門檻（[0,1]），aliases 為另一個選項。
type aliasTable struct {
	prob    []float64
	aliases []int
}

// buildAliasTable 根據權重建立 alias table，呼叫端需保證 total > 0。
//
// 1) prob[i] = w_i * n / total，平均值為 1。
// 2) 依 prob 是否 < 1 分到 small / large。
// 3) 各取一個 s, l：s 的剩餘機率由 l 補足 (aliases[s] = l)，l 扣掉補出去的部分。
// 4) 重複直到 small 或 large 為空。
// 5) 浮點誤差留下的槽位：權重 > 0 的門檻設為 1；權重為 0 的門檻設為 0 並指向最大權重項，
// 保證權重 0 的 item 永遠不會被抽中。
func buildAliasTable(weights []float64, total float64) aliasTable {
	n := len(weights)
	prob := make([]float64, n)
	aliases := make([]int, n)
	small := make([]int, 0, n)
	large := make([]int, 0, n)

	heaviest := 0
	for i, w := range weights {
		prob[i] = w * float64(n) / total
		if prob[i] < 1 {
			small = append(small, i)
		} else {
			large = append(large, i)
		}
		if w > weights[heaviest] {
			heaviest = i
		}
		aliases[i] = i
	}

	for len(small) > 0 && len(large) > 0 {
		s := small[len(small)-1]
		small = small[:len(small)-1]
		l := large[len(large)-1]
		large = large[:len(large)-1]

		aliases[s] = l
		prob[l] = prob[l] + prob[s] - 1

		if prob[l] < 1 {
			small = append(small, l)
		} else {
			large = append(large, l)
		}
	}

	for _, rest := range [][]int{small, large} {
		for _, i := range rest {
			if weights[i] > 0 {
				prob[i] = 1
			} else {
				prob[i] = 0
				aliases[i] = heaviest
			}
		}
	}
	return aliasTable{prob: prob, aliases: aliases}
}

// pick 以 u ∈ [0,1) 選出索引
func (at aliasTable) pick(u float64) int {
	n := len(at.prob)
	if !(u >= 0) {
		u = 0
	}
	x := u * float64(n)
	idx := int(x)
	if idx >= n {
		idx = n - 1
	}
	if x-float64(idx) < at.prob[idx] {
		return idx
	}
	return at.aliases[idx]
}

// Frozen 是 WeightedRandomizer 某一時刻的不可變快照。
//
// 與 WeightedRandomizer 的差異：
//   - 權重表不能再變動，因此可以預先建好 alias table，每次抽樣 O(1)。
//   - 不持有亂數來源，由呼叫端在抽樣時傳入，方便每個 goroutine 使用自己的 Source。
type Frozen[T comparable] struct {
	items   []T
	weights []float64
	index   map[T]int
	total   float64
	table   aliasTable
}

func newFrozen[T comparable](entries []entry[T], total float64) *Frozen[T] {
	f := &Frozen[T]{
		items:   make([]T, len(entries)),
		weights: make([]float64, len(entries)),
		index:   make(map[T]int, len(entries)),
		total:   total,
	}
	for i, e := range entries {
		f.items[i] = e.item
		f.weights[i] = e.weight
		f.index[e.item] = i
	}
	f.table = buildAliasTable(f.weights, total)
	return f
}

func (f *Frozen[T]) Len() int {
	return len(f.items)
}

// Items 依凍結當下的插入順序回傳所有 item（複本）
func (f *Frozen[T]) Items() []T {
	return append([]T(nil), f.items...)
}

func (f *Frozen[T]) TotalWeight() float64 {
	return f.total
}

// Likelihood 與 WeightedRandomizer.Likelihood 相同語意；凍結時已保證 total > 0。
func (f *Frozen[T]) Likelihood(item T) (float64, error) {
	i, ok := f.index[item]
	if !ok {
		return 0, errs.WrapWithExtra(ErrItemNotFound, "sampler.Frozen.Likelihood", fmt.Sprint(item))
	}
	return f.weights[i] / f.total, nil
}

// Next 以 src 抽出一個 item；src 為 nil 時使用 DefaultSource()。
func (f *Frozen[T]) Next(src Source) T {
	if src == nil {
		src = DefaultSource()
	}
	return f.items[f.table.pick(src.Float64())]
}

// NextN 以 src 抽出 count 個 item（放回抽樣）。
func (f *Frozen[T]) NextN(src Source, count int) ([]T, error) {
	if count < 0 {
		return nil, errs.WrapWithExtra(ErrInvalidCount, "sampler.Frozen.NextN", fmt.Sprint(count))
	}
	if src == nil {
		src = DefaultSource()
	}
	out := make([]T, count)
	for i := range out {
		out[i] = f.items[f.table.pick(src.Float64())]
	}
	return out, nil
}
