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
// 本檔案 (randomizer.go) 實作可變動的加權抽選器 WeightedRandomizer。
//
// 演算法：
//   - 每次抽樣前依權重表建立 [0,1) 的區間分割 (partition)，區間寬度 = weight / total。
//   - 取一個均勻亂數 r，二分搜尋找出包含 r 的區間。
//
// 特性：
//   - 權重表是唯一的狀態，分割每次呼叫重新計算，Set/Remove 立即生效。
//   - 建分割 O(N)，每次抽樣 O(log N)。NextN 在同一次呼叫中共用同一份分割。
//   - 抽樣為「放回抽樣」，同一個 item 可以重複出現。
//
// 權重表不會變動、且需要大量抽樣時，請用 Freeze 取得 O(1) 抽樣的 Frozen。
package sampler

import (
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/jasoryeh/Compendium/errs"
)

type entry[T comparable] struct {
	item   T
	weight float64
}

// WeightedRandomizer 持有 item -> weight 的權重表與一個亂數來源。
//
// item 以插入順序排列：覆寫權重保留原位置，Remove 後再加入則排到最後。
// 區間分割依此順序建立，固定 Source 序列時結果可完全重現。
//
// 不是 goroutine safe：Set/Remove/Clear 與查詢、抽樣之間需由呼叫端同步。
type WeightedRandomizer[T comparable] struct {
	src     Source
	entries []entry[T]
	index   map[T]int // item -> entries 位置
}

// New 建立空的抽選器。src 為 nil 時使用 DefaultSource()。
func New[T comparable](src Source) *WeightedRandomizer[T] {
	if src == nil {
		src = DefaultSource()
	}
	return &WeightedRandomizer[T]{
		src:   src,
		index: make(map[T]int),
	}
}

// FromWeights 以平行的 items / weights 建立抽選器，weights 可為任意數值型別。
func FromWeights[T comparable, W Numbers](src Source, items []T, weights []W) (*WeightedRandomizer[T], error) {
	if len(items) != len(weights) {
		return nil, errs.WrapWithExtra(ErrInvalidWeight, "sampler.FromWeights",
			fmt.Sprintf("len(items)=%d len(weights)=%d", len(items), len(weights)))
	}
	w := New[T](src)
	for i, item := range items {
		if err := w.Set(item, float64(weights[i])); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// Source 回傳抽選器使用的亂數來源
func (w *WeightedRandomizer[T]) Source() Source {
	return w.src
}

// Set 新增或覆寫 item 的權重。
//
// weight 必須是有限且 >= 0 的數；0 代表保留在表中可查詢但永遠抽不到。
// 不合法、或寫入後 TotalWeight 溢位成 +Inf 時回傳 ErrInvalidWeight，權重表不變。
func (w *WeightedRandomizer[T]) Set(item T, weight float64) error {
	if !validWeight(weight) {
		return errs.WrapWithExtra(ErrInvalidWeight, "sampler.Set", fmt.Sprintf("%v=%v", item, weight))
	}
	i, exist := w.index[item]
	if !exist {
		i = len(w.entries)
		w.entries = append(w.entries, entry[T]{item: item})
	}
	old := w.entries[i].weight
	w.entries[i].weight = weight
	// 以與 TotalWeight 相同的累加順序檢查，增量維護的和會因捨入漂移
	if math.IsInf(w.TotalWeight(), 1) {
		if exist {
			w.entries[i].weight = old
		} else {
			w.entries[i] = entry[T]{}
			w.entries = w.entries[:i]
		}
		return errs.WrapWithExtra(ErrInvalidWeight, "sampler.Set", "total weight overflows float64")
	}
	if !exist {
		w.index[item] = i
	}
	return nil
}

// Remove 移除 item；不存在時不做任何事。
func (w *WeightedRandomizer[T]) Remove(item T) {
	i, ok := w.index[item]
	if !ok {
		return
	}
	w.entries = slices.Delete(w.entries, i, i+1)
	delete(w.index, item)
	for j := i; j < len(w.entries); j++ {
		w.index[w.entries[j].item] = j
	}
}

// Clear 清空權重表
func (w *WeightedRandomizer[T]) Clear() {
	clear(w.entries)
	w.entries = w.entries[:0]
	clear(w.index)
}

// Weight 回傳 item 的權重
func (w *WeightedRandomizer[T]) Weight(item T) (float64, bool) {
	i, ok := w.index[item]
	if !ok {
		return 0, false
	}
	return w.entries[i].weight, true
}

func (w *WeightedRandomizer[T]) Contains(item T) bool {
	_, ok := w.index[item]
	return ok
}

func (w *WeightedRandomizer[T]) Len() int {
	return len(w.entries)
}

// Items 依插入順序回傳所有 item（複本）
func (w *WeightedRandomizer[T]) Items() []T {
	out := make([]T, len(w.entries))
	for i, e := range w.entries {
		out[i] = e.item
	}
	return out
}

// TotalWeight 依插入順序累加所有權重；空表回傳 0。
func (w *WeightedRandomizer[T]) TotalWeight() float64 {
	total := 0.0
	for _, e := range w.entries {
		total += e.weight
	}
	return total
}

// Likelihood 回傳抽中 item 的機率 weight(item) / TotalWeight()。
//
//   - item 不存在: ErrItemNotFound
//   - 總權重為 0: ErrDegenerateDistribution（不回傳 NaN）
func (w *WeightedRandomizer[T]) Likelihood(item T) (float64, error) {
	i, ok := w.index[item]
	if !ok {
		return 0, errs.WrapWithExtra(ErrItemNotFound, "sampler.Likelihood", fmt.Sprint(item))
	}
	total := w.TotalWeight()
	if total == 0 {
		return 0, errs.Wrap(ErrDegenerateDistribution, "sampler.Likelihood")
	}
	return w.entries[i].weight / total, nil
}

// Next 依目前的權重分布抽出一個 item。
func (w *WeightedRandomizer[T]) Next() (T, error) {
	p, err := w.partition("sampler.Next")
	if err != nil {
		var zero T
		return zero, err
	}
	return p.pick(w.src.Float64()), nil
}

// NextN 抽出 count 個 item（放回抽樣，每次抽樣彼此獨立）。
//
// 權重表為空或總權重為 0 時，即使 count == 0 也回傳對應錯誤；
// 合法的權重表 NextN(0) 回傳長度 0 的 slice。
func (w *WeightedRandomizer[T]) NextN(count int) ([]T, error) {
	if count < 0 {
		return nil, errs.WrapWithExtra(ErrInvalidCount, "sampler.NextN", fmt.Sprint(count))
	}
	p, err := w.partition("sampler.NextN")
	if err != nil {
		return nil, err
	}
	out := make([]T, count)
	for i := range out {
		out[i] = p.pick(w.src.Float64())
	}
	return out, nil
}

// Clone 複製權重表並改用 src；src 為 nil 時沿用原來源。
//
// 共用的權重表由呼叫端加讀鎖後 Clone，即可在鎖外以各自的來源抽樣。
func (w *WeightedRandomizer[T]) Clone(src Source) *WeightedRandomizer[T] {
	if src == nil {
		src = w.src
	}
	c := &WeightedRandomizer[T]{
		src:     src,
		entries: slices.Clone(w.entries),
		index:   maps.Clone(w.index),
	}
	return c
}

// Freeze 以目前的權重表建立不可變的 Frozen 快照。
func (w *WeightedRandomizer[T]) Freeze() (*Frozen[T], error) {
	if len(w.entries) == 0 {
		return nil, errs.Wrap(ErrEmptyDistribution, "sampler.Freeze")
	}
	total := w.TotalWeight()
	if total == 0 {
		return nil, errs.Wrap(ErrDegenerateDistribution, "sampler.Freeze")
	}
	return newFrozen(w.entries, total), nil
}

func (w *WeightedRandomizer[T]) partition(op string) (partition[T], error) {
	if len(w.entries) == 0 {
		return partition[T]{}, errs.Wrap(ErrEmptyDistribution, op)
	}
	total := w.TotalWeight()
	if total == 0 {
		return partition[T]{}, errs.Wrap(ErrDegenerateDistribution, op)
	}
	return buildPartition(w.entries, total), nil
}

func validWeight(weight float64) bool {
	return weight >= 0 && !math.IsInf(weight, 1)
}
