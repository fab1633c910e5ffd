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

import (
	"fmt"

	"github.com/jasoryeh/Compendium/errs"
)

// Builder 以鏈式呼叫組裝 WeightedRandomizer。
//
//	r, err := sampler.NewBuilder[string]().
//		Random(core.NewWithSeed(42)).
//		Item("gold", 1).
//		Item("silver", 2).
//		Item("bronze", 7).
//		Build()
//
// 權重檢查規則與 Set 相同；第一個不合法的權重會被記下，由 Build / Apply 回傳。
// 同一個 item 重複加入時以最後一次為準，位置以第一次加入為準。
type Builder[T comparable] struct {
	src   Source
	pairs []Pair[T]
	err   error
}

func NewBuilder[T comparable]() *Builder[T] {
	return &Builder[T]{}
}

// Random 指定亂數來源；未指定時使用 DefaultSource()。
func (b *Builder[T]) Random(src Source) *Builder[T] {
	b.src = src
	return b
}

func (b *Builder[T]) Item(item T, weight float64) *Builder[T] {
	if b.err == nil && !validWeight(weight) {
		b.err = errs.WrapWithExtra(ErrInvalidWeight, "sampler.Builder", fmt.Sprintf("%v=%v", item, weight))
	}
	b.pairs = append(b.pairs, Pair[T]{Item: item, Weight: weight})
	return b
}

// Items 加入 map 中的所有 item。Go map 沒有順序，需要固定分割順序時請用 Pairs。
func (b *Builder[T]) Items(items map[T]float64) *Builder[T] {
	for item, weight := range items {
		b.Item(item, weight)
	}
	return b
}

// Pairs 依傳入順序加入 item
func (b *Builder[T]) Pairs(pairs ...Pair[T]) *Builder[T] {
	for _, p := range pairs {
		b.Item(p.Item, p.Weight)
	}
	return b
}

// Build 建立新的 WeightedRandomizer。
func (b *Builder[T]) Build() (*WeightedRandomizer[T], error) {
	if b.err != nil {
		return nil, b.err
	}
	w := New[T](b.src)
	if err := b.apply(w); err != nil {
		return nil, err
	}
	return w, nil
}

// Apply 把已加入的 item 寫進既有的抽選器（覆寫同名 item 的權重），
// 不改變 dst 的亂數來源。任何權重不合法時 dst 保持不變。
func (b *Builder[T]) Apply(dst *WeightedRandomizer[T]) error {
	if b.err != nil {
		return b.err
	}
	if dst == nil {
		return errs.NewWarn("sampler.Builder: nil destination")
	}
	// 先在暫存表上套用，確認總權重不會溢位後才寫入 dst
	trial := dst.Clone(nil)
	if err := b.apply(trial); err != nil {
		return err
	}
	return b.apply(dst)
}

func (b *Builder[T]) apply(w *WeightedRandomizer[T]) error {
	for _, p := range b.pairs {
		if err := w.Set(p.Item, p.Weight); err != nil {
			return err
		}
	}
	return nil
}
