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
// 本檔案 (define.go) 定義套件共用的介面、泛型約束與錯誤。
//
//   - Source: 抽樣所需的均勻亂數來源，*core.Core 與 *math/rand/v2.Rand 都滿足。
//   - Numbers: 允許以任意整數 / 浮點數型別提供權重 (FromWeights)。
//   - Err*: 呼叫端輸入錯誤，全部為 errs.Warn，可用 errors.Is 判斷。
package sampler

import (
	"github.com/jasoryeh/Compendium/errs"
	"github.com/jasoryeh/Compendium/sdk/core"
)

// Source 提供 [0,1) 的均勻亂數。
//
// sampler 只持有 Source 的 handle，不管理其生命週期；
// 若 Source 被多個 goroutine 共用，其執行緒安全由 Source 自己負責。
type Source interface {
	Float64() float64
}

// DefaultSource 回傳未指定來源時使用的程序層級共用來源。
func DefaultSource() Source {
	return core.Shared()
}

// Integers 定義所有底層實現為整數型別的集合
type Integers interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Floaters 定義所有底層實現為浮點數型別的集合
type Floaters interface {
	~float32 | ~float64
}

// Numbers 定義所有底層實現為數值型別的集合（整數與浮點數）
type Numbers interface {
	Integers | Floaters
}

// Pair 是一組 (item, weight)，用於需要保留順序的建構方式。
type Pair[T comparable] struct {
	Item   T
	Weight float64
}

var (
	// ErrInvalidWeight 權重為負、NaN、Inf，或加入後總權重溢位。
	ErrInvalidWeight = errs.NewWarn("invalid weight")
	// ErrItemNotFound 查詢的 item 不在權重表中。
	ErrItemNotFound = errs.NewWarn("item not found")
	// ErrEmptyDistribution 權重表沒有任何 item 時抽樣。
	ErrEmptyDistribution = errs.NewWarn("empty distribution")
	// ErrDegenerateDistribution 總權重為 0（所有 item 權重皆為 0），機率無定義。
	ErrDegenerateDistribution = errs.NewWarn("degenerate distribution: total weight is zero")
	// ErrInvalidCount 抽樣次數為負。
	ErrInvalidCount = errs.NewWarn("invalid draw count")
)
