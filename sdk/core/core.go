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

// Package core 提供抽樣器使用的亂數來源。
//
//   - PRNG: 可取樣、可快照/還原的亂數產生器合約。
//   - PRNGFactory: 由 seed 決定性地建立 PRNG。
//   - Core: 包裝 PRNG，是 sampler 實際持有的亂數 handle。
//   - Shared: 程序層級共用的預設 Core（執行緒安全）。
package core

import (
	"strings"
	"sync"
	"time"
)

// PRNG 定義 Core 所需的亂數來源，需同時支援取樣與狀態保存/還原。
type PRNG interface {
	RAND
	Restorable
}

// Restorable 定義可快照與還原的狀態介面。
type Restorable interface {
	// Snapshot 回傳可用於還原的序列化狀態。
	Snapshot() ([]byte, error)
	// Restore 依序列化狀態還原 PRNG 內部狀態。
	Restore([]byte) error
}

// RAND 定義核心亂數取樣能力。
//
// 要求 4 個方法而不是只要 Uint64，是為了讓 32-bit / 64-bit 原生輸出的 PRNG
// 各自提供最合適的 bounded 與 Float64 實作（精度 32-bit 或 53-bit 由實作決定）。
type RAND interface {
	// Uint64 回傳非負 uint64 亂數。
	Uint64() uint64
	// Float64 回傳 [0,1) 的浮點亂數。
	Float64() float64
	// UintN 回傳 [0,max) 的 uint 亂數，若 max == 0 回傳 0。
	UintN(uint) uint
	// IntN 回傳 [0,max) 的 int 亂數，若 max <= 0 回傳 -1。
	IntN(int) int
}

type PRNGFactory interface {
	// New 以指定 seed 建立新的 PRNG。
	//
	// 合約：同一個實作與版本下，相同 seed 必須產生相同的輸出序列。
	// 抽樣結果的重現（測試、稽核、回放）完全依賴這一點。
	New(int64) PRNG
}

// DefaultPRNG 以 PCG64 實作 PRNGFactory
type DefaultPRNG struct{}

// New 滿足合約
func (d *DefaultPRNG) New(seed int64) PRNG {
	return NewPCG64(seed)
}

func Default() *DefaultPRNG {
	return &DefaultPRNG{}
}

// PCG32PRNG 以 PCG32 實作 PRNGFactory（32-bit 精度的 Float64）
type PCG32PRNG struct{}

func (p *PCG32PRNG) New(seed int64) PRNG {
	return NewPCG32(seed)
}

// PRNGByName 依名稱取得 PRNGFactory；空字串為 pcg64，不分大小寫
func PRNGByName(name string) (PRNGFactory, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "pcg64":
		return Default(), true
	case "pcg32":
		return &PCG32PRNG{}, true
	default:
		return nil, false
	}
}

// Core 封裝 PRNG，並提供常用取樣與工具方法。
//
// Core 本身不加鎖：除了 Shared() 回傳的實例，其餘 Core 請勿跨 goroutine 共用。
type Core struct {
	PRNG
}

// New 允許使用外部自實現的 PRNG 建立 Core。
func New(rng PRNG) *Core {
	return &Core{rng}
}

// NewWithSeed 以預設 PRNG 與指定 seed 建立 Core
func NewWithSeed(seed int64) *Core {
	return New(Default().New(seed))
}

// NewWithFactory 以 f 與 seed 建立 Core；f 為 nil 時使用預設 PRNG
func NewWithFactory(f PRNGFactory, seed int64) *Core {
	if f == nil {
		f = Default()
	}
	return New(f.New(seed))
}

// Float64 回傳 [0,1) 的均勻亂數，保證不會等於 1。
// 外部 PRNG 的 Float64 可能因捨入得到 1.0，這裡統一收斂。
func (c *Core) Float64() float64 {
	for {
		f := c.PRNG.Float64()
		if f < 1 {
			return f
		}
	}
}

// -----------------------------------------------------------------------------
// 程序層級共用亂數來源
// -----------------------------------------------------------------------------

var shared = sync.OnceValue(func() *Core {
	seed, err := NewSeed()
	if err != nil {
		seed = time.Now().UnixNano()
	}
	return New(&lockedPRNG{p: NewPCG64(seed)})
})

// Shared 回傳程序內唯一的共用 Core。
//
// 第一次呼叫時以 crypto/rand 取 seed 建立，之後永遠回傳同一個 handle。
// 內部以 mutex 保護，可被多個 sampler、多個 goroutine 同時使用。
// 需要可重現結果時，請改用 NewWithSeed。
func Shared() *Core {
	return shared()
}

// lockedPRNG 讓任意 PRNG 可以安全地跨 goroutine 共用。
type lockedPRNG struct {
	mu sync.Mutex
	p  PRNG
}

func (l *lockedPRNG) Uint64() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.p.Uint64()
}

func (l *lockedPRNG) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.p.Float64()
}

func (l *lockedPRNG) UintN(n uint) uint {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.p.UintN(n)
}

func (l *lockedPRNG) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.p.IntN(n)
}

func (l *lockedPRNG) Snapshot() ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.p.Snapshot()
}

func (l *lockedPRNG) Restore(b []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.p.Restore(b)
}
