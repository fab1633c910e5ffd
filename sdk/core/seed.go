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

package core

import (
	crand "crypto/rand"
	"encoding/binary"
	"sync/atomic"

	"github.com/jasoryeh/Compendium/errs"
)

const mask63 = uint64(1<<63) - 1

// NewSeed 以 crypto/rand 產生非負 seed。
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, errs.Wrap(err, "core.NewSeed")
	}
	return int64(binary.LittleEndian.Uint64(b[:]) & mask63), nil
}

// SeedMaker 由一個 base seed 派生一連串互不重複的子 seed。
//
// 用途：每個請求 / 每個 worker 各自持有一個 Core，彼此序列獨立，
// 但整體仍可由 base seed 完整重現。
type SeedMaker struct {
	state atomic.Uint64 // always in [0, 2^63)
}

func NewSeedMaker(seed int64) *SeedMaker {
	s := &SeedMaker{}
	s.state.Store(uint64(seed) & mask63)
	return s
}

// Next 回傳下一個子 seed（一定非負）。
//
// state 走 mod 2^63 的全週期 LCG（不重複），再用可逆 mix63 打散。
// 可被多個 goroutine 同時呼叫：以 CAS 迴圈確保每次都拿到唯一的 state。
func (s *SeedMaker) Next() int64 {
	for {
		old := s.state.Load()
		next := (old*6364136223846793005 + 1442695040888963407) & mask63
		if s.state.CompareAndSwap(old, next) {
			return int64(mix63(next))
		}
	}
}

// mix63：只用「可逆」的 bit 操作 + 乘奇數（mod 2^63）
func mix63(x uint64) uint64 {
	x &= mask63
	x ^= x >> 30
	x = (x * 0xBF58476D1CE4E5B9) & mask63
	x ^= x >> 27
	x = (x * 0x94D049BB133111EB) & mask63
	x ^= x >> 31
	return x & mask63
}
