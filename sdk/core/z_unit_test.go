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
	"sync"
	"testing"
)

func TestCoreDeterminism(t *testing.T) {
	c1 := New(Default().New(7))
	c2 := New(Default().New(7))
	for i := 0; i < 5; i++ {
		if c1.Uint64() != c2.Uint64() {
			t.Fatalf("Uint64 mismatch at %d", i)
		}
	}
	if c1.IntN(10) != c2.IntN(10) {
		t.Fatalf("IntN mismatch")
	}
	if c1.UintN(10) != c2.UintN(10) {
		t.Fatalf("UintN mismatch")
	}
	if c1.Float64() != c2.Float64() {
		t.Fatalf("Float64 mismatch")
	}
}

func TestFloat64Range(t *testing.T) {
	factories := map[string]PRNGFactory{"pcg64": Default(), "pcg32": &PCG32PRNG{}}
	for name, f := range factories {
		c := New(f.New(3))
		for i := 0; i < 100000; i++ {
			v := c.Float64()
			if v < 0 || v >= 1 {
				t.Fatalf("%s: Float64 out of [0,1): %v", name, v)
			}
		}
	}
}

// oneFirst 第一次 Float64 回傳 1.0，模擬捨入到 1 的外部 PRNG
type oneFirst struct {
	PRNG
	calls int
}

func (o *oneFirst) Float64() float64 {
	o.calls++
	if o.calls == 1 {
		return 1
	}
	return 0.25
}

func TestCoreFloat64SkipsOne(t *testing.T) {
	p := &oneFirst{PRNG: NewPCG64(1)}
	if got := New(p).Float64(); got != 0.25 || p.calls != 2 {
		t.Fatalf("Float64 = %v after %d calls, want 0.25 after 2", got, p.calls)
	}
}

func TestPRNGByName(t *testing.T) {
	cases := map[string]PRNG{"": NewPCG64(9), "PCG64": NewPCG64(9), " pcg32 ": NewPCG32(9)}
	for name, want := range cases {
		f, ok := PRNGByName(name)
		if !ok {
			t.Fatalf("PRNGByName(%q) not found", name)
		}
		got := f.New(9)
		for i := 0; i < 8; i++ {
			if got.Uint64() != want.Uint64() {
				t.Fatalf("PRNGByName(%q) picked the wrong generator", name)
			}
		}
	}
	if _, ok := PRNGByName("mt19937"); ok {
		t.Fatal("unknown prng should not resolve")
	}
	a, b := NewWithFactory(nil, 5), NewWithFactory(&PCG32PRNG{}, 5)
	if a.Uint64() != NewPCG64(5).Uint64() || b.Uint64() != NewPCG32(5).Uint64() {
		t.Fatal("NewWithFactory did not use the given factory")
	}
}

func TestBoundedEdgeCases(t *testing.T) {
	for _, p := range []PRNG{NewPCG64(1), NewPCG32(1)} {
		if got := p.IntN(0); got != -1 {
			t.Fatalf("IntN(0) expected -1, got %d", got)
		}
		if got := p.UintN(0); got != 0 {
			t.Fatalf("UintN(0) expected 0, got %d", got)
		}
		for i := 0; i < 1000; i++ {
			if v := p.IntN(7); v < 0 || v >= 7 {
				t.Fatalf("IntN(7) out of range: %d", v)
			}
		}
	}
}

func TestSnapshotRestore(t *testing.T) {
	for name, p := range map[string]PRNG{"pcg64": NewPCG64(42), "pcg32": NewPCG32(42)} {
		p.Uint64()
		snap, err := p.Snapshot()
		if err != nil {
			t.Fatalf("%s: snapshot: %v", name, err)
		}
		want := []uint64{p.Uint64(), p.Uint64(), p.Uint64()}
		if err := p.Restore(snap); err != nil {
			t.Fatalf("%s: restore: %v", name, err)
		}
		for i, w := range want {
			if got := p.Uint64(); got != w {
				t.Fatalf("%s: replay mismatch at %d: got %d want %d", name, i, got, w)
			}
		}
	}
}

func TestPCG32RestoreRejectsBadInput(t *testing.T) {
	p := NewPCG32(1)
	if err := p.Restore([]byte{1, 2, 3}); err == nil {
		t.Fatalf("expected error for short snapshot")
	}
	even := make([]byte, 16)
	if err := p.Restore(even); err == nil {
		t.Fatalf("expected error for even increment")
	}
}

func TestSharedIsSingletonAndConcurrent(t *testing.T) {
	if Shared() != Shared() {
		t.Fatalf("Shared must return the same handle")
	}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				if v := Shared().Float64(); v < 0 || v >= 1 {
					t.Errorf("shared Float64 out of range: %v", v)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestSeedMaker(t *testing.T) {
	a := NewSeedMaker(99)
	b := NewSeedMaker(99)
	seen := make(map[int64]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		x, y := a.Next(), b.Next()
		if x != y {
			t.Fatalf("seed makers diverged at %d", i)
		}
		if x < 0 {
			t.Fatalf("negative seed %d", x)
		}
		if _, dup := seen[x]; dup {
			t.Fatalf("duplicate seed %d at %d", x, i)
		}
		seen[x] = struct{}{}
	}
}

func TestNewSeed(t *testing.T) {
	s, err := NewSeed()
	if err != nil {
		t.Fatalf("NewSeed: %v", err)
	}
	if s < 0 {
		t.Fatalf("NewSeed returned negative value %d", s)
	}
}
