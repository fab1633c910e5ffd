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

// Package compendium 把 sampler 組成可直接使用的抽樣流程：
// 選擇抽樣引擎、分段抽樣（可被 ctx 中斷），以及多 worker 的大量模擬。
package compendium

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/jasoryeh/Compendium/errs"
	"github.com/jasoryeh/Compendium/sdk/core"
	"github.com/jasoryeh/Compendium/sdk/sampler"
	"github.com/jasoryeh/Compendium/stats"
	"golang.org/x/sync/errgroup"
)

// Engine 抽樣引擎
//   - partition: 每次依目前權重建立區間分割，O(log N)，權重可隨時修改。
//   - alias: 先 Freeze 成 alias table，O(1)，適合權重固定的大量抽樣。
//
// 兩者對同一份權重表的分布相同，但同一個 seed 抽出的序列不同。
type Engine string

const (
	EnginePartition Engine = "partition"
	EngineAlias     Engine = "alias"
)

// DrawChunk 分段抽樣時每段的大小，每段之間檢查一次 ctx
const DrawChunk = 1 << 16

// ParseEngine 空字串視為 partition；不分大小寫
func ParseEngine(s string) (Engine, error) {
	switch e := Engine(strings.ToLower(strings.TrimSpace(s))); e {
	case "":
		return EnginePartition, nil
	case EnginePartition, EngineAlias:
		return e, nil
	default:
		return "", errs.Warnf("unknown engine %q (want %s or %s)", s, EnginePartition, EngineAlias)
	}
}

// drawer 回傳以 engine 抽 n 次的函數。alias 會在這裡 Freeze 一次。
func drawer[T comparable](w *sampler.WeightedRandomizer[T], engine Engine) (func(n int) ([]T, error), error) {
	switch engine {
	case EnginePartition, "":
		return w.NextN, nil
	case EngineAlias:
		f, err := w.Freeze()
		if err != nil {
			return nil, err
		}
		src := w.Source()
		return func(n int) ([]T, error) { return f.NextN(src, n) }, nil
	default:
		return nil, errs.Warnf("unknown engine %q", engine)
	}
}

// Draw 以 engine 從 w 抽 count 次。
//
// count 大於 DrawChunk 時分段抽樣，每段之間檢查 ctx，ctx 結束時回傳其錯誤。
// 空表 / 總權重為 0 時，即使 count == 0 也回傳對應錯誤。
func Draw[T comparable](ctx context.Context, w *sampler.WeightedRandomizer[T], engine Engine, count int) ([]T, error) {
	next, err := drawer(w, engine)
	if err != nil {
		return nil, err
	}
	if count <= DrawChunk {
		return next(count)
	}
	out := make([]T, 0, count)
	for len(out) < count {
		if err := ctx.Err(); err != nil {
			return nil, errs.Wrap(err, "compendium.Draw")
		}
		part, err := next(min(DrawChunk, count-len(out)))
		if err != nil {
			return nil, err
		}
		out = append(out, part...)
	}
	return out, nil
}

// SimConfig 大量模擬的參數
type SimConfig struct {
	Engine   Engine
	Draws    int              // 總抽樣次數
	Workers  int              // 並行數，<= 0 視為 1
	Seed     int64            // 各 worker 的 seed 由此派生，相同 Seed 與 Workers 結果完全相同
	PRNG     core.PRNGFactory // 各 worker 的亂數產生器，nil 時為 pcg64
	Progress io.Writer        // 進度條輸出，nil 時不顯示
}

// Simulate 以 cfg.Workers 個 goroutine 從 w 的複本抽樣，合併各自的計數。
//
// 每個 worker 持有自己的 Clone 與 Core，不共用任何可變狀態；w 本身不會被修改。
// 回傳合併後的 Tally 與實際用時。
func Simulate[T comparable](ctx context.Context, w *sampler.WeightedRandomizer[T], cfg SimConfig) (*stats.Tally[T], time.Duration, error) {
	if cfg.Draws < 0 {
		return nil, 0, errs.WrapWithExtra(sampler.ErrInvalidCount, "compendium.Simulate", "draws must >= 0")
	}
	workers := max(1, cfg.Workers)
	// 先在呼叫端的 goroutine 檢查一次，空表 / 不合法引擎直接回傳
	if _, err := drawer(w.Clone(nil), cfg.Engine); err != nil {
		return nil, 0, err
	}

	bar := pb.StartNew(cfg.Draws)
	if cfg.Progress == nil {
		bar.SetWriter(io.Discard)
	} else {
		bar.SetWriter(cfg.Progress)
	}

	seeds := core.NewSeedMaker(cfg.Seed)
	tallies := make([]*stats.Tally[T], workers)
	g, gctx := errgroup.WithContext(ctx)
	for i := range workers {
		share := cfg.Draws / workers
		if i < cfg.Draws%workers {
			share++
		}
		local := w.Clone(core.NewWithFactory(cfg.PRNG, seeds.Next()))
		tallies[i] = stats.NewTally[T]()
		g.Go(func() error {
			next, err := drawer(local, cfg.Engine)
			if err != nil {
				return err
			}
			for done := 0; done < share; {
				if err := gctx.Err(); err != nil {
					return errs.Wrap(err, "compendium.Simulate")
				}
				n := min(DrawChunk, share-done)
				part, err := next(n)
				if err != nil {
					return err
				}
				tallies[i].AddAll(part)
				bar.Add(n)
				done += n
			}
			return nil
		})
	}
	err := g.Wait()
	used := time.Since(bar.StartTime())
	bar.Finish()
	if err != nil {
		return nil, used, err
	}

	total := stats.NewTally[T]()
	for _, t := range tallies {
		total.Merge(t)
	}
	return total, used, nil
}
