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

package svrcfg

import (
	"log/slog"

	"github.com/caarlos0/env/v11"
	"github.com/jasoryeh/Compendium/catalog"
	"github.com/jasoryeh/Compendium/errs"
	"github.com/jasoryeh/Compendium/sdk/core"
	"github.com/jasoryeh/Compendium/server/logger"
)

const (
	DefaultMaxDraw = 100_000
	MaxDrawLimit   = 10_000_000
)

type SvrCfg struct {
	Log     *slog.Logger
	Addr    string
	Catalog *catalog.Catalog
	Seeds   *core.SeedMaker // 每個請求的預設種子來源
	MaxDraw int             // 單一請求最多抽樣次數
}

// Env 從環境變數讀取的 server 設定
type Env struct {
	Addr    string `env:"COMPENDIUM_ADDR" envDefault:":5808"`
	LogMode string `env:"COMPENDIUM_LOG_MODE" envDefault:"dev"`
	Tables  string `env:"COMPENDIUM_TABLES"` // 權重表目錄，未設定時使用內建 demo 表
	Seed    int64  `env:"COMPENDIUM_SEED"`   // 0 代表以 crypto/rand 產生
	MaxDraw int    `env:"COMPENDIUM_MAX_DRAW" envDefault:"100000"`
}

// ParseEnv 讀取環境變數
func ParseEnv() (*Env, error) {
	e := &Env{}
	if err := env.Parse(e); err != nil {
		return nil, errs.Wrap(err, "svrcfg.ParseEnv")
	}
	if _, ok := logger.ParseMode(e.LogMode); !ok {
		return nil, errs.Fatalf("svrcfg: unknown log mode %q", e.LogMode)
	}
	return e, nil
}

func (sc *SvrCfg) Vaild() error {
	if sc.Log != nil {
		if ah, ok := sc.Log.Handler().(*logger.AsyncHandler); ok && !ah.Ready() {
			return errs.NewFatal("nil default log handler: async handler is nil")
		}
	} else {
		// 保持安靜、合法
		sc.Log, _ = logger.NewAsync(1024, logger.ModeDev)
	}
	if sc.Catalog == nil {
		return errs.NewFatal("catalog is required")
	}
	if sc.Seeds == nil {
		seed, err := core.NewSeed()
		if err != nil {
			return errs.Wrap(err, "svrcfg: seed")
		}
		sc.Seeds = core.NewSeedMaker(seed)
	}
	// 1 <= MaxDraw <= MaxDrawLimit
	if sc.MaxDraw <= 0 {
		sc.MaxDraw = DefaultMaxDraw
	}
	sc.MaxDraw = min(MaxDrawLimit, sc.MaxDraw)
	return nil
}
