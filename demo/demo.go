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

// Package demo 以內建的示範權重表組出 catalog 與 server 設定，供 cmd 與測試使用。
package demo

import (
	"github.com/jasoryeh/Compendium/catalog"
	"github.com/jasoryeh/Compendium/demo/tables"
	"github.com/jasoryeh/Compendium/errs"
	"github.com/jasoryeh/Compendium/server/logger"
	"github.com/jasoryeh/Compendium/server/svrcfg"
)

// New 載入內建示範表（loot / rarity / coin）
func New() (*catalog.Catalog, error) {
	return catalog.New(tables.FS)
}

// NewServerConfig 以示範表與 dev 模式 logger 建立 server 設定
func NewServerConfig() (*svrcfg.SvrCfg, error) {
	cat, err := New()
	if err != nil {
		return nil, errs.Wrap(err, "demo: load tables failed")
	}
	sCfg := &svrcfg.SvrCfg{
		Log:     logger.NewDefaultAsyncLogger(logger.ModeDev),
		Catalog: cat,
	}
	if err := sCfg.Vaild(); err != nil {
		return nil, err
	}
	return sCfg, nil
}
