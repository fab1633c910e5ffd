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

package server

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jasoryeh/Compendium/errs"
	"github.com/jasoryeh/Compendium/server/api"
	"github.com/jasoryeh/Compendium/server/app"
	"github.com/jasoryeh/Compendium/server/netsvr"
	"github.com/jasoryeh/Compendium/server/svrcfg"
)

// Run 組裝並啟動抽樣服務，阻塞直到收到終止信號或 server 停止。
//
//  1. 驗證 SvrCfg（logger、catalog、種子來源、抽樣上限）。
//  2. 以 SvrCfg.Addr 建立 chi server。
//  3. 註冊 middleware 與路由（api.RegisterRoutes）。
//  4. 交給 app.Run() 管理生命週期。
//
// Run 不讀檔也不讀環境變數；權重表與設定都由 SvrCfg 注入，見 cmd/svr。
func Run(sCfg *svrcfg.SvrCfg) error {
	if err := sCfg.Vaild(); err != nil {
		// 外層傳入的 logger 可能不可用
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return RunWithSvr(sCfg, netsvr.NewChiServer(sCfg.Addr))
}

// RunWithSvr 與 Run 相同，但使用呼叫端注入的 NetSvr
// （自訂 listener、timeout，或掛到既有的 router 之下）。
//
// svr 必須非 nil；若是 ChiAdapter 則要求 Ready()。
func RunWithSvr(sCfg *svrcfg.SvrCfg, svr netsvr.NetSvr) error {
	if err := sCfg.Vaild(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	if svr == nil {
		err := errs.NewFatal("svr is required")
		sCfg.Log.Error(err.Error())
		return err
	}
	if s, ok := svr.(*netsvr.ChiAdapter); ok && !s.Ready() {
		err := errs.NewFatal("default server is not ready")
		sCfg.Log.Error(err.Error())
		return err
	}

	if err := api.RegisterRoutes(svr, sCfg); err != nil {
		sCfg.Log.Error("register routes failed", slog.Any("err", err))
		return err
	}

	app := app.NewWith(svr)
	addr := ""
	if s, ok := svr.(*netsvr.ChiAdapter); ok {
		addr = s.Address()
	}
	sCfg.Log.Info("[compendium] listening",
		slog.String("addr", addr),
		slog.Any("tables", sCfg.Catalog.Names()),
		slog.Int("max_draw", sCfg.MaxDraw),
	)
	if err := app.Run(); err != nil {
		sCfg.Log.Error("app stopped", slog.Any("err", err))
		return err
	}
	return nil
}
