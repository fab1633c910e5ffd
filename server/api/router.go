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

package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	v1 "github.com/jasoryeh/Compendium/server/api/v1"
	"github.com/jasoryeh/Compendium/server/netsvr"
	"github.com/jasoryeh/Compendium/server/netsvr/middleware"
	"github.com/jasoryeh/Compendium/server/svrcfg"
)

const serviceName = "compendium"

// RegisterRoutes 註冊
func RegisterRoutes(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg) error {
	registerMiddleware(svr, sCfg.Log) // 1. 註冊 middleware
	registerIndex(svr, sCfg)          // 2. 註冊主頁
	return registerV1API(svr, sCfg)   // 3. 註冊 v1 api
}

// 註冊 middleware
func registerMiddleware(svr netsvr.NetSvr, log *slog.Logger) {
	svr.Use(middleware.RequestID)
	svr.Use(middleware.AccessLog(log))
	svr.Use(middleware.Recover(log))
	svr.Use(middleware.Compression)
}

type indexInfo struct {
	Service string   `json:"service"`
	Tables  []string `json:"tables"`
	MaxDraw int      `json:"max_draw"`
	Routes  []string `json:"routes"`
}

// 註冊主頁：回傳服務資訊與可用路由
func registerIndex(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg) {
	info := indexInfo{
		Service: serviceName,
		Tables:  sCfg.Catalog.Names(),
		MaxDraw: sCfg.MaxDraw,
		Routes: []string{
			"GET /v1/tables",
			"GET /v1/tables/{name}",
			"GET /v1/tables/{name}/likelihood?item=",
			"GET|POST /v1/tables/{name}/draw",
			"PUT|DELETE /v1/tables/{name}/items/{item}",
			"POST /v1/draw",
		},
	}
	svr.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(info)
	})
}

// 註冊 v1 api
func registerV1API(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg) error {
	h, err := v1.NewTableHandler(sCfg)
	if err != nil {
		return err
	}
	svr.Group("/v1", func(vOne netsvr.NetRouter) {
		vOne.Get("/tables", h.List)
		vOne.Get("/tables/{name}", h.Get)
		vOne.Get("/tables/{name}/likelihood", h.Likelihood)
		vOne.Get("/tables/{name}/draw", h.Draw)
		vOne.Post("/tables/{name}/draw", h.Draw)
		vOne.Put("/tables/{name}/items/{item}", h.SetItem)
		vOne.Delete("/tables/{name}/items/{item}", h.RemoveItem)

		vOne.Post("/draw", h.AdHoc)
	})
	return nil
}
