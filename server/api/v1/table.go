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

package v1

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/jasoryeh/Compendium/catalog"
	"github.com/jasoryeh/Compendium/errs"
	"github.com/jasoryeh/Compendium/sdk/core"
	"github.com/jasoryeh/Compendium/sdk/sampler"
	"github.com/jasoryeh/Compendium/server/httperr"
	"github.com/jasoryeh/Compendium/server/netsvr"
	"github.com/jasoryeh/Compendium/server/svrcfg"
)

// tableState 是一張可被 PUT/DELETE 修改的表。
// WeightedRandomizer 本身不是 goroutine safe，所有存取都經過 mu。
type tableState struct {
	mu sync.RWMutex
	w  *sampler.WeightedRandomizer[string]
}

// TableHandler 持有 server 啟動時從 catalog 載入的所有表。
// 表的集合在啟動後不再變動，只有表內的權重會變。
type TableHandler struct {
	log     *slog.Logger
	seeds   *core.SeedMaker
	maxDraw int
	names   []string
	tables  map[string]*tableState
}

type tableSummary struct {
	Name        string  `json:"name"`
	Items       int     `json:"items"`
	TotalWeight float64 `json:"total_weight"`
}

type itemView struct {
	Item       string   `json:"item"`
	Weight     float64  `json:"weight"`
	Likelihood *float64 `json:"likelihood"` // 總權重為 0 時為 null
}

type tableView struct {
	Name        string     `json:"name"`
	TotalWeight float64    `json:"total_weight"`
	Items       []itemView `json:"items"`
}

type weightBody struct {
	Weight *float64 `json:"weight"`
}

func NewTableHandler(sCfg *svrcfg.SvrCfg) (*TableHandler, error) {
	h := &TableHandler{
		log:     sCfg.Log,
		seeds:   sCfg.Seeds,
		maxDraw: sCfg.MaxDraw,
		names:   sCfg.Catalog.Names(),
		tables:  make(map[string]*tableState, sCfg.Catalog.Len()),
	}
	for _, t := range sCfg.Catalog.All() {
		// 表的預設來源只用於沒有經過 Clone 的路徑；每個請求都會換成自己的來源
		w, err := t.Randomizer(core.NewWithSeed(0))
		if err != nil {
			return nil, errs.Wrap(err, "build table handler error")
		}
		h.tables[t.Name] = &tableState{w: w}
	}
	return h, nil
}

// List GET /v1/tables
func (h *TableHandler) List(w http.ResponseWriter, q *http.Request) {
	out := make([]tableSummary, 0, len(h.names))
	for _, name := range h.names {
		ts := h.tables[name]
		ts.mu.RLock()
		out = append(out, tableSummary{Name: name, Items: ts.w.Len(), TotalWeight: ts.w.TotalWeight()})
		ts.mu.RUnlock()
	}
	writeJSON(w, http.StatusOK, out)
}

// Get GET /v1/tables/{name}
func (h *TableHandler) Get(w http.ResponseWriter, q *http.Request) {
	ts, name, err := h.lookup(q)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	ts.mu.RLock()
	view := viewOf(name, ts.w)
	ts.mu.RUnlock()
	writeJSON(w, http.StatusOK, view)
}

// Likelihood GET /v1/tables/{name}/likelihood?item=gold
func (h *TableHandler) Likelihood(w http.ResponseWriter, q *http.Request) {
	ts, _, err := h.lookup(q)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	item := q.URL.Query().Get("item")
	if item == "" {
		httperr.Errs(w, errs.NewWarn("item is required"))
		return
	}
	ts.mu.RLock()
	p, err := ts.w.Likelihood(item)
	ts.mu.RUnlock()
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"item": item, "likelihood": p})
}

// SetItem PUT /v1/tables/{name}/items/{item} {"weight": 3}
func (h *TableHandler) SetItem(w http.ResponseWriter, q *http.Request) {
	ts, name, err := h.lookup(q)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	item := netsvr.URLParam(q, "item")
	body := new(weightBody)
	if err := decodeBody(q, body); err != nil {
		httperr.Errs(w, err)
		return
	}
	if body.Weight == nil {
		httperr.Errs(w, errs.NewWarn("weight is required"))
		return
	}
	ts.mu.Lock()
	err = ts.w.Set(item, *body.Weight)
	view := viewOf(name, ts.w)
	ts.mu.Unlock()
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	h.log.Info("table item set", slog.String("table", name), slog.String("item", item), slog.Float64("weight", *body.Weight))
	writeJSON(w, http.StatusOK, view)
}

// RemoveItem DELETE /v1/tables/{name}/items/{item}；item 不存在也回 204
func (h *TableHandler) RemoveItem(w http.ResponseWriter, q *http.Request) {
	ts, name, err := h.lookup(q)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	item := netsvr.URLParam(q, "item")
	ts.mu.Lock()
	ts.w.Remove(item)
	ts.mu.Unlock()
	h.log.Info("table item removed", slog.String("table", name), slog.String("item", item))
	w.WriteHeader(http.StatusNoContent)
}

func (h *TableHandler) lookup(q *http.Request) (*tableState, string, error) {
	name := catalog.NormName(netsvr.URLParam(q, "name"))
	ts, ok := h.tables[name]
	if !ok {
		return nil, name, errs.WrapWithExtra(catalog.ErrTableNotFound, "v1.table", name)
	}
	return ts, name, nil
}

// viewOf 呼叫端需持有讀鎖
func viewOf(name string, wr *sampler.WeightedRandomizer[string]) *tableView {
	v := &tableView{Name: name, TotalWeight: wr.TotalWeight(), Items: make([]itemView, 0, wr.Len())}
	for _, it := range wr.Items() {
		weight, _ := wr.Weight(it)
		iv := itemView{Item: it, Weight: weight}
		if p, err := wr.Likelihood(it); err == nil {
			iv.Likelihood = &p
		}
		v.Items = append(v.Items, iv)
	}
	return v
}
