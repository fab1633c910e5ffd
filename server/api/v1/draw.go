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
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	compendium "github.com/jasoryeh/Compendium"
	"github.com/jasoryeh/Compendium/catalog"
	"github.com/jasoryeh/Compendium/errs"
	"github.com/jasoryeh/Compendium/sdk/core"
	"github.com/jasoryeh/Compendium/sdk/sampler"
	"github.com/jasoryeh/Compendium/server/httperr"
	"github.com/jasoryeh/Compendium/stats"
)

const (
	maxBodyBytes = 1 << 20
	drawTimeout  = 5 * time.Second
)

// drawRequest 共用的抽樣參數。count 未填時抽一次；seed 未填時由 server 產生並回傳。
type drawRequest struct {
	Count  *int   `json:"count,omitempty"`
	Seed   *int64 `json:"seed,omitempty"`
	Engine string `json:"engine,omitempty"`
	PRNG   string `json:"prng,omitempty"`
	Audit  bool   `json:"audit,omitempty"`
}

// adhocRequest 不經過 catalog，直接以 body 內的權重表抽樣
type adhocRequest struct {
	drawRequest
	Items []catalog.ItemDoc `json:"items"`
}

type drawResponse struct {
	Table  string            `json:"table,omitempty"`
	Engine compendium.Engine `json:"engine"`
	PRNG   string            `json:"prng"`
	Seed   int64             `json:"seed"`
	Count  int               `json:"count"`
	Items  []string          `json:"items"`
	Audit  *stats.Report     `json:"audit,omitempty"`
}

// Draw 從 catalog 中的表抽樣
//
//	GET  /v1/tables/{name}/draw?count=10&seed=42&engine=alias&audit=true
//	POST /v1/tables/{name}/draw {"count":10,"seed":42}
func (h *TableHandler) Draw(w http.ResponseWriter, q *http.Request) {
	req, err := decodeDrawRequest(q)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	ts, name, err := h.lookup(q)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	seed := h.seedOf(req)
	src, err := sourceOf(req, seed)
	if err != nil {
		httperr.Errs(w, err)
		return
	}

	// 讀鎖內只做複製，抽樣在鎖外以本請求自己的來源進行
	ts.mu.RLock()
	wr := ts.w.Clone(src)
	ts.mu.RUnlock()

	h.serveDraw(w, q, name, wr, req, seed)
}

// AdHoc 以請求內的權重表抽樣
//
//	POST /v1/draw {"items":[{"item":"a","weight":1}],"count":10}
func (h *TableHandler) AdHoc(w http.ResponseWriter, q *http.Request) {
	req := new(adhocRequest)
	if err := decodeBody(q, req); err != nil {
		httperr.Errs(w, err)
		return
	}
	seed := h.seedOf(req.drawRequest)
	src, err := sourceOf(req.drawRequest, seed)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	b := sampler.NewBuilder[string]().Random(src)
	for _, it := range req.Items {
		b.Item(it.Item, it.Weight)
	}
	wr, err := b.Build()
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	h.serveDraw(w, q, "", wr, req.drawRequest, seed)
}

func (h *TableHandler) serveDraw(w http.ResponseWriter, q *http.Request, name string, wr *sampler.WeightedRandomizer[string], req drawRequest, seed int64) {
	count := 1
	if req.Count != nil {
		count = *req.Count
	}
	if count > h.maxDraw {
		httperr.Errs(w, errs.Warnf("count %d exceeds limit %d", count, h.maxDraw))
		return
	}
	engine, err := compendium.ParseEngine(req.Engine)
	if err != nil {
		httperr.Errs(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(q.Context(), drawTimeout)
	defer cancel()

	start := time.Now()
	items, err := compendium.Draw(ctx, wr, engine, count)
	if err != nil {
		httperr.Log(h.log, "draw failed", err)
		httperr.Errs(w, err)
		return
	}
	resp := &drawResponse{Table: name, Engine: engine, PRNG: prngName(req.PRNG), Seed: seed, Count: len(items), Items: items}
	if req.Audit {
		tally := stats.NewTally[string]()
		tally.AddAll(items)
		title := name
		if title == "" {
			title = "adhoc"
		}
		rep, err := stats.Audit(title, wr, tally)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		rep.Summary.Engine = string(engine)
		rep.Summary.Seed = seed
		rep.SetElapsed(time.Since(start))
		resp.Audit = rep
	}
	h.log.Debug("draw", "table", name, "engine", engine, "count", count, "seed", seed)
	writeJSON(w, http.StatusOK, resp)
}

// sourceOf 依 req.PRNG 建立本次請求的亂數來源
func sourceOf(req drawRequest, seed int64) (*core.Core, error) {
	f, ok := core.PRNGByName(req.PRNG)
	if !ok {
		return nil, errs.Warnf("unknown prng %q (want pcg64 or pcg32)", req.PRNG)
	}
	return core.NewWithFactory(f, seed), nil
}

func (h *TableHandler) seedOf(req drawRequest) int64 {
	if req.Seed != nil {
		return *req.Seed
	}
	return h.seeds.Next()
}

func prngName(s string) string {
	if s = strings.ToLower(strings.TrimSpace(s)); s == "" {
		return "pcg64"
	}
	return s
}

// decodeDrawRequest 解析 GET query 或 POST body
func decodeDrawRequest(q *http.Request) (drawRequest, error) {
	req := drawRequest{}
	if q.Method != http.MethodGet {
		err := decodeBody(q, &req)
		return req, err
	}
	query := q.URL.Query()
	if s := query.Get("count"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return req, errs.NewWarn("count must be integer")
		}
		req.Count = &n
	}
	if s := query.Get("seed"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return req, errs.NewWarn("seed must be int64")
		}
		req.Seed = &n
	}
	req.Engine = query.Get("engine")
	req.PRNG = query.Get("prng")
	if s := query.Get("audit"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return req, errs.NewWarn("audit must be boolean")
		}
		req.Audit = b
	}
	return req, nil
}

// decodeBody 解析 JSON body；空 body 視為全部使用預設值。
func decodeBody(q *http.Request, dst any) error {
	if q.Body == nil {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, q.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &errs.E{Op: "v1.decode", Message: "invalid json body", Cause: err, ErrLv: errs.Warn}
	}
	return nil
}

// writeJSON 先完整編碼再寫出，編碼失敗時仍能回 500
func writeJSON(w http.ResponseWriter, status int, v any) {
	buf, err := json.Marshal(v)
	if err != nil {
		httperr.Errs(w, &errs.E{Op: "v1.writeJSON", Message: "encode response", Cause: err, ErrLv: errs.Fatal})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(buf, '\n'))
}
