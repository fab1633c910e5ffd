package api_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/jasoryeh/Compendium/catalog"
	"github.com/jasoryeh/Compendium/sdk/core"
	"github.com/jasoryeh/Compendium/server/api"
	"github.com/jasoryeh/Compendium/server/logger"
	"github.com/jasoryeh/Compendium/server/netsvr"
	"github.com/jasoryeh/Compendium/server/svrcfg"
)

const maxDraw = 1000

type drawResult struct {
	Table  string   `json:"table"`
	Engine string   `json:"engine"`
	PRNG   string   `json:"prng"`
	Seed   int64    `json:"seed"`
	Count  int      `json:"count"`
	Items  []string `json:"items"`
	Audit  *struct {
		Summary struct {
			Draws      int     `json:"Draws"`
			PValue     float64 `json:"PValue"`
			Unexpected int     `json:"Unexpected"`
		} `json:"Summary"`
	} `json:"audit"`
}

type tableResult struct {
	Name        string  `json:"name"`
	TotalWeight float64 `json:"total_weight"`
	Items       []struct {
		Item       string   `json:"item"`
		Weight     float64  `json:"weight"`
		Likelihood *float64 `json:"likelihood"`
	} `json:"items"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cat, err := catalog.New(fstest.MapFS{
		"loot.yaml": {Data: []byte("items:\n  - {item: gold, weight: 7}\n  - {item: silver, weight: 2}\n  - {item: bronze, weight: 1}\n")},
		"coin.json": {Data: []byte(`{"items":[{"item":"heads","weight":1},{"item":"tails","weight":1}]}`)},
	})
	if err != nil {
		t.Fatal(err)
	}
	sCfg := &svrcfg.SvrCfg{
		Log:     logger.NewLoggerTo(io.Discard, logger.ModeSilence),
		Catalog: cat,
		Seeds:   core.NewSeedMaker(1),
		MaxDraw: maxDraw,
	}
	if err := sCfg.Vaild(); err != nil {
		t.Fatal(err)
	}
	svr := netsvr.NewChiServer("")
	if err := api.RegisterRoutes(svr, sCfg); err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(svr.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, ts *httptest.Server, method, path, body string, out any) int {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func TestIndexAndList(t *testing.T) {
	ts := newTestServer(t)

	var info struct {
		Service string   `json:"service"`
		Tables  []string `json:"tables"`
		MaxDraw int      `json:"max_draw"`
	}
	if code := do(t, ts, http.MethodGet, "/", "", &info); code != http.StatusOK {
		t.Fatalf("GET / = %d", code)
	}
	if info.Service != "compendium" || info.MaxDraw != maxDraw || !slices.Equal(info.Tables, []string{"coin", "loot"}) {
		t.Fatalf("unexpected info: %+v", info)
	}

	var list []struct {
		Name  string `json:"name"`
		Items int    `json:"items"`
	}
	if code := do(t, ts, http.MethodGet, "/v1/tables", "", &list); code != http.StatusOK || len(list) != 2 {
		t.Fatalf("GET /v1/tables = %d %+v", code, list)
	}
}

func TestGetTable(t *testing.T) {
	ts := newTestServer(t)
	var tb tableResult
	if code := do(t, ts, http.MethodGet, "/v1/tables/loot", "", &tb); code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}
	if tb.TotalWeight != 10 || len(tb.Items) != 3 || tb.Items[0].Item != "gold" || *tb.Items[0].Likelihood != 0.7 {
		t.Fatalf("unexpected table: %+v", tb)
	}
	if code := do(t, ts, http.MethodGet, "/v1/tables/nope", "", nil); code != http.StatusNotFound {
		t.Fatalf("missing table = %d, want 404", code)
	}
}

func TestLikelihood(t *testing.T) {
	ts := newTestServer(t)
	var out struct {
		Item       string  `json:"item"`
		Likelihood float64 `json:"likelihood"`
	}
	if code := do(t, ts, http.MethodGet, "/v1/tables/loot/likelihood?item=silver", "", &out); code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}
	if out.Likelihood != 0.2 {
		t.Fatalf("likelihood = %v", out.Likelihood)
	}
	if code := do(t, ts, http.MethodGet, "/v1/tables/loot/likelihood?item=diamond", "", nil); code != http.StatusNotFound {
		t.Fatalf("unknown item = %d, want 404", code)
	}
	if code := do(t, ts, http.MethodGet, "/v1/tables/loot/likelihood", "", nil); code != http.StatusBadRequest {
		t.Fatalf("missing item = %d, want 400", code)
	}
}

func TestDrawReplayable(t *testing.T) {
	ts := newTestServer(t)
	for _, engine := range []string{"partition", "alias"} {
		var a, b drawResult
		path := "/v1/tables/loot/draw?count=50&seed=7&engine=" + engine
		if code := do(t, ts, http.MethodGet, path, "", &a); code != http.StatusOK {
			t.Fatalf("%s: code = %d", engine, code)
		}
		do(t, ts, http.MethodGet, path, "", &b)
		if a.Count != 50 || a.Seed != 7 || a.Engine != engine || !slices.Equal(a.Items, b.Items) {
			t.Fatalf("%s: draw not replayable: %+v vs %+v", engine, a, b)
		}
	}

	// 未指定 seed 時回傳實際使用的 seed，帶回去即可重現
	var first, replay drawResult
	do(t, ts, http.MethodPost, "/v1/tables/loot/draw", `{"count":20}`, &first)
	body := `{"count":20,"seed":` + jsonInt(first.Seed) + `}`
	do(t, ts, http.MethodPost, "/v1/tables/loot/draw", body, &replay)
	if !slices.Equal(first.Items, replay.Items) {
		t.Fatal("returned seed does not reproduce the draw")
	}
}

func TestDrawDefaultsAndLimits(t *testing.T) {
	ts := newTestServer(t)
	var one drawResult
	if code := do(t, ts, http.MethodGet, "/v1/tables/coin/draw", "", &one); code != http.StatusOK || len(one.Items) != 1 {
		t.Fatalf("default draw = %d %+v", code, one)
	}
	var zero drawResult
	if code := do(t, ts, http.MethodGet, "/v1/tables/coin/draw?count=0", "", &zero); code != http.StatusOK || len(zero.Items) != 0 {
		t.Fatalf("count=0 = %d %+v", code, zero)
	}
	cases := map[string]int{
		"/v1/tables/coin/draw?count=1001":       http.StatusBadRequest,
		"/v1/tables/coin/draw?count=-1":         http.StatusBadRequest,
		"/v1/tables/coin/draw?count=x":          http.StatusBadRequest,
		"/v1/tables/coin/draw?engine=vose":      http.StatusBadRequest,
		"/v1/tables/coin/draw?audit=maybe":      http.StatusBadRequest,
		"/v1/tables/missing/draw?count=1":       http.StatusNotFound,
		"/v1/tables/coin/draw?seed=12345678901": http.StatusOK,
	}
	for path, want := range cases {
		if code := do(t, ts, http.MethodGet, path, "", nil); code != want {
			t.Fatalf("GET %s = %d, want %d", path, code, want)
		}
	}
	if code := do(t, ts, http.MethodPost, "/v1/tables/coin/draw", `{"count":1,"color":"red"}`, nil); code != http.StatusBadRequest {
		t.Fatalf("unknown field = %d, want 400", code)
	}
}

func TestDrawAudit(t *testing.T) {
	ts := newTestServer(t)
	var out drawResult
	if code := do(t, ts, http.MethodPost, "/v1/tables/loot/draw", `{"count":1000,"seed":3,"audit":true}`, &out); code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}
	if out.Audit == nil || out.Audit.Summary.Draws != 1000 || out.Audit.Summary.Unexpected != 0 {
		t.Fatalf("unexpected audit: %+v", out.Audit)
	}
}

func TestSetAndRemoveItem(t *testing.T) {
	ts := newTestServer(t)

	var tb tableResult
	if code := do(t, ts, http.MethodPut, "/v1/tables/loot/items/platinum", `{"weight":0}`, &tb); code != http.StatusOK {
		t.Fatalf("PUT = %d", code)
	}
	if len(tb.Items) != 4 || tb.Items[3].Item != "platinum" || *tb.Items[3].Likelihood != 0 {
		t.Fatalf("unexpected table after PUT: %+v", tb)
	}
	var out drawResult
	do(t, ts, http.MethodGet, "/v1/tables/loot/draw?count=1000&seed=5", "", &out)
	if slices.Contains(out.Items, "platinum") {
		t.Fatal("zero weight item was drawn")
	}

	for _, body := range []string{`{"weight":-1}`, `{}`, `{"weight":"heavy"}`} {
		if code := do(t, ts, http.MethodPut, "/v1/tables/loot/items/gold", body, nil); code != http.StatusBadRequest {
			t.Fatalf("PUT %s = %d, want 400", body, code)
		}
	}

	if code := do(t, ts, http.MethodDelete, "/v1/tables/loot/items/gold", "", nil); code != http.StatusNoContent {
		t.Fatalf("DELETE = %d", code)
	}
	if code := do(t, ts, http.MethodDelete, "/v1/tables/loot/items/gold", "", nil); code != http.StatusNoContent {
		t.Fatalf("second DELETE = %d", code)
	}
	if code := do(t, ts, http.MethodGet, "/v1/tables/loot/likelihood?item=gold", "", nil); code != http.StatusNotFound {
		t.Fatalf("likelihood after DELETE = %d, want 404", code)
	}
}

func TestSetItemOverflowRejected(t *testing.T) {
	ts := newTestServer(t)
	big := `{"weight":1.7976931348623157e308}`
	for i := range 3 {
		do(t, ts, http.MethodPut, "/v1/tables/coin/items/big", big, nil)
		if code := do(t, ts, http.MethodPut, "/v1/tables/coin/items/x"+jsonInt(int64(i)), `{"weight":9e291}`, nil); code != http.StatusOK {
			t.Fatalf("round %d: PUT small = %d", i, code)
		}
		do(t, ts, http.MethodDelete, "/v1/tables/coin/items/big", "", nil)
	}
	if code := do(t, ts, http.MethodPut, "/v1/tables/coin/items/big", big, nil); code != http.StatusBadRequest {
		t.Fatalf("overflowing PUT = %d, want 400", code)
	}
	var tb tableResult
	if code := do(t, ts, http.MethodGet, "/v1/tables/coin", "", &tb); code != http.StatusOK {
		t.Fatalf("GET after rejected PUT = %d", code)
	}
	if len(tb.Items) != 5 {
		t.Fatalf("rejected PUT changed the table: %+v", tb)
	}
	for _, it := range tb.Items {
		if it.Likelihood == nil {
			t.Fatalf("%s has no likelihood", it.Item)
		}
	}
}

func TestTableNameNormalized(t *testing.T) {
	ts := newTestServer(t)
	var tb tableResult
	if code := do(t, ts, http.MethodGet, "/v1/tables/Loot", "", &tb); code != http.StatusOK || tb.Name != "loot" {
		t.Fatalf("GET /v1/tables/Loot = %d %+v", code, tb)
	}
	var out drawResult
	if code := do(t, ts, http.MethodGet, "/v1/tables/LOOT/draw?count=3&seed=1", "", &out); code != http.StatusOK || out.Table != "loot" {
		t.Fatalf("draw with upper-case name = %d %+v", code, out)
	}
}

func TestDrawPRNG(t *testing.T) {
	ts := newTestServer(t)
	var a, b, c drawResult
	do(t, ts, http.MethodGet, "/v1/tables/loot/draw?count=200&seed=4&prng=pcg32", "", &a)
	do(t, ts, http.MethodPost, "/v1/tables/loot/draw", `{"count":200,"seed":4,"prng":"pcg32"}`, &b)
	do(t, ts, http.MethodGet, "/v1/tables/loot/draw?count=200&seed=4", "", &c)
	if a.PRNG != "pcg32" || c.PRNG != "pcg64" {
		t.Fatalf("prng = %q / %q", a.PRNG, c.PRNG)
	}
	if !slices.Equal(a.Items, b.Items) {
		t.Fatal("pcg32 draw not replayable")
	}
	if slices.Equal(a.Items, c.Items) {
		t.Fatal("pcg32 and pcg64 gave the same sequence")
	}
	if code := do(t, ts, http.MethodGet, "/v1/tables/loot/draw?prng=mt", "", nil); code != http.StatusBadRequest {
		t.Fatalf("unknown prng = %d, want 400", code)
	}
	if code := do(t, ts, http.MethodPost, "/v1/draw", `{"items":[{"item":"a","weight":1}],"prng":"mt"}`, nil); code != http.StatusBadRequest {
		t.Fatalf("ad hoc unknown prng = %d, want 400", code)
	}
}

func TestDegenerateAndEmptyTable(t *testing.T) {
	ts := newTestServer(t)
	do(t, ts, http.MethodPut, "/v1/tables/coin/items/heads", `{"weight":0}`, nil)
	do(t, ts, http.MethodPut, "/v1/tables/coin/items/tails", `{"weight":0}`, nil)

	for _, path := range []string{"/v1/tables/coin/draw", "/v1/tables/coin/draw?count=0", "/v1/tables/coin/likelihood?item=heads"} {
		if code := do(t, ts, http.MethodGet, path, "", nil); code != http.StatusConflict {
			t.Fatalf("GET %s = %d, want 409", path, code)
		}
	}

	do(t, ts, http.MethodDelete, "/v1/tables/coin/items/heads", "", nil)
	do(t, ts, http.MethodDelete, "/v1/tables/coin/items/tails", "", nil)
	if code := do(t, ts, http.MethodGet, "/v1/tables/coin/draw?engine=alias", "", nil); code != http.StatusConflict {
		t.Fatalf("empty table draw = %d, want 409", code)
	}
}

func TestAdHocDraw(t *testing.T) {
	ts := newTestServer(t)
	var out drawResult
	body := `{"items":[{"item":"a","weight":1},{"item":"b","weight":0}],"count":30,"seed":9}`
	if code := do(t, ts, http.MethodPost, "/v1/draw", body, &out); code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}
	if out.Table != "" || len(out.Items) != 30 || slices.Contains(out.Items, "b") {
		t.Fatalf("unexpected ad hoc draw: %+v", out)
	}
	cases := map[string]int{
		`{"items":[]}`:                              http.StatusConflict,
		`{"items":[{"item":"a","weight":-2}]}`:      http.StatusBadRequest,
		`{"items":[{"item":"a","weight":1}],"x":1}`: http.StatusBadRequest,
		`not json`:                                  http.StatusBadRequest,
	}
	for body, want := range cases {
		if code := do(t, ts, http.MethodPost, "/v1/draw", body, nil); code != want {
			t.Fatalf("POST /v1/draw %s = %d, want %d", body, code, want)
		}
	}
}

func TestRequestIDAndCompression(t *testing.T) {
	ts := newTestServer(t)
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/v1/tables/loot/draw?count=1000&seed=1", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.Header.Get("X-Request-Id") == "" {
		t.Fatal("missing X-Request-Id")
	}
	if resp.Header.Get("Content-Encoding") != "gzip" {
		t.Fatalf("Content-Encoding = %q", resp.Header.Get("Content-Encoding"))
	}
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
