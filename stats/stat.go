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

// Package stats 對抽樣結果做稽核：觀察頻率 vs 理論機率。
//
//   - 每個 item: 觀察頻率與 Clopper-Pearson 95% 信賴區間。
//   - 整體: Pearson 卡方適合度檢定 (chi-square goodness of fit) 與 p-value。
package stats

import (
	"fmt"
	"io"
	"time"

	"github.com/jasoryeh/Compendium/errs"
	"golang.org/x/text/language"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

var lang language.Tag = language.English

// SetLang 設定表格輸出使用的數字格式語系（千分位等）
func SetLang(tag language.Tag) {
	lang = tag
}

// Confidence 為所有信賴區間使用的信賴水準
const Confidence = 0.95

// 信賴區間
type CI struct {
	Lo float64 `json:"Lo" yaml:"lo"`
	Hi float64 `json:"Hi" yaml:"hi"`
}

// Distribution 是稽核需要的理論分布，*sampler.WeightedRandomizer 與 *sampler.Frozen 都滿足。
type Distribution[T comparable] interface {
	Items() []T
	Likelihood(item T) (float64, error)
	TotalWeight() float64
}

// Report 抽樣稽核報告
type Report struct {
	Summary *SummaryReport `json:"Summary" yaml:"summary"`
	Items   []ItemReport   `json:"Items" yaml:"items"`
}

type SummaryReport struct {
	Title       string  `json:"Title" yaml:"title"`
	Engine      string  `json:"Engine,omitempty" yaml:"engine,omitempty"`
	Seed        int64   `json:"Seed" yaml:"seed"`
	Draws       int     `json:"Draws" yaml:"draws"`
	Items       int     `json:"Items" yaml:"items"`
	TotalWeight float64 `json:"TotalWeight" yaml:"total_weight"`
	ChiSquare   float64 `json:"ChiSquare" yaml:"chi_square"`
	DF          int     `json:"DF" yaml:"df"`
	PValue      float64 `json:"PValue" yaml:"p_value"`
	Unexpected  int     `json:"Unexpected" yaml:"unexpected"` // 抽到不在分布內（或機率為 0）的次數
	ElapsedSec  float64 `json:"ElapsedSec,omitempty" yaml:"elapsed_sec,omitempty"`
}

// ItemReport 單一 item 的觀察結果
type ItemReport struct {
	Item     string  `json:"Item" yaml:"item"`
	Weight   float64 `json:"Weight" yaml:"weight"`
	Expected float64 `json:"Expected" yaml:"expected"` // 理論機率
	Observed int     `json:"Observed" yaml:"observed"` // 觀察次數
	Freq     float64 `json:"Freq" yaml:"freq"`         // 觀察頻率
	CI       CI      `json:"CI" yaml:"ci"`             // Freq 的信賴區間
	Within   bool    `json:"Within" yaml:"within"`     // Expected 是否落在 CI 內
}

// ============================================================
// ** 公開方法 **
// ============================================================

// Audit 以 d 的理論機率檢驗 t 的觀察次數。
//
// item 依 d.Items() 的順序輸出；t 中出現但 d 沒有的 item 計入 Unexpected。
// 卡方檢定只納入機率 > 0 的 item，自由度為其個數 - 1。
func Audit[T comparable](title string, d Distribution[T], t *Tally[T]) (*Report, error) {
	if d == nil || t == nil {
		return nil, errs.NewWarn("stats.Audit: nil distribution or tally")
	}
	items := d.Items()
	total := d.TotalWeight()
	n := t.Total()

	rep := &Report{
		Summary: &SummaryReport{
			Title:       title,
			Draws:       n,
			Items:       len(items),
			TotalWeight: total,
			PValue:      1,
		},
		Items: make([]ItemReport, 0, len(items)),
	}

	known := make(map[T]struct{}, len(items))
	obs := make([]float64, 0, len(items))
	exp := make([]float64, 0, len(items))
	for _, it := range items {
		known[it] = struct{}{}
		p, err := d.Likelihood(it)
		if err != nil {
			return nil, errs.Wrap(err, "stats.Audit")
		}
		k := t.Count(it)
		freq, ci := proportionCICP(k, n, Confidence)
		rep.Items = append(rep.Items, ItemReport{
			Item:     fmt.Sprint(it),
			Weight:   p * total,
			Expected: p,
			Observed: k,
			Freq:     freq,
			CI:       ci,
			Within:   n == 0 || (ci.Lo <= p && p <= ci.Hi),
		})
		if p == 0 {
			rep.Summary.Unexpected += k
			continue
		}
		obs = append(obs, float64(k))
		exp = append(exp, p*float64(n))
	}
	for _, it := range t.Items() {
		if _, ok := known[it]; !ok {
			rep.Summary.Unexpected += t.Count(it)
		}
	}

	if n > 0 && len(obs) > 1 {
		rep.Summary.ChiSquare = stat.ChiSquare(obs, exp)
		rep.Summary.DF = len(obs) - 1
		rep.Summary.PValue = distuv.ChiSquared{K: float64(rep.Summary.DF)}.Survival(rep.Summary.ChiSquare)
	}
	return rep, nil
}

// Passed 回傳卡方檢定在顯著水準 alpha 下是否不拒絕，且沒有抽到不該出現的 item
func (r *Report) Passed(alpha float64) bool {
	return r.Summary.Unexpected == 0 && r.Summary.PValue >= alpha
}

// SetElapsed 記錄抽樣花費的時間，表格輸出時會換算成每秒抽樣數
func (r *Report) SetElapsed(d time.Duration) {
	if d < 0 {
		d = -d
	}
	r.Summary.ElapsedSec = d.Seconds()
}

func (r *Report) WriteWith(w io.Writer, rep ReportRender) error {
	return rep.Write(w, r)
}

// ============================================================
// ** 內部統計函數 **
// ============================================================

// Clopper–Pearson exact CI for binomial proportion (k successes out of n)
func proportionCICP(k int, n int, confidence float64) (pHat float64, ci CI) {
	if n == 0 {
		return 0, CI{0, 1}
	}
	alpha := 1 - confidence
	pHat = float64(k) / float64(n)

	// Beta PPF 映射，處理邊界
	if k == 0 {
		ci.Lo = 0
	} else {
		b := distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}
		ci.Lo = b.Quantile(alpha / 2)
	}
	if k == n {
		ci.Hi = 1
	} else {
		b := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}
		ci.Hi = b.Quantile(1 - alpha/2)
	}
	return
}
