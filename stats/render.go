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

package stats

import (
	"encoding/json"
	"io"
	"slices"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// ReportRender 定義輸出行為
type ReportRender interface {
	Write(w io.Writer, r *Report) error
}

// RenderByName 依名稱取得渲染器：table | json | yaml
func RenderByName(name string) (ReportRender, bool) {
	switch strings.ToLower(name) {
	case "", "table":
		return &TableReportRender{}, true
	case "json":
		return &JsonReportRender{}, true
	case "yaml", "yml":
		return &YAMLReportRender{}, true
	}
	return nil, false
}

// Json渲染
type JsonReportRender struct{}

func (jr *JsonReportRender) Write(w io.Writer, r *Report) error {
	return json.NewEncoder(w).Encode(r)
}

// YAML渲染
type YAMLReportRender struct{}

func (yr *YAMLReportRender) Write(w io.Writer, r *Report) error {
	// 只有「最內層的一維陣列」輸出成 flow style：[..., ...]
	return forceReadableList(w, r)
}

// 表格渲染（終端機用）
type TableReportRender struct{}

func (tr *TableReportRender) Write(w io.Writer, r *Report) error {
	if _, err := io.WriteString(w, fmtSummary(r.Summary)); err != nil {
		return err
	}
	_, err := io.WriteString(w, fmtItems(r.Items))
	return err
}

// YAML 內層方法
func forceReadableList[T any](w io.Writer, t *T) error {
	var node yaml.Node
	if err := node.Encode(t); err != nil {
		return err
	}
	styleReadableSequences(&node)

	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(&node)
}

func styleReadableSequences(n *yaml.Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case yaml.DocumentNode, yaml.MappingNode:
		for _, c := range n.Content {
			styleReadableSequences(c)
		}
	case yaml.SequenceNode:
		// 內含 mapping / sequence 的維持 block style
		flat := true
		for _, c := range n.Content {
			if c != nil && (c.Kind == yaml.SequenceNode || c.Kind == yaml.MappingNode) {
				flat = false
			}
			styleReadableSequences(c)
		}
		if flat {
			n.Style = yaml.FlowStyle
		}
	}
}

// ============================================================
// ** 表格 **
// ============================================================

func fmtSummary(s *SummaryReport) string {
	p := message.NewPrinter(lang)
	msg := map[string]string{
		"Table":        s.Title,
		"Engine":       s.Engine,
		"Seed":         p.Sprintf("%d", s.Seed),
		"Draws":        p.Sprintf("%d", s.Draws),
		"Items":        p.Sprintf("%d", s.Items),
		"Total Weight": p.Sprintf("%.4f", s.TotalWeight),
		"Chi-Square":   p.Sprintf("%.4f (df=%d)", s.ChiSquare, s.DF),
		"P-Value":      p.Sprintf("%.4f", s.PValue),
		"Unexpected":   p.Sprintf("%d", s.Unexpected),
	}
	keys := []string{"Table", "Engine", "Seed", "Draws", "Items", "Total Weight", "Chi-Square", "P-Value", "Unexpected"}
	if s.ElapsedSec > 0 {
		msg["Used"] = p.Sprintf("%.3f s", s.ElapsedSec)
		msg["Throughput"] = p.Sprintf("%d draws/sec", int(float64(s.Draws)/s.ElapsedSec))
		keys = append(keys, "Used", "Throughput")
	}
	if s.Engine == "" {
		delete(msg, "Engine")
		keys = slices.DeleteFunc(keys, func(k string) bool { return k == "Engine" })
	}
	return fmtTable(s.Title, keys, msg)
}

func fmtItems(items []ItemReport) string {
	p := message.NewPrinter(lang)
	head := []string{"Item", "Weight", "Expected", "Observed", "Freq", "95% CI", ""}
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		mark := "ok"
		if !it.Within {
			mark = "!"
		}
		rows = append(rows, []string{
			it.Item,
			p.Sprintf("%g", it.Weight),
			p.Sprintf("%.4f%%", 100*it.Expected),
			p.Sprintf("%d", it.Observed),
			p.Sprintf("%.4f%%", 100*it.Freq),
			p.Sprintf("[%.4f%%, %.4f%%]", 100*it.CI.Lo, 100*it.CI.Hi),
			mark,
		})
	}
	return fmtGrid(head, rows)
}

func fmtTable(title string, keys []string, msg map[string]string) string {
	p := message.NewPrinter(lang)
	maxKeyLen := 0
	maxValLen := 0
	for k, m := range msg {
		if w := runewidth.StringWidth(k); w > maxKeyLen {
			maxKeyLen = w
		}
		if w := runewidth.StringWidth(m); w > maxValLen {
			maxValLen = w
		}
	}
	maxKeyLen += 2
	maxValLen += 2

	totalInner := maxKeyLen + maxValLen + 1
	titleW := runewidth.StringWidth(title)
	if titleW > totalInner {
		maxValLen += titleW - totalInner
		totalInner = titleW
	}

	divider := "+" + strings.Repeat("-", maxKeyLen) + "+" + strings.Repeat("-", maxValLen) + "+\n"
	top := "+" + strings.Repeat("-", totalInner) + "+\n"

	left := (totalInner - titleW) / 2
	right := totalInner - titleW - left

	var sb strings.Builder
	sb.WriteString(top)
	sb.WriteString(p.Sprintf("|%s%s%s|\n", blank(left), title, blank(right)))
	sb.WriteString(divider)
	for _, k := range keys {
		sb.WriteString(p.Sprintf("| %s%s | %s%s |\n", k, blank(maxKeyLen-2-runewidth.StringWidth(k)), msg[k], blank(maxValLen-2-runewidth.StringWidth(msg[k]))))
	}
	sb.WriteString(divider)
	return sb.String()
}

// fmtGrid 以 runewidth 對齊多欄表格（item 名稱可能是全形字）
func fmtGrid(head []string, rows [][]string) string {
	width := make([]int, len(head))
	for i, h := range head {
		width[i] = runewidth.StringWidth(h)
	}
	for _, r := range rows {
		for i, c := range r {
			if w := runewidth.StringWidth(c); w > width[i] {
				width[i] = w
			}
		}
	}

	var sb strings.Builder
	divider := func() {
		sb.WriteString("+")
		for _, w := range width {
			sb.WriteString(strings.Repeat("-", w+2))
			sb.WriteString("+")
		}
		sb.WriteString("\n")
	}
	line := func(cells []string) {
		sb.WriteString("|")
		for i, c := range cells {
			sb.WriteString(" ")
			sb.WriteString(c)
			sb.WriteString(blank(width[i] - runewidth.StringWidth(c)))
			sb.WriteString(" |")
		}
		sb.WriteString("\n")
	}

	divider()
	line(head)
	divider()
	for _, r := range rows {
		line(r)
	}
	divider()
	return sb.String()
}

func blank(w int) string {
	if w < 1 {
		return ""
	}
	return strings.Repeat(" ", w)
}
