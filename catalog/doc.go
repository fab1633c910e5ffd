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

package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jasoryeh/Compendium/errs"
	"github.com/jasoryeh/Compendium/sdk/core"
	"github.com/jasoryeh/Compendium/sdk/sampler"
	"gopkg.in/yaml.v3"
)

// Doc 權重表設定檔
//
//	name: loot
//	seed: 42          # 選填，固定亂數種子
//	items:
//	  - item: gold
//	    weight: 7
//	  - item: silver
//	    weight: 2
//
// items 的順序即為區間分割的順序。
type Doc struct {
	Name  string    `yaml:"name" json:"name"`
	Seed  *int64    `yaml:"seed,omitempty" json:"seed,omitempty"`
	Items []ItemDoc `yaml:"items" json:"items"`
}

type ItemDoc struct {
	Item   string  `yaml:"item" json:"item"`
	Weight float64 `yaml:"weight" json:"weight"`
}

// Table 是解析並檢查過的權重表
type Table struct {
	Name  string
	File  string
	Seed  *int64
	Pairs []sampler.Pair[string]
}

// Parse 依副檔名解析 YAML / JSON，未知欄位視為錯誤。
//
// name 未填時使用檔名（去掉副檔名）；名稱一律轉小寫。
func Parse(filename string, raw []byte) (*Table, error) {
	if err := validFileName(filename); err != nil {
		return nil, err
	}
	doc := &Doc{}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(doc); err != nil {
			return nil, errs.WrapWithExtra(err, "catalog.Parse", filename)
		}
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(doc); err != nil {
			return nil, errs.WrapWithExtra(err, "catalog.Parse", filename)
		}
	}
	return doc.table(filename)
}

func (d *Doc) table(filename string) (*Table, error) {
	name := NormName(d.Name)
	if name == "" {
		name = NormName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	}
	if len(d.Items) == 0 {
		return nil, errs.Fatalf("catalog: table %q has no items (%s)", name, filename)
	}
	t := &Table{Name: name, File: filename, Seed: d.Seed, Pairs: make([]sampler.Pair[string], 0, len(d.Items))}
	seen := make(map[string]struct{}, len(d.Items))
	for i, it := range d.Items {
		item := strings.TrimSpace(it.Item)
		if item == "" {
			return nil, errs.Fatalf("catalog: table %q item[%d] has empty name", name, i)
		}
		if _, ok := seen[item]; ok {
			return nil, errs.Fatalf("catalog: table %q has duplicate item %q", name, item)
		}
		seen[item] = struct{}{}
		t.Pairs = append(t.Pairs, sampler.Pair[string]{Item: item, Weight: it.Weight})
	}
	// 權重規則交給 sampler 檢查，設定檔錯誤一律 Fatal
	if _, err := t.Randomizer(core.NewWithSeed(0)); err != nil {
		return nil, &errs.E{Op: "catalog.Parse", Message: fmt.Sprintf("table %q", name), Extra: filename, Cause: err, ErrLv: errs.Fatal}
	}
	return t, nil
}

// Randomizer 以此表建立新的抽選器。
//
// src 為 nil 時：設定檔有 seed 就用固定種子，否則使用 sampler.DefaultSource()。
// 每次呼叫都回傳獨立的複本，修改它不影響 Table。
func (t *Table) Randomizer(src sampler.Source) (*sampler.WeightedRandomizer[string], error) {
	if src == nil && t.Seed != nil {
		src = core.NewWithSeed(*t.Seed)
	}
	return sampler.NewBuilder[string]().Random(src).Pairs(t.Pairs...).Build()
}

// Doc 轉回設定檔格式（用於輸出）
func (t *Table) Doc() *Doc {
	d := &Doc{Name: t.Name, Seed: t.Seed, Items: make([]ItemDoc, len(t.Pairs))}
	for i, p := range t.Pairs {
		d.Items[i] = ItemDoc{Item: p.Item, Weight: p.Weight}
	}
	return d
}

// NormName 表名正規化：去除前後空白並轉小寫
func NormName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
