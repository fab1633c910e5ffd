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

// Package catalog 從一組 fs.FS 載入權重表設定檔（YAML / JSON），以名稱查詢。
package catalog

import (
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"github.com/jasoryeh/Compendium/errs"
)

var (
	ErrDupName       = errs.NewFatal("duplicate table name")
	ErrTableNotFound = errs.NewWarn("table not found")
)

type Catalog struct {
	byName map[string]*Table
	names  []string // 用來穩定排序
	frozen bool
}

// New 載入所有 FS 根目錄下的 .yaml/.yml/.json；任何檔案解析失敗即回傳錯誤。
func New(cfg ...fs.FS) (*Catalog, error) {
	multFS, err := newMultiFS(cfg...)
	if err != nil {
		return nil, errs.Wrap(err, "catalog.New")
	}
	c := &Catalog{
		byName: map[string]*Table{},
		names:  make([]string, 0, len(multFS.index)),
	}
	files := make([]string, 0, len(multFS.index))
	for name := range multFS.index {
		files = append(files, name)
	}
	slices.Sort(files)
	tables := make([]*Table, 0, len(files))
	for _, file := range files {
		src, _ := multFS.GetFS(file)
		raw, err := fs.ReadFile(src, file)
		if err != nil {
			return nil, errs.WrapWithExtra(err, "catalog.New", file)
		}
		t, err := Parse(file, raw)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	if err := c.Register(tables...); err != nil {
		return nil, err
	}
	return c, nil
}

// Register 加入表；名稱重複（含同一批之內）時整批不寫入。
func (c *Catalog) Register(tables ...*Table) error {
	if c.frozen {
		return errs.NewWarn("can not register when catalog already frozen")
	}
	seen := map[string]string{}
	for _, t := range tables {
		if t == nil {
			return errs.NewFatal("catalog: nil table")
		}
		name := NormName(t.Name)
		if name == "" {
			return errs.NewFatal("table name required")
		}
		if prev, ok := c.byName[name]; ok {
			return errs.WrapWithExtra(ErrDupName, "catalog.Register", fmt.Sprintf("%s (%s, %s)", name, prev.File, t.File))
		}
		if prev, ok := seen[name]; ok {
			return errs.WrapWithExtra(ErrDupName, "catalog.Register", fmt.Sprintf("%s (%s, %s)", name, prev, t.File))
		}
		seen[name] = t.File
	}
	for _, t := range tables {
		t.Name = NormName(t.Name)
		c.byName[t.Name] = t
		c.names = append(c.names, t.Name)
	}
	slices.Sort(c.names)
	return nil
}

// Table 以名稱查詢（不分大小寫、忽略前後空白）
func (c *Catalog) Table(name string) (*Table, bool) {
	t, ok := c.byName[NormName(name)]
	return t, ok
}

// MustTable 同 Table，找不到時回傳 ErrTableNotFound
func (c *Catalog) MustTable(name string) (*Table, error) {
	t, ok := c.Table(name)
	if !ok {
		return nil, errs.WrapWithExtra(ErrTableNotFound, "catalog.Table", name)
	}
	return t, nil
}

func (c *Catalog) Names() []string {
	if len(c.names) == 0 {
		return nil
	}
	return append([]string(nil), c.names...)
}

func (c *Catalog) All() []*Table {
	m := make([]*Table, 0, len(c.names))
	for _, n := range c.names {
		m = append(m, c.byName[n])
	}
	return m
}

func (c *Catalog) Len() int {
	return len(c.names)
}

func (c *Catalog) Freeze() {
	c.frozen = true
}

func (c *Catalog) IsFrozen() bool {
	return c.frozen
}

func validFileName(file string) error {
	if file == "" {
		return errs.NewFatal("empty config filename")
	}
	// 1) 不能包含路徑或類似字元
	if strings.ContainsAny(file, `/\:`) {
		return errs.NewFatal(fmt.Sprintf("invalid config filename: %q (must be a basename; no / \\\\ :) ", file))
	}
	// 2) 必須以 .yaml/.yml/.json 結尾（大小寫不敏感）
	if !isConfigFile(file) {
		return errs.NewFatal(fmt.Sprintf("invalid config filename: %q (must end with .yaml, .yml, or .json)", file))
	}
	// 3) 不能以 . 開頭（防止直接 .yaml / .yml）
	if strings.HasPrefix(file, ".") {
		return errs.NewFatal(fmt.Sprintf("invalid config filename: %q (cannot start with '.')", file))
	}
	return nil
}

func isConfigFile(file string) bool {
	lower := strings.ToLower(file)
	return strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml") || strings.HasSuffix(lower, ".json")
}

type multiFS struct {
	src   []fs.FS
	index map[string]int // name -> src index
}

func newMultiFS(src ...fs.FS) (*multiFS, error) {
	if len(src) == 0 {
		return nil, errs.NewFatal("no fs provided")
	}
	for i, s := range src {
		if s == nil {
			return nil, errs.NewFatal(fmt.Sprintf("fs[%d] is nil", i))
		}
	}

	m := &multiFS{
		src:   src,
		index: make(map[string]int, 64),
	}

	// eager validate: build index and detect duplicates
	for i := 0; i < len(src); i++ {
		err := fs.WalkDir(src[i], ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				// 設定檔目錄必須是平的，只允許根目錄 "."
				if path == "." {
					return nil
				}
				return errs.NewFatal(fmt.Sprintf("config FS must be flat (no subdirectories): %q", path))
			}
			// 其他檔案（.go、README 等）直接忽略
			if !isConfigFile(path) {
				return nil
			}
			if prev, ok := m.index[path]; ok {
				return errs.NewFatal(fmt.Sprintf("duplicate config %q in fs[%d] and fs[%d]", path, prev, i))
			}
			m.index[path] = i
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *multiFS) GetFS(name string) (fs.FS, bool) {
	if id, ok := m.index[name]; ok {
		return m.src[id], ok
	}
	return nil, false
}
