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

// Package perf 以 runtime/pprof 包住一段執行，輸出 cpu / heap / allocs profile。
package perf

import (
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"

	"github.com/jasoryeh/Compendium/errs"
)

// DefaultDir 預設的 profile 輸出目錄
const DefaultDir = "build/profiling"

// Modes 支援的 profile 種類；空字串代表不做 profiling
var Modes = []string{"", "cpu", "heap", "allocs"}

// Run 依 mode 執行 exe 並寫出 <dir>/<mode>.pprof，回傳 exe 的錯誤或寫檔錯誤。
//
//	go run ./cmd/draw -table loot -n 50000000 -p cpu
//	go tool pprof build/profiling/cpu.pprof
func Run(dir string, mode string, exe func() error) error {
	switch mode {
	case "":
		return exe()
	case "cpu":
		return cpu(dir, exe)
	case "heap":
		return snapshot(dir, "heap", exe)
	case "allocs":
		return snapshot(dir, "allocs", exe)
	default:
		return errs.Warnf("perf: unknown profile mode %q (want cpu, heap or allocs)", mode)
	}
}

func create(dir string, mode string) (*os.File, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Wrap(err, "perf: mkdir")
	}
	f, err := os.Create(filepath.Join(dir, mode+".pprof"))
	if err != nil {
		return nil, errs.Wrap(err, "perf: create "+mode+".pprof")
	}
	return f, nil
}

// cpu 在 exe 執行期間做 CPU profiling，也可作為 PGO 的輸入
func cpu(dir string, exe func() error) (err error) {
	f, err := create(dir, "cpu")
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = errs.Wrap(cerr, "perf: close")
		}
	}()
	if err := pprof.StartCPUProfile(f); err != nil {
		return errs.Wrap(err, "perf: start cpu profile")
	}
	defer pprof.StopCPUProfile()
	return exe()
}

// snapshot 在 exe 結束後寫出一次 heap（in-use）或 allocs（累積配置）profile。
// heap 前先 GC 一次，讓 live objects 貼近最新狀態。
func snapshot(dir string, mode string, exe func() error) (err error) {
	if err := exe(); err != nil {
		return err
	}
	if mode == "heap" {
		runtime.GC()
	}
	f, err := create(dir, mode)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = errs.Wrap(cerr, "perf: close")
		}
	}()
	prof := pprof.Lookup(mode)
	if prof == nil {
		return errs.Fatalf("perf: profile %q not available", mode)
	}
	if err := prof.WriteTo(f, 0); err != nil {
		return errs.Wrap(err, "perf: write "+mode)
	}
	return nil
}
