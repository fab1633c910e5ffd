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

// 開發用任務腳本
//
//	go run ./scripts test          # 精簡輸出，只顯示 ok / FAIL
//	go run ./scripts test-all      # 全部套件 + coverage
//	go run ./scripts test-detail   # verbose，略過 [no test files]
//	go run ./scripts bench         # sampler 的 benchmark
//	go run ./scripts audit         # 對每張 demo 表做一次大量抽樣稽核
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen).PrintlnFunc()
	red    = color.New(color.FgRed).PrintlnFunc()
	yellow = color.New(color.FgYellow).PrintlnFunc()
	title  = color.New(color.FgGreen, color.Bold).PrintlnFunc()
)

// demoTables 與 demo/tables 內的檔案一致
var demoTables = []string{"coin", "loot", "rarity"}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./scripts [test|test-all|test-detail|bench|audit]")
		os.Exit(1)
	}
	if err := selectTask(os.Args[1]); err != nil {
		red(err.Error())
		os.Exit(1)
	}
}

func selectTask(task string) error {
	switch task {
	case "test":
		title("running tests")
		if err := cleanTestCache(); err != nil {
			return err
		}
		return filtered(keepSummary, "go", "test", "./...", "-cover", "-count=1")
	case "test-all":
		title("running tests (all with coverage)")
		if err := cleanTestCache(); err != nil {
			return err
		}
		return passthrough("go", "test", "./...", "-cover")
	case "test-detail":
		title("running tests (detail)")
		if err := cleanTestCache(); err != nil {
			return err
		}
		return filtered(dropNoTestFiles, "go", "test", "./...", "-v", "-count=1")
	case "bench":
		title("running sampler benchmarks")
		return passthrough("go", "test", "./sdk/sampler", "-run", "^$", "-bench", ".", "-benchmem")
	case "audit":
		for _, t := range demoTables {
			title("auditing " + t)
			if err := passthrough("go", "run", "./cmd/draw", "-table", t, "-n", "2000000", "-workers", "4", "-alpha", "0.001", "-pb=false"); err != nil {
				return fmt.Errorf("audit %s: %w", t, err)
			}
		}
		return nil
	default:
		yellow("Unknown task: " + task)
		return fmt.Errorf("unknown task %q", task)
	}
}

func cleanTestCache() error {
	if err := passthrough("go", "clean", "-testcache"); err != nil {
		return fmt.Errorf("go clean -testcache failed: %w", err)
	}
	return nil
}

func passthrough(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// lineFilter 回傳 false 代表不輸出該行
type lineFilter func(line string) bool

// keepSummary 只留 ok / FAIL 與建置錯誤
func keepSummary(line string) bool {
	return strings.HasPrefix(line, "ok") || strings.HasPrefix(line, "FAIL") ||
		strings.Contains(line, "build failed") || strings.Contains(line, "setup failed")
}

func dropNoTestFiles(line string) bool {
	return !strings.Contains(line, "[no test files]")
}

// filtered 合併 stdout / stderr 後逐行過濾，ok 綠色、FAIL 紅色
func filtered(keep lineFilter, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}
	done := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		pw.Close()
		done <- err
	}()

	scanner := bufio.NewScanner(pr)
	for scanner.Scan() {
		line := scanner.Text()
		if !keep(line) {
			continue
		}
		switch {
		case strings.HasPrefix(line, "ok"):
			green(line)
		case strings.HasPrefix(line, "FAIL"), strings.Contains(line, "build failed"), strings.Contains(line, "setup failed"):
			red(line)
		default:
			fmt.Println(line)
		}
	}
	serr := scanner.Err()
	_, _ = io.Copy(io.Discard, pr) // scanner 中途失敗時讓子行程能寫完
	if err := <-done; err != nil {
		return fmt.Errorf("%s finished with errors: %w", strings.Join(append([]string{name}, args...), " "), err)
	}
	return serr
}
