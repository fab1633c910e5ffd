package main

import (
	"fmt"
	"os"

	"github.com/jasoryeh/Compendium/sdk/perf"
)

// 抽樣 / 稽核 CLI
//
//	go run ./cmd/draw -list
//	go run ./cmd/draw -table loot -n 1000000 -workers 4 -engine alias
//	go run ./cmd/draw -tables ./tables -table rarity -format yaml -p cpu
func main() {
	bindVar()
	code := 0
	if err := perf.Run(perf.DefaultDir, cfg.pprofmode, execute); err != nil {
		fmt.Fprintln(os.Stderr, err)
		code = 1
	}
	os.Exit(max(code, exitCode))
}
