package main

import (
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/jasoryeh/Compendium/catalog"
	"github.com/jasoryeh/Compendium/demo/tables"
	"github.com/jasoryeh/Compendium/sdk/core"
	"github.com/jasoryeh/Compendium/server"
	"github.com/jasoryeh/Compendium/server/logger"
	"github.com/jasoryeh/Compendium/server/svrcfg"
)

// 抽樣服務入口。設定來自環境變數（見 svrcfg.Env），-addr 可覆寫 COMPENDIUM_ADDR。
//
//	COMPENDIUM_TABLES=./tables COMPENDIUM_LOG_MODE=prod go run ./cmd/svr
func main() {
	sCfg, closeLog, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	err = server.Run(sCfg)
	closeLog()
	if err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*svrcfg.SvrCfg, func(), error) {
	e, err := svrcfg.ParseEnv()
	if err != nil {
		return nil, nil, err
	}
	addr := flag.String("addr", e.Addr, "listen address")
	flag.Parse()

	var src fs.FS = tables.FS
	if e.Tables != "" {
		src = os.DirFS(e.Tables)
	}
	cat, err := catalog.New(src)
	if err != nil {
		return nil, nil, err
	}
	cat.Freeze()

	mode, _ := logger.ParseMode(e.LogMode)
	log, ah := logger.NewAsync(4096, mode)

	seed := e.Seed
	if seed == 0 {
		if seed, err = core.NewSeed(); err != nil {
			return nil, nil, err
		}
	}
	sCfg := &svrcfg.SvrCfg{
		Log:     log,
		Addr:    *addr,
		Catalog: cat,
		Seeds:   core.NewSeedMaker(seed),
		MaxDraw: e.MaxDraw,
	}
	return sCfg, ah.Close, nil
}
