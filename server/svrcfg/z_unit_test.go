package svrcfg

import (
	"os"
	"testing"
	"testing/fstest"

	"github.com/jasoryeh/Compendium/catalog"
)

func TestParseEnvDefaults(t *testing.T) {
	for _, k := range []string{"COMPENDIUM_ADDR", "COMPENDIUM_LOG_MODE", "COMPENDIUM_TABLES", "COMPENDIUM_SEED", "COMPENDIUM_MAX_DRAW"} {
		t.Setenv(k, "") // 測試結束後還原
		os.Unsetenv(k)
	}
	e, err := ParseEnv()
	if err != nil {
		t.Fatal(err)
	}
	if e.Addr != ":5808" || e.LogMode != "dev" || e.MaxDraw != DefaultMaxDraw || e.Seed != 0 || e.Tables != "" {
		t.Fatalf("unexpected defaults: %+v", e)
	}
}

func TestParseEnvOverrides(t *testing.T) {
	t.Setenv("COMPENDIUM_ADDR", ":9000")
	t.Setenv("COMPENDIUM_LOG_MODE", "prod")
	t.Setenv("COMPENDIUM_TABLES", "/etc/compendium")
	t.Setenv("COMPENDIUM_SEED", "42")
	t.Setenv("COMPENDIUM_MAX_DRAW", "500")
	e, err := ParseEnv()
	if err != nil {
		t.Fatal(err)
	}
	if e.Addr != ":9000" || e.LogMode != "prod" || e.Tables != "/etc/compendium" || e.Seed != 42 || e.MaxDraw != 500 {
		t.Fatalf("unexpected env: %+v", e)
	}
}

func TestParseEnvErrors(t *testing.T) {
	t.Setenv("COMPENDIUM_LOG_MODE", "loud")
	if _, err := ParseEnv(); err == nil {
		t.Fatal("unknown log mode should fail")
	}
	t.Setenv("COMPENDIUM_LOG_MODE", "dev")
	t.Setenv("COMPENDIUM_SEED", "not-a-number")
	if _, err := ParseEnv(); err == nil {
		t.Fatal("bad seed should fail")
	}
}

func TestVaild(t *testing.T) {
	if err := (&SvrCfg{}).Vaild(); err == nil {
		t.Fatal("missing catalog should fail")
	}
	cat, err := catalog.New(fstest.MapFS{"coin.yaml": {Data: []byte("items:\n  - {item: heads, weight: 1}\n")}})
	if err != nil {
		t.Fatal(err)
	}

	sc := &SvrCfg{Catalog: cat}
	if err := sc.Vaild(); err != nil {
		t.Fatal(err)
	}
	if sc.Log == nil || sc.Seeds == nil || sc.MaxDraw != DefaultMaxDraw {
		t.Fatalf("defaults not filled: %+v", sc)
	}

	sc = &SvrCfg{Catalog: cat, MaxDraw: MaxDrawLimit * 2}
	if err := sc.Vaild(); err != nil {
		t.Fatal(err)
	}
	if sc.MaxDraw != MaxDrawLimit {
		t.Fatalf("MaxDraw = %d, want %d", sc.MaxDraw, MaxDrawLimit)
	}
}
