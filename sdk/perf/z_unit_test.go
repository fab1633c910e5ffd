package perf

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestRunWritesProfiles(t *testing.T) {
	dir := t.TempDir()
	for _, mode := range []string{"heap", "allocs", "cpu"} {
		called := false
		err := Run(dir, mode, func() error {
			called = true
			s := make([]int, 0)
			for i := range 10_000 {
				s = append(s, i)
			}
			_ = s
			return nil
		})
		if err != nil {
			t.Fatalf("%s: %v", mode, err)
		}
		if !called {
			t.Fatalf("%s: exe not called", mode)
		}
		st, err := os.Stat(filepath.Join(dir, mode+".pprof"))
		if err != nil || st.Size() == 0 {
			t.Fatalf("%s: profile missing or empty: %v", mode, err)
		}
	}
}

func TestRunPlainAndErrors(t *testing.T) {
	boom := errors.New("boom")
	if err := Run("", "", func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if err := Run(t.TempDir(), "heap", func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("heap err = %v", err)
	}
	if err := Run(t.TempDir(), "trace", func() error { return nil }); err == nil {
		t.Fatal("unknown mode should fail")
	}
}
