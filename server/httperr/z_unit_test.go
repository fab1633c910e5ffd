package httperr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jasoryeh/Compendium/catalog"
	"github.com/jasoryeh/Compendium/errs"
	"github.com/jasoryeh/Compendium/sdk/sampler"
)

func TestStatusCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{errs.Wrap(context.DeadlineExceeded, "draw"), http.StatusGatewayTimeout},
		{fmt.Errorf("x: %w", context.Canceled), http.StatusRequestTimeout},
		{errs.WrapWithExtra(catalog.ErrTableNotFound, "v1.table", "loot"), http.StatusNotFound},
		{errs.Wrap(sampler.ErrItemNotFound, "sampler.Likelihood"), http.StatusNotFound},
		{errs.Wrap(sampler.ErrEmptyDistribution, "sampler.Next"), http.StatusConflict},
		{errs.Wrap(sampler.ErrDegenerateDistribution, "sampler.Next"), http.StatusConflict},
		{errs.Wrap(sampler.ErrInvalidWeight, "sampler.Set"), http.StatusBadRequest},
		{errs.NewWarn("bad count"), http.StatusBadRequest},
		{errs.NewFatal("broken"), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := StatusCode(c.err); got != c.want {
			t.Fatalf("StatusCode(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestErrs(t *testing.T) {
	rec := httptest.NewRecorder()
	Errs(rec, errs.Wrap(sampler.ErrEmptyDistribution, "sampler.Next"))
	if rec.Code != http.StatusConflict || !strings.Contains(rec.Body.String(), "empty") {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	Errs(rec, nil)
	if rec.Body.Len() != 0 {
		t.Fatal("nil error should write nothing")
	}
}

func TestLogLevels(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	Log(log, "draw failed", errs.NewWarn("bad count")) // 400 不記錄
	if buf.Len() != 0 {
		t.Fatalf("400 should not be logged: %q", buf.String())
	}
	Log(log, "draw failed", errs.Wrap(sampler.ErrDegenerateDistribution, "sampler.Next"))
	if !strings.Contains(buf.String(), "level=WARN") {
		t.Fatalf("409 should log WARN: %q", buf.String())
	}
	buf.Reset()
	Log(log, "draw failed", errs.NewFatal("broken"))
	if !strings.Contains(buf.String(), "level=ERROR") {
		t.Fatalf("500 should log ERROR: %q", buf.String())
	}
}
