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

package errs

import (
	"errors"
	"io"
	"testing"
)

func TestWrapKeepsSentinel(t *testing.T) {
	base := NewWarn("item not found")
	err := WrapWithExtra(base, "sampler.Likelihood", "gold")

	if !errors.Is(err, base) {
		t.Fatalf("expected errors.Is to match sentinel")
	}
	if got, want := err.Error(), "sampler.Likelihood: item not found | extra: gold"; got != want {
		t.Fatalf("unexpected message:\n got  %q\n want %q", got, want)
	}
	if Level(err) != Warn {
		t.Fatalf("expected warn level, got %v", Level(err))
	}
}

func TestWrapForeignErrorIsFatal(t *testing.T) {
	err := Wrap(io.ErrUnexpectedEOF, "catalog.Parse")
	if Level(err) != Fatal {
		t.Fatalf("expected fatal level for foreign cause, got %v", Level(err))
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected cause to be reachable")
	}
	if got, want := err.Error(), "catalog.Parse: failed: unexpected EOF"; got != want {
		t.Fatalf("unexpected message:\n got  %q\n want %q", got, want)
	}
}

func TestWrapNested(t *testing.T) {
	base := NewWarn("invalid weight")
	inner := WrapWithExtra(base, "sampler.Set", "-1")
	outer := Wrap(inner, "catalog.Table")

	if !errors.Is(outer, base) {
		t.Fatalf("expected sentinel through two layers")
	}
	if Level(outer) != Warn {
		t.Fatalf("expected level to propagate, got %v", Level(outer))
	}
	e, ok := AsErr(outer)
	if !ok || e.Op != "catalog.Table" {
		t.Fatalf("expected outermost *E, got %#v", e)
	}
}

func TestLevelNil(t *testing.T) {
	if Level(nil) != None {
		t.Fatalf("nil error should be None")
	}
	if _, ok := AsErr(io.EOF); ok {
		t.Fatalf("io.EOF is not *E")
	}
	if Fatal.String() != "fatal" || ErrLevel(99).String() != "" {
		t.Fatalf("unexpected level strings")
	}
}
