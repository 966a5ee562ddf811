package interp

import (
	"errors"
	"testing"
)

func TestExpandRequiredFound(t *testing.T) {
	table := NewTable(map[string]string{"Prefix": "/usr/local"}, nil)
	got, err := Expand("configure --prefix=@(prefix)", table)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "configure --prefix=/usr/local" {
		t.Fatalf("got %q", got)
	}
}

func TestExpandRequiredMissingFails(t *testing.T) {
	table := NewTable(nil, nil)
	if _, err := Expand("@(missing)", table); !errors.Is(err, ErrUnknownEmbed) {
		t.Fatalf("expected ErrUnknownEmbed, got %v", err)
	}
}

func TestExpandOptionalMissingDeletesToken(t *testing.T) {
	table := NewTable(nil, nil)
	got, err := Expand("a@(missing?)b", table)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ab" {
		t.Fatalf("got %q", got)
	}
}

func TestExpandOptionalFoundKeepsValueDropsQuestionMark(t *testing.T) {
	table := NewTable(map[string]string{"name": "zlib"}, nil)
	got, err := Expand("@(name?)", table)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "zlib" {
		t.Fatalf("got %q", got)
	}
}

func TestExpandUnterminatedTokenFails(t *testing.T) {
	if _, err := Expand("a @(unterminated", NewTable(nil, nil)); !errors.Is(err, ErrUnterminatedToken) {
		t.Fatalf("expected ErrUnterminatedToken, got %v", err)
	}
}

func TestExpandReservedWinsOverUser(t *testing.T) {
	table := NewTable(map[string]string{"thread_count": "8"}, map[string]string{"thread_count": "1"})
	got, err := Expand("@(thread_count)", table)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "8" {
		t.Fatalf("got %q, want reserved value to win", got)
	}
}

func TestExpandNoTokensIsIdentity(t *testing.T) {
	got, err := Expand("plain text, no tokens here", NewTable(nil, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "plain text, no tokens here" {
		t.Fatalf("got %q", got)
	}
}

func TestFilterUserVariablesDropsReservedNames(t *testing.T) {
	out := FilterUserVariables(nil, map[string]string{
		"PREFIX":  "/opt",
		"CFLAGS":  "-O2",
		"install": "x",
	})
	if _, ok := out["PREFIX"]; ok {
		t.Fatalf("expected reserved name PREFIX to be dropped")
	}
	if v, ok := out["CFLAGS"]; !ok || v != "-O2" {
		t.Fatalf("expected CFLAGS to survive, got %+v", out)
	}
	if _, ok := out["install"]; !ok {
		t.Fatalf("expected non-reserved 'install' to survive")
	}
}
