// Copyright 2026 The fml Authors
// SPDX-License-Identifier: MIT

package lexer

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func scanAll(t *testing.T, src string) ([]Token, error) {
	t.Helper()
	sc := NewScanner(strings.NewReader(src))
	var toks []Token
	for {
		tok, err := sc.Scan()
		if err != nil {
			return toks, err
		}
		toks = append(toks, tok)
		if tok.Kind == ErrorToken {
			return toks, nil
		}
	}
}

func TestScanKeywordsAndNames(t *testing.T) {
	toks, err := scanAll(t, "local x = 1")
	if err != nil {
		t.Fatal(err)
	}
	want := []TokenKind{LocalToken, IdentifierToken, AssignToken, NumeralToken}
	for i, k := range want {
		if i >= len(toks) {
			t.Fatalf("got %d tokens, want at least %d", len(toks), len(want))
		}
		if toks[i].Kind != k {
			t.Errorf("token %d = %v, want %v", i, toks[i].Kind, k)
		}
	}
}

func TestScanShebang(t *testing.T) {
	sc := NewScanner(strings.NewReader("#!/usr/bin/env lua\nreturn 1"))
	tok, err := sc.Scan()
	if err != nil {
		t.Fatal(err)
	}
	if tok.Kind != ShebangToken {
		t.Fatalf("first token kind = %v, want ShebangToken", tok.Kind)
	}
	if tok.Value != "#!/usr/bin/env lua" {
		t.Errorf("shebang value = %q", tok.Value)
	}
	tok, err = sc.Scan()
	if err != nil {
		t.Fatal(err)
	}
	if tok.Kind != ReturnToken {
		t.Errorf("second token kind = %v, want ReturnToken", tok.Kind)
	}
}

func TestScanStringEscapes(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`"abc\n"`, "abc\n"},
		{`'a\65b'`, "aAb"},
		{`"\x41"`, "A"},
		{`"\u{48}"`, "H"},
		{"[[hello]]", "hello"},
		{"[[\nhello]]", "hello"},
	}
	for _, test := range tests {
		toks, err := scanAll(t, test.src)
		if err != nil {
			t.Errorf("%s: %v", test.src, err)
			continue
		}
		if len(toks) == 0 || toks[0].Kind != StringToken {
			t.Errorf("%s: did not scan a string token", test.src)
			continue
		}
		if toks[0].Value != test.want {
			t.Errorf("%s: value = %q, want %q", test.src, toks[0].Value, test.want)
		}
	}
}

func TestDecimalEscapeTooLarge(t *testing.T) {
	_, err := scanAll(t, `"\256"`)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "decimal escape too large near '\\256'") {
		t.Errorf("error = %v, want message containing decimal escape too large near '\\256'", err)
	}
}

func TestBadCharacter(t *testing.T) {
	_, err := scanAll(t, "!")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "Bad character '!'") {
		t.Errorf("error = %v, want Bad character '!'", err)
	}
}

var tokenDiffOptions = cmp.Options{
	cmpopts.IgnoreFields(Token{}, "Position"),
}

func TestQuoteUnquote(t *testing.T) {
	for _, s := range []string{"", "abc", "a\nb", "a\"b"} {
		q := Quote(s)
		got, err := Unquote(q)
		if err != nil {
			t.Errorf("Unquote(Quote(%q)) error: %v", s, err)
			continue
		}
		if got != s {
			t.Errorf("Unquote(Quote(%q)) = %q", s, got)
		}
	}
}

func TestTokenKindString(t *testing.T) {
	if got, want := AndToken.String(), "and"; got != want {
		t.Errorf("AndToken.String() = %q, want %q", got, want)
	}
	if got, want := VarargToken.String(), "..."; got != want {
		t.Errorf("VarargToken.String() = %q, want %q", got, want)
	}
}

func tokensEqual(a, b []Token) bool {
	return cmp.Equal(a, b, tokenDiffOptions)
}
