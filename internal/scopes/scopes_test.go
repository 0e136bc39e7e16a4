package scopes

import "testing"

func TestParseRoundTrip(t *testing.T) {
	cases := []string{"st2138:mon", "st2138:op:w", "st2138:adm:w", "st2138:cfg"}
	for _, c := range cases {
		s, ok := Parse(c)
		if !ok {
			t.Fatalf("Parse(%q) failed", c)
		}
		if got := s.String(); got != c {
			t.Errorf("round-trip mismatch: %q -> %q", c, got)
		}
	}
}

func TestWriteImpliesReadForm(t *testing.T) {
	s, ok := Parse("st2138:op:w")
	if !ok {
		t.Fatal("parse failed")
	}
	if s.ReadForm() != "st2138:op" {
		t.Errorf("ReadForm() = %q, want st2138:op", s.ReadForm())
	}
}

func TestParseRejectsBadGrammar(t *testing.T) {
	bad := []string{"st2138", "st2138:bogus", "st2138:op:x", "st2138:op:w:extra"}
	for _, c := range bad {
		if _, ok := Parse(c); ok {
			t.Errorf("Parse(%q) should have failed", c)
		}
	}
}
