package template

import (
	"strings"
	"testing"
)

func TestRenderNoGroups(t *testing.T) {
	t.Parallel()

	for _, tpl := range []string{"", "hello", "plain text, no groups", "a | b"} {
		if got := Render(tpl); got != tpl {
			t.Fatalf("expected passthrough for %q, got %q", tpl, got)
		}
	}
}

func TestRenderSingleGroup(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		got := Render("Hi {there|friend}")
		if got != "Hi there" && got != "Hi friend" {
			t.Fatalf("unexpected rendering: %q", got)
		}
		seen[got] = true
	}
	if len(seen) != 2 {
		t.Fatalf("expected both choices over many trials, saw %v", seen)
	}
}

func TestRenderWithDeterministic(t *testing.T) {
	t.Parallel()

	first := func(int) int { return 0 }
	last := func(n int) int { return n - 1 }

	if got := RenderWith("{a|b|c} and {x|y}", first); got != "a and x" {
		t.Fatalf("unexpected: %q", got)
	}
	if got := RenderWith("{a|b|c} and {x|y}", last); got != "c and y" {
		t.Fatalf("unexpected: %q", got)
	}
}

func TestRenderIndependentGroups(t *testing.T) {
	t.Parallel()

	calls := 0
	choose := func(n int) int {
		calls++
		return calls % n
	}
	got := RenderWith("{a|b}{a|b}{a|b}", choose)
	if calls != 3 {
		t.Fatalf("expected one choice per group, got %d calls", calls)
	}
	if len(got) != 3 {
		t.Fatalf("unexpected rendering: %q", got)
	}
}

func TestRenderMalformed(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"unmatched {open":   "unmatched {open",
		"unmatched close}":  "unmatched close}",
		"empty {} group":    "empty  group",
		"{only}":            "only",
	}
	for tpl, want := range cases {
		if got := Render(tpl); got != want {
			t.Fatalf("Render(%q) = %q, want %q", tpl, got, want)
		}
	}
}

func TestRenderNestedBraces(t *testing.T) {
	t.Parallel()

	got := RenderWith("x{a{b|c}d", func(int) int { return 0 })
	if !strings.HasPrefix(got, "x{a") {
		t.Fatalf("outer brace should pass through literally, got %q", got)
	}
	if strings.Contains(got, "|") {
		t.Fatalf("inner group should still resolve, got %q", got)
	}
}

func TestRenderConcurrent(t *testing.T) {
	t.Parallel()

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				Render("{a|b|c} {d|e}")
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
