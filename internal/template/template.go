// Package template expands alternation groups in outbound message bodies.
//
// A template may contain any number of non-nested groups of the form
// {a|b|c}; each group is replaced by one of its choices picked uniformly
// at random, independently per group and per call. Malformed input is
// rendered best-effort and never fails.
package template

import (
	"math/rand/v2"
	"strings"
)

// ChoiceFunc picks an index in [0, n). It is injected so tests can render
// deterministically; n is always >= 1.
type ChoiceFunc func(n int) int

// Render expands template using the default random source.
func Render(template string) string {
	return RenderWith(template, rand.IntN)
}

// RenderWith expands template using choose to select among group choices.
//
// Unmatched braces pass through literally. A group with no choices at all
// ("{}") renders as the empty string.
func RenderWith(template string, choose ChoiceFunc) string {
	if !strings.ContainsRune(template, '{') {
		return template
	}
	if choose == nil {
		choose = rand.IntN
	}

	var b strings.Builder
	b.Grow(len(template))
	rest := template
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			return b.String()
		}
		closing := strings.IndexByte(rest[open:], '}')
		if closing < 0 {
			b.WriteString(rest)
			return b.String()
		}
		closing += open

		// A nested opening brace means this '{' does not delimit a
		// group; emit it literally and keep scanning from the inner one.
		inner := strings.IndexByte(rest[open+1:closing], '{')
		if inner >= 0 {
			b.WriteString(rest[:open+1+inner])
			rest = rest[open+1+inner:]
			continue
		}

		b.WriteString(rest[:open])
		body := rest[open+1 : closing]
		if body != "" {
			choices := strings.Split(body, "|")
			b.WriteString(choices[choose(len(choices))])
		}
		rest = rest[closing+1:]
	}
}
