// Package matcher classifies visible text as an AI-summary marker using a
// locale-aware regular-expression set. The set is a union: expressions are
// tried in order but ordering never affects the verdict, only which locale
// is credited with the match.
package matcher

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/language"

	"skipai/internal/logging"
)

// Pattern is one marker expression for one locale.
type Pattern struct {
	Locale language.Tag
	expr   *regexp.Regexp
}

// Expr returns the source text of the compiled expression.
func (p Pattern) Expr() string { return p.expr.String() }

// Matcher holds the marker-phrase expression set. Zero value is unusable;
// construct with New or NewEmpty.
type Matcher struct {
	patterns []Pattern
}

// defaultMarkers is the maintained marker-phrase set, one entry per
// supported language/phrase combination. Headings are matched loosely:
// surrounding text is tolerated, case is folded where the script has case.
var defaultMarkers = []struct {
	locale string
	expr   string
}{
	{"en", `(?i)\bAI Overviews?\b`},
	{"en", `(?i)\bSearch Labs \| AI Overview\b`},
	{"de", `Übersicht mit KI`},
	{"fr", `(?i)Aperçu (généré par l'|de l')?IA`},
	{"es", `(?i)Resumen (creado )?con IA`},
	{"it", `(?i)Panoramica (dell')?IA`},
	{"pt", `(?i)Visão geral (criada )?(por|com) IA`},
	{"nl", `(?i)AI-overzicht`},
	{"pl", `(?i)Przegląd od AI`},
	{"ja", `AI による概要`},
	{"ja", `AIによる概要`},
	{"ko", `AI 개요`},
	{"zh-Hant", `AI 摘要`},
}

// New returns a matcher loaded with the default marker set.
func New() *Matcher {
	m := NewEmpty()
	for _, d := range defaultMarkers {
		// The default set is vetted; a compile failure here is a
		// programming error, not input.
		if err := m.Add(language.MustParse(d.locale), d.expr); err != nil {
			panic(fmt.Sprintf("default marker %q: %v", d.expr, err))
		}
	}
	return m
}

// NewEmpty returns a matcher with no patterns.
func NewEmpty() *Matcher {
	return &Matcher{}
}

// Add compiles expr and appends it to the set. New marker phrases are
// added here without touching any call site.
func (m *Matcher) Add(locale language.Tag, expr string) error {
	re, err := regexp.Compile(expr)
	if err != nil {
		return fmt.Errorf("compile marker expression %q: %w", expr, err)
	}
	m.patterns = append(m.patterns, Pattern{Locale: locale, expr: re})
	return nil
}

// Matches reports whether text contains an AI-summary marker phrase.
// Empty or whitespace-only text never matches.
func (m *Matcher) Matches(text string) bool {
	_, ok := m.Match(text)
	return ok
}

// Match is Matches plus the locale of the first matching expression,
// used for diagnostics and highlight labels.
func (m *Matcher) Match(text string) (language.Tag, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return language.Und, false
	}
	for _, p := range m.patterns {
		if p.expr.MatchString(trimmed) {
			logging.MatcherDebug("marker matched locale=%s text=%q", p.Locale, truncate(trimmed, 80))
			return p.Locale, true
		}
	}
	return language.Und, false
}

// Patterns returns the current expression set.
func (m *Matcher) Patterns() []Pattern {
	out := make([]Pattern, len(m.patterns))
	copy(out, m.patterns)
	return out
}

// truncate shortens s to at most n bytes on a rune boundary, so CJK
// marker text never yields an invalid UTF-8 log line.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "…"
}
