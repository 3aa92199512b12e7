// Package normalize canonicalizes Devanagari (Marathi) text scanned via OCR
// so that index-time and query-time forms are bit-for-bit comparable.
package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Stage is an optional script-specific normalization step. A nil Stage is
// skipped; a Stage returning an error leaves the text unchanged at that step.
type Stage interface {
	Apply(text string) (string, error)
}

// StageFunc adapts a function to the Stage interface.
type StageFunc func(text string) (string, error)

func (f StageFunc) Apply(text string) (string, error) { return f(text) }

// canonicalComposition reorders and composes combining marks (vowel signs,
// anusvara) into their canonical form. This is the default script stage.
var canonicalComposition = StageFunc(func(text string) (string, error) {
	return norm.NFC.String(text), nil
})

// confusableReplacer collapses rarely-used nukta consonants that OCR engines
// produce for their plain base forms.
var confusableReplacer = strings.NewReplacer(
	"ऩ", "न", // ऩ -> न
	"ऱ", "र", // ऱ -> र
	"ऴ", "ळ", // ऴ -> ळ
)

var (
	whitespaceRegexp = regexp.MustCompile(`\s+`)
	devanagariRegexp = regexp.MustCompile(`[\x{0900}-\x{097F}]`)
)

type Normalizer struct {
	scriptStage Stage
}

type Option func(*Normalizer)

// WithScriptStage replaces the default script-specific normalization stage.
// Passing nil disables the stage entirely.
func WithScriptStage(stage Stage) Option {
	return func(n *Normalizer) {
		n.scriptStage = stage
	}
}

func New(opts ...Option) *Normalizer {
	n := &Normalizer{scriptStage: canonicalComposition}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize applies the full pipeline: NFKC, OCR confusable substitution, the
// script stage and whitespace collapse. It never fails; a failing sub-step
// passes text through unchanged.
func (n *Normalizer) Normalize(text string) string {
	if text == "" {
		return text
	}

	text = norm.NFKC.String(text)

	text = confusableReplacer.Replace(text)

	if n.scriptStage != nil {
		if staged, err := n.scriptStage.Apply(text); err == nil {
			text = staged
		}
	}

	return strings.TrimSpace(whitespaceRegexp.ReplaceAllString(text, " "))
}

// IndexForms returns the three index-time surface forms of text: the raw
// input, the normalized form and the case-folded normalized form. Each form
// feeds its own index field, so nothing is deduplicated here.
func (n *Normalizer) IndexForms(text string) (raw, normalized, folded string) {
	normalized = n.Normalize(text)
	return text, normalized, strings.ToLower(normalized)
}

// Variants returns the surface forms of IndexForms in priority order, with
// empty strings and duplicates removed. The first element is always present
// for non-empty input. Indexing every variant lets an OCR-garbled query form
// still match.
func (n *Normalizer) Variants(text string) []string {
	raw, normalized, folded := n.IndexForms(text)

	var variants []string
	for _, form := range []string{raw, normalized, folded} {
		if form != "" && !contains(variants, form) {
			variants = append(variants, form)
		}
	}

	return variants
}

// IsDevanagari reports whether text contains at least one Devanagari codepoint.
func (n *Normalizer) IsDevanagari(text string) bool {
	return devanagariRegexp.MatchString(text)
}

// ExtractDevanagari keeps only Devanagari codepoints, whitespace and basic
// punctuation (including danda marks).
func (n *Normalizer) ExtractDevanagari(text string) string {
	var b strings.Builder
	for _, r := range text {
		if (r >= 0x0900 && r <= 0x097F) || strings.ContainsRune(" \t\n।॥,.!?", r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
