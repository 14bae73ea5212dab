// Package tokenizer splits documents into the token inputs of a thought.
package tokenizer

import (
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Token is one word of a document. Begin and End are rune offsets into the
// NFC-normalized text, End exclusive.
type Token struct {
	Text     string
	Norm     string
	Position int
	Begin    int
	End      int
}

// Tokenizer splits on every rune that is not a letter, digit or mark.
type Tokenizer struct {
	fold    cases.Caser
	minRune int
}

// Option configures a Tokenizer.
type Option func(*Tokenizer)

// WithMinLength drops tokens shorter than n runes.
func WithMinLength(n int) Option {
	return func(t *Tokenizer) { t.minRune = n }
}

// New returns a case-folding tokenizer.
func New(opts ...Option) *Tokenizer {
	t := &Tokenizer{fold: cases.Fold(), minRune: 1}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Tokenize returns the tokens of text in document order with consecutive
// positions starting at zero.
func (t *Tokenizer) Tokenize(text string) []Token {
	runes := []rune(norm.NFC.String(text))

	var out []Token
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		if end-start >= t.minRune {
			word := string(runes[start:end])
			out = append(out, Token{
				Text:     word,
				Norm:     t.fold.String(word),
				Position: len(out),
				Begin:    start,
				End:      end,
			})
		}
		start = -1
	}
	for i, r := range runes {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(runes))
	return out
}

// Norms returns the normalized form of every token.
func Norms(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Norm
	}
	return out
}
