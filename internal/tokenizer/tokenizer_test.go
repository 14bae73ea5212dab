package tokenizer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []Token
	}{
		{"empty", "", nil},
		{"only punctuation", " ,.;! ", nil},
		{
			name: "simple",
			text: "a b c",
			want: []Token{
				{Text: "a", Norm: "a", Position: 0, Begin: 0, End: 1},
				{Text: "b", Norm: "b", Position: 1, Begin: 2, End: 3},
				{Text: "c", Norm: "c", Position: 2, Begin: 4, End: 5},
			},
		},
		{
			name: "case fold and punctuation",
			text: "Hello, World!",
			want: []Token{
				{Text: "Hello", Norm: "hello", Position: 0, Begin: 0, End: 5},
				{Text: "World", Norm: "world", Position: 1, Begin: 7, End: 12},
			},
		},
		{
			name: "rune offsets",
			text: "über STRASSE 42",
			want: []Token{
				{Text: "über", Norm: "über", Position: 0, Begin: 0, End: 4},
				{Text: "STRASSE", Norm: "strasse", Position: 1, Begin: 5, End: 12},
				{Text: "42", Norm: "42", Position: 2, Begin: 13, End: 15},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New().Tokenize(tt.text)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Tokenize(%q) mismatch (-want +got):\n%s", tt.text, diff)
			}
		})
	}
}

func TestTokenize_NFC(t *testing.T) {
	// "e" followed by a combining acute accent composes into one rune.
	got := New().Tokenize("cafe\u0301")
	if assert.Len(t, got, 1) {
		assert.Equal(t, "caf\u00e9", got[0].Text)
		assert.Equal(t, 4, got[0].End)
	}
}

func TestTokenize_MinLength(t *testing.T) {
	got := New(WithMinLength(2)).Tokenize("a bb c dd")
	assert.Equal(t, []string{"bb", "dd"}, Norms(got))
	assert.Equal(t, 0, got[0].Position)
	assert.Equal(t, 1, got[1].Position)
}
