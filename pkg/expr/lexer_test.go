package expr

import (
	"testing"

	"github.com/lemonberrylabs/eggexpr/pkg/types"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		input string
		want  []Token
	}{
		{
			input: `a.b + 'c\'d' == 1.5`,
			want: []Token{
				{Type: TokenWord, Value: "a.b"},
				{Type: TokenOperator, Value: "+"},
				{Type: TokenString, Value: "c'd"},
				{Type: TokenOperator, Value: "=="},
				{Type: TokenWord, Value: "1.5"},
			},
		},
		{
			input: `x===y`,
			want: []Token{
				{Type: TokenWord, Value: "x"},
				{Type: TokenOperator, Value: "==="},
				{Type: TokenWord, Value: "y"},
			},
		},
		{
			input: `a!=~b`,
			want: []Token{
				{Type: TokenWord, Value: "a"},
				{Type: TokenOperator, Value: "!=~"},
				{Type: TokenWord, Value: "b"},
			},
		},
		{
			input: `foo\+bar`,
			want: []Token{
				{Type: TokenWord, Value: "foo+bar"},
			},
		},
		{
			input: `ns:fn(1, "two")`,
			want: []Token{
				{Type: TokenWord, Value: "ns"},
				{Type: TokenColon, Value: ":"},
				{Type: TokenWord, Value: "fn"},
				{Type: TokenLParen, Value: "("},
				{Type: TokenWord, Value: "1"},
				{Type: TokenComma, Value: ","},
				{Type: TokenString, Value: "two"},
				{Type: TokenRParen, Value: ")"},
			},
		},
		{
			input: `{k: [1]} ? a<<2 : b>=3`,
			want: []Token{
				{Type: TokenLBrace, Value: "{"},
				{Type: TokenWord, Value: "k"},
				{Type: TokenColon, Value: ":"},
				{Type: TokenLBracket, Value: "["},
				{Type: TokenWord, Value: "1"},
				{Type: TokenRBracket, Value: "]"},
				{Type: TokenRBrace, Value: "}"},
				{Type: TokenQuestion, Value: "?"},
				{Type: TokenWord, Value: "a"},
				{Type: TokenOperator, Value: "<<"},
				{Type: TokenWord, Value: "2"},
				{Type: TokenColon, Value: ":"},
				{Type: TokenWord, Value: "b"},
				{Type: TokenOperator, Value: ">="},
				{Type: TokenWord, Value: "3"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tokens, err := Tokenize(tt.input)
			if err != nil {
				t.Fatalf("tokenize error: %v", err)
			}
			if got := tokens[len(tokens)-1].Type; got != TokenEOF {
				t.Fatalf("last token = %s, want EOF", got)
			}
			tokens = tokens[:len(tokens)-1]
			if len(tokens) != len(tt.want) {
				t.Fatalf("got %d tokens %v, want %d", len(tokens), tokens, len(tt.want))
			}
			for i, want := range tt.want {
				if tokens[i].Type != want.Type || tokens[i].Value != want.Value {
					t.Errorf("token %d = %s %q, want %s %q", i, tokens[i].Type, tokens[i].Value, want.Type, want.Value)
				}
			}
		})
	}
}

func TestTokenOffsets(t *testing.T) {
	tokens, err := Tokenize("ab  + 'x'")
	if err != nil {
		t.Fatal(err)
	}
	want := [][2]int{{0, 2}, {4, 5}, {6, 9}, {9, 9}}
	for i, w := range want {
		if tokens[i].Start != w[0] || tokens[i].End != w[1] {
			t.Errorf("token %d offsets = [%d,%d), want [%d,%d)", i, tokens[i].Start, tokens[i].End, w[0], w[1])
		}
	}
	if tokens[0].adjacent(tokens[1]) {
		t.Error("tokens separated by spaces reported adjacent")
	}
}

func TestUnterminatedString(t *testing.T) {
	for _, input := range []string{`'abc`, `"abc\"`, `1 + "`} {
		_, err := Tokenize(input)
		exprErr, ok := err.(*types.ExprError)
		if !ok || !exprErr.HasTag(types.TagSyntaxError) {
			t.Errorf("Tokenize(%q) error = %v, want SyntaxError", input, err)
		}
	}
}
