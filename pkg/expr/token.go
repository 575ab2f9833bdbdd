// Package expr implements the expression language: lexer, parser, constant
// folder, evaluator and variable path resolver.
//
// Expressions cover arithmetic, comparison, logical and ternary operators,
// namespaced function calls, array and map literals and dotted or bracketed
// variable paths. A source string is parsed into a Tree once and may then be
// evaluated many times against different scopes.
package expr

import "fmt"

// TokenType represents the type of a lexical token.
type TokenType int

const (
	TokenWord     TokenType = iota // bare word or number candidate
	TokenString                    // quoted string
	TokenOperator                  // binary operator
	TokenComma                     // ,
	TokenColon                     // :
	TokenQuestion                  // ?

	TokenLParen   // (
	TokenRParen   // )
	TokenLBracket // [
	TokenRBracket // ]
	TokenLBrace   // {
	TokenRBrace   // }

	TokenEOF // end of input
)

// String returns a human-readable name for the token type.
func (t TokenType) String() string {
	switch t {
	case TokenWord:
		return "WORD"
	case TokenString:
		return "STRING"
	case TokenOperator:
		return "OPERATOR"
	case TokenComma:
		return ","
	case TokenColon:
		return ":"
	case TokenQuestion:
		return "?"
	case TokenLParen:
		return "("
	case TokenRParen:
		return ")"
	case TokenLBracket:
		return "["
	case TokenRBracket:
		return "]"
	case TokenLBrace:
		return "{"
	case TokenRBrace:
		return "}"
	case TokenEOF:
		return "EOF"
	default:
		return fmt.Sprintf("Token(%d)", int(t))
	}
}

// Token is a single lexical token. Value is the unescaped text for words and
// strings and the operator spelling for operators. Start and End are byte
// offsets into the source; End is exclusive.
type Token struct {
	Type  TokenType
	Value string
	Start int
	End   int
}

func (t Token) String() string {
	switch t.Type {
	case TokenWord, TokenString, TokenOperator:
		return fmt.Sprintf("%s(%q)@%d", t.Type, t.Value, t.Start)
	default:
		return fmt.Sprintf("%s@%d", t.Type, t.Start)
	}
}

// adjacent reports whether next starts exactly where t ends.
func (t Token) adjacent(next Token) bool {
	return t.End == next.Start
}
