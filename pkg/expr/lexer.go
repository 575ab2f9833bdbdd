package expr

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lemonberrylabs/eggexpr/pkg/types"
)

// operators lists operator spellings, longest first so the scan is greedy.
var operators = []string{
	"===", "!=~",
	"==", "!=", "=~", "<=", ">=", "<<", ">>", "&&", "||",
	"<", ">", "+", "-", "*", "/", "%", "&", "|", "^", "=",
}

// Lexer tokenizes an expression string. It has no semantic knowledge: numbers,
// keywords and variable paths are all bare words.
type Lexer struct {
	input string
	pos   int
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Tokenize scans the entire input and returns all tokens, ending with EOF.
func Tokenize(input string) ([]Token, error) {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens, nil
		}
	}
}

// Pos returns the offset of the next unread byte.
func (l *Lexer) Pos() int {
	return l.pos
}

// Next returns the next token from the input.
func (l *Lexer) Next() (Token, error) {
	l.skipWhitespace()

	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Start: l.pos, End: l.pos}, nil
	}

	ch := l.input[l.pos]
	switch ch {
	case '"', '\'':
		return l.readString(ch)
	case ',':
		return l.single(TokenComma), nil
	case ':':
		return l.single(TokenColon), nil
	case '?':
		return l.single(TokenQuestion), nil
	case '(':
		return l.single(TokenLParen), nil
	case ')':
		return l.single(TokenRParen), nil
	case '[':
		return l.single(TokenLBracket), nil
	case ']':
		return l.single(TokenRBracket), nil
	case '{':
		return l.single(TokenLBrace), nil
	case '}':
		return l.single(TokenRBrace), nil
	}

	if op := l.matchOperator(); op != "" {
		start := l.pos
		l.pos += len(op)
		return Token{Type: TokenOperator, Value: op, Start: start, End: l.pos}, nil
	}

	return l.readWord(), nil
}

func (l *Lexer) single(typ TokenType) Token {
	start := l.pos
	l.pos++
	return Token{Type: typ, Value: l.input[start:l.pos], Start: start, End: l.pos}
}

func (l *Lexer) matchOperator() string {
	rest := l.input[l.pos:]
	for _, op := range operators {
		if strings.HasPrefix(rest, op) {
			return op
		}
	}
	return ""
}

// readString reads a quoted string. A backslash makes the next character
// literal, whatever it is.
func (l *Lexer) readString(quote byte) (Token, error) {
	start := l.pos
	l.pos++

	var sb strings.Builder
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == '\\' && l.pos+1 < len(l.input) {
			_, size := utf8.DecodeRuneInString(l.input[l.pos+1:])
			sb.WriteString(l.input[l.pos+1 : l.pos+1+size])
			l.pos += 1 + size
			continue
		}
		if ch == quote {
			l.pos++
			return Token{Type: TokenString, Value: sb.String(), Start: start, End: l.pos}, nil
		}
		sb.WriteByte(ch)
		l.pos++
	}

	return Token{}, types.NewSyntaxError(start, "unterminated string")
}

// readWord reads a run of non-delimiter characters. A backslash outside a
// string escapes the following character into the word.
func (l *Lexer) readWord() Token {
	start := l.pos
	var sb strings.Builder
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == '\\' {
			if l.pos+1 >= len(l.input) {
				l.pos++
				break
			}
			_, size := utf8.DecodeRuneInString(l.input[l.pos+1:])
			sb.WriteString(l.input[l.pos+1 : l.pos+1+size])
			l.pos += 1 + size
			continue
		}
		if isDelimiter(ch) || l.matchOperator() != "" {
			break
		}
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		if unicode.IsSpace(r) {
			break
		}
		sb.WriteString(l.input[l.pos : l.pos+size])
		l.pos += size
	}
	return Token{Type: TokenWord, Value: sb.String(), Start: start, End: l.pos}
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		l.pos += size
	}
}

func isDelimiter(ch byte) bool {
	switch ch {
	case '"', '\'', ',', ':', '?', '(', ')', '[', ']', '{', '}':
		return true
	}
	return false
}

func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || (ch >= '0' && ch <= '9')
}
