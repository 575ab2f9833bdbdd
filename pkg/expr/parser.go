package expr

import (
	"strconv"
	"strings"

	"github.com/lemonberrylabs/eggexpr/pkg/types"
)

// MaxNesting bounds the depth of the parser's context stack.
const MaxNesting = 256

type frameKind int

const (
	frameRoot frameKind = iota
	frameGroup
	frameCall
	frameArray
	frameMapKey
	frameMapValue
	frameTernaryTrue
	frameTernaryFalse
)

var frameOpeners = map[frameKind]string{
	frameRoot:         "",
	frameGroup:        "(",
	frameCall:         "(",
	frameArray:        "[",
	frameMapKey:       "{",
	frameMapValue:     "{",
	frameTernaryTrue:  "?",
	frameTernaryFalse: ":",
}

// frame is one level of the context stack. expr is the expression built so
// far in the current slot; hole, when set, is the operator inside expr still
// waiting for its right operand.
type frame struct {
	kind  frameKind
	start int
	expr  Node
	hole  *BinaryOp
	// bare is set while expr is exactly one bare word.
	bare bool

	items   []Node
	entries []MapEntry
	key     Node

	namespace string
	name      string

	cond   Node
	ifTrue Node
	attach *BinaryOp
}

func (f *frame) complete() bool {
	return f.expr != nil && f.hole == nil
}

func (f *frame) reset() {
	f.expr = nil
	f.hole = nil
	f.bare = false
}

// pendingWord is a bare word not yet classified. Bracket segments and
// adjacent .member words are appended to it.
type pendingWord struct {
	text  string
	start int
	end   int
}

type parser struct {
	src   string
	lex   *Lexer
	buf   []Token
	stack []*frame
	word  *pendingWord
	nodes []Node
	done  bool
}

// Parse parses source into a tree. The result usually holds a single
// expression; a top-level call followed by an unbalanced '{' additionally
// yields a trailing BraceOpenMarker. Empty input yields an empty tree.
func Parse(source string) (*Tree, error) {
	p := &parser{
		src:   source,
		lex:   NewLexer(source),
		stack: []*frame{{kind: frameRoot}},
	}
	if err := p.run(); err != nil {
		return nil, err
	}
	return &Tree{Source: source, Nodes: p.nodes}, nil
}

// ParseExpression parses source and returns its single expression node.
func ParseExpression(source string) (Node, error) {
	tree, err := Parse(source)
	if err != nil {
		return nil, err
	}
	if tree.Marker() != nil {
		return nil, types.NewSyntaxError(len(source)-len(tree.Marker().Delimiter), "unexpected block brace")
	}
	if tree.Expr() == nil {
		return nil, types.NewSyntaxError(0, "empty expression")
	}
	return tree.Expr(), nil
}

func (p *parser) run() error {
	for !p.done {
		tok, err := p.next()
		if err != nil {
			return err
		}
		if err := p.step(tok); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) next() (Token, error) {
	if len(p.buf) > 0 {
		tok := p.buf[0]
		p.buf = p.buf[1:]
		return tok, nil
	}
	return p.lex.Next()
}

// peek returns the n-th upcoming token (1-based) without consuming it.
func (p *parser) peek(n int) (Token, error) {
	for len(p.buf) < n {
		tok, err := p.lex.Next()
		if err != nil {
			return Token{}, err
		}
		p.buf = append(p.buf, tok)
		if tok.Type == TokenEOF {
			break
		}
	}
	if n > len(p.buf) {
		return p.buf[len(p.buf)-1], nil
	}
	return p.buf[n-1], nil
}

func (p *parser) top() *frame {
	return p.stack[len(p.stack)-1]
}

func (p *parser) push(f *frame) error {
	if len(p.stack) >= MaxNesting {
		return types.NewSyntaxError(f.start, "expression nested too deeply")
	}
	p.stack = append(p.stack, f)
	return nil
}

func (p *parser) pop() *frame {
	f := p.top()
	p.stack = p.stack[:len(p.stack)-1]
	return f
}

func (p *parser) step(tok Token) error {
	// Tokens that may extend or consume a pending word come first.
	switch tok.Type {
	case TokenWord:
		if p.word != nil && p.word.end == tok.Start && strings.HasPrefix(tok.Value, ".") {
			p.word.text += tok.Value
			p.word.end = tok.End
			return nil
		}
		if err := p.flush(); err != nil {
			return err
		}
		if !p.top().acceptsOperand() {
			return types.NewSyntaxError(tok.Start, "missing operator before %q", tok.Value)
		}
		p.word = &pendingWord{text: tok.Value, start: tok.Start, end: tok.End}
		return nil

	case TokenLBracket:
		if p.word != nil && p.word.end == tok.Start {
			return p.captureIndex(tok)
		}

	case TokenLParen:
		if p.word != nil && p.word.end == tok.Start {
			w := p.word
			p.word = nil
			return p.openCall(w, tok)
		}

	case TokenColon:
		ok, err := p.callColon(tok)
		if err != nil || ok {
			return err
		}
	}

	if err := p.flush(); err != nil {
		return err
	}

	switch tok.Type {
	case TokenString:
		return p.deliver(&Literal{Value: types.NewString(tok.Value)}, tok.Start)
	case TokenOperator:
		return p.operator(tok)
	case TokenQuestion:
		return p.question(tok)
	case TokenColon:
		return p.colon(tok)
	case TokenComma:
		return p.comma(tok)
	case TokenLParen:
		if !p.top().acceptsOperand() {
			return types.NewSyntaxError(tok.Start, "missing operator before '('")
		}
		return p.push(&frame{kind: frameGroup, start: tok.Start})
	case TokenRParen:
		return p.closeParen(tok)
	case TokenLBracket:
		if !p.top().acceptsOperand() {
			return types.NewSyntaxError(tok.Start, "missing operator before '['")
		}
		return p.push(&frame{kind: frameArray, start: tok.Start})
	case TokenRBracket:
		return p.closeArray(tok)
	case TokenLBrace:
		if !p.top().acceptsOperand() {
			return types.NewSyntaxError(tok.Start, "missing operator before '{'")
		}
		return p.push(&frame{kind: frameMapKey, start: tok.Start})
	case TokenRBrace:
		return p.closeMap(tok)
	case TokenEOF:
		return p.finish(tok)
	}
	return types.NewSyntaxError(tok.Start, "unexpected %s", tok.Type)
}

func (f *frame) acceptsOperand() bool {
	return f.expr == nil || f.hole != nil
}

// flush materializes the pending word, if any, and delivers it.
func (p *parser) flush() error {
	if p.word == nil {
		return nil
	}
	w := p.word
	p.word = nil
	n, err := classifyWord(w.text, w.start)
	if err != nil {
		return err
	}
	if err := p.deliver(n, w.start); err != nil {
		return err
	}
	f := p.top()
	f.bare = f.expr == n
	return nil
}

// deliver places an operand into the current slot.
func (p *parser) deliver(n Node, pos int) error {
	f := p.top()
	switch {
	case f.hole != nil:
		f.hole.Right = n
		f.hole = nil
	case f.expr == nil:
		f.expr = n
	default:
		return types.NewSyntaxError(pos, "missing operator before operand")
	}
	return nil
}

func (p *parser) operator(tok Token) error {
	f := p.top()
	if f.acceptsOperand() {
		if tok.Value != "-" {
			return types.NewSyntaxError(tok.Start, "operator %q is missing its left operand", tok.Value)
		}
		neg := &BinaryOp{Op: "-", Left: &Literal{Value: types.NewInt(0)}, Grouped: true}
		if err := p.deliver(neg, tok.Start); err != nil {
			return err
		}
		f.hole = neg
		return nil
	}
	root, inserted := InsertOperator(f.expr, tok.Value, nil)
	f.expr = root
	f.hole = inserted
	f.bare = false
	return nil
}

func (p *parser) question(tok Token) error {
	f := p.top()
	if !f.complete() {
		return types.NewSyntaxError(tok.Start, "'?' without a condition")
	}
	slot := spineSlot(f.expr)
	cond := f.expr
	if slot != nil {
		cond = slot.Right
	}
	return p.push(&frame{kind: frameTernaryTrue, start: tok.Start, cond: cond, attach: slot})
}

func (p *parser) colon(tok Token) error {
	for p.top().kind == frameTernaryFalse {
		if err := p.closeTernary(); err != nil {
			return err
		}
	}
	f := p.top()
	switch f.kind {
	case frameTernaryTrue:
		if !f.complete() {
			return types.NewSyntaxError(tok.Start, "missing expression before ':'")
		}
		f.ifTrue = f.expr
		f.reset()
		f.kind = frameTernaryFalse
		return nil
	case frameMapKey:
		if !f.complete() {
			return types.NewSyntaxError(tok.Start, "missing map key before ':'")
		}
		f.key = f.expr
		if f.bare {
			f.key = mapKey(f.expr)
		}
		f.reset()
		f.kind = frameMapValue
		return nil
	}
	return types.NewSyntaxError(tok.Start, "unexpected ':' outside a ternary or map")
}

func (p *parser) comma(tok Token) error {
	if err := p.closeTernaries(); err != nil {
		return err
	}
	f := p.top()
	switch f.kind {
	case frameCall, frameArray:
		if !f.complete() {
			return types.NewSyntaxError(tok.Start, "missing expression before ','")
		}
		f.items = append(f.items, f.expr)
		f.reset()
		return nil
	case frameMapValue:
		if !f.complete() {
			return types.NewSyntaxError(tok.Start, "missing map value before ','")
		}
		f.entries = append(f.entries, MapEntry{Key: f.key, Value: f.expr})
		f.key = nil
		f.reset()
		f.kind = frameMapKey
		return nil
	case frameMapKey:
		return types.NewSyntaxError(tok.Start, "missing ':' after map key")
	}
	return types.NewSyntaxError(tok.Start, "unexpected ','")
}

func (p *parser) closeParen(tok Token) error {
	if err := p.closeTernaries(); err != nil {
		return err
	}
	f := p.top()
	switch f.kind {
	case frameGroup:
		if f.expr == nil {
			return types.NewSyntaxError(tok.Start, "empty parentheses")
		}
		if f.hole != nil {
			return types.NewSyntaxError(tok.Start, "missing operand before ')'")
		}
		if b, ok := f.expr.(*BinaryOp); ok {
			b.Grouped = true
		}
		p.pop()
		return p.deliver(f.expr, f.start)

	case frameCall:
		if f.hole != nil {
			return types.NewSyntaxError(tok.Start, "missing operand before ')'")
		}
		if f.expr != nil {
			f.items = append(f.items, f.expr)
		} else if len(f.items) > 0 {
			return types.NewSyntaxError(tok.Start, "trailing ',' in argument list")
		}
		call := &Call{Namespace: f.namespace, Name: f.name, Args: f.items}
		p.pop()
		if err := p.deliver(call, f.start); err != nil {
			return err
		}
		return p.checkBlockOpen(call)
	}
	return types.NewSyntaxError(tok.Start, "unbalanced ')'")
}

// checkBlockOpen ends parsing with a BraceOpenMarker when a top-level call is
// followed by a '{' that the rest of the source never closes.
func (p *parser) checkBlockOpen(call *Call) error {
	if len(p.stack) != 1 || p.top().expr != call {
		return nil
	}
	next, err := p.peek(1)
	if err != nil || next.Type != TokenLBrace {
		// Lexing errors past this point surface on the normal path.
		return nil
	}
	rest := p.src[next.Start:]
	if closingBrace(rest, 1) >= 0 {
		return nil
	}
	p.nodes = append(p.nodes, call, &BraceOpenMarker{Delimiter: rest})
	p.done = true
	return nil
}

func (p *parser) closeArray(tok Token) error {
	if err := p.closeTernaries(); err != nil {
		return err
	}
	f := p.top()
	if f.kind != frameArray {
		return types.NewSyntaxError(tok.Start, "unbalanced ']'")
	}
	if f.hole != nil {
		return types.NewSyntaxError(tok.Start, "missing operand before ']'")
	}
	if f.expr != nil {
		f.items = append(f.items, f.expr)
	} else if len(f.items) > 0 {
		return types.NewSyntaxError(tok.Start, "trailing ',' in array")
	}
	p.pop()
	return p.deliver(NewArray(f.items), f.start)
}

func (p *parser) closeMap(tok Token) error {
	if err := p.closeTernaries(); err != nil {
		return err
	}
	f := p.top()
	switch f.kind {
	case frameMapValue:
		if !f.complete() {
			return types.NewSyntaxError(tok.Start, "missing map value before '}'")
		}
		f.entries = append(f.entries, MapEntry{Key: f.key, Value: f.expr})
	case frameMapKey:
		if f.expr != nil {
			return types.NewSyntaxError(tok.Start, "missing ':' after map key")
		}
		if len(f.entries) > 0 {
			return types.NewSyntaxError(tok.Start, "trailing ',' in map")
		}
	default:
		return types.NewSyntaxError(tok.Start, "unbalanced '}'")
	}
	p.pop()
	return p.deliver(NewMap(f.entries), f.start)
}

func (p *parser) finish(tok Token) error {
	if err := p.closeTernaries(); err != nil {
		return err
	}
	f := p.top()
	if f.kind != frameRoot {
		return types.NewSyntaxError(f.start, "unclosed %q", frameOpeners[f.kind])
	}
	if f.hole != nil {
		return types.NewSyntaxError(tok.Start, "operator %q is missing its right operand", f.hole.Op)
	}
	if f.expr != nil {
		p.nodes = append(p.nodes, f.expr)
	}
	p.done = true
	return nil
}

// closeTernaries closes every completed ternary on top of the stack. A
// ternary still waiting for its ':' is an error.
func (p *parser) closeTernaries() error {
	for {
		switch p.top().kind {
		case frameTernaryFalse:
			if err := p.closeTernary(); err != nil {
				return err
			}
		case frameTernaryTrue:
			return types.NewSyntaxError(p.top().start, "'?' without matching ':'")
		default:
			return nil
		}
	}
}

func (p *parser) closeTernary() error {
	f := p.top()
	if !f.complete() {
		return types.NewSyntaxError(f.start, "missing expression after ':'")
	}
	t := &Ternary{Cond: f.cond, IfTrue: f.ifTrue, IfFalse: f.expr}
	p.pop()
	if f.attach != nil {
		f.attach.Right = t
		return nil
	}
	p.top().expr = t
	return nil
}

// callColon merges "ns:name" or a leading ":name" into the pending word when
// the colon is written flush against an identifier that is itself flush
// against '('.
func (p *parser) callColon(tok Token) (bool, error) {
	name, err := p.peek(1)
	if err != nil {
		return false, err
	}
	if name.Type != TokenWord || !tok.adjacent(name) || !isIdentifier(name.Value) {
		return false, nil
	}
	paren, err := p.peek(2)
	if err != nil {
		return false, err
	}
	if paren.Type != TokenLParen || !name.adjacent(paren) {
		return false, nil
	}

	switch {
	case p.word != nil && p.word.end == tok.Start && isIdentifier(p.word.text):
		p.word.text += ":" + name.Value
		p.word.end = name.End
	case p.word == nil && p.top().acceptsOperand():
		p.word = &pendingWord{text: ":" + name.Value, start: tok.Start, end: name.End}
	default:
		return false, nil
	}
	_, _ = p.next()
	return true, nil
}

func (p *parser) openCall(w *pendingWord, tok Token) error {
	ns, name := "", w.text
	if i := strings.IndexByte(w.text, ':'); i >= 0 {
		ns, name = w.text[:i], w.text[i+1:]
	}
	if !isIdentifier(name) || (ns != "" && !isIdentifier(ns)) {
		return types.NewSyntaxError(w.start, "invalid function name %q", w.text)
	}
	if !p.top().acceptsOperand() {
		return types.NewSyntaxError(w.start, "missing operator before %q", w.text)
	}
	return p.push(&frame{kind: frameCall, start: w.start, namespace: ns, name: name})
}

// captureIndex appends a balanced bracket segment to the pending word.
func (p *parser) captureIndex(open Token) error {
	depth := 1
	end := open.End
	for depth > 0 {
		tok, err := p.next()
		if err != nil {
			return err
		}
		switch tok.Type {
		case TokenLBracket:
			depth++
		case TokenRBracket:
			depth--
		case TokenEOF:
			return types.NewSyntaxError(open.Start, "unclosed '['")
		}
		end = tok.End
	}
	p.word.text += p.src[open.Start:end]
	p.word.end = end
	return nil
}

// classifyWord turns a bare word into a literal or a variable.
func classifyWord(text string, pos int) (Node, error) {
	switch text {
	case "null", "nil":
		return &Literal{Value: types.Null}, nil
	case "true":
		return &Literal{Value: types.NewBool(true)}, nil
	case "false":
		return &Literal{Value: types.NewBool(false)}, nil
	}
	if isInteger(text) {
		if i, err := strconv.ParseInt(text, 10, 64); err == nil {
			return &Literal{Value: types.NewInt(i)}, nil
		}
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, types.NewSyntaxError(pos, "invalid number %q", text)
		}
		return &Literal{Value: types.NewDouble(f)}, nil
	}
	if isDecimal(text) {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, types.NewSyntaxError(pos, "invalid number %q", text)
		}
		return &Literal{Value: types.NewDouble(f)}, nil
	}
	path, err := parsePath(text, pos)
	if err != nil {
		return nil, err
	}
	return &Variable{Path: path}, nil
}

// mapKey turns a bare-word key into its literal name.
func mapKey(n Node) Node {
	if v, ok := n.(*Variable); ok && len(v.Path.Segments) == 0 {
		return &Literal{Value: types.NewString(v.Path.Root)}
	}
	return n
}

func isInteger(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// isDecimal matches [0-9]*\.[0-9]+.
func isDecimal(s string) bool {
	dot := strings.IndexByte(s, '.')
	if dot < 0 || dot == len(s)-1 {
		return false
	}
	return (dot == 0 || isInteger(s[:dot])) && isInteger(s[dot+1:])
}

func isIdentifier(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentPart(s[i]) {
			return false
		}
	}
	return true
}
