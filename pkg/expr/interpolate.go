package expr

import (
	"strings"

	"github.com/lemonberrylabs/eggexpr/pkg/types"
)

// Template is text with embedded ${expr} sections.
type Template struct {
	Source string
	parts  []templatePart
}

type templatePart struct {
	text string
	expr string
	tree *Tree
	err  error
}

// ParseFunc parses one embedded expression. Engines pass their cached parse.
type ParseFunc func(source string) (*Tree, error)

// ParseTemplate splits text into literal runs and ${expr} sections and parses
// each section with parse (Parse if nil). A section that fails to parse is
// kept and reports its error when rendered. Only an unclosed "${" fails the
// whole template.
func ParseTemplate(text string, parse ParseFunc) (*Template, error) {
	if parse == nil {
		parse = Parse
	}
	tpl := &Template{Source: text}
	var lit strings.Builder
	i := 0
	for i < len(text) {
		if strings.HasPrefix(text[i:], `\${`) {
			lit.WriteString("${")
			i += 3
			continue
		}
		if !strings.HasPrefix(text[i:], "${") {
			lit.WriteByte(text[i])
			i++
			continue
		}

		end := closingBrace(text, i+2)
		if end < 0 {
			return nil, types.NewSyntaxError(i, "unclosed '${'")
		}
		if lit.Len() > 0 {
			tpl.parts = append(tpl.parts, templatePart{text: lit.String()})
			lit.Reset()
		}
		src := strings.TrimSpace(text[i+2 : end])
		tree, err := parse(src)
		tpl.parts = append(tpl.parts, templatePart{expr: src, tree: tree, err: err})
		i = end + 1
	}
	if lit.Len() > 0 {
		tpl.parts = append(tpl.parts, templatePart{text: lit.String()})
	}
	return tpl, nil
}

// Expressions returns the source of every ${...} section in order.
func (t *Template) Expressions() []string {
	var out []string
	for _, p := range t.parts {
		if p.tree != nil || p.err != nil {
			out = append(out, p.expr)
		}
	}
	return out
}

// closingBrace finds the '}' that closes a section whose body starts at from.
func closingBrace(s string, from int) int {
	depth := 1
	var quote byte
	for i := from; i < len(s); i++ {
		ch := s[i]
		if quote != 0 {
			if ch == '\\' {
				i++
			} else if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case '\'', '"':
			quote = ch
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// Render substitutes every section. Failing sections render as empty text and
// their errors are returned; null renders as empty text.
func (e *Evaluator) Render(tpl *Template, scope Scope, funcs Functions) (string, []error) {
	var sb strings.Builder
	var errs []error
	for _, p := range tpl.parts {
		if p.tree == nil && p.err == nil {
			sb.WriteString(p.text)
			continue
		}
		if p.err != nil {
			errs = append(errs, p.err)
			continue
		}
		v, err := e.EvaluateTree(p.tree, scope, funcs)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !v.IsNull() {
			sb.WriteString(v.String())
		}
	}
	return sb.String(), errs
}
