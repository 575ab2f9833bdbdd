package expr

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/lemonberrylabs/eggexpr/pkg/capability"
	"github.com/lemonberrylabs/eggexpr/pkg/types"
)

// SegmentKind distinguishes member access from index access.
type SegmentKind int

const (
	SegmentMember SegmentKind = iota // .name
	SegmentIndex                     // [expr]
)

// Segment is one step of a variable path after the root key.
type Segment struct {
	Kind SegmentKind
	// Name is the member name, or the raw bracket contents for index segments.
	Name string
	// Key is the parsed bracket expression of an index segment.
	Key Node
	// Word is set when the bracket holds a single bare word: it is resolved as
	// a variable if one exists and used as a literal key otherwise.
	Word string
}

// Path is a parsed variable reference such as a.b[0]['c'].
type Path struct {
	Raw      string
	Root     string
	Segments []Segment
}

func (p *Path) String() string {
	return p.Raw
}

// ParsePath parses a dotted/bracketed variable path.
func ParsePath(raw string) (*Path, error) {
	return parsePath(raw, 0)
}

func parsePath(raw string, base int) (*Path, error) {
	i := 0
	for i < len(raw) && raw[i] != '.' && raw[i] != '[' {
		i++
	}
	root := raw[:i]
	if root == "" || !isIdentStart(root[0]) {
		return nil, types.NewSyntaxError(base, "invalid term %q", raw)
	}

	p := &Path{Raw: raw, Root: root}
	for i < len(raw) {
		switch raw[i] {
		case '.':
			j := i + 1
			for j < len(raw) && raw[j] != '.' && raw[j] != '[' {
				j++
			}
			name := raw[i+1 : j]
			if name == "" {
				return nil, types.NewSyntaxError(base+i, "empty member name in %q", raw)
			}
			p.Segments = append(p.Segments, Segment{Kind: SegmentMember, Name: name})
			i = j

		case '[':
			j, err := matchBracket(raw, i)
			if err != nil {
				return nil, types.NewSyntaxError(base+i, "%s in %q", err, raw)
			}
			seg, err := indexSegment(raw[i+1:j], base+i+1)
			if err != nil {
				return nil, err
			}
			p.Segments = append(p.Segments, seg)
			i = j + 1

		default:
			return nil, types.NewSyntaxError(base+i, "unexpected %q in %q", raw[i], raw)
		}
	}
	return p, nil
}

// matchBracket returns the index of the ']' matching the '[' at open,
// skipping quoted strings.
func matchBracket(s string, open int) (int, error) {
	depth := 0
	var quote byte
	for i := open; i < len(s); i++ {
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
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("unclosed '['")
}

func indexSegment(inner string, base int) (Segment, error) {
	if strings.TrimSpace(inner) == "" {
		return Segment{}, types.NewSyntaxError(base, "empty index")
	}
	tree, err := Parse(inner)
	if err != nil {
		if e, ok := err.(*types.ExprError); ok && e.Pos >= 0 {
			e.Pos += base
		}
		return Segment{}, err
	}
	if len(tree.Nodes) != 1 || tree.Marker() != nil {
		return Segment{}, types.NewSyntaxError(base, "index must be a single expression")
	}
	seg := Segment{Kind: SegmentIndex, Name: inner, Key: tree.Nodes[0]}
	if v, ok := seg.Key.(*Variable); ok && len(v.Path.Segments) == 0 {
		seg.Word = v.Path.Root
	}
	return seg, nil
}

// Read resolves path against scope. Index expressions are evaluated with the
// same scope and functions. In soft mode a path that cannot be resolved
// reads as (Null, false, nil); in strict mode it is an UndefinedVariable error.
func (e *Evaluator) Read(path *Path, scope Scope, funcs Functions) (types.Value, bool, error) {
	if v, ok := scope.Get(path.Raw); ok {
		return v, true, nil
	}
	cur, ok := scope.Get(path.Root)
	if !ok {
		return e.missing(path, path.Root)
	}
	for _, seg := range path.Segments {
		key, err := e.segmentKey(seg, scope, funcs)
		if err != nil {
			return types.Null, false, err
		}
		next, ok := e.step(cur, seg.Kind, key)
		if !ok {
			return e.missing(path, seg.Name)
		}
		cur = next
	}
	return cur, true, nil
}

func (e *Evaluator) missing(path *Path, segment string) (types.Value, bool, error) {
	if e.Mode == ModeStrict {
		return types.Null, false, types.NewUndefinedVariableError(path.Raw, segment)
	}
	return types.Null, false, nil
}

// Write assigns value to the terminal segment of path. Intermediate segments
// are only traversed; if any of them cannot be resolved nothing is changed
// and Write reports false.
func (e *Evaluator) Write(path *Path, scope Scope, funcs Functions, value types.Value) (bool, error) {
	if len(path.Segments) == 0 {
		return scope.Set(path.Root, value), nil
	}
	cur, ok := scope.Get(path.Root)
	if !ok {
		return false, nil
	}
	last := len(path.Segments) - 1
	for _, seg := range path.Segments[:last] {
		key, err := e.segmentKey(seg, scope, funcs)
		if err != nil {
			return false, err
		}
		next, ok := e.step(cur, seg.Kind, key)
		if !ok {
			return false, nil
		}
		cur = next
	}

	seg := path.Segments[last]
	key, err := e.segmentKey(seg, scope, funcs)
	if err != nil {
		return false, err
	}
	return e.assignTerminal(cur, key, value), nil
}

// segmentKey computes the lookup key of a segment: the member name, or the
// evaluated index expression.
func (e *Evaluator) segmentKey(seg Segment, scope Scope, funcs Functions) (types.Value, error) {
	if seg.Kind == SegmentMember {
		return types.NewString(seg.Name), nil
	}
	if seg.Word != "" {
		v, ok := scope.Get(seg.Word)
		if !ok {
			return types.NewString(seg.Word), nil
		}
		return v, nil
	}
	return e.eval(seg.Key, scope, funcs)
}

// step performs one read traversal.
func (e *Evaluator) step(cur types.Value, kind SegmentKind, key types.Value) (types.Value, bool) {
	switch cur.Type() {
	case types.TypeMap:
		name, ok := keyString(key)
		if !ok {
			return types.Null, false
		}
		if v, ok := cur.AsMap().Get(name); ok {
			return v, true
		}
		if kind == SegmentMember {
			return e.intrinsic(cur, name)
		}
		return types.Null, false

	case types.TypeList:
		if kind == SegmentMember {
			return e.intrinsic(cur, key.AsString())
		}
		i, ok := listIndex(key, len(cur.AsList()))
		if !ok {
			return types.Null, false
		}
		return cur.AsList()[i], true

	case types.TypeString:
		if kind == SegmentMember {
			return e.intrinsic(cur, key.AsString())
		}
		runes := []rune(cur.AsString())
		i, ok := listIndex(key, len(runes))
		if !ok {
			return types.Null, false
		}
		return types.NewString(string(runes[i])), true

	case types.TypeHost:
		name, ok := keyString(key)
		if !ok {
			return types.Null, false
		}
		h := cur.AsHost()
		for _, acc := range [...]string{name, "get_" + name} {
			if e.Whitelist.Allowed(h.HostType(), acc, capability.Read) {
				if v, ok := h.Get(acc); ok {
					return v, true
				}
			}
		}
	}
	return types.Null, false
}

// intrinsic serves whitelisted accessors on built-in kinds.
func (e *Evaluator) intrinsic(v types.Value, name string) (types.Value, bool) {
	if !e.Whitelist.Allowed(v.Type().String(), name, capability.Read) {
		return types.Null, false
	}
	switch name {
	case "length":
		switch v.Type() {
		case types.TypeString:
			return types.NewInt(int64(utf8.RuneCountInString(v.AsString()))), true
		case types.TypeList:
			return types.NewInt(int64(len(v.AsList()))), true
		case types.TypeMap:
			return types.NewInt(int64(v.AsMap().Len())), true
		}
	case "first", "last":
		if v.Type() != types.TypeList || len(v.AsList()) == 0 {
			return types.Null, false
		}
		list := v.AsList()
		if name == "first" {
			return list[0], true
		}
		return list[len(list)-1], true
	}
	return types.Null, false
}

// assignTerminal writes value at key inside container.
func (e *Evaluator) assignTerminal(container, key, value types.Value) bool {
	switch container.Type() {
	case types.TypeMap:
		name, ok := keyString(key)
		if !ok {
			return false
		}
		container.AsMap().Set(name, value)
		return true

	case types.TypeList:
		list := container.AsList()
		i, ok := listIndex(key, len(list))
		if !ok {
			return false
		}
		list[i] = value
		return true

	case types.TypeHost:
		name, ok := keyString(key)
		if !ok {
			return false
		}
		h := container.AsHost()
		for _, acc := range [...]string{name, "set_" + name} {
			if e.Whitelist.Allowed(h.HostType(), acc, capability.Write) && h.Set(acc, value) {
				return true
			}
		}
	}
	return false
}

// keyString converts a scalar to a map key.
func keyString(v types.Value) (string, bool) {
	switch v.Type() {
	case types.TypeString:
		return v.AsString(), true
	case types.TypeInt, types.TypeDouble, types.TypeBool, types.TypeNull:
		return v.String(), true
	}
	return "", false
}

func listIndex(key types.Value, n int) (int, bool) {
	if key.Type() != types.TypeInt {
		return 0, false
	}
	i := key.AsInt()
	if i < 0 || i >= int64(n) {
		return 0, false
	}
	return int(i), true
}
