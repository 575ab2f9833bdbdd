package types

import (
	"fmt"
	"strings"
)

// Error tag constants.
const (
	TagSyntaxError       = "SyntaxError"
	TagOperatorTypeError = "OperatorTypeError"
	TagDivideByZero      = "DivideByZero"
	TagUnknownFunction   = "UnknownFunction"
	TagUndefinedVariable = "UndefinedVariable"
	TagArgumentError     = "ArgumentError"
)

// ExprError is an expression parse or evaluation failure. Pos is the byte
// offset in the source for syntax errors and -1 otherwise.
type ExprError struct {
	Message string
	Tags    []string
	Pos     int

	// Suggestions holds close matches for unknown names, if any.
	Suggestions []string
}

// Error implements the error interface.
func (e *ExprError) Error() string {
	var sb strings.Builder
	sb.WriteString(strings.Join(e.Tags, "/"))
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.Pos >= 0 {
		fmt.Fprintf(&sb, " (at offset %d)", e.Pos)
	}
	if len(e.Suggestions) > 0 {
		sb.WriteString("; did you mean ")
		sb.WriteString(strings.Join(e.Suggestions, ", "))
		sb.WriteString("?")
	}
	return sb.String()
}

// Kind returns the primary tag.
func (e *ExprError) Kind() string {
	if len(e.Tags) == 0 {
		return ""
	}
	return e.Tags[0]
}

// HasTag returns true if the error has the specified tag.
func (e *ExprError) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ToValue converts the error into a map value with message, tags and pos keys.
func (e *ExprError) ToValue() Value {
	m := NewOrderedMap()
	m.Set("message", NewString(e.Message))
	tags := make([]Value, len(e.Tags))
	for i, tag := range e.Tags {
		tags[i] = NewString(tag)
	}
	m.Set("tags", NewList(tags))
	if e.Pos >= 0 {
		m.Set("pos", NewInt(int64(e.Pos)))
	}
	return NewMap(m)
}

// NewSyntaxError creates a SyntaxError at the given source offset.
func NewSyntaxError(pos int, format string, args ...any) *ExprError {
	return &ExprError{Message: fmt.Sprintf(format, args...), Tags: []string{TagSyntaxError}, Pos: pos}
}

// NewOperatorTypeError creates an OperatorTypeError.
func NewOperatorTypeError(msg string) *ExprError {
	return &ExprError{Message: msg, Tags: []string{TagOperatorTypeError}, Pos: -1}
}

// NewDivideByZeroError creates the DivideByZero variant of OperatorTypeError.
func NewDivideByZeroError(op string) *ExprError {
	return &ExprError{
		Message: fmt.Sprintf("division by zero in %q", op),
		Tags:    []string{TagOperatorTypeError, TagDivideByZero},
		Pos:     -1,
	}
}

// NewUnknownFunctionError creates an UnknownFunction error for a call key.
func NewUnknownFunctionError(key string) *ExprError {
	return &ExprError{Message: fmt.Sprintf("no handler for function %q", key), Tags: []string{TagUnknownFunction}, Pos: -1}
}

// NewUndefinedVariableError creates an UndefinedVariable error.
func NewUndefinedVariableError(path, segment string) *ExprError {
	msg := fmt.Sprintf("variable %q is not defined", path)
	if segment != "" && segment != path {
		msg = fmt.Sprintf("variable %q: cannot resolve %q", path, segment)
	}
	return &ExprError{Message: msg, Tags: []string{TagUndefinedVariable}, Pos: -1}
}

// NewArgumentError creates an ArgumentError for a function call.
func NewArgumentError(msg string) *ExprError {
	return &ExprError{Message: msg, Tags: []string{TagArgumentError}, Pos: -1}
}
