package main

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/sahilm/fuzzy"

	"github.com/lemonberrylabs/eggexpr/pkg/runtime"
	"github.com/lemonberrylabs/eggexpr/pkg/types"
)

// maxCandidates caps the completion bar.
const maxCandidates = 8

// isWordBoundary reports whether r ends a completion word. Colons and dots are
// part of words so that namespaced calls and variable paths complete whole.
func isWordBoundary(r rune) bool {
	switch r {
	case ' ', '\t',
		'(', ')', '[', ']', '{', '}',
		'+', '-', '*', '/', '%',
		'<', '>', '=', '!', '~',
		'&', '|', ',', '?', ';',
		'\'', '"':
		return true
	}
	return false
}

// wordBounds returns the word around cursor and its byte offsets in input.
func wordBounds(input string, cursor int) (word string, start, end int) {
	if cursor > len(input) {
		cursor = len(input)
	}

	start = cursor
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(input[:start])
		if isWordBoundary(r) {
			break
		}
		start -= size
	}

	end = cursor
	for end < len(input) {
		r, size := utf8.DecodeRuneInString(input[end:])
		if isWordBoundary(r) {
			break
		}
		end += size
	}

	return input[start:end], start, end
}

// candidates returns the completions available for word. A word containing a
// dot completes the keys of the map its prefix resolves to; any other word
// completes function names and variable names.
func candidates(word string, funcs []string, scope *runtime.VariableScope) []string {
	if i := strings.LastIndexByte(word, '.'); i >= 0 {
		return memberCandidates(word[:i], scope)
	}
	out := make([]string, 0, len(funcs))
	out = append(out, funcs...)
	if scope != nil {
		out = append(out, scope.Keys()...)
	}
	sort.Strings(out)
	return out
}

func memberCandidates(parent string, scope *runtime.VariableScope) []string {
	if scope == nil || parent == "" {
		return nil
	}
	parts := strings.Split(parent, ".")
	v, ok := scope.Get(parts[0])
	if !ok {
		return nil
	}
	for _, p := range parts[1:] {
		if v.Type() != types.TypeMap {
			return nil
		}
		if v, ok = v.AsMap().Get(p); !ok {
			return nil
		}
	}
	if v.Type() != types.TypeMap {
		return nil
	}
	keys := v.AsMap().Keys()
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = parent + "." + k
	}
	return out
}

// complete fuzzily ranks the candidates for word. An empty word has no
// completions.
func complete(word string, funcs []string, scope *runtime.VariableScope) fuzzy.Matches {
	if word == "" {
		return nil
	}
	matches := fuzzy.Find(word, candidates(word, funcs, scope))
	if len(matches) > maxCandidates {
		matches = matches[:maxCandidates]
	}
	return matches
}
