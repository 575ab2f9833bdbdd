package stdlib

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/lemonberrylabs/eggexpr/pkg/types"
)

// registerText registers text:* functions.
func (r *Registry) registerText() {
	r.Register("text:find_all", textFindAll)
	r.Register("text:match_regex", textMatchRegex)
	r.Register("text:replace_all", textReplaceAll)
	r.Register("text:replace_all_regex", textReplaceAllRegex)
	r.Register("text:split", textSplit)
	r.Register("text:substring", textSubstring)
	r.Register("text:to_lower", textToLower)
	r.Register("text:to_upper", textToUpper)
	r.Register("text:url_decode", textURLDecode)
	r.Register("text:url_encode", textURLEncode)
}

// stringArgs checks the arity of a string-only function and unpacks its
// arguments.
func stringArgs(name string, args []types.Value, n int) ([]string, error) {
	if err := requireArgs(name, args, n, n); err != nil {
		return nil, err
	}
	out := make([]string, n)
	for i := range out {
		s, err := stringArg(name, args, i)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func compileRegex(name, pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, types.NewArgumentError(fmt.Sprintf("%s: invalid regex: %v", name, err))
	}
	return re, nil
}

// textFindAll returns every occurrence of substr as {index, match} maps.
// Occurrences may overlap.
func textFindAll(args []types.Value) (types.Value, error) {
	s, err := stringArgs("text:find_all", args, 2)
	if err != nil {
		return types.Null, err
	}
	source, substr := s[0], s[1]
	results := []types.Value{}
	if substr == "" {
		return types.NewList(results), nil
	}
	start := 0
	for {
		idx := strings.Index(source[start:], substr)
		if idx == -1 {
			break
		}
		results = append(results, types.NewMap(types.NewOrderedMapFromPairs(
			"index", types.NewInt(int64(start+idx)),
			"match", types.NewString(substr),
		)))
		start += idx + 1
	}
	return types.NewList(results), nil
}

// textMatchRegex reports whether the whole source matches pattern.
func textMatchRegex(args []types.Value) (types.Value, error) {
	s, err := stringArgs("text:match_regex", args, 2)
	if err != nil {
		return types.Null, err
	}
	re, err := compileRegex("text:match_regex", "^(?:"+s[1]+")$")
	if err != nil {
		return types.Null, err
	}
	return types.NewBool(re.MatchString(s[0])), nil
}

func textReplaceAll(args []types.Value) (types.Value, error) {
	s, err := stringArgs("text:replace_all", args, 3)
	if err != nil {
		return types.Null, err
	}
	return types.NewString(strings.ReplaceAll(s[0], s[1], s[2])), nil
}

func textReplaceAllRegex(args []types.Value) (types.Value, error) {
	s, err := stringArgs("text:replace_all_regex", args, 3)
	if err != nil {
		return types.Null, err
	}
	re, err := compileRegex("text:replace_all_regex", s[1])
	if err != nil {
		return types.Null, err
	}
	return types.NewString(re.ReplaceAllString(s[0], s[2])), nil
}

func textSplit(args []types.Value) (types.Value, error) {
	s, err := stringArgs("text:split", args, 2)
	if err != nil {
		return types.Null, err
	}
	return stringList(strings.Split(s[0], s[1])), nil
}

// textSubstring returns source[start:end] with both bounds clamped. The end
// defaults to the length of source.
func textSubstring(args []types.Value) (types.Value, error) {
	if err := requireArgs("text:substring", args, 2, 3); err != nil {
		return types.Null, err
	}
	source, err := stringArg("text:substring", args, 0)
	if err != nil {
		return types.Null, err
	}
	start, err := intArg("text:substring", args, 1)
	if err != nil {
		return types.Null, err
	}
	end := int64(len(source))
	if len(args) == 3 {
		if end, err = intArg("text:substring", args, 2); err != nil {
			return types.Null, err
		}
	}
	start = max(start, 0)
	end = min(end, int64(len(source)))
	if start >= end {
		return types.NewString(""), nil
	}
	return types.NewString(source[start:end]), nil
}

func textToLower(args []types.Value) (types.Value, error) {
	s, err := stringArgs("text:to_lower", args, 1)
	if err != nil {
		return types.Null, err
	}
	return types.NewString(strings.ToLower(s[0])), nil
}

func textToUpper(args []types.Value) (types.Value, error) {
	s, err := stringArgs("text:to_upper", args, 1)
	if err != nil {
		return types.Null, err
	}
	return types.NewString(strings.ToUpper(s[0])), nil
}

func textURLDecode(args []types.Value) (types.Value, error) {
	s, err := stringArgs("text:url_decode", args, 1)
	if err != nil {
		return types.Null, err
	}
	decoded, err := url.QueryUnescape(s[0])
	if err != nil {
		return types.Null, types.NewArgumentError(fmt.Sprintf("text:url_decode: %v", err))
	}
	return types.NewString(decoded), nil
}

func textURLEncode(args []types.Value) (types.Value, error) {
	s, err := stringArgs("text:url_encode", args, 1)
	if err != nil {
		return types.Null, err
	}
	return types.NewString(url.QueryEscape(s[0])), nil
}
