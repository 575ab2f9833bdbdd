package stdlib

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/lemonberrylabs/eggexpr/pkg/types"
)

// registerBasics registers the root-namespace basics for strings, arrays and
// maps. Array functions return new arrays; map functions change the map they
// are given and return it.
func (r *Registry) registerBasics() {
	r.Register("length", stdLength)
	r.Register("str_match", stdStrMatch)
	r.Register("str_split", stdStrSplit)
	r.Register("arr_push", stdArrPush)
	r.Register("arr_pop", stdArrPop)
	r.Register("arr_delete", stdArrDelete)
	r.Register("map_push", stdMapPush)
	r.Register("map_delete", stdMapDelete)
}

// registerExpressionHelpers registers conversion and inspection helpers:
// default, keys, type, int, double, string, bool.
func (r *Registry) registerExpressionHelpers() {
	r.Register("default", stdDefault)
	r.Register("keys", stdKeys)
	r.Register("type", stdType)
	r.Register("int", stdInt)
	r.Register("double", stdDouble)
	r.Register("string", stdString)
	r.Register("bool", stdBool)
}

// stdLength returns null for values without a length.
func stdLength(args []types.Value) (types.Value, error) {
	if err := requireArgs("length", args, 1, 1); err != nil {
		return types.Null, err
	}
	switch args[0].Type() {
	case types.TypeString:
		return types.NewInt(int64(utf8.RuneCountInString(args[0].AsString()))), nil
	case types.TypeList:
		return types.NewInt(int64(len(args[0].AsList()))), nil
	case types.TypeMap:
		return types.NewInt(int64(args[0].AsMap().Len())), nil
	}
	return types.Null, nil
}

// stdStrMatch returns the offset of the first regexp match of needle in
// haystack, or null.
func stdStrMatch(args []types.Value) (types.Value, error) {
	if err := requireArgs("str_match", args, 2, 2); err != nil {
		return types.Null, err
	}
	haystack, err := stringArg("str_match", args, 0)
	if err != nil {
		return types.Null, err
	}
	needle, err := stringArg("str_match", args, 1)
	if err != nil {
		return types.Null, err
	}
	re, err := regexp.Compile(needle)
	if err != nil {
		return types.Null, types.NewArgumentError(fmt.Sprintf("str_match: invalid regex: %v", err))
	}
	loc := re.FindStringIndex(haystack)
	if loc == nil {
		return types.Null, nil
	}
	return types.NewInt(int64(loc[0])), nil
}

// stdStrSplit splits str on delim. A positive limit caps the number of parts.
func stdStrSplit(args []types.Value) (types.Value, error) {
	if err := requireArgs("str_split", args, 2, 3); err != nil {
		return types.Null, err
	}
	s, err := stringArg("str_split", args, 0)
	if err != nil {
		return types.Null, err
	}
	delim, err := stringArg("str_split", args, 1)
	if err != nil {
		return types.Null, err
	}
	limit := int64(-1)
	if len(args) == 3 && !args[2].IsNull() {
		if limit, err = intArg("str_split", args, 2); err != nil {
			return types.Null, err
		}
		if limit <= 0 {
			limit = -1
		}
	}
	return stringList(strings.SplitN(s, delim, int(limit))), nil
}

func stdArrPush(args []types.Value) (types.Value, error) {
	if err := requireArgs("arr_push", args, 1, -1); err != nil {
		return types.Null, err
	}
	arr, err := listArg("arr_push", args, 0)
	if err != nil {
		return types.Null, err
	}
	out := make([]types.Value, 0, len(arr)+len(args)-1)
	out = append(out, arr...)
	out = append(out, args[1:]...)
	return types.NewList(out), nil
}

func stdArrPop(args []types.Value) (types.Value, error) {
	if err := requireArgs("arr_pop", args, 1, 1); err != nil {
		return types.Null, err
	}
	arr, err := listArg("arr_pop", args, 0)
	if err != nil {
		return types.Null, err
	}
	if len(arr) == 0 {
		return types.NewList(nil), nil
	}
	out := make([]types.Value, len(arr)-1)
	copy(out, arr)
	return types.NewList(out), nil
}

// stdArrDelete removes the element at index. Negative indices count from the
// end; out-of-range indices leave the array unchanged.
func stdArrDelete(args []types.Value) (types.Value, error) {
	if err := requireArgs("arr_delete", args, 2, 2); err != nil {
		return types.Null, err
	}
	arr, err := listArg("arr_delete", args, 0)
	if err != nil {
		return types.Null, err
	}
	idx, err := intArg("arr_delete", args, 1)
	if err != nil {
		return types.Null, err
	}
	if idx < 0 {
		idx += int64(len(arr))
	}
	out := make([]types.Value, 0, len(arr))
	for i, v := range arr {
		if int64(i) != idx {
			out = append(out, v)
		}
	}
	return types.NewList(out), nil
}

func stdMapPush(args []types.Value) (types.Value, error) {
	if err := requireArgs("map_push", args, 3, 3); err != nil {
		return types.Null, err
	}
	m, err := mapArg("map_push", args, 0)
	if err != nil {
		return types.Null, err
	}
	key, ok := scalarKey(args[1])
	if !ok {
		return types.Null, types.NewArgumentError("map_push: key must be a scalar")
	}
	m.Set(key, args[2])
	return args[0], nil
}

func stdMapDelete(args []types.Value) (types.Value, error) {
	if err := requireArgs("map_delete", args, 2, 2); err != nil {
		return types.Null, err
	}
	m, err := mapArg("map_delete", args, 0)
	if err != nil {
		return types.Null, err
	}
	if key, ok := scalarKey(args[1]); ok {
		m.Delete(key)
	}
	return args[0], nil
}

func scalarKey(v types.Value) (string, bool) {
	switch v.Type() {
	case types.TypeString, types.TypeInt, types.TypeDouble, types.TypeBool:
		return v.String(), true
	}
	return "", false
}

// stdDefault returns the second argument when the first is null.
func stdDefault(args []types.Value) (types.Value, error) {
	if err := requireArgs("default", args, 2, 2); err != nil {
		return types.Null, err
	}
	if args[0].IsNull() {
		return args[1], nil
	}
	return args[0], nil
}

func stdKeys(args []types.Value) (types.Value, error) {
	if err := requireArgs("keys", args, 1, 1); err != nil {
		return types.Null, err
	}
	m, err := mapArg("keys", args, 0)
	if err != nil {
		return types.Null, err
	}
	return stringList(m.Keys()), nil
}

func stdType(args []types.Value) (types.Value, error) {
	if err := requireArgs("type", args, 1, 1); err != nil {
		return types.Null, err
	}
	return types.NewString(args[0].Type().String()), nil
}

func stdInt(args []types.Value) (types.Value, error) {
	if err := requireArgs("int", args, 1, 1); err != nil {
		return types.Null, err
	}
	v := args[0]
	switch v.Type() {
	case types.TypeInt:
		return v, nil
	case types.TypeDouble:
		return types.NewInt(int64(v.AsDouble())), nil
	case types.TypeString:
		s := strings.TrimSpace(v.AsString())
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return types.NewInt(i), nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return types.Null, types.NewArgumentError(fmt.Sprintf("cannot convert %q to int", v.AsString()))
		}
		return types.NewInt(int64(f)), nil
	case types.TypeBool:
		if v.AsBool() {
			return types.NewInt(1), nil
		}
		return types.NewInt(0), nil
	}
	return types.Null, types.NewArgumentError(fmt.Sprintf("cannot convert %s to int", v.Type()))
}

func stdDouble(args []types.Value) (types.Value, error) {
	if err := requireArgs("double", args, 1, 1); err != nil {
		return types.Null, err
	}
	v := args[0]
	switch v.Type() {
	case types.TypeDouble:
		return v, nil
	case types.TypeInt:
		return types.NewDouble(float64(v.AsInt())), nil
	case types.TypeString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.AsString()), 64)
		if err != nil {
			return types.Null, types.NewArgumentError(fmt.Sprintf("cannot convert %q to double", v.AsString()))
		}
		return types.NewDouble(f), nil
	case types.TypeBool:
		if v.AsBool() {
			return types.NewDouble(1), nil
		}
		return types.NewDouble(0), nil
	}
	return types.Null, types.NewArgumentError(fmt.Sprintf("cannot convert %s to double", v.Type()))
}

func stdString(args []types.Value) (types.Value, error) {
	if err := requireArgs("string", args, 1, 1); err != nil {
		return types.Null, err
	}
	return types.NewString(args[0].String()), nil
}

func stdBool(args []types.Value) (types.Value, error) {
	if err := requireArgs("bool", args, 1, 1); err != nil {
		return types.Null, err
	}
	v := args[0]
	switch v.Type() {
	case types.TypeBool:
		return v, nil
	case types.TypeInt:
		return types.NewBool(v.AsInt() != 0), nil
	case types.TypeDouble:
		return types.NewBool(v.AsDouble() != 0 && !math.IsNaN(v.AsDouble())), nil
	case types.TypeString:
		switch strings.ToLower(v.AsString()) {
		case "true", "1", "yes":
			return types.NewBool(true), nil
		case "false", "0", "no", "":
			return types.NewBool(false), nil
		}
		return types.Null, types.NewArgumentError(fmt.Sprintf("cannot convert %q to bool", v.AsString()))
	case types.TypeNull:
		return types.NewBool(false), nil
	}
	return types.NewBool(true), nil
}
