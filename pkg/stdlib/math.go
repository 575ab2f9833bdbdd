package stdlib

import (
	"math"

	"github.com/lemonberrylabs/eggexpr/pkg/types"
)

// registerMath registers math:* functions.
func (r *Registry) registerMath() {
	r.Register("math:abs", mathAbs)
	r.Register("math:floor", mathFloor)
	r.Register("math:max", mathMax)
	r.Register("math:min", mathMin)
}

func mathAbs(args []types.Value) (types.Value, error) {
	if err := requireArgs("math:abs", args, 1, 1); err != nil {
		return types.Null, err
	}
	v := args[0]
	switch v.Type() {
	case types.TypeInt:
		if i := v.AsInt(); i < 0 {
			return types.NewInt(-i), nil
		}
		return v, nil
	case types.TypeDouble:
		return types.NewDouble(math.Abs(v.AsDouble())), nil
	}
	return types.Null, types.NewArgumentError("math:abs requires a number argument")
}

func mathFloor(args []types.Value) (types.Value, error) {
	if err := requireArgs("math:floor", args, 1, 1); err != nil {
		return types.Null, err
	}
	v := args[0]
	switch v.Type() {
	case types.TypeInt:
		return v, nil
	case types.TypeDouble:
		return types.NewInt(int64(math.Floor(v.AsDouble()))), nil
	}
	return types.Null, types.NewArgumentError("math:floor requires a number argument")
}

// mathMax returns the largest argument unchanged, keeping its numeric kind.
func mathMax(args []types.Value) (types.Value, error) {
	return pickNumber("math:max", args, func(a, b float64) bool { return a > b })
}

func mathMin(args []types.Value) (types.Value, error) {
	return pickNumber("math:min", args, func(a, b float64) bool { return a < b })
}

func pickNumber(name string, args []types.Value, better func(a, b float64) bool) (types.Value, error) {
	if err := requireArgs(name, args, 1, -1); err != nil {
		return types.Null, err
	}
	best := args[0]
	bestN, ok := best.AsNumber()
	if !ok {
		return types.Null, types.NewArgumentError(name + " requires number arguments")
	}
	for _, v := range args[1:] {
		n, ok := v.AsNumber()
		if !ok {
			return types.Null, types.NewArgumentError(name + " requires number arguments")
		}
		if better(n, bestN) {
			best, bestN = v, n
		}
	}
	return best, nil
}
