package stdlib

import (
	"fmt"

	"github.com/lemonberrylabs/eggexpr/pkg/types"
)

// registerJSON registers json:* functions.
func (r *Registry) registerJSON() {
	r.Register("json:decode", jsonDecode)
	r.Register("json:encode", jsonEncode)
}

// jsonDecode keeps object key order.
func jsonDecode(args []types.Value) (types.Value, error) {
	if err := requireArgs("json:decode", args, 1, 1); err != nil {
		return types.Null, err
	}
	input, err := stringArg("json:decode", args, 0)
	if err != nil {
		return types.Null, err
	}
	v, err := types.ParseJSON([]byte(input))
	if err != nil {
		return types.Null, types.NewArgumentError(fmt.Sprintf("json:decode: invalid JSON: %v", err))
	}
	return v, nil
}

// jsonEncode renders any value as a JSON string, keeping map key order.
func jsonEncode(args []types.Value) (types.Value, error) {
	if err := requireArgs("json:encode", args, 1, 1); err != nil {
		return types.Null, err
	}
	b, err := args[0].MarshalJSON()
	if err != nil {
		return types.Null, fmt.Errorf("json:encode: %w", err)
	}
	return types.NewString(string(b)), nil
}
