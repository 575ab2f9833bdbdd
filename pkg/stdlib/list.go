package stdlib

import (
	"github.com/lemonberrylabs/eggexpr/pkg/types"
)

// registerList registers list:* functions.
func (r *Registry) registerList() {
	r.Register("list:concat", listConcat)
	r.Register("list:prepend", listPrepend)
}

// listConcat appends the second argument to the first list. A list second
// argument is spliced in element by element.
func listConcat(args []types.Value) (types.Value, error) {
	if err := requireArgs("list:concat", args, 2, 2); err != nil {
		return types.Null, err
	}
	list, err := listArg("list:concat", args, 0)
	if err != nil {
		return types.Null, err
	}
	result := make([]types.Value, 0, len(list)+1)
	result = append(result, list...)
	if args[1].Type() == types.TypeList {
		result = append(result, args[1].AsList()...)
	} else {
		result = append(result, args[1])
	}
	return types.NewList(result), nil
}

func listPrepend(args []types.Value) (types.Value, error) {
	if err := requireArgs("list:prepend", args, 2, 2); err != nil {
		return types.Null, err
	}
	list, err := listArg("list:prepend", args, 0)
	if err != nil {
		return types.Null, err
	}
	result := make([]types.Value, 0, len(list)+1)
	result = append(result, args[1])
	result = append(result, list...)
	return types.NewList(result), nil
}
