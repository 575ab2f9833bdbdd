package stdlib

import (
	"github.com/lemonberrylabs/eggexpr/pkg/types"
)

// registerMapFuncs registers map:* functions. Unlike map_push and
// map_delete these never modify their arguments.
func (r *Registry) registerMapFuncs() {
	r.Register("map:get", mapGet)
	r.Register("map:delete", mapDelete)
	r.Register("map:merge", mapMerge)
	r.Register("map:merge_nested", mapMergeNested)
}

// mapGet returns m[key], or the optional default (null if absent) when the
// key is missing. A list key walks nested maps.
func mapGet(args []types.Value) (types.Value, error) {
	if err := requireArgs("map:get", args, 2, 3); err != nil {
		return types.Null, err
	}
	if _, err := mapArg("map:get", args, 0); err != nil {
		return types.Null, err
	}
	fallback := types.Null
	if len(args) == 3 {
		fallback = args[2]
	}

	var path []types.Value
	if args[1].Type() == types.TypeList {
		path = args[1].AsList()
	} else {
		path = []types.Value{args[1]}
	}
	cur := args[0]
	for _, seg := range path {
		key, ok := scalarKey(seg)
		if !ok {
			return types.Null, types.NewArgumentError("map:get: keys must be scalars")
		}
		if cur.Type() != types.TypeMap {
			return fallback, nil
		}
		next, found := cur.AsMap().Get(key)
		if !found {
			return fallback, nil
		}
		cur = next
	}
	return cur, nil
}

func mapDelete(args []types.Value) (types.Value, error) {
	if err := requireArgs("map:delete", args, 2, 2); err != nil {
		return types.Null, err
	}
	m, err := mapArg("map:delete", args, 0)
	if err != nil {
		return types.Null, err
	}
	result := m.Copy()
	if key, ok := scalarKey(args[1]); ok {
		result.Delete(key)
	}
	return types.NewMap(result), nil
}

// mapMerge merges maps left to right. Later keys win.
func mapMerge(args []types.Value) (types.Value, error) {
	if err := requireArgs("map:merge", args, 1, -1); err != nil {
		return types.Null, err
	}
	result := types.NewOrderedMap()
	for i := range args {
		m, err := mapArg("map:merge", args, i)
		if err != nil {
			return types.Null, err
		}
		for _, k := range m.Keys() {
			v, _ := m.Get(k)
			result.Set(k, v)
		}
	}
	return types.NewMap(result), nil
}

func mapMergeNested(args []types.Value) (types.Value, error) {
	if err := requireArgs("map:merge_nested", args, 1, -1); err != nil {
		return types.Null, err
	}
	for i := range args {
		if _, err := mapArg("map:merge_nested", args, i); err != nil {
			return types.Null, err
		}
	}
	result := args[0].Clone()
	for _, overlay := range args[1:] {
		result = deepMerge(result, overlay)
	}
	return result, nil
}

// deepMerge recursively merges overlay into a copy of base. Non-map values
// in overlay replace those in base.
func deepMerge(base, overlay types.Value) types.Value {
	if base.Type() != types.TypeMap || overlay.Type() != types.TypeMap {
		return overlay
	}
	result := base.AsMap().Copy()
	for _, k := range overlay.AsMap().Keys() {
		ov, _ := overlay.AsMap().Get(k)
		if existing, ok := result.Get(k); ok {
			result.Set(k, deepMerge(existing, ov))
		} else {
			result.Set(k, ov)
		}
	}
	return types.NewMap(result)
}
