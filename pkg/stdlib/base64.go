package stdlib

import (
	"encoding/base64"
	"fmt"

	"github.com/lemonberrylabs/eggexpr/pkg/types"
)

// registerBase64 registers base64:* functions.
func (r *Registry) registerBase64() {
	r.Register("base64:decode", base64Decode)
	r.Register("base64:encode", base64Encode)
}

// base64Decode accepts both the standard and the URL-safe alphabet.
func base64Decode(args []types.Value) (types.Value, error) {
	if err := requireArgs("base64:decode", args, 1, 1); err != nil {
		return types.Null, err
	}
	input, err := stringArg("base64:decode", args, 0)
	if err != nil {
		return types.Null, err
	}
	decoded, err := base64.StdEncoding.DecodeString(input)
	if err != nil {
		decoded, err = base64.URLEncoding.DecodeString(input)
		if err != nil {
			return types.Null, types.NewArgumentError(fmt.Sprintf("base64:decode: invalid base64: %v", err))
		}
	}
	return types.NewString(string(decoded)), nil
}

func base64Encode(args []types.Value) (types.Value, error) {
	if err := requireArgs("base64:encode", args, 1, 1); err != nil {
		return types.Null, err
	}
	return types.NewString(base64.StdEncoding.EncodeToString(toBytes(args[0]))), nil
}

func toBytes(v types.Value) []byte {
	if v.Type() == types.TypeString {
		return []byte(v.AsString())
	}
	return []byte(v.String())
}
