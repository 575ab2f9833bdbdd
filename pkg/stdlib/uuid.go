package stdlib

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/lemonberrylabs/eggexpr/pkg/types"
)

// registerUUID registers uuid:* functions.
func (r *Registry) registerUUID() {
	r.Register("uuid:generate", uuidGenerate)
}

func uuidGenerate(args []types.Value) (types.Value, error) {
	if err := requireArgs("uuid:generate", args, 0, 0); err != nil {
		return types.Null, err
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return types.Null, fmt.Errorf("uuid:generate: %w", err)
	}
	return types.NewString(id.String()), nil
}
