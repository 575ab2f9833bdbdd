package stdlib

import (
	"fmt"
	"time"

	"github.com/lemonberrylabs/eggexpr/pkg/types"
)

// now is replaced in tests.
var now = time.Now

// registerTime registers time:* functions. Timestamps are seconds since the
// Unix epoch as doubles.
func (r *Registry) registerTime() {
	r.Register("time:format", timeFormat)
	r.Register("time:parse", timeParse)
	r.Register("time:now", timeNow)
}

// timeFormat(timestamp, timezone) renders an RFC 3339 string. The timezone
// defaults to UTC.
func timeFormat(args []types.Value) (types.Value, error) {
	if err := requireArgs("time:format", args, 1, 2); err != nil {
		return types.Null, err
	}
	timestamp, ok := args[0].AsNumber()
	if !ok {
		return types.Null, types.NewArgumentError("time:format: timestamp must be a number")
	}
	tz := "UTC"
	if len(args) == 2 {
		s, err := stringArg("time:format", args, 1)
		if err != nil {
			return types.Null, err
		}
		tz = s
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return types.Null, types.NewArgumentError(fmt.Sprintf("time:format: invalid timezone %q: %v", tz, err))
	}
	sec := int64(timestamp)
	nsec := int64((timestamp - float64(sec)) * 1e9)
	return types.NewString(time.Unix(sec, nsec).In(loc).Format(time.RFC3339Nano)), nil
}

func timeParse(args []types.Value) (types.Value, error) {
	if err := requireArgs("time:parse", args, 1, 1); err != nil {
		return types.Null, err
	}
	input, err := stringArg("time:parse", args, 0)
	if err != nil {
		return types.Null, err
	}
	t, err := time.Parse(time.RFC3339Nano, input)
	if err != nil {
		return types.Null, types.NewArgumentError(fmt.Sprintf("time:parse: invalid timestamp %q: %v", input, err))
	}
	return epochSeconds(t), nil
}

func timeNow(args []types.Value) (types.Value, error) {
	if err := requireArgs("time:now", args, 0, 0); err != nil {
		return types.Null, err
	}
	return epochSeconds(now()), nil
}

func epochSeconds(t time.Time) types.Value {
	return types.NewDouble(float64(t.Unix()) + float64(t.Nanosecond())/1e9)
}
