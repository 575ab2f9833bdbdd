package stdlib

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/lemonberrylabs/eggexpr/pkg/types"
)

// registerSys registers sys:* functions.
func (r *Registry) registerSys() {
	r.Register("sys:env", sysEnv)
	r.Register("sys:log", r.sysLog)
}

// sysEnv(name, default) returns an environment variable, or the default
// (null if not given) when it is unset.
func sysEnv(args []types.Value) (types.Value, error) {
	if err := requireArgs("sys:env", args, 1, 2); err != nil {
		return types.Null, err
	}
	name, err := stringArg("sys:env", args, 0)
	if err != nil {
		return types.Null, err
	}
	if v, ok := os.LookupEnv(name); ok {
		return types.NewString(v), nil
	}
	if len(args) == 2 {
		return args[1], nil
	}
	return types.Null, nil
}

// sysLog(data, severity) writes data to the registry's logger and returns
// null. Severity is one of DEBUG, INFO, WARNING or ERROR and defaults to INFO.
func (r *Registry) sysLog(args []types.Value) (types.Value, error) {
	if err := requireArgs("sys:log", args, 1, 2); err != nil {
		return types.Null, err
	}
	level := slog.LevelInfo
	if len(args) == 2 {
		severity, err := stringArg("sys:log", args, 1)
		if err != nil {
			return types.Null, err
		}
		level = severityLevel(severity)
	}
	var data any = args[0].String()
	if t := args[0].Type(); t == types.TypeMap || t == types.TypeList {
		data = args[0].ToGo()
	}
	r.log().Log(context.Background(), level, "expression log", "data", data)
	return types.Null, nil
}

func severityLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARNING", "WARN":
		return slog.LevelWarn
	case "ERROR", "CRITICAL":
		return slog.LevelError
	}
	return slog.LevelInfo
}
