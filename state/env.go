// Package state defines shared program state.
package state

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/bburda42dot/diag-converter-sub001/config"
)

type envKey struct{}

// LocalEnv keeps everything the program needs in a single place.
type LocalEnv struct {
	Cfg *config.Config
	Log *zap.Logger

	// used by the convert subcommand
	Overwrite bool

	start         time.Time
	restoreStdLog func()
}

func EnvFromContext(ctx context.Context) *LocalEnv {
	if env, ok := ctx.Value(envKey{}).(*LocalEnv); ok {
		return env
	}
	// this should never happen
	panic("localenv not found in context")
}

func ContextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, newLocalEnv())
}

func (e *LocalEnv) Uptime() time.Duration {
	return time.Since(e.start)
}

func (e *LocalEnv) RedirectStdLog() {
	if e.Log == nil {
		return
	}
	e.restoreStdLog = zap.RedirectStdLog(e.Log)
}

func (e *LocalEnv) RestoreStdLog() {
	if e.Log != nil {
		_ = e.Log.Sync()
	}
	if e.restoreStdLog != nil {
		e.restoreStdLog()
	}
}
