// Package log provides the module-scoped loggers used across blocksim,
// following the same named-logger convention as the teacher's
// log.NewModuleLogger(log.CMDKCN) idiom, backed by zap.
package log

import (
	"go.uber.org/zap"
)

// Module identifies the subsystem a logger is scoped to.
type Module string

const (
	ModuleKernel    Module = "kernel"
	ModuleChain     Module = "chain"
	ModuleTxPool    Module = "txpool"
	ModuleTransport Module = "transport"
	ModuleNode      Module = "node"
	ModuleNetwork   Module = "network"
	ModuleWorld     Module = "world"
	ModuleCLI       Module = "cmd"
	ModuleEventbus  Module = "eventbus"
	ModuleMetrics   Module = "metrics"
)

var base *zap.Logger

func init() {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.TimeKey = "" // virtual-time simulation: wall-clock timestamps are noise in logs
	l, err := cfg.Build()
	if err != nil {
		l = zap.NewNop()
	}
	base = l
}

// NewModuleLogger returns a sugared logger tagged with the given module name.
func NewModuleLogger(m Module) *zap.SugaredLogger {
	return base.Sugar().With("module", string(m))
}

// SetBase swaps the process-wide base logger, used by cmd/blocksim to
// wire verbosity flags. Tests should not need to call this.
func SetBase(l *zap.Logger) {
	base = l
}
