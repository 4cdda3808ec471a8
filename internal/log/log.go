// Package log provides the ambient structured logger used for the soft
// errors the scan engine never treats as fatal: unreadable regions,
// failed attaches, poisoned locks. Nothing in this package blocks a scan
// pass; it only records what happened.
package log

import "go.uber.org/zap"

var base = mustBuild()

func mustBuild() *zap.SugaredLogger {
	l, err := zap.NewProduction()
	if err != nil {
		// zap.NewProduction only fails on a broken encoder config, which
		// never happens with the stock production config.
		panic(err)
	}
	return l.Sugar().Named("memscan")
}

// Warnw logs a soft, non-fatal error with structured key/value pairs.
func Warnw(msg string, kv ...any) {
	base.Warnw(msg, kv...)
}

// Errorw logs an error the caller is still going to recover from (e.g. a
// poisoned controller lock whose command gets dropped).
func Errorw(msg string, kv ...any) {
	base.Errorw(msg, kv...)
}

// Sync flushes any buffered log entries. Call it before process exit.
func Sync() {
	_ = base.Sync()
}
