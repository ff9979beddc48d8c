package zireael

import (
	"context"
	"fmt"
	"log/slog"
)

// Logf is the package's debug logging hook. It defaults to a no-op so the
// hot paths stay silent; swap it to route engine telemetry wherever the
// host application logs.
var Logf func(format string, args ...any) = func(string, ...any) {}

// UseSlog routes Logf through a slog logger at debug level.
func UseSlog(l *slog.Logger) {
	Logf = func(format string, args ...any) {
		if l.Enabled(context.Background(), slog.LevelDebug) {
			l.Debug(fmt.Sprintf(format, args...))
		}
	}
}
