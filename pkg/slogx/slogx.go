// Package slogx carries small log/slog attribute helpers shared across the
// module so log keys stay consistent between packages and binaries.
package slogx

import (
	"fmt"
	"log/slog"
	"time"
)

// Error returns a slog.Attr for err under the conventional "error" key.
func Error(err error) slog.Attr {
	return slog.String("error", err.Error())
}

// Stringer returns a slog.Attr for any fmt.Stringer, rendering it eagerly.
// Useful for uuid.UUID and similar value types that are cheap to format.
func Stringer(key string, value fmt.Stringer) slog.Attr {
	return slog.String(key, value.String())
}

// Duration returns a slog.Attr with the duration rendered in its natural
// string form rather than nanoseconds.
func Duration(key string, value time.Duration) slog.Attr {
	return slog.String(key, value.String())
}
