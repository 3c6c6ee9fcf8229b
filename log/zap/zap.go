// Package zap adapts a *zap.Logger to the module's Logger.
package zap

import (
	"go.uber.org/zap"

	"github.com/unkn0wn-root/topocache/log"
)

var _ log.Logger = Logger{}

type Logger struct{ L *zap.Logger }

// New tags every entry with component=topocache.
func New(l *zap.Logger) Logger { return Logger{L: l.With(zap.String("component", "topocache"))} }

func (z Logger) Debug(msg string, f log.Fields) { z.L.Debug(msg, fields(f)...) }
func (z Logger) Info(msg string, f log.Fields)  { z.L.Info(msg, fields(f)...) }
func (z Logger) Warn(msg string, f log.Fields)  { z.L.Warn(msg, fields(f)...) }
func (z Logger) Error(msg string, f log.Fields) { z.L.Error(msg, fields(f)...) }

func fields(f log.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(f))
	for k, v := range f {
		if err, ok := v.(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, v))
	}
	return out
}
