package topocache

import "github.com/unkn0wn-root/topocache/log"

// Fields is a minimal structured field map for logs.
type Fields = log.Fields

// Logger is a tiny leveled logger. Provide an adapter around logging stack.
// If Logger is nil in Options, logging is disabled.
type Logger = log.Logger

type NopLogger = log.Nop
