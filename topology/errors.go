package topology

import (
	"fmt"
	"strings"

	"github.com/unkn0wn-root/topocache/config"
)

// ConnectionError reports a failed initial handshake. Settings were valid but
// the store could not be reached; the caller decides whether to retry.
type ConnectionError struct {
	Mode  config.Mode
	Addrs []string
	Err   error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("topology: %s handshake with [%s] failed: %v", e.Mode, strings.Join(e.Addrs, " "), e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }
