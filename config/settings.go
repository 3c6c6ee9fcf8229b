// Package config holds the declarative description of one cache deployment:
// which Redis topology to talk to and how to talk to it.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects the topology of the backing store.
type Mode int

const (
	Standalone Mode = iota
	Clustered
	Sentinel
)

func (m Mode) String() string {
	switch m {
	case Standalone:
		return "standalone"
	case Clustered:
		return "cluster"
	case Sentinel:
		return "sentinel"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode maps a comma separated list of active profiles to a Mode.
// "cluster" selects Clustered, "sentinel" selects Sentinel, anything else is
// ignored and yields Standalone.
func ParseMode(profiles string) (Mode, error) {
	mode := Standalone
	for _, p := range strings.Split(profiles, ",") {
		var m Mode
		switch strings.ToLower(strings.TrimSpace(p)) {
		case "cluster":
			m = Clustered
		case "sentinel":
			m = Sentinel
		default:
			continue
		}
		if mode != Standalone && mode != m {
			return Standalone, &Error{Field: "profile", Reason: fmt.Sprintf("profiles %q select more than one topology", profiles)}
		}
		mode = m
	}
	return mode, nil
}

// Pool bounds the connection pool of a session. Zero values leave the
// client library defaults in place.
type Pool struct {
	MaxTotal int           `mapstructure:"poolMaxTotal" validate:"gte=0"`
	MaxIdle  int           `mapstructure:"poolMaxIdle" validate:"gte=0"`
	MinIdle  int           `mapstructure:"poolMinIdle" validate:"gte=0"`
	MaxWait  time.Duration `mapstructure:"poolMaxWait" validate:"gte=0"`
}

type ClusterSettings struct {
	Nodes []string `mapstructure:"nodes"`
}

type SentinelSettings struct {
	Master   string   `mapstructure:"master"`
	Nodes    []string `mapstructure:"nodes"`
	Password string   `mapstructure:"password"`
}

// Settings is the validated, immutable configuration of one cache.
// Pass it by value; nothing in this module mutates it after Load.
type Settings struct {
	Mode    Mode `mapstructure:"-"`
	Enabled bool `mapstructure:"enable"`

	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port" validate:"gte=0,lte=65535"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	Database  int    `mapstructure:"database" validate:"gte=0"`
	Namespace string `mapstructure:"namespace"`

	CommandTimeout  time.Duration `mapstructure:"commandTimeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout" validate:"gte=0"`
	TimeToLive      time.Duration `mapstructure:"timeToLive" validate:"gte=0"`

	UseSSL                       bool `mapstructure:"useSsl"`
	AutoReconnect                bool `mapstructure:"autoReconnect"`
	PingBeforeActivateConnection bool `mapstructure:"pingBeforeActivateConnection"`

	Pool     Pool             `mapstructure:",squash"`
	Cluster  ClusterSettings  `mapstructure:"cluster"`
	Sentinel SentinelSettings `mapstructure:"sentinel"`
}

// Endpoint returns the single endpoint used in Standalone mode.
func (s Settings) Endpoint() Endpoint {
	return Endpoint{Host: s.Host, Port: s.Port}
}
