package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// squashed marks embedded structs whose fields live at the parent level.
const squashed = "_"

func fieldValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, opts, _ := strings.Cut(fld.Tag.Get("mapstructure"), ",")
			if name == "" && strings.Contains(opts, "squash") {
				return squashed
			}
			return name
		})
	})
	return validate
}

// configKey turns a validator namespace such as "Settings._.poolMaxWait"
// into the config key "poolMaxWait".
func configKey(ns string) string {
	parts := strings.Split(ns, ".")
	keys := parts[:0]
	for _, p := range parts[1:] {
		if p != squashed {
			keys = append(keys, p)
		}
	}
	return strings.Join(keys, ".")
}

// Validate checks field ranges and the rules tied to the selected Mode.
// It returns the first violation as *Error.
func (s Settings) Validate() error {
	if err := fieldValidator().Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &Error{
				Field:  configKey(fe.Namespace()),
				Value:  fmt.Sprint(fe.Value()),
				Reason: fmt.Sprintf("must satisfy %s=%s", fe.Tag(), fe.Param()),
			}
		}
		return &Error{Field: "settings", Reason: "validation failed", Err: err}
	}

	if err := s.Pool.validate(); err != nil {
		return err
	}

	switch s.Mode {
	case Standalone:
		if s.Host == "" {
			return &Error{Field: "host", Reason: "required in standalone mode"}
		}
		if s.Port == 0 {
			return &Error{Field: "port", Reason: "required in standalone mode"}
		}
		if s.Sentinel.Master != "" {
			return &Error{Field: "sentinel.master", Reason: "only allowed in sentinel mode"}
		}
	case Clustered:
		if len(s.Cluster.Nodes) == 0 {
			return &Error{Field: "cluster.nodes", Reason: "at least one node is required in cluster mode"}
		}
		if s.Database != 0 {
			return &Error{Field: "database", Reason: "database index is only supported in standalone mode"}
		}
		if s.Sentinel.Master != "" {
			return &Error{Field: "sentinel.master", Reason: "only allowed in sentinel mode"}
		}
	case Sentinel:
		if s.Sentinel.Master == "" {
			return &Error{Field: "sentinel.master", Reason: "required in sentinel mode"}
		}
		if len(s.Sentinel.Nodes) == 0 {
			return &Error{Field: "sentinel.nodes", Reason: "at least one node is required in sentinel mode"}
		}
		if s.Database != 0 {
			return &Error{Field: "database", Reason: "database index is only supported in standalone mode"}
		}
	default:
		return &Error{Field: "mode", Value: s.Mode.String(), Reason: "unknown topology"}
	}
	return nil
}

func (p Pool) validate() error {
	if p.MaxTotal > 0 && p.MaxIdle > p.MaxTotal {
		return &Error{Field: "poolMaxIdle", Value: fmt.Sprint(p.MaxIdle), Reason: fmt.Sprintf("exceeds poolMaxTotal %d", p.MaxTotal)}
	}
	if p.MaxIdle > 0 && p.MinIdle > p.MaxIdle {
		return &Error{Field: "poolMinIdle", Value: fmt.Sprint(p.MinIdle), Reason: fmt.Sprintf("exceeds poolMaxIdle %d", p.MaxIdle)}
	}
	if p.MaxTotal > 0 && p.MinIdle > p.MaxTotal {
		return &Error{Field: "poolMinIdle", Value: fmt.Sprint(p.MinIdle), Reason: fmt.Sprintf("exceeds poolMaxTotal %d", p.MaxTotal)}
	}
	return nil
}
