// Package topocache implements a typed cache over a Redis deployment whose
// topology (standalone, cluster or sentinel) is picked from configuration and
// hidden behind one API.
//
// Components:
//   - config: declarative settings, loaded from file, env and profile.
//   - topology: turns settings into a live session for exactly one topology.
//   - session: byte store with TTL (Redis, or in-process BigCache/Ristretto).
//   - codec: KeyCodec[K] and Codec[V]; values are framed with a type tag.
//
// Keys:
//
//	<ns>:<encoded key>  - when Options.Namespace is set
//	<encoded key>       - otherwise
//
// Composition:
//
//	settings, _ := config.Load(config.LoadOptions{})
//	cache, err := topocache.Open[string, User](ctx, settings, topocache.Options[string, User]{})
//	defer cache.Close(ctx)
//
// Every write carries the configured TTL. Hit and miss counters are kept per
// cache instance; read them with HitCount and MissCount.
package topocache
