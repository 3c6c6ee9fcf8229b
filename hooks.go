package topocache

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The cache calls them on hot paths.
type Hooks interface {
	// Get found and decoded an entry.
	Hit(storageKey string)
	// Get found nothing under storageKey.
	Miss(storageKey string)

	// The session failed; op ∈ {"put", "get", "remove", "clear", "contains"}.
	// storageKey is empty for clear.
	StoreError(op, storageKey string, err error)

	// A key or value could not be encoded, or a stored entry could not be
	// decoded. storageKey is empty when the key itself failed to encode.
	CodecError(op, storageKey string, err error)

	// An undecodable entry was deleted on read.
	// reason ∈ {"value_decode"}
	SelfHeal(storageKey, reason string)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) Hit(string)                       {}
func (NopHooks) Miss(string)                      {}
func (NopHooks) StoreError(string, string, error) {}
func (NopHooks) CodecError(string, string, error) {}
func (NopHooks) SelfHeal(string, string)          {}
