// Package sessionstore abstracts per-visitor key/value storage behind a
// small capability interface. Two families of implementations exist: a
// client-side store that round-trips the whole record through a signed
// cookie, and server-side stores (in-memory, redis, echo sessions) keyed
// by a visitor session.
package sessionstore

// Store is the capability set session consumers program against.
type Store interface {
	// Get returns the stored value for field. The second return value
	// reports whether the field was present; a missing field is not an
	// error.
	Get(field string) (string, bool)

	// Set stores value under field. The previous value, if any, is
	// overwritten.
	Set(field, value string) error

	// Delete removes field. Deleting an absent field is a no-op.
	Delete(field string) error
}
