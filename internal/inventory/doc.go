// Package inventory persists the canonical device records for the MoIP
// matrix.
//
// A device record is keyed by the controller API's group ID — the only
// identifier that survives hardware swaps. The (device_type, device_index)
// pair identifies the slot a device currently occupies and is a lookup key
// only, never an identity.
//
// Records are written by reconciliation through Upsert, which merges rather
// than replaces: a nil incoming field never overwrites a stored value, while
// the slot attributes (type, index, subtype) always reflect the latest pass.
package inventory
