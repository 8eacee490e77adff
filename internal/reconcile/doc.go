// Package reconcile merges the controller's two protocol views into the
// canonical device inventory.
//
// The line protocol addresses endpoints by small 1-based slot indexes; the
// structured API addresses them by opaque group IDs. A reconciliation pass
// fetches the detailed group and unit records from the structured API,
// classifies each endpoint's subtype, and merge-upserts one inventory
// record per group, keyed by group ID.
//
// A pass is best-effort at the item level (unfetchable groups are skipped
// and counted) but fails as a whole on list or store errors, leaving any
// partial writes in place.
package reconcile
