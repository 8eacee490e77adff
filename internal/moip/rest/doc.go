// Package rest implements the controller's structured API client.
//
// The MoIP controller serves a JSON API under /api/v1 with bearer-token
// authentication. A login returns {accessToken, expiresIn}; the client
// caches one session per instance and refreshes it inside a 60 second
// margin before expiry. The refresh section is mutex-guarded, so
// concurrent callers racing past an expired token produce exactly one
// login between them.
//
// # Resource Model
//
// Collections follow a list-then-fetch pattern: the list endpoint returns
// bare numeric IDs in an {"items": [...]} envelope and every detail
// requires an individual fetch. The bulk helpers (AllUnitsDetailed,
// AllGroupsDetailed) perform that fan-in and skip items whose individual
// fetch fails, reporting how many were skipped.
//
// Two ID spaces meet here. The line protocol addresses devices by small
// per-side integers (Tx3, Rx7); the structured API addresses resources by
// opaque IDs. ResolveVideoResourceID is the single translation point: it
// scans the detailed group records for the matching settings index and
// returns the associated video resource ID. Every per-device video
// operation resolves before it calls.
//
// # Error Taxonomy
//
//   - ErrUnreachable: transport failure (dial, TLS, timeout)
//   - ErrUnauthorized: HTTP 401, distinct so callers can tell bad
//     credentials from a dead controller
//   - ErrResourceNotFound: cross-protocol resolution found no resource
//   - StatusError: any other non-2xx, matching ErrStatus via errors.Is
//
// Nothing retries automatically; a failed call surfaces immediately.
package rest
