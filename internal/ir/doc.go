// Package ir provides the constrained value model shared by labels, the
// turn archive and declarative filters.
//
// ir imports nothing internal; every other package may import it.
//
// Key constraints:
//   - NO float values. Positions, amounts and ids are int64.
//   - NO null. Absent fields are omitted, never encoded as null.
//   - Canonical JSON (RFC 8785) is the only encoding used for digests.
package ir
