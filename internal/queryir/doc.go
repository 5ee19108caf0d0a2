// Package queryir provides declarative filters over causal-graph labels.
//
// The same Filter value can be evaluated two ways:
//
//	[Filter] → Matcher   → cae.Predicate   (live subscriptions, this turn)
//	         → querysql  → parameterised SQL (archived turns)
//
// so a narration rule or a CLI query is written once and applied both to
// the running simulation and to the turn archive.
//
// PORTABLE FRAGMENT:
//
// Filters that both backends evaluate identically:
//   - KindIs(kinds...)
//   - Equals{Field, Value} with string, int, bool or array values
//   - And / Or of portable filters
//
// Object values are only understood by the live matcher. Validate reports
// them, together with malformed field names, as warnings.
//
// SEALED INTERFACES:
//
// Filter is sealed with a marker method so backends can switch
// exhaustively over its variants.
//
// The special field "kind" compares against the label kind name rather
// than a label field.
package queryir
