// Package queryir provides the join-plan intermediate representation that
// the filter compiler produces and the SQL backend renders.
//
// ARCHITECTURE:
//
//	[filter model] → [compiler] → [Query IR] → [querysql] → SQL + params
//
// The IR describes which experiment IDs survive a filter and which value
// columns each surviving row carries. It is a small relational algebra over
// ID-keyed row sets:
//
//   - Select(from, key, filter, values) - one table, filtered, projected to
//     the key column plus named value columns
//   - Intersect(inputs...) - IDs present in every input; carries every
//     input's value columns
//   - Union(inputs...) - IDs present in any input; value columns merged per
//     ID, a column that an input does not carry counts as zero
//   - Project(matched, header, columns, values) - matched IDs joined back to
//     the header table for display
//
// Predicates: Equals, Range (inclusive, either side open), And, Or.
//
// SEALED INTERFACES:
//
// Query and Predicate are sealed with marker methods so backends can switch
// exhaustively:
//
//	switch q := query.(type) {
//	case *Select:
//	case *Intersect:
//	case *Union:
//	case *Project:
//	}
//
// Nodes are used by pointer. A node reachable along two paths is the same
// sub-plan, and backends may render it once.
//
// Rendering order and placeholders belong to the backend. The IR itself
// carries no SQL text, only table and column names taken from the schema
// registry.
package queryir
