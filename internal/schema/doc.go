// Package schema is the single source of truth for what an experiment record
// contains and where each piece is stored.
//
// The Registry is built once from a CUE document (registry.cue, embedded) and
// is read-only afterwards. It answers three questions for the rest of the
// system:
//
//   - Is a filter category header-resident or component-resident?
//   - How is a raw input value validated and canonicalized?
//   - How is a stored value displayed?
//
// Header variables come in a closed set of variants (Numeric, Date,
// Composition, FreeText) behind the Variable interface. Component categories
// map a part of the CompositionID (solvents or salts) to a child table.
package schema
