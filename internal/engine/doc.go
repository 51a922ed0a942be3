// Package engine wires the electrolyte components into the two control flows
// a caller needs.
//
// Write path:
//
//	raw input -> schema.Registry.Build (validate, decompose, hash) -> store.Upsert
//
// Bulk uploads go through ingest first, then land in one store transaction
// tagged with a batch id, so an upload is applied whole or not at all.
//
// Read path:
//
//	filter.Model -> compiler.Compile -> store.Run -> materialize.Apply
//
// The engine owns no state beyond its collaborators. Every operation is
// synchronous and returns its error; storage failures are logged at Error and
// still returned. A nil metrics recorder disables instrumentation.
package engine
