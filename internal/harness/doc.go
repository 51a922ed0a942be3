// Package harness runs conformance scenarios against a real store.
//
// A scenario seeds a fresh in-memory SQLite store through the engine, runs
// one filter query and checks the materialized table. The table (without the
// ID column, rows sorted) is also compared to a golden file, so a change in
// compiler output shows up as a readable diff.
//
// # Scenario Format
//
//	name: component_and
//	description: "AND across solvents keeps only experiments with both"
//	records:
//	  - CompositionID: "DMC_EMC|50_50|LiPF6|1"
//	    Density: "1.2"
//	    Date: "1/15/2024"
//	    Trial: "1"
//	rejects:
//	  - record: {CompositionID: "DMC|90|LiPF6|1", Date: "1/15/2024", Trial: "1"}
//	    error: "Percentages of solvents must sum up to 100."
//	filter:
//	  Solvents:
//	    combinator: AND
//	    DMC: [10, null]
//	    EMC: [10, null]
//	all_columns: false
//	expect:
//	  count: 1
//	  contains:
//	    - {DMC_Percentage: 50, Density: 1.2}
//	  excludes:
//	    - {DMC_Percentage: 100}
//
// Records are submitted in order; two records with identical content
// collapse into one experiment. Rejects must fail validation with exactly the
// given message and leave the store untouched.
//
// # Expectations
//
//   - count: exact number of result rows
//   - contains: each entry must match at least one row (subset of columns)
//   - excludes: no entry may match any row
package harness
