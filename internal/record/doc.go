// Package record defines the experiment record model and its content-addressed
// identity.
//
// An Experiment is one header row of scalar fields plus, per component
// category, a variable-length list of (name, value) components. Only the
// scalar fields take part in identity: the components are fully determined by
// the CompositionID scalar they were decoded from.
//
// # Identity
//
// DeriveID hashes the canonical JSON form of the scalar fields:
//
//	hex(SHA256("electrolyte/experiment/v1" || 0x00 || canonicalJSON(fields)))
//
// Canonical JSON sorts object keys by UTF-16 code units, NFC-normalizes
// strings, writes decimals with exactly ten fractional digits and writes
// absent fields as null. Field insertion order therefore never changes an ID,
// and neither does float noise below 1e-10.
//
// The domain string carries the encoding version. Any change to the canonical
// form must bump it; IDs from different versions are not comparable.
package record
