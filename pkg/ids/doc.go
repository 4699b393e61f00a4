// Package ids defines the identifier value types used by the OCPP core.
//
// All identifiers are string based and share one generic pattern
// (Identifier) for parsing, comparison and emptiness checks instead of
// per-type helpers.
//
// # Generation
//
// Identifiers are minted through an injected Generator so callers and
// tests control the randomness source:
//
//	gen := ids.NewGenerator(ids.PolicyCryptographic)
//	reqID := gen.NewRequestID()
//
// PolicyCryptographic draws from crypto/rand (via UUIDv4). PolicyFast uses a
// seeded PCG source and is only meant for identifiers that do not need to
// be unpredictable, such as event tracking ids.
package ids
