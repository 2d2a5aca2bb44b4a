// Package services defines shared utilities consumed by the editing core and
// the acquisition providers.
//
// Key responsibilities:
//   - Context helpers that stamp media item IDs, command IDs, provider names,
//     and correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures with errors.Is (not found, invariant, acquisition, ...).
//
// Use these helpers when wiring new commands or providers so operational
// behaviour (error classification, observability) stays uniform.
package services
