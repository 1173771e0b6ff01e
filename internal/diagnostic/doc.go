// Package diagnostic provides structured warnings, errors, and
// informational notes collected while building an alias index or running
// a harmonization session.
//
// Key capabilities:
//   - Alias collision reports
//   - Unresolved name warnings with top-N candidates
//   - Non-canonical target notes
//   - Alias persistence failures
package diagnostic
