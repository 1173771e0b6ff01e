// Package harmonize runs a harmonization session: it maps the distinct raw
// entity names of a dataset onto canonical names.
//
// A session first splits the names into exact alias hits (AutoMatched) and
// ambiguous names (AwaitingResolution). Each ambiguous name is then offered
// its ranked candidates through a DecisionProvider, which returns one of
// AcceptTop, AcceptCandidate, Custom, Skip or Defer.
//
// Providers:
//   - Automatic: accepts the top candidate at or above a score threshold
//   - Chain: asks several providers in turn until one decides
//   - prompt.Console (internal/prompt): a human operator at a terminal
//
// Once a canonical name has been accepted as a resolution target it is not
// offered again for later names of the same session, whichever provider
// made the decision. Config.ExcludeConsumed=false turns this off.
// Auto-matched targets are never excluded.
package harmonize
