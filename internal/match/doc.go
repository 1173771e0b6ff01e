// Package match provides the alias index, string processing, similarity
// scorers and candidate ranking used to harmonize entity names.
//
// Key functions:
//   - BuildIndex: case-insensitive alias -> canonical name lookup
//   - Process: default string processing applied before scoring
//   - Ratio, PartialRatio, TokenSetRatio, ...: 0-100 similarity scorers
//   - ParseScorer: validated selection of a scorer by configuration name
//   - Ranker.Rank: ranks canonical entities against an unmatched name
package match
