// Package store persists harmonization results.
//
// Mappings are written as indented JSON objects (raw name -> target), the
// format downstream cleaning scripts read. A SQLite database optionally
// keeps the history of every session with the state of each raw name.
//
// Key types and functions:
//   - WriteJSON / ReadJSON: mapping files
//   - MappingPath: conventional mapping file location for a dataset
//   - SQLite: session history database
package store
