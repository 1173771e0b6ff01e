// Package prompt implements the interactive decision provider used by the
// harmonize command.
//
// A Console shows each ambiguous name with its numbered candidates and
// reads one command per line:
//
//	(blank)  accept the top ranked candidate (entry 1)
//	n        accept entry n; entry 0 is the institution candidate
//	i        skip the name (the marker is configurable)
//	c        read the next line as a custom target name
//	more     show the next page of candidates
//
// Anything else is rejected and the same name is asked again. End of
// input interrupts the session.
package prompt
