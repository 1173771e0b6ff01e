package harmonize

//go:generate go tool stringer -type=State,DecisionKind -trimprefix=Kind -output=state_string.go

// State is the position of a raw name in the resolution state machine.
//
//	Pending -> AutoMatched
//	Pending -> AwaitingResolution -> Resolved | Skipped
type State int

const (
	Pending State = iota
	AutoMatched
	AwaitingResolution
	Resolved
	Skipped
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == AutoMatched || s == Resolved || s == Skipped
}

// DecisionKind is the outcome chosen for an ambiguous name.
type DecisionKind int

const (
	KindAcceptTop DecisionKind = iota
	KindAcceptCandidate
	KindCustom
	KindSkip
	KindDefer
)

// Source records who produced a mapping.
type Source string

const (
	SourceAlias    Source = "alias"
	SourceAuto     Source = "auto"
	SourceOperator Source = "operator"
	SourcePrevious Source = "previous"
)
