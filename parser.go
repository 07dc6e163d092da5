package migbatch

import (
	"strings"
)

// NewStepMarker is the text a migration prints to announce a new step, the rest of the line is the step label
const NewStepMarker = "new_step:"

// OutputKind classifies an OutputLine
type OutputKind int

const (
	// WarningLine is an informational line attached to the current step
	WarningLine OutputKind = iota
	// StepMarkerLine announces a new step
	StepMarkerLine
)

// OutputLine is one classified line of process output
type OutputLine struct {
	Kind OutputKind
	// Text is the step label for a StepMarkerLine, the raw line for a WarningLine
	Text string
}

// Classify a line printed by a migration. Empty lines produce no event (ok is false).
//
// The marker is searched anywhere in the line, not only as a prefix, and every occurrence is removed to build the
// label. A warning that happens to contain the marker text is therefore read as a step boundary.
func Classify(line string) (out OutputLine, ok bool) {
	if line == "" {
		return OutputLine{}, false
	}
	if strings.Contains(line, NewStepMarker) {
		return OutputLine{Kind: StepMarkerLine, Text: strings.ReplaceAll(line, NewStepMarker, "")}, true
	}
	return OutputLine{Kind: WarningLine, Text: line}, true
}
